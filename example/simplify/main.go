// Command simplify reduces the first triangle primitive of a glTF asset
// with the qem simplifier and writes the result as a Wavefront OBJ file,
// reporting what the run did.
//
// Usage:
//
//	simplify -in model.glb -out model_lod1.obj -ratio 0.25
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mjrister/qem"
	"github.com/mjrister/qem/halfedge"
)

func main() {
	in := flag.String("in", "", "input glTF/GLB file")
	out := flag.String("out", "out.obj", "output OBJ file")
	ratio := flag.Float64("ratio", 0.5, "target fraction of the original triangle count")
	maxCost := flag.Float64("max-cost", 0, "stop once the cheapest collapse costs more than this (0 = no limit)")
	flag.Parse()

	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(*in, *out, *ratio, *maxCost); err != nil {
		fmt.Fprintln(os.Stderr, "simplify:", err)
		os.Exit(1)
	}
}

func run(in, out string, ratio, maxCost float64) error {
	im, err := loadFirstPrimitive(in)
	if err != nil {
		return err
	}

	before := im.TriangleCount()
	target := int(float64(before) * ratio)
	simplified, stats, err := qem.Simplify(im, qem.Options{
		TargetFaceCount: target,
		MaxCost:         maxCost,
	})
	if err != nil {
		return err
	}

	fmt.Printf("triangles: %d -> %d (target %d)\n", before, simplified.TriangleCount(), target)
	fmt.Printf("collapses: %d applied, %d rejected, %d repriced\n", stats.Collapses, stats.Rejected, stats.Recomputed)
	fmt.Printf("accumulated error: %g\n", stats.CostAccum)

	return writeOBJ(out, simplified)
}

// loadFirstPrimitive decodes the positions and indices of the first
// triangle primitive in the document into the simplifier's exchange format.
func loadFirstPrimitive(name string) (halfedge.IndexedMesh, error) {
	doc, err := gltf.Open(name)
	if err != nil {
		return halfedge.IndexedMesh{}, err
	}
	if len(doc.Meshes) == 0 || len(doc.Meshes[0].Primitives) == 0 {
		return halfedge.IndexedMesh{}, fmt.Errorf("%s: no mesh primitives", name)
	}
	prim := doc.Meshes[0].Primitives[0]

	posIndex, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return halfedge.IndexedMesh{}, fmt.Errorf("%s: primitive has no POSITION attribute", name)
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIndex], nil)
	if err != nil {
		return halfedge.IndexedMesh{}, err
	}
	if prim.Indices == nil {
		return halfedge.IndexedMesh{}, fmt.Errorf("%s: primitive is not indexed", name)
	}
	indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
	if err != nil {
		return halfedge.IndexedMesh{}, err
	}

	im := halfedge.IndexedMesh{
		Positions: make([]mgl64.Vec3, len(positions)),
		Indices:   indices,
	}
	for i, p := range positions {
		im.Positions[i] = mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])}
	}
	return im, nil
}

func writeOBJ(name string, im halfedge.IndexedMesh) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, p := range im.Positions {
		fmt.Fprintf(w, "v %g %g %g\n", p.X(), p.Y(), p.Z())
	}
	for i := 0; i+2 < len(im.Indices); i += 3 {
		// OBJ indices are 1-based.
		fmt.Fprintf(w, "f %d %d %d\n", im.Indices[i]+1, im.Indices[i+1]+1, im.Indices[i+2]+1)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
