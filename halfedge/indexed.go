package halfedge

import "github.com/go-gl/mathgl/mgl64"

// IndexedMesh is the exchange format between the simplification core and
// its surrounding asset pipeline: flat position data plus index triples,
// ready for GPU vertex/index buffer upload. Normals and UVs are optional;
// when present they are parallel to Positions.
type IndexedMesh struct {
	Positions []mgl64.Vec3
	Normals   []mgl64.Vec3
	UVs       []mgl64.Vec2
	Indices   []uint32
}

// TriangleCount is the number of index triples.
func (im IndexedMesh) TriangleCount() int { return len(im.Indices) / 3 }

// ToIndexedMesh compacts the live topology back into a dense indexed
// triangle list. Vertices are renumbered from 0 in order of first
// appearance, walking faces in arena order; removed and unreferenced
// vertices are dropped. Attributes carried by the mesh are compacted the
// same way, so exporting and rebuilding round-trips losslessly.
func (m *Mesh) ToIndexedMesh() IndexedMesh {
	remap := make(map[VertexID]uint32, m.liveVertices)
	out := IndexedMesh{
		Positions: make([]mgl64.Vec3, 0, m.liveVertices),
		Indices:   make([]uint32, 0, 3*m.liveFaces),
	}
	hasNormals := len(m.normals) > 0
	hasUVs := len(m.uvs) > 0

	for f := range m.faces {
		if m.removedFace[f] {
			continue
		}
		h := m.faces[f].Edge
		for k := 0; k < 3; k++ {
			v := m.halfEdges[h].Origin
			idx, ok := remap[v]
			if !ok {
				idx = uint32(len(out.Positions))
				remap[v] = idx
				out.Positions = append(out.Positions, m.vertices[v].Position)
				if hasNormals {
					out.Normals = append(out.Normals, m.normals[v])
				}
				if hasUVs {
					out.UVs = append(out.UVs, m.uvs[v])
				}
			}
			out.Indices = append(out.Indices, idx)
			h = m.halfEdges[h].Next
		}
	}
	return out
}
