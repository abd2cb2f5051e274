// Package halfedge implements an arena-backed half-edge representation of a
// triangulated 2-manifold mesh, possibly with boundary.
//
// Every vertex, half-edge and face lives in a slice owned by Mesh, and all
// cross-references between records are integer handles into those slices.
// Handles are stable for the lifetime of the mesh: topology edits mark
// records as removed instead of moving them, and ToIndexedMesh performs the
// final compaction. This keeps the cyclic vertex/edge/face graph free of
// ownership cycles while preserving O(1) traversal.
//
// References:
//   - Guibas, Stolfi: "Primitives for the Manipulation of General
//     Subdivisions and the Computation of Voronoi Diagrams" (1985)
//   - Botsch et al.: "Polygon Mesh Processing" (2010), ch. 2
package halfedge

import (
	"errors"
	"fmt"
	"iter"

	"github.com/go-gl/mathgl/mgl64"
)

// VertexID is a handle into the mesh's vertex arena.
type VertexID int

// HalfEdgeID is a handle into the mesh's half-edge arena.
type HalfEdgeID int

// FaceID is a handle into the mesh's face arena.
type FaceID int

const (
	NoVertex   VertexID   = -1
	NoHalfEdge HalfEdgeID = -1
	NoFace     FaceID     = -1
)

// ErrInvalidTopology reports input that is not a consistent, orientable
// 2-manifold triangle mesh. Returned only by Build.
var ErrInvalidTopology = errors.New("halfedge: invalid topology")

// ErrDegenerateCollapse reports an edge collapse that would corrupt the
// mesh. The mesh is left untouched; the caller discards the candidate and
// moves on.
var ErrDegenerateCollapse = errors.New("halfedge: degenerate collapse")

// Vertex is a topological node. Leaving is one live half-edge whose origin
// is this vertex, or NoHalfEdge for an isolated or removed vertex. Every
// topology-mutating operation that removes a vertex's current Leaving edge
// reassigns it before returning.
type Vertex struct {
	Position mgl64.Vec3
	Leaving  HalfEdgeID
}

// HalfEdge is one of the two directed records of an undirected edge.
// Twin is NoHalfEdge exactly when the edge lies on the mesh boundary;
// otherwise Twin(Twin(h)) == h. Next walks counter-clockwise around Face
// and cycles with period three.
type HalfEdge struct {
	Origin VertexID
	Twin   HalfEdgeID
	Next   HalfEdgeID
	Face   FaceID
}

// Face is a triangle. Edge is one of its three bounding half-edges; the
// other two are reachable through Next.
type Face struct {
	Edge HalfEdgeID
}

// Mesh owns the vertex, half-edge and face arenas and is the only component
// allowed to mutate topology. It is not safe for concurrent use; callers
// that simplify several meshes in parallel give each goroutine its own Mesh.
type Mesh struct {
	vertices  []Vertex
	halfEdges []HalfEdge
	faces     []Face

	// Optional per-vertex attributes, parallel to vertices when present.
	// They ride along through collapses and compaction untouched.
	normals []mgl64.Vec3
	uvs     []mgl64.Vec2

	removedVertex   []bool
	removedHalfEdge []bool
	removedFace     []bool

	liveVertices int
	liveFaces    int
}

// Build constructs the half-edge structure from an indexed triangle list.
//
// Twin pairing matches each directed edge (a, b) against its reverse (b, a).
// A directed edge seen twice means either an undirected edge shared by more
// than two triangles or inconsistent winding between neighbours; both make
// the pairing ambiguous and fail with ErrInvalidTopology. Directed edges
// left unmatched become boundary half-edges (Twin == NoHalfEdge).
func Build(im IndexedMesh) (*Mesh, error) {
	if len(im.Indices)%3 != 0 {
		return nil, fmt.Errorf("%w: index count %d is not a multiple of 3", ErrInvalidTopology, len(im.Indices))
	}
	if len(im.Normals) > 0 && len(im.Normals) != len(im.Positions) {
		return nil, fmt.Errorf("%w: %d normals for %d positions", ErrInvalidTopology, len(im.Normals), len(im.Positions))
	}
	if len(im.UVs) > 0 && len(im.UVs) != len(im.Positions) {
		return nil, fmt.Errorf("%w: %d uvs for %d positions", ErrInvalidTopology, len(im.UVs), len(im.Positions))
	}

	triangles := len(im.Indices) / 3
	m := &Mesh{
		vertices:        make([]Vertex, len(im.Positions)),
		halfEdges:       make([]HalfEdge, 0, len(im.Indices)),
		faces:           make([]Face, 0, triangles),
		normals:         append([]mgl64.Vec3(nil), im.Normals...),
		uvs:             append([]mgl64.Vec2(nil), im.UVs...),
		removedVertex:   make([]bool, len(im.Positions)),
		removedHalfEdge: make([]bool, len(im.Indices)),
		removedFace:     make([]bool, triangles),
		liveVertices:    len(im.Positions),
		liveFaces:       triangles,
	}
	for i, p := range im.Positions {
		m.vertices[i] = Vertex{Position: p, Leaving: NoHalfEdge}
	}

	type directedEdge struct{ from, to VertexID }
	seen := make(map[directedEdge]HalfEdgeID, len(im.Indices))

	for t := 0; t < triangles; t++ {
		var corner [3]VertexID
		for k := 0; k < 3; k++ {
			idx := im.Indices[3*t+k]
			if int(idx) >= len(im.Positions) {
				return nil, fmt.Errorf("%w: triangle %d references vertex %d of %d", ErrInvalidTopology, t, idx, len(im.Positions))
			}
			corner[k] = VertexID(idx)
		}
		if corner[0] == corner[1] || corner[1] == corner[2] || corner[0] == corner[2] {
			return nil, fmt.Errorf("%w: triangle %d has repeated vertices (%d, %d, %d)", ErrInvalidTopology, t, corner[0], corner[1], corner[2])
		}

		face := FaceID(len(m.faces))
		base := HalfEdgeID(len(m.halfEdges))
		for k := 0; k < 3; k++ {
			m.halfEdges = append(m.halfEdges, HalfEdge{
				Origin: corner[k],
				Twin:   NoHalfEdge,
				Next:   base + HalfEdgeID((k+1)%3),
				Face:   face,
			})
		}
		m.faces = append(m.faces, Face{Edge: base})

		for k := 0; k < 3; k++ {
			h := base + HalfEdgeID(k)
			from, to := corner[k], corner[(k+1)%3]
			if dup, ok := seen[directedEdge{from, to}]; ok {
				return nil, fmt.Errorf("%w: edge %d->%d bounds faces %d and %d (non-manifold sharing or inconsistent winding)",
					ErrInvalidTopology, from, to, m.halfEdges[dup].Face, face)
			}
			seen[directedEdge{from, to}] = h
			if opp, ok := seen[directedEdge{to, from}]; ok {
				m.halfEdges[h].Twin = opp
				m.halfEdges[opp].Twin = h
			}
			m.vertices[from].Leaving = h
		}
	}
	return m, nil
}

// ============================================================================
// Accessors
// ============================================================================

func (m *Mesh) Vertex(id VertexID) Vertex       { return m.vertices[id] }
func (m *Mesh) HalfEdge(id HalfEdgeID) HalfEdge { return m.halfEdges[id] }
func (m *Mesh) Face(id FaceID) Face             { return m.faces[id] }

func (m *Mesh) VertexAlive(id VertexID) bool {
	return id >= 0 && int(id) < len(m.vertices) && !m.removedVertex[id]
}

func (m *Mesh) HalfEdgeAlive(id HalfEdgeID) bool {
	return id >= 0 && int(id) < len(m.halfEdges) && !m.removedHalfEdge[id]
}

func (m *Mesh) FaceAlive(id FaceID) bool {
	return id >= 0 && int(id) < len(m.faces) && !m.removedFace[id]
}

// VertexCount is the arena size, removed vertices included. Use LiveVertices
// for the number of vertices still in the mesh.
func (m *Mesh) VertexCount() int   { return len(m.vertices) }
func (m *Mesh) HalfEdgeCount() int { return len(m.halfEdges) }
func (m *Mesh) FaceCount() int     { return len(m.faces) }

func (m *Mesh) LiveVertices() int { return m.liveVertices }
func (m *Mesh) LiveFaces() int    { return m.liveFaces }

// Position is shorthand for Vertex(id).Position.
func (m *Mesh) Position(id VertexID) mgl64.Vec3 { return m.vertices[id].Position }

// Destination is the vertex the half-edge points at. It works on boundary
// half-edges too, since it goes through Next rather than Twin.
func (m *Mesh) Destination(h HalfEdgeID) VertexID {
	return m.halfEdges[m.halfEdges[h].Next].Origin
}

// prev is the half-edge preceding h around its face. Faces are triangles,
// so two Next hops get there.
func (m *Mesh) prev(h HalfEdgeID) HalfEdgeID {
	return m.halfEdges[m.halfEdges[h].Next].Next
}

// ============================================================================
// Traversal
// ============================================================================

// OneRing yields every half-edge whose origin is v, one full fan in
// counter-clockwise order. The sequence is lazy and restartable; each range
// starts a fresh walk. On boundary vertices the walk first rewinds
// clockwise to the boundary-most outgoing edge so that the forward pass
// still covers the whole fan.
func (m *Mesh) OneRing(v VertexID) iter.Seq[HalfEdgeID] {
	return func(yield func(HalfEdgeID) bool) {
		if !m.VertexAlive(v) {
			return
		}
		start := m.vertices[v].Leaving
		if start == NoHalfEdge {
			return
		}
		h := start
		for {
			p := m.prev(h)
			if m.halfEdges[p].Twin == NoHalfEdge {
				break // h is the first outgoing edge after the boundary
			}
			h = m.halfEdges[p].Twin
			if h == start {
				break // closed fan, any starting point will do
			}
		}
		first := h
		for {
			if !yield(h) {
				return
			}
			t := m.halfEdges[h].Twin
			if t == NoHalfEdge {
				return // reached the boundary on the far side
			}
			h = m.halfEdges[t].Next
			if h == first {
				return
			}
		}
	}
}

// IsBoundaryVertex reports whether v touches the mesh boundary. A boundary
// vertex always has exactly one outgoing boundary half-edge, so scanning the
// one-ring suffices.
func (m *Mesh) IsBoundaryVertex(v VertexID) bool {
	for h := range m.OneRing(v) {
		if m.halfEdges[h].Twin == NoHalfEdge {
			return true
		}
	}
	return false
}

// Bounds returns the axis-aligned bounding box of all live vertices.
func (m *Mesh) Bounds() (min, max mgl64.Vec3) {
	first := true
	for i := range m.vertices {
		if m.removedVertex[i] {
			continue
		}
		p := m.vertices[i].Position
		if first {
			min, max = p, p
			first = false
			continue
		}
		for k := 0; k < 3; k++ {
			if p[k] < min[k] {
				min[k] = p[k]
			}
			if p[k] > max[k] {
				max[k] = p[k]
			}
		}
	}
	return min, max
}

// ============================================================================
// Consistency checking
// ============================================================================

// Validate walks the whole arena and checks the structural invariants:
// twin reciprocity, Next cycling with period three, face back-references,
// leaving-edge liveness and the live counters. It is meant for tests and
// debugging, not for per-edit use.
func (m *Mesh) Validate() error {
	liveV, liveF := 0, 0
	for i := range m.vertices {
		if m.removedVertex[i] {
			continue
		}
		liveV++
		leaving := m.vertices[i].Leaving
		if leaving == NoHalfEdge {
			continue // isolated vertices are allowed until export drops them
		}
		if !m.HalfEdgeAlive(leaving) {
			return fmt.Errorf("vertex %d: leaving half-edge %d is removed", i, leaving)
		}
		if m.halfEdges[leaving].Origin != VertexID(i) {
			return fmt.Errorf("vertex %d: leaving half-edge %d originates at %d", i, leaving, m.halfEdges[leaving].Origin)
		}
	}
	for i := range m.halfEdges {
		if m.removedHalfEdge[i] {
			continue
		}
		h := HalfEdgeID(i)
		he := m.halfEdges[i]
		if !m.VertexAlive(he.Origin) {
			return fmt.Errorf("half-edge %d: origin %d is removed", i, he.Origin)
		}
		if he.Twin != NoHalfEdge {
			if !m.HalfEdgeAlive(he.Twin) {
				return fmt.Errorf("half-edge %d: twin %d is removed", i, he.Twin)
			}
			if m.halfEdges[he.Twin].Twin != h {
				return fmt.Errorf("half-edge %d: twin %d points back at %d", i, he.Twin, m.halfEdges[he.Twin].Twin)
			}
		}
		if m.halfEdges[m.halfEdges[he.Next].Next].Next != h {
			return fmt.Errorf("half-edge %d: Next does not cycle with period 3", i)
		}
		if he.Origin == m.Destination(h) {
			return fmt.Errorf("half-edge %d: zero-length edge at vertex %d", i, he.Origin)
		}
		if !m.FaceAlive(he.Face) {
			return fmt.Errorf("half-edge %d: face %d is removed", i, he.Face)
		}
	}
	for i := range m.faces {
		if m.removedFace[i] {
			continue
		}
		liveF++
		h := m.faces[i].Edge
		for k := 0; k < 3; k++ {
			if !m.HalfEdgeAlive(h) {
				return fmt.Errorf("face %d: bounding half-edge %d is removed", i, h)
			}
			if m.halfEdges[h].Face != FaceID(i) {
				return fmt.Errorf("face %d: half-edge %d references face %d", i, h, m.halfEdges[h].Face)
			}
			h = m.halfEdges[h].Next
		}
	}
	if liveV != m.liveVertices {
		return fmt.Errorf("live vertex counter is %d, arena has %d", m.liveVertices, liveV)
	}
	if liveF != m.liveFaces {
		return fmt.Errorf("live face counter is %d, arena has %d", m.liveFaces, liveF)
	}
	return nil
}
