package halfedge

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// cubeMesh is a unit cube: 8 vertices, 12 triangles, closed and
// consistently wound counter-clockwise seen from outside.
func cubeMesh() IndexedMesh {
	return IndexedMesh{
		Positions: []mgl64.Vec3{
			{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
			{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
		},
		Indices: []uint32{
			0, 2, 1, 0, 3, 2, // bottom
			4, 5, 6, 4, 6, 7, // top
			0, 1, 5, 0, 5, 4, // front
			1, 2, 6, 1, 6, 5, // right
			2, 3, 7, 2, 7, 6, // back
			3, 0, 4, 3, 4, 7, // left
		},
	}
}

// gridMesh is a flat 3x3 vertex grid in the z=0 plane: 9 vertices,
// 8 triangles, with vertex 4 the only interior vertex.
func gridMesh() IndexedMesh {
	return IndexedMesh{
		Positions: []mgl64.Vec3{
			{0, 0, 0}, {1, 0, 0}, {2, 0, 0},
			{0, 1, 0}, {1, 1, 0}, {2, 1, 0},
			{0, 2, 0}, {1, 2, 0}, {2, 2, 0},
		},
		Indices: []uint32{
			0, 1, 4, 0, 4, 3,
			1, 2, 5, 1, 5, 4,
			3, 4, 7, 3, 7, 6,
			4, 5, 8, 4, 8, 7,
		},
	}
}

// triangleMesh is a single isolated triangle.
func triangleMesh() IndexedMesh {
	return IndexedMesh{
		Positions: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Indices:   []uint32{0, 1, 2},
	}
}

// quadMesh is two triangles sharing the diagonal 0-2.
func quadMesh() IndexedMesh {
	return IndexedMesh{
		Positions: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	}
}

// pillowMesh is two triangles sharing all three vertices, one per side.
// Combinatorially manifold, but no edge of it can be collapsed.
func pillowMesh() IndexedMesh {
	return IndexedMesh{
		Positions: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Indices:   []uint32{0, 1, 2, 1, 0, 2},
	}
}

// findHalfEdge scans the arena for the live half-edge u -> v.
func findHalfEdge(t *testing.T, m *Mesh, u, v VertexID) HalfEdgeID {
	t.Helper()
	for i := 0; i < m.HalfEdgeCount(); i++ {
		h := HalfEdgeID(i)
		if m.HalfEdgeAlive(h) && m.halfEdges[i].Origin == u && m.Destination(h) == v {
			return h
		}
	}
	t.Fatalf("no live half-edge %d -> %d", u, v)
	return NoHalfEdge
}

func ringDestinations(m *Mesh, v VertexID) map[VertexID]bool {
	out := make(map[VertexID]bool)
	for h := range m.OneRing(v) {
		out[m.Destination(h)] = true
	}
	return out
}

func TestBuildCube(t *testing.T) {
	m, err := Build(cubeMesh())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if got := m.LiveVertices(); got != 8 {
		t.Errorf("LiveVertices() = %d, want 8", got)
	}
	if got := m.LiveFaces(); got != 12 {
		t.Errorf("LiveFaces() = %d, want 12", got)
	}
	if got := m.HalfEdgeCount(); got != 36 {
		t.Errorf("HalfEdgeCount() = %d, want 36", got)
	}
	// A closed mesh has no boundary half-edges.
	for i := 0; i < m.HalfEdgeCount(); i++ {
		if m.halfEdges[i].Twin == NoHalfEdge {
			t.Errorf("half-edge %d has no twin on a closed mesh", i)
		}
	}
	for v := VertexID(0); v < 8; v++ {
		if m.IsBoundaryVertex(v) {
			t.Errorf("IsBoundaryVertex(%d) = true on a closed mesh", v)
		}
	}
}

func TestBuildRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		in   IndexedMesh
	}{
		{
			// The spec scenario: three triangles sharing the edge 0-1.
			"non-manifold edge",
			IndexedMesh{
				Positions: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}},
				Indices:   []uint32{0, 1, 2, 1, 0, 3, 1, 0, 4},
			},
		},
		{
			"inconsistent winding",
			IndexedMesh{
				Positions: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, -1, 0}},
				Indices:   []uint32{0, 1, 2, 0, 1, 3},
			},
		},
		{
			"repeated vertex in triangle",
			IndexedMesh{
				Positions: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}},
				Indices:   []uint32{0, 1, 1},
			},
		},
		{
			"index out of range",
			IndexedMesh{
				Positions: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
				Indices:   []uint32{0, 1, 3},
			},
		},
		{
			"index count not a multiple of 3",
			IndexedMesh{
				Positions: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
				Indices:   []uint32{0, 1, 2, 0},
			},
		},
		{
			"normal count mismatch",
			IndexedMesh{
				Positions: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
				Normals:   []mgl64.Vec3{{0, 0, 1}},
				Indices:   []uint32{0, 1, 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(tt.in); !errors.Is(err, ErrInvalidTopology) {
				t.Errorf("Build() error = %v, want ErrInvalidTopology", err)
			}
		})
	}
}

func TestOneRingInterior(t *testing.T) {
	m, err := Build(gridMesh())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	var count int
	for h := range m.OneRing(4) {
		if m.halfEdges[h].Origin != 4 {
			t.Errorf("one-ring of 4 yielded half-edge %d with origin %d", h, m.halfEdges[h].Origin)
		}
		count++
	}
	if count != 6 {
		t.Errorf("one-ring of interior vertex has %d edges, want 6", count)
	}

	want := map[VertexID]bool{0: true, 1: true, 3: true, 5: true, 7: true, 8: true}
	got := ringDestinations(m, 4)
	if len(got) != len(want) {
		t.Fatalf("one-ring destinations = %v, want %v", got, want)
	}
	for v := range want {
		if !got[v] {
			t.Errorf("one-ring of 4 misses neighbour %d", v)
		}
	}
}

func TestOneRingBoundary(t *testing.T) {
	m, err := Build(gridMesh())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	// Vertex 1 sits on the boundary; its stored outgoing edges are
	// 1->4, 1->2 and 1->5, regardless of which one Leaving points at.
	got := ringDestinations(m, 1)
	want := map[VertexID]bool{2: true, 4: true, 5: true}
	if len(got) != len(want) {
		t.Fatalf("one-ring destinations of boundary vertex = %v, want %v", got, want)
	}
	for v := range want {
		if !got[v] {
			t.Errorf("one-ring of 1 misses neighbour %d", v)
		}
	}

	if !m.IsBoundaryVertex(1) {
		t.Error("IsBoundaryVertex(1) = false, want true")
	}
	if m.IsBoundaryVertex(4) {
		t.Error("IsBoundaryVertex(4) = true, want false")
	}
}

func TestOneRingRestartable(t *testing.T) {
	m, err := Build(gridMesh())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	ring := m.OneRing(4)
	var first, second []HalfEdgeID
	for h := range ring {
		first = append(first, h)
	}
	for h := range ring {
		second = append(second, h)
	}
	if len(first) != len(second) {
		t.Fatalf("second pass yielded %d edges, first %d", len(second), len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("pass mismatch at %d: %d vs %d", i, first[i], second[i])
		}
	}

	// Early break must not poison later walks.
	for range ring {
		break
	}
	var third int
	for range ring {
		third++
	}
	if third != len(first) {
		t.Errorf("walk after early break yielded %d edges, want %d", third, len(first))
	}
}

func TestBounds(t *testing.T) {
	m, err := Build(cubeMesh())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	min, max := m.Bounds()
	if min != (mgl64.Vec3{0, 0, 0}) || max != (mgl64.Vec3{1, 1, 1}) {
		t.Errorf("Bounds() = %v, %v, want (0,0,0), (1,1,1)", min, max)
	}
}
