package halfedge

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// CollapseResult reports what a successful CollapseEdge removed. Survivor is
// the merged vertex (the collapsed half-edge's origin), Removed its former
// destination. RemovedFaces holds two faces for an interior edge, one for a
// boundary edge.
type CollapseResult struct {
	Survivor     VertexID
	Removed      VertexID
	RemovedFaces []FaceID
}

// CollapseEdge merges the destination of h into its origin and moves the
// surviving vertex to target. The face left of h is removed, and so is the
// face left of its twin when the edge is interior. Every half-edge that
// originated at the removed vertex is rerouted to the survivor, the outer
// twins of the removed faces are stitched together, and displaced leaving
// edges are reassigned.
//
// The operation is atomic: all validity checks run before the first
// mutation, and a rejected collapse returns ErrDegenerateCollapse with the
// mesh byte-for-byte unchanged. A collapse is rejected when it would
//   - remove the last face of a fan, leaving a vertex isolated,
//   - fold the mesh so that two distinct edges join the same vertex pair
//     (link condition), or
//   - pinch an interior edge whose endpoints both lie on the boundary.
func (m *Mesh) CollapseEdge(h HalfEdgeID, target mgl64.Vec3) (CollapseResult, error) {
	if !m.HalfEdgeAlive(h) {
		return CollapseResult{}, fmt.Errorf("%w: half-edge %d is not live", ErrDegenerateCollapse, h)
	}

	u := m.halfEdges[h].Origin
	v := m.Destination(h)
	t := m.halfEdges[h].Twin

	// Left wing: face of h with corners u, v, wL.
	n1 := m.halfEdges[h].Next    // v -> wL
	n2 := m.halfEdges[n1].Next   // wL -> u
	wL := m.halfEdges[n2].Origin
	a1 := m.halfEdges[n1].Twin // wL -> v, becomes wL -> u
	a2 := m.halfEdges[n2].Twin // u -> wL

	// Right wing: face of the twin with corners v, u, wR. Absent on boundary.
	var m1, m2, b1, b2 HalfEdgeID = NoHalfEdge, NoHalfEdge, NoHalfEdge, NoHalfEdge
	wR := NoVertex
	if t != NoHalfEdge {
		m1 = m.halfEdges[t].Next  // u -> wR
		m2 = m.halfEdges[m1].Next // wR -> v
		wR = m.halfEdges[m2].Origin
		b1 = m.halfEdges[m1].Twin // wR -> u
		b2 = m.halfEdges[m2].Twin // v -> wR, becomes u -> wR
	}

	if err := m.checkCollapse(u, v, wL, wR, t, a1, a2, b1, b2); err != nil {
		return CollapseResult{}, err
	}

	// Checks passed; from here on nothing can fail.
	ringU := m.collectRing(u)
	ringV := m.collectRing(v)

	// Reroute everything leaving v to leave u instead. The half-edges of the
	// removed faces are rerouted too; they are marked dead right after.
	for _, he := range ringV {
		m.halfEdges[he].Origin = u
	}

	result := CollapseResult{Survivor: u, Removed: v}
	result.RemovedFaces = append(result.RemovedFaces, m.halfEdges[h].Face)
	m.stitch(a1, a2)
	m.removeFace(m.halfEdges[h].Face, h, n1, n2)
	if t != NoHalfEdge {
		result.RemovedFaces = append(result.RemovedFaces, m.halfEdges[t].Face)
		m.stitch(b1, b2)
		m.removeFace(m.halfEdges[t].Face, t, m1, m2)
	}

	m.vertices[u].Position = target
	m.vertices[v].Leaving = NoHalfEdge
	m.removedVertex[v] = true
	m.liveVertices--

	// Leaving-edge repair. The removed half-edges originate at u, v, wL and
	// wR only, so those are the vertices whose Leaving can have died.
	m.repairLeaving(u, a2, b2, ringU, ringV)
	m.repairCorner(wL, a1, a2)
	if t != NoHalfEdge {
		m.repairCorner(wR, b1, b2)
	}

	return result, nil
}

// checkCollapse runs every validity test for collapsing the edge (u, v)
// without mutating anything.
func (m *Mesh) checkCollapse(u, v, wL VertexID, wR VertexID, t, a1, a2, b1, b2 HalfEdgeID) error {
	// A face attached to the rest of the mesh only through the collapsing
	// edge would leave its third corner isolated.
	if a1 == NoHalfEdge && a2 == NoHalfEdge {
		return fmt.Errorf("%w: collapse of %d-%d would isolate vertex %d", ErrDegenerateCollapse, u, v, wL)
	}
	if t != NoHalfEdge {
		if b1 == NoHalfEdge && b2 == NoHalfEdge {
			return fmt.Errorf("%w: collapse of %d-%d would isolate vertex %d", ErrDegenerateCollapse, u, v, wR)
		}
		// Two faces sharing all three corners collapse to nothing.
		if wL == wR {
			return fmt.Errorf("%w: edge %d-%d bounds two faces with the same third vertex %d", ErrDegenerateCollapse, u, v, wL)
		}
		// Pinching an interior edge whose ends both sit on the boundary
		// merges two boundary loops into a non-manifold vertex.
		if m.IsBoundaryVertex(u) && m.IsBoundaryVertex(v) {
			return fmt.Errorf("%w: interior edge %d-%d joins two boundary vertices", ErrDegenerateCollapse, u, v)
		}
	}

	// Link condition: the common neighbours of u and v must be exactly the
	// third corners of the faces being removed. Any extra shared neighbour x
	// means the collapse would produce two distinct edges joining the merged
	// vertex to x, a non-manifold fold. On a boundary vertex one neighbour
	// is reachable only through its incoming boundary half-edge, so both
	// ends of every ring edge are collected.
	neighboursU := make(map[VertexID]struct{})
	for he := range m.OneRing(u) {
		neighboursU[m.Destination(he)] = struct{}{}
		neighboursU[m.halfEdges[m.prev(he)].Origin] = struct{}{}
	}
	for he := range m.OneRing(v) {
		ends := [2]VertexID{m.Destination(he), m.halfEdges[m.prev(he)].Origin}
		for _, x := range ends {
			if x == u || x == wL || x == wR {
				continue
			}
			if _, shared := neighboursU[x]; shared {
				return fmt.Errorf("%w: collapse of %d-%d would fold at shared neighbour %d", ErrDegenerateCollapse, u, v, x)
			}
		}
	}
	return nil
}

// stitch pairs the outer twins of a removed face with each other. Either
// side may be a boundary sentinel, in which case the other side becomes a
// boundary edge.
func (m *Mesh) stitch(a, b HalfEdgeID) {
	if a != NoHalfEdge {
		m.halfEdges[a].Twin = b
	}
	if b != NoHalfEdge {
		m.halfEdges[b].Twin = a
	}
}

func (m *Mesh) removeFace(f FaceID, edges ...HalfEdgeID) {
	m.removedFace[f] = true
	m.liveFaces--
	for _, he := range edges {
		m.removedHalfEdge[he] = true
	}
}

func (m *Mesh) collectRing(v VertexID) []HalfEdgeID {
	var ring []HalfEdgeID
	for he := range m.OneRing(v) {
		ring = append(ring, he)
	}
	return ring
}

// repairLeaving reassigns the survivor's leaving edge after a collapse.
// a2 (u -> wL) and b2 (now u -> wR) are the preferred picks; failing those,
// the first surviving outgoing edge from either pre-collapse ring is used.
func (m *Mesh) repairLeaving(u VertexID, a2, b2 HalfEdgeID, ringU, ringV []HalfEdgeID) {
	if m.HalfEdgeAlive(a2) {
		m.vertices[u].Leaving = a2
		return
	}
	if m.HalfEdgeAlive(b2) {
		m.vertices[u].Leaving = b2
		return
	}
	for _, he := range ringU {
		if m.HalfEdgeAlive(he) && m.halfEdges[he].Origin == u {
			m.vertices[u].Leaving = he
			return
		}
	}
	for _, he := range ringV {
		if m.HalfEdgeAlive(he) && m.halfEdges[he].Origin == u {
			m.vertices[u].Leaving = he
			return
		}
	}
	// Unreachable when checkCollapse passed; keep the vertex consistent
	// rather than dangling.
	m.vertices[u].Leaving = NoHalfEdge
}

// repairCorner fixes the leaving edge of a removed face's third corner w.
// Its only dead outgoing edge is the face-internal one, so the replacement
// is the outer twin leaving w (a1 on the left wing, b1 on the right), or the
// successor of the incoming outer twin when that side is boundary.
func (m *Mesh) repairCorner(w VertexID, outgoing, incoming HalfEdgeID) {
	if m.HalfEdgeAlive(m.vertices[w].Leaving) {
		return
	}
	if outgoing != NoHalfEdge {
		m.vertices[w].Leaving = outgoing
		return
	}
	// The outgoing side is boundary: the incoming twin is live by the
	// isolation check, and the next half-edge in its face originates at w.
	m.vertices[w].Leaving = m.halfEdges[incoming].Next
}
