// Package qem reduces the triangle count of a half-edge mesh by greedy
// quadric-error-metric edge collapses: every undirected edge is a collapse
// candidate priced by the summed error quadrics of its endpoints, and the
// cheapest valid candidate is applied until a stopping condition holds.
//
// The simplifier owns all mutation of the mesh it runs on; it is
// single-threaded and performs no I/O. Callers wanting to simplify several
// meshes concurrently run one simplifier per mesh.
//
// References:
//   - Garland, Heckbert: "Surface Simplification Using Quadric Error
//     Metrics" (SIGGRAPH 1997)
//   - Hoppe: "Progressive Meshes" (SIGGRAPH 1996)
package qem

import (
	"container/heap"

	"github.com/mjrister/qem/halfedge"
	"github.com/mjrister/qem/quadric"
)

// Options controls when a simplification run stops. Zero values disable the
// corresponding condition; with everything zero the run continues until no
// valid collapse remains.
type Options struct {
	// TargetFaceCount stops the run once the live face count is at or below
	// this value.
	TargetFaceCount int

	// MaxCost stops the run once the cheapest remaining candidate costs
	// more than this threshold.
	MaxCost float64

	// Stop is polled once per iteration before the next candidate is
	// popped. Returning true ends the run early with the mesh partially
	// simplified. May be nil.
	Stop func() bool
}

// Stats reports what a run did, for the embedding pipeline's logging.
type Stats struct {
	Collapses  int
	Rejected   int
	Recomputed int
	// CostAccum is the sum of the predicted costs of all applied collapses.
	CostAccum float64
}

// Run simplifies the mesh in place and reports what happened. It never
// fails: candidates whose collapse would corrupt topology are discarded,
// and a mesh that cannot reach the target simply stops early, still valid.
func Run(m *halfedge.Mesh, opts Options) Stats {
	s := &state{mesh: m, opts: opts}
	s.seed()
	s.reduce()
	return s.stats
}

// Simplify is the Build / Run / ToIndexedMesh convenience for callers
// working in the indexed exchange format. The only possible error is an
// invalid input topology.
func Simplify(im halfedge.IndexedMesh, opts Options) (halfedge.IndexedMesh, Stats, error) {
	m, err := halfedge.Build(im)
	if err != nil {
		return halfedge.IndexedMesh{}, Stats{}, err
	}
	stats := Run(m, opts)
	return m.ToIndexedMesh(), stats, nil
}

// state carries one run of the greedy loop. Vertex quadrics and version
// counters are indexed by VertexID; handles are stable for the whole run
// since collapses never allocate.
type state struct {
	mesh     *halfedge.Mesh
	opts     Options
	quadrics []quadric.Quadric
	versions []uint64
	pending  candidateHeap
	stats    Stats
}

// seed accumulates the initial per-vertex quadrics and queues one candidate
// per undirected edge, walking the arenas in id order for determinism.
func (s *state) seed() {
	n := s.mesh.VertexCount()
	s.quadrics = make([]quadric.Quadric, n)
	s.versions = make([]uint64, n)
	for i := 0; i < n; i++ {
		v := halfedge.VertexID(i)
		if s.mesh.VertexAlive(v) {
			s.quadrics[i] = quadric.ForVertex(s.mesh, v)
		}
	}

	for i := 0; i < s.mesh.HalfEdgeCount(); i++ {
		h := halfedge.HalfEdgeID(i)
		if !s.mesh.HalfEdgeAlive(h) || !s.canonical(h) {
			continue
		}
		s.pending = append(s.pending, s.compute(h))
	}
	heap.Init(&s.pending)
}

// reduce pops candidates until a stopping condition holds.
func (s *state) reduce() {
	m := s.mesh
	for {
		if s.opts.Stop != nil && s.opts.Stop() {
			return
		}
		if s.opts.TargetFaceCount > 0 && m.LiveFaces() <= s.opts.TargetFaceCount {
			return
		}
		if s.pending.Len() == 0 {
			return
		}
		c := heap.Pop(&s.pending).(candidate)

		// The edge may have vanished in an earlier collapse.
		if !m.VertexAlive(c.key.A) || !m.VertexAlive(c.key.B) || !m.HalfEdgeAlive(c.he) {
			continue
		}
		he := m.HalfEdge(c.he)
		if makeKey(he.Origin, m.Destination(c.he)) != c.key {
			continue
		}

		// Stale: an endpoint quadric moved since the cost was computed.
		// Reprice and reinsert rather than trusting the old cost.
		if s.versions[c.key.A] != c.seenA || s.versions[c.key.B] != c.seenB {
			s.stats.Recomputed++
			heap.Push(&s.pending, s.compute(c.he))
			continue
		}

		if s.opts.MaxCost > 0 && c.cost > s.opts.MaxCost {
			return
		}

		merged := s.quadrics[c.key.A].Add(s.quadrics[c.key.B])
		res, err := m.CollapseEdge(c.he, c.target)
		if err != nil {
			s.stats.Rejected++
			continue
		}
		s.stats.Collapses++
		s.stats.CostAccum += c.cost

		// The survivor represents both former endpoints: its quadric is
		// their sum, and every edge around it must be repriced.
		s.quadrics[res.Survivor] = merged
		s.versions[res.Survivor]++
		s.versions[res.Removed]++
		for h := range m.OneRing(res.Survivor) {
			heap.Push(&s.pending, s.compute(s.canonicalHalfEdge(h)))
		}
	}
}

// compute prices the collapse of the edge carried by h from the current
// endpoint quadrics. The optimal position is solved on the summed quadric
// with the deterministic fallback chain of quadric.Minimize.
func (s *state) compute(h halfedge.HalfEdgeID) candidate {
	he := s.mesh.HalfEdge(h)
	key := makeKey(he.Origin, s.mesh.Destination(h))
	q := s.quadrics[key.A].Add(s.quadrics[key.B])
	target, cost := q.Minimize(s.mesh.Position(key.A), s.mesh.Position(key.B))
	return candidate{
		key:    key,
		he:     h,
		target: target,
		cost:   cost,
		seenA:  s.versions[key.A],
		seenB:  s.versions[key.B],
	}
}

// canonical reports whether h is the representative half-edge of its
// undirected edge: the one with the smaller origin id, or the only one on
// a boundary edge.
func (s *state) canonical(h halfedge.HalfEdgeID) bool {
	he := s.mesh.HalfEdge(h)
	if he.Twin == halfedge.NoHalfEdge {
		return true
	}
	return he.Origin < s.mesh.Destination(h)
}

func (s *state) canonicalHalfEdge(h halfedge.HalfEdgeID) halfedge.HalfEdgeID {
	if s.canonical(h) {
		return h
	}
	return s.mesh.HalfEdge(h).Twin
}
