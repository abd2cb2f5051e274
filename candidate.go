package qem

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/mjrister/qem/halfedge"
)

// edgeKey identifies an undirected edge canonically by its endpoint ids in
// ascending order, so the two half-edges of an edge never yield two
// distinct candidates.
type edgeKey struct {
	A, B halfedge.VertexID
}

func makeKey(u, v halfedge.VertexID) edgeKey {
	if v < u {
		u, v = v, u
	}
	return edgeKey{A: u, B: v}
}

func (k edgeKey) less(o edgeKey) bool {
	if k.A != o.A {
		return k.A < o.A
	}
	return k.B < o.B
}

// candidate is one prospective edge collapse. seenA/seenB record the
// endpoint versions at the time the cost was computed; a mismatch on pop
// means the candidate is stale and must be recomputed before use.
type candidate struct {
	key    edgeKey
	he     halfedge.HalfEdgeID
	target mgl64.Vec3
	cost   float64
	seenA  uint64
	seenB  uint64
}

// candidateHeap is a min-heap on (cost, canonical key). The key tie-break
// makes the pop order, and therefore the whole simplification, fully
// deterministic for a given input.
type candidateHeap []candidate

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool {
	if h[i].cost != h[j].cost {
		return h[i].cost < h[j].cost
	}
	return h[i].key.less(h[j].key)
}

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(candidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}
