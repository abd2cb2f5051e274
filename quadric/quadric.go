// Package quadric implements the Quadric Error Metric of Garland and
// Heckbert: a symmetric 4x4 matrix per vertex whose evaluation at a
// homogeneous point gives the summed squared distance from that point to
// the planes of the faces the quadric was accumulated from.
//
// References:
//   - Garland, Heckbert: "Surface Simplification Using Quadric Error
//     Metrics" (SIGGRAPH 1997)
package quadric

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mjrister/qem/halfedge"
)

// Tunable numeric guards. singularDetEps decides when the 3x3 system of
// Minimize is too ill-conditioned to solve directly; degenerateAreaEps
// rejects zero-area triangles in FromTriangle. Neither value is part of the
// contract.
const (
	singularDetEps    = 1e-12
	degenerateAreaEps = 1e-12
)

// Quadric is a symmetric 4x4 error matrix. The zero value is the empty
// quadric with zero cost everywhere. Quadric addition is commutative and
// associative, so accumulation order never matters.
type Quadric struct {
	M mgl64.Mat4
}

// FromPlane builds the rank-1 quadric ppT for the plane n.x + d = 0.
// The normal must be unit length for Cost to measure squared distance.
func FromPlane(n mgl64.Vec3, d float64) Quadric {
	p := mgl64.Vec4{n.X(), n.Y(), n.Z(), d}
	var q Quadric
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			q.M.Set(r, c, p[r]*p[c])
		}
	}
	return q
}

// FromTriangle builds the plane quadric of the triangle (a, b, c), with the
// normal oriented by the winding. Triangles with (near) zero area have no
// well-defined plane and contribute the empty quadric.
func FromTriangle(a, b, c mgl64.Vec3) Quadric {
	n := b.Sub(a).Cross(c.Sub(a))
	length := n.Len()
	if length < degenerateAreaEps {
		return Quadric{}
	}
	n = n.Mul(1 / length)
	return FromPlane(n, -n.Dot(a))
}

// ForVertex accumulates the plane quadrics of every face incident to v.
// Each incident face has exactly one half-edge leaving v, so the one-ring
// visits each face once.
func ForVertex(m *halfedge.Mesh, v halfedge.VertexID) Quadric {
	var q Quadric
	for h := range m.OneRing(v) {
		a := m.Position(m.HalfEdge(h).Origin)
		b := m.Position(m.Destination(h))
		c := m.Position(m.Destination(m.HalfEdge(h).Next))
		q = q.Add(FromTriangle(a, b, c))
	}
	return q
}

// Add returns the pointwise sum of two quadrics.
func (q Quadric) Add(o Quadric) Quadric {
	return Quadric{M: q.M.Add(o.M)}
}

// Cost evaluates vT Q v at the homogeneous point (p, 1): the summed squared
// distance from p to the accumulated planes. Tiny negative results from
// floating-point cancellation are clamped to zero.
func (q Quadric) Cost(p mgl64.Vec3) float64 {
	v := mgl64.Vec4{p.X(), p.Y(), p.Z(), 1}
	c := v.Dot(q.M.Mul4x1(v))
	if c < 0 {
		return 0
	}
	return c
}

// Minimize returns the position minimizing the quadric form, and its cost,
// for an edge with endpoints p1 and p2. The gradient condition reduces to
// the linear system A x = -b with A the upper-left 3x3 block of Q and b its
// fourth column. When A is singular or the solution is not finite, the
// fallback chain is: edge midpoint, then the cheaper endpoint, then p1 on
// an exact tie. The chain is deterministic so that replays of the
// simplifier reproduce identical output.
func (q Quadric) Minimize(p1, p2 mgl64.Vec3) (mgl64.Vec3, float64) {
	a := q.M.Mat3()
	if det := a.Det(); math.Abs(det) >= singularDetEps {
		b := mgl64.Vec3{-q.M.At(0, 3), -q.M.At(1, 3), -q.M.At(2, 3)}
		p := a.Inv().Mul3x1(b)
		if cost := q.Cost(p); finite(p) && !math.IsNaN(cost) && !math.IsInf(cost, 0) {
			return p, cost
		}
	}
	mid := p1.Add(p2).Mul(0.5)
	if cost := q.Cost(mid); !math.IsNaN(cost) && !math.IsInf(cost, 0) {
		return mid, cost
	}
	c1, c2 := q.Cost(p1), q.Cost(p2)
	if c2 < c1 {
		return p2, c2
	}
	return p1, c1
}

func finite(p mgl64.Vec3) bool {
	for k := 0; k < 3; k++ {
		if math.IsNaN(p[k]) || math.IsInf(p[k], 0) {
			return false
		}
	}
	return true
}
