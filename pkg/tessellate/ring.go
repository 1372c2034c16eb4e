package tessellate

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/tidwall/geojson/geometry"
	"gonum.org/v1/gonum/spatial/r2"
)

// Edge returns the i-th edge of the ring, wrapping the closing edge.
func (r Ring) Edge(i int) (a, b r2.Vec) {
	return r[i], r[(i+1)%len(r)]
}

// Orb returns the ring as a closed orb.Ring.
func (r Ring) Orb() orb.Ring {
	if len(r) == 0 {
		return nil
	}
	ring := make(orb.Ring, 0, len(r)+1)
	for _, p := range r {
		ring = append(ring, orbPoint(p))
	}
	return append(ring, ring[0])
}

func orbPoint(p r2.Vec) orb.Point { return orb.Point{p.X, p.Y} }

// Area returns the signed area, positive for counter-clockwise.
func (r Ring) Area() float64 {
	if len(r) < 3 {
		return 0
	}
	return planar.Area(r.Orb())
}

// Bounds returns the axis-aligned bounding box of the ring.
func (r Ring) Bounds() (min, max r2.Vec) {
	if len(r) == 0 {
		return min, max
	}
	b := r.Orb().Bound()
	return r2.Vec{X: b.Min[0], Y: b.Min[1]}, r2.Vec{X: b.Max[0], Y: b.Max[1]}
}

// Contains reports whether p is inside the ring or on its boundary.
func (r Ring) Contains(p r2.Vec) bool {
	if len(r) < 3 {
		return false
	}
	return planar.RingContains(r.Orb(), orbPoint(p))
}

// DistanceToRing returns the distance from p to the nearest ring edge.
func DistanceToRing(r Ring, p r2.Vec) float64 {
	d := math.Inf(1)
	q := orbPoint(p)
	for i := range r {
		a, b := r.Edge(i)
		d = math.Min(d, planar.DistanceFromSegment(orbPoint(a), orbPoint(b), q))
	}
	return d
}

// SelfIntersection reports the first pair of non-adjacent edges that
// touch or cross.
func (r Ring) SelfIntersection(tol float64) (i, j int, ok bool) {
	n := len(r)
	for i = 0; i < n; i++ {
		for j = i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue // closing edge is adjacent to the first
			}
			if r.segment(i).IntersectsSegment(r.segment(j)) || edgesTouch(r, i, r, j, tol) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// crossing reports the first pair of edges, one from r and one from
// other, that cross at a point interior to both. Edges that only touch
// within tol do not count.
func (r Ring) crossing(other Ring, tol float64) (i, j int, ok bool) {
	for i = range r {
		for j = range other {
			if r.segment(i).IntersectsSegment(other.segment(j)) && !edgesTouch(r, i, other, j, tol) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

func (r Ring) segment(i int) geometry.Segment {
	a, b := r.Edge(i)
	return geometry.Segment{
		A: geometry.Point{X: a.X, Y: a.Y},
		B: geometry.Point{X: b.X, Y: b.Y},
	}
}

// edgesTouch reports whether an endpoint of either edge lies within tol
// of the other edge.
func edgesTouch(r Ring, i int, s Ring, j int, tol float64) bool {
	a, b := r.Edge(i)
	c, d := s.Edge(j)
	oa, ob, oc, od := orbPoint(a), orbPoint(b), orbPoint(c), orbPoint(d)
	return planar.DistanceFromSegment(oa, ob, oc) <= tol ||
		planar.DistanceFromSegment(oa, ob, od) <= tol ||
		planar.DistanceFromSegment(oc, od, oa) <= tol ||
		planar.DistanceFromSegment(oc, od, ob) <= tol
}

// samples returns the vertices of r followed by the midpoint of each edge.
func (r Ring) samples() []r2.Vec {
	pts := make([]r2.Vec, 0, 2*len(r))
	pts = append(pts, r...)
	for i := range r {
		a, b := r.Edge(i)
		pts = append(pts, r2.Scale(0.5, r2.Add(a, b)))
	}
	return pts
}
