// Package tessellate flattens boundary curves into straight-edged rings
// that a geometry kernel can consume. Bulged segments become runs of
// chords. The flattened shape is also where the geometric checks happen:
// zero area, self-intersection, holes escaping the outer ring and holes
// overlapping each other.
package tessellate

import (
	"fmt"
	"math"

	"github.com/chazu/cropper/pkg/geom"
	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultArcSegments is the number of chords used for a full turn.
const DefaultArcSegments = 64

// Ring is an open run of vertices; the closing edge from the last vertex
// back to the first is implicit.
type Ring []r2.Vec

// Shape is a flattened boundary curve.
type Shape struct {
	Outer     Ring
	Holes     []Ring
	Elevation float64
}

// Options controls flattening.
type Options struct {
	ArcSegments int     // chords per full turn
	Tolerance   float64 // distance treated as zero
}

// DefaultOptions returns the flattening options used when none are given.
func DefaultOptions() Options {
	return Options{ArcSegments: DefaultArcSegments, Tolerance: geom.DefaultTolerance}
}

func (o Options) withDefaults() Options {
	if o.ArcSegments < 4 {
		o.ArcSegments = DefaultArcSegments
	}
	if o.Tolerance <= 0 {
		o.Tolerance = geom.DefaultTolerance
	}
	return o
}

// Flatten validates c and converts it into a Shape. Structural failures
// come from geom.Curve.Validate; geometric failures wrap
// geom.ErrDegenerateGeometry.
func Flatten(c *geom.Curve, opts Options) (*Shape, error) {
	opts = opts.withDefaults()
	if err := c.Validate(opts.Tolerance); err != nil {
		return nil, err
	}

	s := &Shape{Elevation: c.Elevation()}
	s.Outer = FlattenLoop(c.Outer.Normalize(opts.Tolerance), opts)
	for _, hole := range c.Inner {
		s.Holes = append(s.Holes, FlattenLoop(hole.Normalize(opts.Tolerance), opts))
	}

	if err := s.check(opts.Tolerance); err != nil {
		return nil, err
	}
	return s, nil
}

// FlattenLoop converts a closed loop into a ring. Consecutive duplicate
// vertices are dropped.
func FlattenLoop(l geom.Loop, opts Options) Ring {
	opts = opts.withDefaults()
	n := len(l.Vertices)
	var ring Ring
	for i, v := range l.Vertices {
		start := r2.Vec{X: v.Point.X, Y: v.Point.Y}
		ring = appendDistinct(ring, start, opts.Tolerance)
		if v.Bulge == 0 || n < 2 {
			continue
		}
		next := l.Vertices[(i+1)%n].Point
		end := r2.Vec{X: next.X, Y: next.Y}
		for _, p := range arcPoints(start, end, v.Bulge, opts.ArcSegments) {
			ring = appendDistinct(ring, p, opts.Tolerance)
		}
	}
	if len(ring) > 1 && near(ring[0], ring[len(ring)-1], opts.Tolerance) {
		ring = ring[:len(ring)-1]
	}
	return ring
}

// arcPoints returns the interior points of the arc from start to end with
// the given bulge, excluding both endpoints.
func arcPoints(start, end r2.Vec, bulge float64, perTurn int) []r2.Vec {
	chord := r2.Sub(end, start)
	c := r2.Norm(chord)
	if c == 0 {
		return nil
	}
	theta := 4 * math.Atan(bulge)
	mid := r2.Scale(0.5, r2.Add(start, end))
	left := r2.Vec{X: -chord.Y / c, Y: chord.X / c}
	center := r2.Add(mid, r2.Scale((c/2)/math.Tan(theta/2), left))

	steps := int(math.Ceil(math.Abs(theta) / (2 * math.Pi) * float64(perTurn)))
	if steps < 2 {
		steps = 2
	}
	pts := make([]r2.Vec, 0, steps-1)
	for i := 1; i < steps; i++ {
		pts = append(pts, r2.Rotate(start, theta*float64(i)/float64(steps), center))
	}
	return pts
}

func appendDistinct(r Ring, p r2.Vec, tol float64) Ring {
	if len(r) > 0 && near(r[len(r)-1], p, tol) {
		return r
	}
	return append(r, p)
}

func near(a, b r2.Vec, tol float64) bool {
	return r2.Norm(r2.Sub(a, b)) <= tol
}

// check runs the geometric validation on a flattened shape. Holes must
// lie within the outer ring and must not overlap each other; touching at
// a point or along an edge is allowed.
func (s *Shape) check(tol float64) error {
	if err := checkRing(s.Outer, tol); err != nil {
		return fmt.Errorf("outer loop: %w", err)
	}
	for i, h := range s.Holes {
		if err := checkRing(h, tol); err != nil {
			return fmt.Errorf("inner loop %d: %w", i, err)
		}
		if err := checkWithin(h, s.Outer, tol); err != nil {
			return fmt.Errorf("inner loop %d: %w", i, err)
		}
	}
	for i := range s.Holes {
		for j := i + 1; j < len(s.Holes); j++ {
			if err := checkDisjoint(s.Holes[i], s.Holes[j], tol); err != nil {
				return fmt.Errorf("inner loops %d and %d: %w", i, j, err)
			}
		}
	}
	return nil
}

func checkWithin(hole, outer Ring, tol float64) error {
	for _, p := range hole.samples() {
		if DistanceToRing(outer, p) <= tol {
			continue
		}
		if !outer.Contains(p) {
			return fmt.Errorf("%w: point (%g, %g) lies outside the outer loop",
				geom.ErrDegenerateGeometry, p.X, p.Y)
		}
	}
	if i, j, ok := hole.crossing(outer, tol); ok {
		return fmt.Errorf("%w: edge %d crosses outer edge %d", geom.ErrDegenerateGeometry, i, j)
	}
	return nil
}

func checkDisjoint(a, b Ring, tol float64) error {
	if i, j, ok := a.crossing(b, tol); ok {
		return fmt.Errorf("%w: edges %d and %d cross", geom.ErrDegenerateGeometry, i, j)
	}
	if p, ok := strictlyInside(a, b, tol); ok {
		return fmt.Errorf("%w: loops overlap at (%g, %g)", geom.ErrDegenerateGeometry, p.X, p.Y)
	}
	if p, ok := strictlyInside(b, a, tol); ok {
		return fmt.Errorf("%w: loops overlap at (%g, %g)", geom.ErrDegenerateGeometry, p.X, p.Y)
	}
	return nil
}

// strictlyInside returns a sample of a that lies inside b and farther
// than tol from its boundary.
func strictlyInside(a, b Ring, tol float64) (r2.Vec, bool) {
	for _, p := range a.samples() {
		if b.Contains(p) && DistanceToRing(b, p) > tol {
			return p, true
		}
	}
	return r2.Vec{}, false
}

func checkRing(r Ring, tol float64) error {
	if len(r) < 3 {
		return fmt.Errorf("%w: ring has %d vertices after flattening", geom.ErrDegenerateGeometry, len(r))
	}
	if math.Abs(r.Area()) <= tol {
		return fmt.Errorf("%w: ring encloses no area", geom.ErrDegenerateGeometry)
	}
	if i, j, ok := r.SelfIntersection(tol); ok {
		return fmt.Errorf("%w: edges %d and %d intersect", geom.ErrDegenerateGeometry, i, j)
	}
	return nil
}
