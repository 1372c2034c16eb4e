// Package geom defines the planar geometry used to describe crop
// boundaries: points, bulged vertices, loops and boundary curves.
package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// DefaultTolerance is the distance below which two coordinates are equal.
const DefaultTolerance = 1e-9

// Point is a location in world coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Pt returns a point on the XY plane.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns the component-wise sum.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z + q.Z}
}

// Sub returns the component-wise difference.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// DistanceXY returns the distance between p and q ignoring Z.
func (p Point) DistanceXY(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// EqualXY reports whether p and q coincide in the XY plane within tol.
func (p Point) EqualXY(q Point, tol float64) bool {
	return scalar.EqualWithinAbs(p.X, q.X, tol) && scalar.EqualWithinAbs(p.Y, q.Y, tol)
}

// Equal reports whether p and q coincide within tol on every axis.
func (p Point) Equal(q Point, tol float64) bool {
	return p.EqualXY(q, tol) && scalar.EqualWithinAbs(p.Z, q.Z, tol)
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g, %g)", p.X, p.Y, p.Z)
}

// Vertex is a loop vertex. Bulge describes the segment leaving the
// vertex: zero for a straight segment, otherwise the tangent of a quarter
// of the included arc angle, positive for counter-clockwise arcs.
type Vertex struct {
	Point Point   `json:"point"`
	Bulge float64 `json:"bulge,omitempty"`
}

// Loop is an ordered run of vertices. A closed loop joins its last vertex
// back to the first.
type Loop struct {
	Vertices []Vertex `json:"vertices"`
	Closed   bool     `json:"closed"`
}

// Polyline builds a closed loop of straight segments through pts.
func Polyline(pts ...Point) Loop {
	l := Loop{Closed: true, Vertices: make([]Vertex, len(pts))}
	for i, p := range pts {
		l.Vertices[i] = Vertex{Point: p}
	}
	return l
}

// Rect builds a closed axis-aligned rectangle from two opposite corners.
func Rect(min, max Point) Loop {
	return Polyline(
		Point{X: min.X, Y: min.Y, Z: min.Z},
		Point{X: max.X, Y: min.Y, Z: min.Z},
		Point{X: max.X, Y: max.Y, Z: min.Z},
		Point{X: min.X, Y: max.Y, Z: min.Z},
	)
}

// Circle builds a closed loop made of two half-circle arcs.
func Circle(center Point, radius float64) Loop {
	return Loop{
		Closed: true,
		Vertices: []Vertex{
			{Point: Point{X: center.X + radius, Y: center.Y, Z: center.Z}, Bulge: 1},
			{Point: Point{X: center.X - radius, Y: center.Y, Z: center.Z}, Bulge: 1},
		},
	}
}

// Len returns the number of vertices.
func (l Loop) Len() int {
	return len(l.Vertices)
}

// IsClosed reports whether the loop is flagged closed or its last vertex
// repeats the first within tol.
func (l Loop) IsClosed(tol float64) bool {
	if l.Closed {
		return true
	}
	n := len(l.Vertices)
	if n < 2 {
		return false
	}
	return l.Vertices[0].Point.Equal(l.Vertices[n-1].Point, tol)
}

// Normalize returns a copy flagged closed with any repeated closing vertex
// removed. The bulge of the removed vertex is dropped since it describes
// a segment of zero length.
func (l Loop) Normalize(tol float64) Loop {
	out := Loop{Closed: true, Vertices: append([]Vertex(nil), l.Vertices...)}
	n := len(out.Vertices)
	if n >= 2 && out.Vertices[0].Point.Equal(out.Vertices[n-1].Point, tol) {
		out.Vertices = out.Vertices[:n-1]
	}
	return out
}

// Curve is a boundary: one outer loop and any number of inner loops that
// are excluded from the enclosed area.
type Curve struct {
	Outer Loop   `json:"outer"`
	Inner []Loop `json:"inner,omitempty"`
}

// NewCurve returns a curve with the given outer loop and holes.
func NewCurve(outer Loop, holes ...Loop) *Curve {
	return &Curve{Outer: outer, Inner: holes}
}

// Loops returns the outer loop followed by the inner loops.
func (c *Curve) Loops() []Loop {
	loops := make([]Loop, 0, 1+len(c.Inner))
	loops = append(loops, c.Outer)
	return append(loops, c.Inner...)
}

// Elevation returns the Z of the first outer vertex, or zero for an
// empty curve.
func (c *Curve) Elevation() float64 {
	if len(c.Outer.Vertices) == 0 {
		return 0
	}
	return c.Outer.Vertices[0].Point.Z
}
