// Package kerneltest provides a conformance suite that every
// kernel.Kernel backend runs from its own tests.
package kerneltest

import (
	"github.com/chazu/cropper/pkg/geom"
	"github.com/chazu/cropper/pkg/kernel"
	"github.com/stretchr/testify/suite"
)

// RegionSuite checks region construction and point location for one
// backend. Set Kernel before running it with suite.Run.
type RegionSuite struct {
	suite.Suite
	Kernel kernel.Kernel
}

// SquareWithHole is the 10x10 square at the origin with a 2x2 hole in
// its middle.
func SquareWithHole() *geom.Curve {
	return geom.NewCurve(
		geom.Rect(geom.Pt(0, 0), geom.Pt(10, 10)),
		geom.Rect(geom.Pt(4, 4), geom.Pt(6, 6)),
	)
}

func (s *RegionSuite) build(c *geom.Curve) kernel.Region {
	r, err := s.Kernel.BuildRegion(c)
	s.Require().NoError(err)
	s.Require().NotNil(r)
	return r
}

func (s *RegionSuite) TestSquareWithHole() {
	r := s.build(SquareWithHole())
	defer r.Release()

	tests := []struct {
		name string
		p    geom.Point
		want kernel.Topology
	}{
		{"interior", geom.Pt(2, 2), kernel.TopologyFace},
		{"near outer edge", geom.Pt(9.999, 5), kernel.TopologyFace},
		{"hole centre", geom.Pt(5, 5), kernel.TopologyHole},
		{"inside hole near edge", geom.Pt(4.001, 5), kernel.TopologyHole},
		{"outer edge", geom.Pt(10, 5), kernel.TopologyEdge},
		{"outer corner", geom.Pt(0, 0), kernel.TopologyEdge},
		{"hole edge", geom.Pt(4, 5), kernel.TopologyEdge},
		{"hole corner", geom.Pt(6, 6), kernel.TopologyEdge},
		{"far outside", geom.Pt(20, 5), kernel.TopologyExterior},
		{"just outside", geom.Pt(10.001, 5), kernel.TopologyExterior},
		{"below", geom.Pt(5, -3), kernel.TopologyExterior},
	}
	for _, tt := range tests {
		s.Equal(tt.want, r.Locate(tt.p), tt.name)
	}
}

func (s *RegionSuite) TestLocateIgnoresZ() {
	r := s.build(SquareWithHole())
	defer r.Release()

	s.Equal(kernel.TopologyFace, r.Locate(geom.Point{X: 2, Y: 2, Z: 50}))
}

func (s *RegionSuite) TestLocateIsRepeatable() {
	r := s.build(SquareWithHole())
	defer r.Release()

	for _, p := range []geom.Point{geom.Pt(2, 2), geom.Pt(5, 5), geom.Pt(10, 5), geom.Pt(20, 5)} {
		first := r.Locate(p)
		for i := 0; i < 3; i++ {
			s.Equal(first, r.Locate(p), "%v run %d", p, i)
		}
	}
}

func (s *RegionSuite) TestCircle() {
	r := s.build(geom.NewCurve(geom.Circle(geom.Pt(5, 5), 2)))
	defer r.Release()

	s.Equal(kernel.TopologyFace, r.Locate(geom.Pt(5, 5)))
	s.Equal(kernel.TopologyFace, r.Locate(geom.Pt(5, 6.5)))
	s.Equal(kernel.TopologyEdge, r.Locate(geom.Pt(7, 5)))
	s.Equal(kernel.TopologyEdge, r.Locate(geom.Pt(3, 5)))
	s.Equal(kernel.TopologyExterior, r.Locate(geom.Pt(7.5, 5)))
	// Inside the bounding box but past the arc.
	s.Equal(kernel.TopologyExterior, r.Locate(geom.Pt(6.9, 6.9)))
}

func (s *RegionSuite) TestCircularHole() {
	r := s.build(geom.NewCurve(
		geom.Rect(geom.Pt(0, 0), geom.Pt(10, 10)),
		geom.Circle(geom.Pt(5, 5), 1),
	))
	defer r.Release()

	s.Equal(kernel.TopologyHole, r.Locate(geom.Pt(5, 5)))
	s.Equal(kernel.TopologyEdge, r.Locate(geom.Pt(6, 5)))
	s.Equal(kernel.TopologyFace, r.Locate(geom.Pt(1, 1)))
}

func (s *RegionSuite) TestBoundsAndElevation() {
	c := geom.NewCurve(geom.Rect(geom.Point{X: -1, Y: 2, Z: 3}, geom.Point{X: 4, Y: 8, Z: 3}))
	r := s.build(c)
	defer r.Release()

	s.InDelta(3.0, r.Elevation(), 1e-12)
	min, max := r.Bounds()
	s.InDelta(-1.0, min.X, 1e-9)
	s.InDelta(2.0, min.Y, 1e-9)
	s.InDelta(4.0, max.X, 1e-9)
	s.InDelta(8.0, max.Y, 1e-9)
}

func (s *RegionSuite) TestBuildErrors() {
	open := geom.Polyline(geom.Pt(0, 0), geom.Pt(10, 0), geom.Pt(10, 10))
	open.Closed = false

	tests := []struct {
		name  string
		curve *geom.Curve
		want  error
	}{
		{"nil", nil, geom.ErrDegenerateGeometry},
		{"open outer", geom.NewCurve(open), geom.ErrNotClosedCurve},
		{"open hole", geom.NewCurve(geom.Rect(geom.Pt(-5, -5), geom.Pt(20, 20)), open), geom.ErrNotClosedCurve},
		{"zero area", geom.NewCurve(geom.Polyline(geom.Pt(0, 0), geom.Pt(5, 0), geom.Pt(10, 0))), geom.ErrDegenerateGeometry},
		{"self intersecting", geom.NewCurve(geom.Polyline(geom.Pt(0, 0), geom.Pt(10, 10), geom.Pt(10, 0), geom.Pt(0, 10))), geom.ErrDegenerateGeometry},
		{"hole escapes", geom.NewCurve(geom.Rect(geom.Pt(0, 0), geom.Pt(10, 10)), geom.Rect(geom.Pt(8, 8), geom.Pt(12, 12))), geom.ErrDegenerateGeometry},
		{"hole crosses reflex corner", geom.NewCurve(
			geom.Polyline(geom.Pt(0, 0), geom.Pt(10, 0), geom.Pt(10, 5), geom.Pt(5, 5), geom.Pt(5, 10), geom.Pt(0, 10)),
			geom.Polyline(geom.Pt(4, 4), geom.Pt(8, 4), geom.Pt(4, 8)),
		), geom.ErrDegenerateGeometry},
		{"holes overlap", geom.NewCurve(
			geom.Rect(geom.Pt(0, 0), geom.Pt(10, 10)),
			geom.Rect(geom.Pt(2, 2), geom.Pt(6, 6)),
			geom.Rect(geom.Pt(4, 4), geom.Pt(8, 8)),
		), geom.ErrDegenerateGeometry},
	}
	for _, tt := range tests {
		r, err := s.Kernel.BuildRegion(tt.curve)
		s.Nil(r, tt.name)
		s.ErrorIs(err, tt.want, tt.name)
	}
}

func (s *RegionSuite) TestUseAfterReleasePanics() {
	r := s.build(SquareWithHole())
	r.Release()

	s.Panics(func() { r.Locate(geom.Pt(2, 2)) })
	s.Panics(func() { r.Release() })
}

func (s *RegionSuite) TestWithRegion() {
	var got kernel.Topology
	err := kernel.WithRegion(s.Kernel, SquareWithHole(), func(r kernel.Region) error {
		got = r.Locate(geom.Pt(5, 5))
		return nil
	})
	s.NoError(err)
	s.Equal(kernel.TopologyHole, got)
}
