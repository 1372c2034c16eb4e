// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library. Each loop becomes a 2D
// polygon SDF and the region is the outer polygon minus the union of
// the holes, so a point's signed distance gives its topology directly.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/cropper/pkg/geom"
	"github.com/chazu/cropper/pkg/kernel"
	"github.com/chazu/cropper/pkg/tessellate"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Compile-time interface checks.
var (
	_ kernel.Kernel = (*SdfxKernel)(nil)
	_ kernel.Region = (*sdfxRegion)(nil)
)

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	opts tessellate.Options
}

// Option configures an SdfxKernel.
type Option func(*SdfxKernel)

// WithTolerance sets the on-edge distance.
func WithTolerance(tol float64) Option {
	return func(k *SdfxKernel) { k.opts.Tolerance = tol }
}

// WithArcSegments sets the chords per full turn used for bulged segments.
func WithArcSegments(n int) Option {
	return func(k *SdfxKernel) { k.opts.ArcSegments = n }
}

// New returns a new SdfxKernel.
func New(opts ...Option) *SdfxKernel {
	k := &SdfxKernel{opts: tessellate.DefaultOptions()}
	for _, o := range opts {
		o(k)
	}
	return k
}

// Name returns "sdfx".
func (k *SdfxKernel) Name() string { return "sdfx" }

// BuildRegion flattens c and builds the region SDF.
func (k *SdfxKernel) BuildRegion(c *geom.Curve) (kernel.Region, error) {
	shape, err := tessellate.Flatten(c, k.opts)
	if err != nil {
		return nil, err
	}

	outer, err := polygon(shape.Outer)
	if err != nil {
		return nil, fmt.Errorf("sdfx: outer loop: %w", err)
	}

	area := outer
	if len(shape.Holes) > 0 {
		holes := make([]sdf.SDF2, 0, len(shape.Holes))
		for i, h := range shape.Holes {
			s, err := polygon(h)
			if err != nil {
				return nil, fmt.Errorf("sdfx: inner loop %d: %w", i, err)
			}
			holes = append(holes, s)
		}
		area = sdf.Difference2D(outer, sdf.Union2D(holes...))
	}

	return &sdfxRegion{
		outer: outer,
		area:  area,
		elev:  shape.Elevation,
		tol:   k.tolerance(),
	}, nil
}

func (k *SdfxKernel) tolerance() float64 {
	if k.opts.Tolerance > 0 {
		return k.opts.Tolerance
	}
	return geom.DefaultTolerance
}

// polygon converts a flattened ring into an sdfx polygon.
func polygon(r tessellate.Ring) (sdf.SDF2, error) {
	verts := make([]v2.Vec, len(r))
	for i, p := range r {
		verts[i] = v2.Vec{X: p.X, Y: p.Y}
	}
	s, err := sdf.Polygon2D(verts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", geom.ErrDegenerateGeometry, err)
	}
	return s, nil
}

// sdfxRegion wraps the region SDF to implement kernel.Region.
type sdfxRegion struct {
	kernel.Lease
	outer sdf.SDF2
	area  sdf.SDF2
	elev  float64
	tol   float64
}

// Locate classifies p by its signed distance to the region. Points
// outside the area but inside the outer polygon are in a hole.
func (r *sdfxRegion) Locate(p geom.Point) kernel.Topology {
	r.Check()
	q := v2.Vec{X: p.X, Y: p.Y}
	d := r.area.Evaluate(q)
	switch {
	case math.Abs(d) <= r.tol:
		return kernel.TopologyEdge
	case d < 0:
		return kernel.TopologyFace
	case r.outer.Evaluate(q) < 0:
		return kernel.TopologyHole
	default:
		return kernel.TopologyExterior
	}
}

// Elevation returns the plane Z.
func (r *sdfxRegion) Elevation() float64 {
	return r.elev
}

// Bounds returns the bounding box of the outer polygon.
func (r *sdfxRegion) Bounds() (min, max geom.Point) {
	r.Check()
	bb := r.outer.BoundingBox()
	min = geom.Point{X: bb.Min.X, Y: bb.Min.Y, Z: r.elev}
	max = geom.Point{X: bb.Max.X, Y: bb.Max.Y, Z: r.elev}
	return min, max
}

// Release drops the SDF references. sdfx holds no native resources, but
// the lease still enforces single release and no use afterwards.
func (r *sdfxRegion) Release() {
	r.Lease.Release()
	r.outer = nil
	r.area = nil
}
