// Package winding implements kernel.Kernel in pure Go on top of
// github.com/paulmach/orb planar rings. The outer ring decides first:
// its edge, then its interior. Inside it, a point strictly within a hole
// is in the hole, and only then does a hole edge count as boundary.
package winding

import (
	"github.com/chazu/cropper/pkg/geom"
	"github.com/chazu/cropper/pkg/kernel"
	"github.com/chazu/cropper/pkg/tessellate"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Compile-time interface checks.
var (
	_ kernel.Kernel = (*WindingKernel)(nil)
	_ kernel.Region = (*windingRegion)(nil)
)

// WindingKernel implements kernel.Kernel without native dependencies.
type WindingKernel struct {
	opts tessellate.Options
}

// Option configures a WindingKernel.
type Option func(*WindingKernel)

// WithTolerance sets the on-edge distance.
func WithTolerance(tol float64) Option {
	return func(k *WindingKernel) { k.opts.Tolerance = tol }
}

// WithArcSegments sets the chords per full turn used for bulged segments.
func WithArcSegments(n int) Option {
	return func(k *WindingKernel) { k.opts.ArcSegments = n }
}

// New returns a new WindingKernel.
func New(opts ...Option) *WindingKernel {
	k := &WindingKernel{opts: tessellate.DefaultOptions()}
	for _, o := range opts {
		o(k)
	}
	return k
}

// Name returns "winding".
func (k *WindingKernel) Name() string { return "winding" }

// BuildRegion flattens c into an orb polygon.
func (k *WindingKernel) BuildRegion(c *geom.Curve) (kernel.Region, error) {
	shape, err := tessellate.Flatten(c, k.opts)
	if err != nil {
		return nil, err
	}

	poly := make(orb.Polygon, 0, 1+len(shape.Holes))
	poly = append(poly, shape.Outer.Orb())
	for _, h := range shape.Holes {
		poly = append(poly, h.Orb())
	}

	tol := k.opts.Tolerance
	if tol <= 0 {
		tol = geom.DefaultTolerance
	}
	return &windingRegion{
		poly:  poly,
		bound: poly[0].Bound(),
		elev:  shape.Elevation,
		tol:   tol,
	}, nil
}

type windingRegion struct {
	kernel.Lease
	poly  orb.Polygon
	bound orb.Bound
	elev  float64
	tol   float64
}

// Locate reports the topology of p. A hole edge lying strictly inside
// another hole stays in that hole, matching the subtractive sdfx model.
func (r *windingRegion) Locate(p geom.Point) kernel.Topology {
	r.Check()
	q := orb.Point{p.X, p.Y}

	if !r.bound.Pad(r.tol).Contains(q) {
		return kernel.TopologyExterior
	}
	outer, holes := r.poly[0], r.poly[1:]
	if onRing(outer, q, r.tol) {
		return kernel.TopologyEdge
	}
	if !planar.RingContains(outer, q) {
		return kernel.TopologyExterior
	}
	onHole := false
	for _, hole := range holes {
		if onRing(hole, q, r.tol) {
			onHole = true
			continue
		}
		if planar.RingContains(hole, q) {
			return kernel.TopologyHole
		}
	}
	if onHole {
		return kernel.TopologyEdge
	}
	return kernel.TopologyFace
}

func onRing(ring orb.Ring, q orb.Point, tol float64) bool {
	for i := 0; i < len(ring)-1; i++ {
		if planar.DistanceFromSegment(ring[i], ring[i+1], q) <= tol {
			return true
		}
	}
	return false
}

// Elevation returns the plane Z.
func (r *windingRegion) Elevation() float64 {
	return r.elev
}

// Bounds returns the bounding box of the outer ring.
func (r *windingRegion) Bounds() (min, max geom.Point) {
	r.Check()
	return geom.Point{X: r.bound.Min[0], Y: r.bound.Min[1], Z: r.elev},
		geom.Point{X: r.bound.Max[0], Y: r.bound.Max[1], Z: r.elev}
}

// Release drops the ring data.
func (r *windingRegion) Release() {
	r.Lease.Release()
	r.poly = nil
}
