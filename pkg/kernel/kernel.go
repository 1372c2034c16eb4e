// Package kernel defines the abstract region-construction interface.
// Implementations (sdfx, winding) turn a closed boundary curve into a
// planar region and locate points against it. The kernel abstraction
// lets the classifier and cropper stay independent of the backend.
package kernel

import (
	"fmt"

	"github.com/chazu/cropper/pkg/geom"
)

// Topology is what a region's membership primitive reports for a point.
type Topology int

const (
	TopologyExterior Topology = iota // outside the outer loop
	TopologyFace                     // within the enclosed area
	TopologyEdge                     // on an outer or inner loop within tolerance
	TopologyHole                     // inside an inner loop
)

func (t Topology) String() string {
	switch t {
	case TopologyExterior:
		return "exterior"
	case TopologyFace:
		return "face"
	case TopologyEdge:
		return "edge"
	case TopologyHole:
		return "hole"
	default:
		return fmt.Sprintf("Topology(%d)", int(t))
	}
}

// Region is an owned, immutable planar region built from a boundary
// curve. It must be released exactly once; using it after Release panics.
type Region interface {
	// Locate reports where p falls relative to the region. Only X and Y
	// are considered.
	Locate(p geom.Point) Topology

	// Elevation returns the Z of the region's plane.
	Elevation() float64

	// Bounds returns the XY bounding box of the outer loop.
	Bounds() (min, max geom.Point)

	// Release frees backend resources.
	Release()
}

// Kernel builds regions from closed curves.
type Kernel interface {
	// BuildRegion fails with geom.ErrNotClosedCurve for open loops and
	// geom.ErrDegenerateGeometry for curves that enclose no valid area.
	BuildRegion(c *geom.Curve) (Region, error)

	// Name identifies the backend in logs and configuration.
	Name() string
}

// WithRegion builds a region from c, passes it to fn and releases it on
// every exit path, including panics in fn.
func WithRegion(k Kernel, c *geom.Curve, fn func(Region) error) error {
	r, err := k.BuildRegion(c)
	if err != nil {
		return err
	}
	defer r.Release()
	return fn(r)
}
