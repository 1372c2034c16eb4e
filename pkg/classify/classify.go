// Package classify turns a region's raw topology into the tri-state
// containment used by the cropper. Points inside an inner loop are
// outside the region's area, and points on any loop are on the boundary.
package classify

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/cropper/pkg/geom"
	"github.com/chazu/cropper/pkg/kernel"
)

// ErrPlaneMismatch is returned when a point does not lie in the region's
// plane.
var ErrPlaneMismatch = errors.New("point is not in the boundary plane")

// Containment is the classification of a point against a region. The
// zero value is Unknown: no classification was made.
type Containment int

const (
	Unknown Containment = iota
	Inside
	OnBoundary
	Outside
)

func (c Containment) String() string {
	switch c {
	case Unknown:
		return "unknown"
	case Inside:
		return "inside"
	case OnBoundary:
		return "on-boundary"
	case Outside:
		return "outside"
	default:
		return fmt.Sprintf("Containment(%d)", int(c))
	}
}

// MarshalText encodes the containment as its string form.
func (c Containment) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Classifier classifies points against regions.
type Classifier struct {
	tol        float64
	planeCheck bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithTolerance sets the allowed distance between a point's Z and the
// region elevation.
func WithTolerance(tol float64) Option {
	return func(c *Classifier) { c.tol = tol }
}

// WithPlaneCheck enables or disables the plane check. When disabled,
// points are projected onto the region plane.
func WithPlaneCheck(on bool) Option {
	return func(c *Classifier) { c.planeCheck = on }
}

// New returns a Classifier with the plane check enabled.
func New(opts ...Option) *Classifier {
	c := &Classifier{tol: geom.DefaultTolerance, planeCheck: true}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify returns where p lies relative to r. A point off the region
// plane is Unknown.
func (c *Classifier) Classify(r kernel.Region, p geom.Point) (Containment, error) {
	if c.planeCheck && math.Abs(p.Z-r.Elevation()) > c.tol {
		return Unknown, fmt.Errorf("%w: z=%g, plane z=%g", ErrPlaneMismatch, p.Z, r.Elevation())
	}
	return FromTopology(r.Locate(p)), nil
}

// FromTopology maps kernel topology onto containment. A hole is outside
// the enclosed area even though it is within the outer loop.
func FromTopology(t kernel.Topology) Containment {
	switch t {
	case kernel.TopologyFace:
		return Inside
	case kernel.TopologyEdge:
		return OnBoundary
	default:
		return Outside
	}
}
