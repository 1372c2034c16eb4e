package geom

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats/scalar"
)

var (
	// ErrNotClosedCurve is returned when a boundary loop is open.
	ErrNotClosedCurve = errors.New("boundary curve is not closed")

	// ErrDegenerateGeometry is returned when a boundary cannot enclose an
	// area: too few vertices, zero area, self-intersection, or loops that
	// leave the boundary plane.
	ErrDegenerateGeometry = errors.New("degenerate boundary geometry")
)

// Validate runs the structural checks on c: every loop closed, at least
// three distinct vertices per loop, and all vertices on one elevation.
// Area and intersection checks need flattened rings and live in the
// tessellate package.
func (c *Curve) Validate(tol float64) error {
	if c == nil {
		return fmt.Errorf("%w: nil curve", ErrDegenerateGeometry)
	}
	if len(c.Outer.Vertices) == 0 {
		return fmt.Errorf("%w: outer loop has no vertices", ErrDegenerateGeometry)
	}
	elev := c.Elevation()
	for i, l := range c.Loops() {
		name := loopName(i)
		if !l.IsClosed(tol) {
			return fmt.Errorf("%s: %w", name, ErrNotClosedCurve)
		}
		if err := validateLoop(l.Normalize(tol), elev, tol); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func validateLoop(l Loop, elev, tol float64) error {
	for i, v := range l.Vertices {
		if !scalar.EqualWithinAbs(v.Point.Z, elev, tol) {
			return fmt.Errorf("%w: vertex %d at z=%g leaves plane z=%g", ErrDegenerateGeometry, i, v.Point.Z, elev)
		}
	}

	// Two vertices joined by bulged segments still enclose an area.
	distinct := countDistinct(l, tol)
	hasArc := false
	for _, v := range l.Vertices {
		if v.Bulge != 0 {
			hasArc = true
			break
		}
	}
	if distinct < 3 && !(hasArc && distinct == 2) {
		return fmt.Errorf("%w: loop has %d distinct vertices", ErrDegenerateGeometry, distinct)
	}
	return nil
}

func countDistinct(l Loop, tol float64) int {
	var seen []Point
	for _, v := range l.Vertices {
		dup := false
		for _, s := range seen {
			if v.Point.EqualXY(s, tol) {
				dup = true
				break
			}
		}
		if !dup {
			seen = append(seen, v.Point)
		}
	}
	return len(seen)
}

func loopName(i int) string {
	if i == 0 {
		return "outer loop"
	}
	return fmt.Sprintf("inner loop %d", i-1)
}
