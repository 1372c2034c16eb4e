package classify

import (
	"errors"
	"testing"

	"github.com/chazu/cropper/pkg/geom"
	"github.com/chazu/cropper/pkg/kernel"
	"github.com/chazu/cropper/pkg/kernel/kerneltest"
	"github.com/chazu/cropper/pkg/kernel/sdfx"
	"github.com/chazu/cropper/pkg/kernel/winding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromTopology(t *testing.T) {
	tests := []struct {
		topo kernel.Topology
		want Containment
	}{
		{kernel.TopologyFace, Inside},
		{kernel.TopologyEdge, OnBoundary},
		{kernel.TopologyExterior, Outside},
		{kernel.TopologyHole, Outside},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FromTopology(tt.topo), tt.topo.String())
	}
}

func TestContainmentText(t *testing.T) {
	assert.Equal(t, "inside", Inside.String())
	assert.Equal(t, "on-boundary", OnBoundary.String())
	assert.Equal(t, "outside", Outside.String())
	assert.Equal(t, "unknown", Unknown.String())

	var zero Containment
	assert.Equal(t, Unknown, zero)

	b, err := OnBoundary.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "on-boundary", string(b))
}

func TestClassifySquareWithHole(t *testing.T) {
	kernels := []kernel.Kernel{sdfx.New(), winding.New()}
	tests := []struct {
		name string
		p    geom.Point
		want Containment
	}{
		{"strict inside", geom.Pt(2, 2), Inside},
		{"in hole", geom.Pt(5, 5), Outside},
		{"strict outside", geom.Pt(20, 5), Outside},
		{"outer edge", geom.Pt(10, 5), OnBoundary},
		{"hole edge", geom.Pt(4, 5), OnBoundary},
	}

	cl := New()
	for _, k := range kernels {
		t.Run(k.Name(), func(t *testing.T) {
			err := kernel.WithRegion(k, kerneltest.SquareWithHole(), func(r kernel.Region) error {
				for _, tt := range tests {
					got, err := cl.Classify(r, tt.p)
					require.NoError(t, err, tt.name)
					assert.Equal(t, tt.want, got, tt.name)
				}
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestClassifyPlaneMismatch(t *testing.T) {
	c := geom.NewCurve(geom.Rect(geom.Point{Z: 5}, geom.Point{X: 10, Y: 10, Z: 5}))
	r, err := winding.New().BuildRegion(c)
	require.NoError(t, err)
	defer r.Release()

	off := geom.Point{X: 2, Y: 2, Z: 0}

	got, err := New().Classify(r, off)
	assert.True(t, errors.Is(err, ErrPlaneMismatch), "got %v", err)
	assert.Equal(t, Unknown, got)

	got, err = New().Classify(r, geom.Point{X: 2, Y: 2, Z: 5})
	require.NoError(t, err)
	assert.Equal(t, Inside, got)

	// Disabling the check projects the point onto the plane.
	got, err = New(WithPlaneCheck(false)).Classify(r, off)
	require.NoError(t, err)
	assert.Equal(t, Inside, got)

	// A looser tolerance accepts small offsets.
	got, err = New(WithTolerance(0.01)).Classify(r, geom.Point{X: 2, Y: 2, Z: 5.001})
	require.NoError(t, err)
	assert.Equal(t, Inside, got)
}
