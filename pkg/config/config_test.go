package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chazu/cropper/pkg/crop"
	"github.com/chazu/cropper/pkg/engine"
	"github.com/chazu/cropper/pkg/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, geom.DefaultTolerance, cfg.Tolerance)
	assert.Equal(t, KernelSdfx, cfg.Kernel)
	assert.Equal(t, crop.KeepInside, cfg.Keep)
	assert.True(t, cfg.PlaneCheckEnabled())
	assert.Equal(t, engine.EvalTimeout, cfg.EvalTimeout)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
tolerance: 0.001
kernel: winding
keep: outside
plane_check: false
arc_segments: 32
log_level: debug
eval_timeout: 250ms
`))
	require.NoError(t, err)
	assert.Equal(t, 0.001, cfg.Tolerance)
	assert.Equal(t, KernelWinding, cfg.Kernel)
	assert.Equal(t, crop.KeepOutside, cfg.Keep)
	assert.False(t, cfg.PlaneCheckEnabled())
	assert.Equal(t, 32, cfg.ArcSegments)
	assert.Equal(t, 250*time.Millisecond, cfg.EvalTimeout)
	assert.NotNil(t, cfg.NewEngine())

	lvl, err := ParseLevel(cfg.LogLevel)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}

func TestParsePartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("kernel: winding\n"))
	require.NoError(t, err)
	assert.Equal(t, KernelWinding, cfg.Kernel)
	assert.Equal(t, Default().Tolerance, cfg.Tolerance)
	assert.Equal(t, Default().ArcSegments, cfg.ArcSegments)
	assert.True(t, cfg.PlaneCheckEnabled())
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad yaml", "tolerance: [", "parse yaml"},
		{"negative tolerance", "tolerance: -1", "tolerance must be positive"},
		{"unknown kernel", "kernel: manifold", "unknown kernel"},
		{"unknown side", "keep: sideways", "sideways"},
		{"few arc segments", "arc_segments: 2", "arc_segments"},
		{"unknown level", "log_level: loud", "unknown log level"},
		{"zero timeout", "eval_timeout: 0s", "eval_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cropper.yaml")
	require.NoError(t, os.WriteFile(path, []byte("keep: outside\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, crop.KeepOutside, cfg.Keep)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")
}

func TestNewKernel(t *testing.T) {
	for _, name := range []string{KernelSdfx, KernelWinding} {
		cfg := Default()
		cfg.Kernel = name
		k, err := cfg.NewKernel()
		require.NoError(t, err)
		assert.Equal(t, name, k.Name())
	}

	cfg := Default()
	cfg.Kernel = "nope"
	_, err := cfg.NewKernel()
	assert.Error(t, err)
}

func TestNewClassifierHonoursPlaneCheck(t *testing.T) {
	off := false
	cfg := Default()
	cfg.PlaneCheck = &off
	assert.NotNil(t, cfg.NewClassifier())
	assert.False(t, cfg.PlaneCheckEnabled())
}
