// Package config loads cropper settings from YAML.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chazu/cropper/pkg/classify"
	"github.com/chazu/cropper/pkg/crop"
	"github.com/chazu/cropper/pkg/engine"
	"github.com/chazu/cropper/pkg/geom"
	"github.com/chazu/cropper/pkg/kernel"
	"github.com/chazu/cropper/pkg/kernel/sdfx"
	"github.com/chazu/cropper/pkg/kernel/winding"
	"github.com/chazu/cropper/pkg/tessellate"
	"gopkg.in/yaml.v3"
)

// Kernel backend names.
const (
	KernelSdfx    = "sdfx"
	KernelWinding = "winding"
)

// Config holds cropper settings. Zero values are replaced by defaults
// when loading.
type Config struct {
	Tolerance   float64       `yaml:"tolerance"`
	Kernel      string        `yaml:"kernel"`
	Keep        crop.Side     `yaml:"keep"`
	PlaneCheck  *bool         `yaml:"plane_check,omitempty"`
	ArcSegments int           `yaml:"arc_segments"`
	LogLevel    string        `yaml:"log_level"`
	EvalTimeout time.Duration `yaml:"eval_timeout"`
}

// Default returns the built-in settings.
func Default() Config {
	on := true
	return Config{
		Tolerance:   geom.DefaultTolerance,
		Kernel:      KernelSdfx,
		Keep:        crop.KeepInside,
		PlaneCheck:  &on,
		ArcSegments: tessellate.DefaultArcSegments,
		LogLevel:    "info",
		EvalTimeout: engine.EvalTimeout,
	}
}

// Load reads and validates a YAML file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %g", c.Tolerance)
	}
	switch c.Kernel {
	case KernelSdfx, KernelWinding:
	default:
		return fmt.Errorf("unknown kernel %q, expected %s or %s", c.Kernel, KernelSdfx, KernelWinding)
	}
	if c.Keep != crop.KeepInside && c.Keep != crop.KeepOutside {
		return fmt.Errorf("unknown keep side %d", int(c.Keep))
	}
	if c.ArcSegments < 4 {
		return fmt.Errorf("arc_segments must be at least 4, got %d", c.ArcSegments)
	}
	if c.EvalTimeout <= 0 {
		return fmt.Errorf("eval_timeout must be positive, got %s", c.EvalTimeout)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// PlaneCheckEnabled reports whether anchors must lie in the boundary plane.
func (c Config) PlaneCheckEnabled() bool {
	return c.PlaneCheck == nil || *c.PlaneCheck
}

// NewKernel returns the configured backend.
func (c Config) NewKernel() (kernel.Kernel, error) {
	switch c.Kernel {
	case KernelSdfx:
		return sdfx.New(sdfx.WithTolerance(c.Tolerance), sdfx.WithArcSegments(c.ArcSegments)), nil
	case KernelWinding:
		return winding.New(winding.WithTolerance(c.Tolerance), winding.WithArcSegments(c.ArcSegments)), nil
	}
	return nil, fmt.Errorf("unknown kernel %q", c.Kernel)
}

// NewClassifier returns a classifier using the configured tolerance and
// plane check.
func (c Config) NewClassifier() *classify.Classifier {
	return classify.New(
		classify.WithTolerance(c.Tolerance),
		classify.WithPlaneCheck(c.PlaneCheckEnabled()),
	)
}

// NewEngine returns a script engine using the configured timeout.
func (c Config) NewEngine() *engine.Engine {
	return engine.NewEngine(engine.WithTimeout(c.EvalTimeout))
}

// ParseLevel maps a level name onto slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
