// Package anchor reduces entities to the single point used to classify
// them against a boundary. Each entity kind has its own strategy; adding
// a kind means registering a strategy and nothing else.
package anchor

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/cropper/pkg/entity"
	"github.com/chazu/cropper/pkg/geom"
)

// ErrUnsupportedEntityKind is returned when no strategy handles an entity.
var ErrUnsupportedEntityKind = errors.New("unsupported entity kind")

// FaceAnchorVertex is the face vertex used as its anchor. A fixed index
// keeps repeated runs stable.
const FaceAnchorVertex = 1

// Strategy extracts an entity's anchor point. Implementations must be
// pure.
type Strategy interface {
	AnchorOf(e entity.Entity) (geom.Point, error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(e entity.Entity) (geom.Point, error)

// AnchorOf calls f.
func (f StrategyFunc) AnchorOf(e entity.Entity) (geom.Point, error) {
	return f(e)
}

// Of adapts a function over a concrete entity type. Entities of any
// other type fail with ErrUnsupportedEntityKind.
func Of[T entity.Entity](fn func(T) (geom.Point, error)) Strategy {
	return StrategyFunc(func(e entity.Entity) (geom.Point, error) {
		t, ok := e.(T)
		if !ok {
			return geom.Point{}, fmt.Errorf("%w: %T", ErrUnsupportedEntityKind, e)
		}
		if entity.IsNil(t) {
			return geom.Point{}, fmt.Errorf("%w: nil %T", ErrUnsupportedEntityKind, e)
		}
		return fn(t)
	})
}

// Registry maps entity kinds to strategies.
type Registry struct {
	strategies map[entity.Kind]Strategy
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[entity.Kind]Strategy)}
}

// Default returns a registry with the text, mtext and face strategies.
func Default() *Registry {
	r := NewRegistry()
	r.Register(entity.KindText, Of(func(t *entity.Text) (geom.Point, error) {
		return t.Position, nil
	}))
	r.Register(entity.KindMText, Of(func(m *entity.MText) (geom.Point, error) {
		return m.Location, nil
	}))
	r.Register(entity.KindFace, Of(func(f *entity.Face) (geom.Point, error) {
		return f.VertexAt(FaceAnchorVertex)
	}))
	return r
}

// Register installs s for kind, replacing any earlier strategy.
func (r *Registry) Register(kind entity.Kind, s Strategy) {
	r.strategies[kind] = s
}

// Supports reports whether kind has a strategy.
func (r *Registry) Supports(kind entity.Kind) bool {
	_, ok := r.strategies[kind]
	return ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []entity.Kind {
	kinds := make([]entity.Kind, 0, len(r.strategies))
	for k := range r.strategies {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// AnchorOf dispatches to the strategy registered for e's kind.
func (r *Registry) AnchorOf(e entity.Entity) (geom.Point, error) {
	if entity.IsNil(e) {
		return geom.Point{}, fmt.Errorf("%w: nil entity %T", ErrUnsupportedEntityKind, e)
	}
	s, ok := r.strategies[e.Kind()]
	if !ok {
		return geom.Point{}, fmt.Errorf("%w: %q", ErrUnsupportedEntityKind, e.Kind())
	}
	return s.AnchorOf(e)
}
