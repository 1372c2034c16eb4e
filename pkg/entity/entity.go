// Package entity defines the drawing entities that can be cropped.
package entity

import (
	"fmt"
	"reflect"

	"github.com/chazu/cropper/pkg/geom"
)

// Handle identifies an entity within its drawing.
type Handle string

// Kind names an entity type.
type Kind string

const (
	KindText  Kind = "text"
	KindMText Kind = "mtext"
	KindFace  Kind = "face"
)

// Entity is a drawing object owned by a drawing.
type Entity interface {
	Handle() Handle
	Kind() Kind
}

// IsNil reports whether e is nil or holds a nil pointer. A typed nil
// passes an e == nil check but panics on the first field access.
func IsNil(e Entity) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Base carries the handle shared by every entity. Drawings assign it
// through SetHandle when an entity is added without one.
type Base struct {
	ID Handle `json:"handle"`
}

// Handle returns the entity handle.
func (b *Base) Handle() Handle { return b.ID }

// SetHandle assigns the entity handle.
func (b *Base) SetHandle(h Handle) { b.ID = h }

// Text is a single-line text label anchored at its insertion point.
type Text struct {
	Base
	Value    string     `json:"value"`
	Position geom.Point `json:"position"`
	Height   float64    `json:"height,omitempty"`
}

// Kind returns KindText.
func (*Text) Kind() Kind { return KindText }

// MText is multi-line text anchored at its location point.
type MText struct {
	Base
	Contents string     `json:"contents"`
	Location geom.Point `json:"location"`
	Width    float64    `json:"width,omitempty"`
}

// Kind returns KindMText.
func (*MText) Kind() Kind { return KindMText }

// Face is a planar face of three or four vertices. A triangle repeats
// its last vertex.
type Face struct {
	Base
	Vertices [4]geom.Point `json:"vertices"`
}

// NewFace builds a face from three or four points.
func NewFace(pts ...geom.Point) (*Face, error) {
	if len(pts) < 3 || len(pts) > 4 {
		return nil, fmt.Errorf("face needs 3 or 4 vertices, got %d", len(pts))
	}
	f := &Face{}
	copy(f.Vertices[:], pts)
	if len(pts) == 3 {
		f.Vertices[3] = pts[2]
	}
	return f, nil
}

// Kind returns KindFace.
func (*Face) Kind() Kind { return KindFace }

// VertexAt returns vertex i, 0 through 3.
func (f *Face) VertexAt(i int) (geom.Point, error) {
	if i < 0 || i >= len(f.Vertices) {
		return geom.Point{}, fmt.Errorf("face vertex index %d out of range", i)
	}
	return f.Vertices[i], nil
}
