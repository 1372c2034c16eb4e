// Package drawing is an in-memory drawing document. It owns entities,
// hands them out to the cropper, and applies deletions only when a
// transaction is committed.
package drawing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/cropper/pkg/entity"
)

var (
	// ErrUnknownHandle is returned for handles not in the drawing.
	ErrUnknownHandle = errors.New("unknown entity handle")

	// ErrDuplicateHandle is returned when adding an entity whose handle
	// is already taken.
	ErrDuplicateHandle = errors.New("duplicate entity handle")
)

// firstHandle mirrors the host convention of starting user handles above
// the reserved table handles.
const firstHandle = 0x100

// handleSetter is implemented by entities that accept an assigned handle.
type handleSetter interface {
	SetHandle(entity.Handle)
}

// Drawing holds entities in insertion order.
type Drawing struct {
	entities map[entity.Handle]entity.Entity
	order    []entity.Handle
	next     uint64
	open     *Transaction
}

// New creates an empty drawing.
func New() *Drawing {
	return &Drawing{
		entities: make(map[entity.Handle]entity.Entity),
		next:     firstHandle,
	}
}

// Add inserts e. Entities without a handle get the next free hex handle.
func (d *Drawing) Add(e entity.Entity) (entity.Handle, error) {
	if entity.IsNil(e) {
		return "", errors.New("drawing: nil entity")
	}
	h := e.Handle()
	if h == "" {
		hs, ok := e.(handleSetter)
		if !ok {
			return "", fmt.Errorf("drawing: %s entity has no handle and cannot be assigned one", e.Kind())
		}
		h = d.allocate()
		hs.SetHandle(h)
	}
	if _, exists := d.entities[h]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateHandle, h)
	}
	d.entities[h] = e
	d.order = append(d.order, h)
	d.reserve(h)
	return h, nil
}

// MustAdd inserts e or panics.
func (d *Drawing) MustAdd(e entity.Entity) entity.Handle {
	h, err := d.Add(e)
	if err != nil {
		panic(err)
	}
	return h
}

func (d *Drawing) allocate() entity.Handle {
	for {
		h := entity.Handle(strings.ToUpper(strconv.FormatUint(d.next, 16)))
		d.next++
		if _, taken := d.entities[h]; !taken {
			return h
		}
	}
}

// reserve moves the allocator past explicit hex handles.
func (d *Drawing) reserve(h entity.Handle) {
	n, err := strconv.ParseUint(string(h), 16, 64)
	if err == nil && n >= d.next {
		d.next = n + 1
	}
}

// Get returns the entity with handle h, or nil.
func (d *Drawing) Get(h entity.Handle) entity.Entity {
	return d.entities[h]
}

// Has reports whether h is in the drawing.
func (d *Drawing) Has(h entity.Handle) bool {
	_, ok := d.entities[h]
	return ok
}

// Len returns the number of entities.
func (d *Drawing) Len() int {
	return len(d.entities)
}

// Entities returns all entities in insertion order.
func (d *Drawing) Entities() []entity.Entity {
	out := make([]entity.Entity, 0, len(d.order))
	for _, h := range d.order {
		out = append(out, d.entities[h])
	}
	return out
}

// OfKind returns the entities of the given kind in insertion order.
func (d *Drawing) OfKind(kind entity.Kind) []entity.Entity {
	var out []entity.Entity
	for _, h := range d.order {
		if e := d.entities[h]; e.Kind() == kind {
			out = append(out, e)
		}
	}
	return out
}

// remove deletes h. Only committed transactions call it.
func (d *Drawing) remove(h entity.Handle) {
	if _, ok := d.entities[h]; !ok {
		return
	}
	delete(d.entities, h)
	for i, oh := range d.order {
		if oh == h {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}
