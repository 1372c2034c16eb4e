package crop

import (
	"github.com/chazu/cropper/pkg/classify"
	"github.com/chazu/cropper/pkg/entity"
	"github.com/chazu/cropper/pkg/geom"
)

// Outcome records what happened to one entity. Anchor is nil until the
// anchor has been computed.
type Outcome struct {
	Handle      entity.Handle        `json:"handle"`
	Kind        entity.Kind          `json:"kind"`
	Anchor      *geom.Point          `json:"anchor,omitempty"`
	Containment classify.Containment `json:"containment"`
	Action      Action               `json:"action"`
	State       State                `json:"state"`
	Err         error                `json:"-"`
	Error       string               `json:"error,omitempty"`
}

func newOutcome(e entity.Entity) Outcome {
	out := Outcome{State: StateCreated}
	if !entity.IsNil(e) {
		out.Handle = e.Handle()
		out.Kind = e.Kind()
	}
	return out
}

// fail marks the entity untouched with err attached. The action is reset
// to keep so a failed outcome never reads as a discard.
func (o *Outcome) fail(err error) {
	o.State = StateSkipped
	o.Action = ActionKeep
	o.Err = err
	o.Error = err.Error()
}

// Failed reports whether the entity could not be decided.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Report collects the outcomes of a batch in input order.
type Report struct {
	Side     Side      `json:"side"`
	Kernel   string    `json:"kernel"`
	DryRun   bool      `json:"dry_run"`
	Outcomes []Outcome `json:"outcomes"`
}

// Kept returns the number of decided entities that survive.
func (r *Report) Kept() int {
	return r.count(func(o Outcome) bool { return !o.Failed() && o.Action == ActionKeep })
}

// Discarded returns the number of decided entities that are removed.
func (r *Report) Discarded() int {
	return r.count(func(o Outcome) bool { return !o.Failed() && o.Action == ActionDiscard })
}

// Failed returns the number of entities left untouched by an error.
func (r *Report) Failed() int {
	return r.count(Outcome.Failed)
}

func (r *Report) count(pred func(Outcome) bool) int {
	n := 0
	for _, o := range r.Outcomes {
		if pred(o) {
			n++
		}
	}
	return n
}

// Handles returns the handles of decided entities with action a.
func (r *Report) Handles(a Action) []entity.Handle {
	var hs []entity.Handle
	for _, o := range r.Outcomes {
		if !o.Failed() && o.Action == a {
			hs = append(hs, o.Handle)
		}
	}
	return hs
}

// Decisions maps each decided entity to its action.
func (r *Report) Decisions() map[entity.Handle]Action {
	m := make(map[entity.Handle]Action, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if !o.Failed() {
			m[o.Handle] = o.Action
		}
	}
	return m
}
