package crop

import (
	"fmt"
	"strings"

	"github.com/chazu/cropper/pkg/classify"
)

// Side selects which side of the boundary survives a crop.
type Side int

const (
	KeepInside Side = iota
	KeepOutside
)

func (s Side) String() string {
	switch s {
	case KeepInside:
		return "inside"
	case KeepOutside:
		return "outside"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// ParseSide parses "inside" or "outside".
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inside", "in":
		return KeepInside, nil
	case "outside", "out":
		return KeepOutside, nil
	}
	return 0, fmt.Errorf("invalid side %q, expected inside or outside", s)
}

// MarshalText encodes the side as its string form.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses the side from its string form.
func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Action is the decision for one entity.
type Action int

const (
	ActionKeep Action = iota
	ActionDiscard
)

func (a Action) String() string {
	switch a {
	case ActionKeep:
		return "keep"
	case ActionDiscard:
		return "discard"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// MarshalText encodes the action as its string form.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Decide maps a classification onto an action. The boundary belongs to
// the inside: it is kept under KeepInside and discarded under
// KeepOutside. An unclassified entity is always kept.
func Decide(c classify.Containment, side Side) Action {
	if c == classify.Unknown {
		return ActionKeep
	}
	switch side {
	case KeepInside:
		if c == classify.Outside {
			return ActionDiscard
		}
		return ActionKeep
	default:
		if c == classify.Outside {
			return ActionKeep
		}
		return ActionDiscard
	}
}

// State tracks a request through the cropper.
type State int

const (
	StateCreated State = iota
	StateClassified
	StateDecided
	StateApplied // discard issued through the transaction
	StateSkipped // entity left untouched
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateClassified:
		return "classified"
	case StateDecided:
		return "decided"
	case StateApplied:
		return "applied"
	case StateSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText encodes the state as its string form.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateApplied || s == StateSkipped
}
