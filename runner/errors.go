package runner

import (
	"fmt"

	"github.com/teranos/dialogue/errors"
)

var (
	ErrNoCurrentNode          = errors.Mark(errors.ErrInvalidRequest, "runner: no current dialogue node")
	ErrNodeNotFound           = errors.Mark(errors.ErrNotFound, "runner: node not found in dialogue")
	ErrNextNodeNotFound       = errors.Mark(errors.ErrNotFound, "runner: next node not found")
	ErrNoChoiceSelected       = errors.Mark(errors.ErrInvalidRequest, "runner: no choice selected for choice node")
	ErrInvalidChoiceIndex     = errors.Mark(errors.ErrInvalidRequest, "runner: invalid choice index")
	ErrInvalidStateTransition = errors.Mark(errors.ErrInvalidRequest, "runner: invalid state transition")
	ErrAssetNotLoaded         = errors.Mark(errors.ErrNotFound, "runner: dialogue asset not loaded")
)

// ChoiceIndexError reports a selected choice outside the node's edges.
// Max is the highest valid index, -1 when the node has no edges.
type ChoiceIndexError struct {
	Index int
	Max   int
}

func (e *ChoiceIndexError) Error() string {
	return fmt.Sprintf("invalid choice index: %d (max: %d)", e.Index, e.Max)
}

func (e *ChoiceIndexError) Unwrap() error {
	return ErrInvalidChoiceIndex
}

// StateTransitionError reports an action attempted from a state that forbids it.
type StateTransitionError struct {
	From   string
	Action string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: from %s with action %s", e.From, e.Action)
}

func (e *StateTransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}
