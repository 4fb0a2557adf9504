package runner

import "fmt"

// StateKind enumerates runner states.
type StateKind int

const (
	// StateInactive means no conversation is running.
	StateInactive StateKind = iota
	// StateShowingText means the current node is text and waits for an advance.
	StateShowingText
	// StateWaitingForChoice means the current node is a choice with nothing selected.
	StateWaitingForChoice
	// StateChoiceSelected means a choice was selected but not yet confirmed by an advance.
	StateChoiceSelected
	// StateFinished means the conversation reached a text node with no way on.
	StateFinished
	// StateError means something invalid was attempted. Only Stop and Start leave it.
	StateError
)

var stateNames = [...]string{
	StateInactive:         "Inactive",
	StateShowingText:      "ShowingText",
	StateWaitingForChoice: "WaitingForChoice",
	StateChoiceSelected:   "ChoiceSelected",
	StateFinished:         "Finished",
	StateError:            "Error",
}

func (k StateKind) String() string {
	if k < 0 || int(k) >= len(stateNames) {
		return fmt.Sprintf("StateKind(%d)", int(k))
	}
	return stateNames[k]
}

// State is a runner state. Choice is meaningful only for StateChoiceSelected
// and Message only for StateError.
type State struct {
	Kind    StateKind
	Choice  int
	Message string
}

// Inactive is the zero state.
var Inactive = State{Kind: StateInactive}

// ChoiceSelected returns the state recording choice index i.
func ChoiceSelected(i int) State {
	return State{Kind: StateChoiceSelected, Choice: i}
}

// Failed returns the error state carrying msg.
func Failed(msg string) State {
	return State{Kind: StateError, Message: msg}
}

// Name is the bare state name, without payload.
func (s State) Name() string {
	return s.Kind.String()
}

func (s State) String() string {
	switch s.Kind {
	case StateChoiceSelected:
		return fmt.Sprintf("ChoiceSelected(%d)", s.Choice)
	case StateError:
		return fmt.Sprintf("Error(%s)", s.Message)
	default:
		return s.Name()
	}
}

// CanAdvance reports whether Advance is legal.
func (s State) CanAdvance() bool {
	return s.Kind == StateShowingText || s.Kind == StateChoiceSelected
}

// CanSelectChoice reports whether SelectChoice is legal.
func (s State) CanSelectChoice() bool {
	return s.Kind == StateWaitingForChoice || s.Kind == StateChoiceSelected
}

// Active reports whether a conversation is in progress.
func (s State) Active() bool {
	return s.Kind != StateInactive && s.Kind != StateFinished && s.Kind != StateError
}
