// Package runner walks a dialogue graph for one conversation.
//
// A Runner is a play head: it tracks the current node, what the conversation
// is waiting on, a pending choice and the auto-advance timer. It never
// mutates the graph it reads. Every failed action returns a typed error and
// leaves the state as it was; parking a runner in the error state is the
// caller's decision (see Fail).
//
// A Runner is not safe for concurrent use. Whoever ticks it owns it.
package runner

import (
	"time"

	"github.com/teranos/dialogue/asset"
	"github.com/teranos/dialogue/errors"
	"github.com/teranos/dialogue/graph"
)

// DefaultAutoAdvanceTime is how long a text node is shown before an automatic advance.
const DefaultAutoAdvanceTime = 2 * time.Second

// Action names used in StateTransitionError.
const (
	ActionAdvance      = "advance"
	ActionSelectChoice = "select_choice"
)

// Runner is the runtime state of one conversation.
type Runner struct {
	handle asset.Handle

	current    graph.NodeID
	hasCurrent bool
	state      State

	autoAdvance bool
	timer       Timer

	selected    int
	hasSelected bool

	// Variables is free-form conversation state. Nothing in the runner reads it.
	Variables map[string]string
}

// Option configures a Runner.
type Option func(*Runner)

// WithAutoAdvance enables automatic advance past text nodes after d.
// A zero d advances on the next tick; a negative d uses DefaultAutoAdvanceTime.
func WithAutoAdvance(d time.Duration) Option {
	return func(r *Runner) {
		r.autoAdvance = true
		if d < 0 {
			d = DefaultAutoAdvanceTime
		}
		r.timer.SetDuration(d)
	}
}

// New returns an inactive runner for the asset behind h.
func New(h asset.Handle, opts ...Option) *Runner {
	r := &Runner{
		handle:    h,
		state:     Inactive,
		timer:     NewTimer(DefaultAutoAdvanceTime),
		Variables: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start jumps to the start node of a. A missing start node or a nil asset is
// recorded as the error state rather than returned; check State afterwards.
func (r *Runner) Start(a *asset.Asset) {
	r.selected, r.hasSelected = 0, false
	r.timer.Reset()

	if a == nil || a.Graph == nil {
		r.current, r.hasCurrent = 0, false
		r.state = Failed(errors.Wrapf(ErrAssetNotLoaded, "asset %s", r.handle).Error())
		return
	}

	start := a.Graph.StartNode()
	r.current, r.hasCurrent = start, true

	n, ok := a.Graph.Node(start)
	if !ok {
		r.state = Failed(errors.Wrapf(ErrNodeNotFound, "start node %d", start).Error())
		return
	}
	r.state = stateFor(n)
}

// Advance confirms the current node and moves on. From a text node it follows
// the first outgoing edge, or finishes when there is none. From a choice node
// it follows the edge at the selected index.
func (r *Runner) Advance(a *asset.Asset) error {
	if !r.state.CanAdvance() {
		return &StateTransitionError{From: r.state.Name(), Action: ActionAdvance}
	}
	if !r.hasCurrent {
		return ErrNoCurrentNode
	}
	if a == nil || a.Graph == nil {
		return errors.Wrapf(ErrAssetNotLoaded, "asset %s", r.handle)
	}

	g := a.Graph
	cur, ok := g.Node(r.current)
	if !ok {
		return errors.Wrapf(ErrNodeNotFound, "node %d", r.current)
	}
	conns := g.Connections(r.current)

	var next graph.NodeID
	switch cur.(type) {
	case *graph.TextNode:
		if len(conns) == 0 {
			r.state = State{Kind: StateFinished}
			return nil
		}
		next = conns[0].Target

	case *graph.ChoiceNode:
		idx, ok := r.pendingChoice()
		if !ok {
			return errors.Wrapf(ErrNoChoiceSelected, "node %d", r.current)
		}
		if idx < 0 || idx >= len(conns) {
			return &ChoiceIndexError{Index: idx, Max: len(conns) - 1}
		}
		next = conns[idx].Target

	default:
		return errors.AssertionFailedf("unknown node type %T", cur)
	}

	nextNode, ok := g.Node(next)
	if !ok {
		return errors.Wrapf(ErrNextNodeNotFound, "node %d", next)
	}

	r.current = next
	r.selected, r.hasSelected = 0, false
	r.state = stateFor(nextNode)
	r.timer.Reset()
	return nil
}

// pendingChoice prefers the index carried by the ChoiceSelected state and
// falls back to the separately recorded selection.
func (r *Runner) pendingChoice() (int, bool) {
	if r.state.Kind == StateChoiceSelected {
		return r.state.Choice, true
	}
	return r.selected, r.hasSelected
}

// SelectChoice records choice i. The index is checked against the node's
// edges only when the selection is confirmed by Advance.
func (r *Runner) SelectChoice(i int) error {
	if !r.state.CanSelectChoice() {
		return &StateTransitionError{From: r.state.Name(), Action: ActionSelectChoice}
	}
	r.selected, r.hasSelected = i, true
	r.state = ChoiceSelected(i)
	return nil
}

// Stop ends the conversation from any state.
func (r *Runner) Stop() {
	r.state = Inactive
	r.current, r.hasCurrent = 0, false
	r.selected, r.hasSelected = 0, false
}

// Tick drives auto-advance. It only counts time while showing text with
// auto-advance enabled; when the timer runs out it advances. An advance
// failure parks the runner in the error state and is returned.
func (r *Runner) Tick(a *asset.Asset, delta time.Duration) (advanced bool, err error) {
	if !r.autoAdvance || r.state.Kind != StateShowingText {
		return false, nil
	}
	if !r.timer.Tick(delta) {
		return false, nil
	}
	if err := r.Advance(a); err != nil {
		r.Fail(err)
		return false, err
	}
	return true, nil
}

// Fail parks the runner in the error state with err's message.
func (r *Runner) Fail(err error) {
	if err == nil {
		return
	}
	r.state = Failed(err.Error())
}

// CurrentNode returns a copy of the current node.
func (r *Runner) CurrentNode(a *asset.Asset) (graph.Node, bool) {
	if !r.hasCurrent || a == nil || a.Graph == nil {
		return nil, false
	}
	return a.Graph.Node(r.current)
}

// CurrentNodeID returns the current node id, if any.
func (r *Runner) CurrentNodeID() (graph.NodeID, bool) {
	return r.current, r.hasCurrent
}

// SelectedChoice returns the recorded selection, if any.
func (r *Runner) SelectedChoice() (int, bool) {
	return r.selected, r.hasSelected
}

// SetSelectedChoice records a selection without changing state. Advance uses
// it when the runner sits on a choice node outside the ChoiceSelected state.
func (r *Runner) SetSelectedChoice(i int) {
	r.selected, r.hasSelected = i, true
}

func (r *Runner) State() State {
	return r.state
}

func (r *Runner) IsFinished() bool {
	return r.state.Kind == StateFinished
}

// Asset returns the handle of the asset this runner plays.
func (r *Runner) Asset() asset.Handle {
	return r.handle
}

// SetAsset points the runner at another asset. Takes effect on the next Start.
func (r *Runner) SetAsset(h asset.Handle) {
	r.handle = h
}

func (r *Runner) AutoAdvance() bool {
	return r.autoAdvance
}

func (r *Runner) SetAutoAdvance(on bool) {
	r.autoAdvance = on
}

func (r *Runner) AutoAdvanceTime() time.Duration {
	return r.timer.Duration()
}

// Timer exposes the auto-advance countdown.
func (r *Runner) Timer() *Timer {
	return &r.timer
}

func stateFor(n graph.Node) State {
	switch n.(type) {
	case *graph.ChoiceNode:
		return State{Kind: StateWaitingForChoice}
	default:
		return State{Kind: StateShowingText}
	}
}
