// Package driver turns host commands into runner calls and runner progress
// into notifications.
//
// A Driver is ticked by its host. Each tick, in order:
//
//  1. advances auto-advance timers of runners whose asset is loaded,
//  2. retries starts that were waiting for their asset,
//  3. drains queued commands in the order they were enqueued.
//
// Failed starts and advances park the runner in the error state and are
// logged; they do not produce notifications. Enqueue may be called from any
// goroutine. Tick and the runner accessors belong to the goroutine that ticks.
package driver

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/dialogue/asset"
	"github.com/teranos/dialogue/logger"
	"github.com/teranos/dialogue/metrics"
	"github.com/teranos/dialogue/runner"
)

// Actions recorded in runner error metrics.
const (
	actionStart       = "start"
	actionAdvance     = "advance"
	actionAutoAdvance = "auto_advance"
	actionSelect      = "select"
)

// Command outcomes recorded in metrics.
const (
	outcomeOK      = "ok"
	outcomeIgnored = "ignored"
	outcomePending = "pending"
	outcomeFailed  = "failed"
	outcomeDropped = "dropped"
)

// Driver owns the runners of every conversation it has been asked to start.
type Driver struct {
	store      asset.Store
	log        *zap.SugaredLogger
	runnerOpts []runner.Option

	runners map[Owner]*runner.Runner
	pending map[Owner]asset.Handle

	mu    sync.Mutex
	queue []Command

	limit    rate.Limit
	burst    int
	limiters map[Owner]*rate.Limiter
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the driver's logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(d *Driver) {
		if log != nil {
			d.log = log
		}
	}
}

// WithRunnerOptions applies opts to every runner the driver creates.
func WithRunnerOptions(opts ...runner.Option) Option {
	return func(d *Driver) {
		d.runnerOpts = append(d.runnerOpts, opts...)
	}
}

// WithAutoAdvance makes every new runner auto-advance text nodes after wait.
func WithAutoAdvance(wait time.Duration) Option {
	return WithRunnerOptions(runner.WithAutoAdvance(wait))
}

// WithCommandRateLimit caps how many commands each owner may enqueue.
// Commands over the limit are dropped at Enqueue.
func WithCommandRateLimit(limit rate.Limit, burst int) Option {
	return func(d *Driver) {
		d.limit = limit
		d.burst = max(burst, 1)
	}
}

// New creates a driver that looks assets up in store.
func New(store asset.Store, opts ...Option) *Driver {
	d := &Driver{
		store:    store,
		log:      zap.NewNop().Sugar(),
		runners:  make(map[Owner]*runner.Runner),
		pending:  make(map[Owner]asset.Handle),
		limit:    rate.Inf,
		limiters: make(map[Owner]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enqueue queues cmd for the next tick. It reports false when the owner's
// rate limit dropped the command.
func (d *Driver) Enqueue(cmd Command) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.allowLocked(cmd.OwnerID()) {
		metrics.Commands.WithLabelValues(cmd.CommandName(), outcomeDropped).Inc()
		d.log.Warnw("Dropping rate-limited command",
			logger.FieldOwner, cmd.OwnerID(),
			logger.FieldAction, cmd.CommandName(),
		)
		return false
	}

	d.queue = append(d.queue, cmd)
	return true
}

func (d *Driver) allowLocked(owner Owner) bool {
	if d.limit == rate.Inf {
		return true
	}
	lim, ok := d.limiters[owner]
	if !ok {
		lim = rate.NewLimiter(d.limit, d.burst)
		d.limiters[owner] = lim
	}
	return lim.Allow()
}

// Pending returns the number of queued commands.
func (d *Driver) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Tick runs one host tick with delta as the elapsed time and returns the
// notifications it produced, in order.
func (d *Driver) Tick(delta time.Duration) []Notification {
	start := time.Now()
	defer func() { metrics.TickDuration.Observe(time.Since(start).Seconds()) }()

	var out []Notification
	out = d.tickTimers(delta, out)
	out = d.retryPending(out)

	d.mu.Lock()
	queue := d.queue
	d.queue = nil
	d.mu.Unlock()

	for _, cmd := range queue {
		out = d.handle(cmd, out)
	}
	return out
}

func (d *Driver) tickTimers(delta time.Duration, out []Notification) []Notification {
	for _, owner := range d.Owners() {
		r := d.runners[owner]
		if r.State().Kind != runner.StateShowingText || !r.AutoAdvance() {
			continue
		}
		a, ok := d.store.Get(r.Asset())
		if !ok {
			continue
		}

		advanced, err := r.Tick(a, delta)
		if err != nil {
			metrics.RunnerErrors.WithLabelValues(actionAutoAdvance).Inc()
			d.log.Errorw("Error auto-advancing dialogue",
				logger.FieldOwner, owner,
				logger.FieldAsset, r.Asset(),
				logger.FieldError, err,
			)
			continue
		}
		if advanced {
			out = d.afterAdvance(owner, r, out)
		}
	}
	return out
}

func (d *Driver) retryPending(out []Notification) []Notification {
	owners := make([]Owner, 0, len(d.pending))
	for owner := range d.pending {
		owners = append(owners, owner)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })

	for _, owner := range owners {
		h := d.pending[owner]
		a, ok := d.store.Get(h)
		if !ok {
			continue
		}
		delete(d.pending, owner)
		d.log.Debugw("Asset ready, starting pending dialogue", logger.FieldOwner, owner, logger.FieldAsset, h)
		out = d.start(owner, d.runners[owner], a, out)
	}
	return out
}

func (d *Driver) handle(cmd Command, out []Notification) []Notification {
	owner := cmd.OwnerID()
	d.log.Debugw("Handling command", logger.FieldOwner, owner, logger.FieldAction, cmd.CommandName())

	switch c := cmd.(type) {
	case Start:
		return d.handleStart(c, out)

	case Stop:
		delete(d.pending, owner)
		r, ok := d.runners[owner]
		if !ok {
			d.count(cmd, outcomeIgnored)
			return out
		}
		out = append(out, Ended{Owner: owner, Normal: false})
		r.Stop()
		metrics.ConversationsEnded.WithLabelValues(metrics.ReasonStopped).Inc()
		d.count(cmd, outcomeOK)
		d.log.Infow("Dialogue stopped", logger.FieldOwner, owner)
		return out

	case Advance:
		r, a, ok := d.runnerWithAsset(owner)
		if !ok {
			d.count(cmd, outcomeIgnored)
			return out
		}
		if r.State().Kind == runner.StateError {
			// Keep the original failure; only Stop and Start leave this state
			d.count(cmd, outcomeIgnored)
			d.log.Debugw("Ignoring advance on failed dialogue", logger.FieldOwner, owner)
			return out
		}
		if err := r.Advance(a); err != nil {
			r.Fail(err)
			d.count(cmd, outcomeFailed)
			metrics.RunnerErrors.WithLabelValues(actionAdvance).Inc()
			d.log.Errorw("Error advancing dialogue",
				logger.FieldOwner, owner,
				logger.FieldAsset, r.Asset(),
				logger.FieldError, err,
			)
			return out
		}
		d.count(cmd, outcomeOK)
		return d.afterAdvance(owner, r, out)

	case Select:
		r, ok := d.runners[owner]
		if !ok || !r.State().CanSelectChoice() {
			d.count(cmd, outcomeIgnored)
			state := "none"
			if ok {
				state = r.State().Name()
			}
			d.log.Debugw("Ignoring choice selection",
				logger.FieldOwner, owner,
				logger.FieldState, state,
				logger.FieldChoiceIndex, c.Index,
			)
			return out
		}
		node, ok := r.CurrentNodeID()
		if !ok {
			d.count(cmd, outcomeIgnored)
			return out
		}
		if err := r.SelectChoice(c.Index); err != nil {
			d.count(cmd, outcomeFailed)
			metrics.RunnerErrors.WithLabelValues(actionSelect).Inc()
			d.log.Errorw("Error selecting choice", logger.FieldOwner, owner, logger.FieldError, err)
			return out
		}
		d.count(cmd, outcomeOK)
		return append(out, ChoiceMade{Owner: owner, Node: node, Index: c.Index})

	case Release:
		if r, ok := d.runners[owner]; ok && r.State().Active() {
			out = append(out, Ended{Owner: owner, Normal: false})
			metrics.ConversationsEnded.WithLabelValues(metrics.ReasonStopped).Inc()
		}
		if !d.Remove(owner) {
			d.count(cmd, outcomeIgnored)
			return out
		}
		d.count(cmd, outcomeOK)
		d.log.Debugw("Dialogue runner released", logger.FieldOwner, owner)
		return out

	default:
		d.log.Warnw("Unknown command type", logger.FieldOwner, owner, logger.FieldAction, cmd.CommandName())
		return out
	}
}

func (d *Driver) handleStart(c Start, out []Notification) []Notification {
	r, ok := d.runners[c.Owner]
	if !ok {
		r = runner.New(c.Asset, d.runnerOpts...)
		d.runners[c.Owner] = r
		metrics.ActiveRunners.Inc()
	}
	r.SetAsset(c.Asset)

	a, ok := d.store.Get(c.Asset)
	if !ok {
		// The previous conversation, if any, cannot go on under the new handle
		if r.State().Active() {
			out = append(out, Ended{Owner: c.Owner, Normal: false})
			metrics.ConversationsEnded.WithLabelValues(metrics.ReasonStopped).Inc()
			d.log.Infow("Dialogue stopped for deferred restart", logger.FieldOwner, c.Owner)
		}
		r.Stop()
		d.pending[c.Owner] = c.Asset
		d.count(c, outcomePending)
		d.log.Debugw("Asset not loaded, start deferred", logger.FieldOwner, c.Owner, logger.FieldAsset, c.Asset)
		return out
	}
	delete(d.pending, c.Owner)
	d.count(c, outcomeOK)
	return d.start(c.Owner, r, a, out)
}

func (d *Driver) start(owner Owner, r *runner.Runner, a *asset.Asset, out []Notification) []Notification {
	r.Start(a)

	if st := r.State(); st.Kind == runner.StateError {
		metrics.RunnerErrors.WithLabelValues(actionStart).Inc()
		d.log.Errorw("Error starting dialogue",
			logger.FieldOwner, owner,
			logger.FieldAsset, r.Asset(),
			logger.FieldError, st.Message,
		)
		return out
	}

	node, _ := r.CurrentNodeID()
	metrics.ConversationsStarted.Inc()
	d.log.Infow("Dialogue started",
		logger.FieldOwner, owner,
		logger.FieldAsset, r.Asset(),
		logger.FieldStartNode, node,
	)
	return append(out,
		Started{Owner: owner, Asset: r.Asset(), StartNode: node},
		NodeActivated{Owner: owner, Node: node},
	)
}

func (d *Driver) afterAdvance(owner Owner, r *runner.Runner, out []Notification) []Notification {
	if r.IsFinished() {
		metrics.ConversationsEnded.WithLabelValues(metrics.ReasonFinished).Inc()
		d.log.Infow("Dialogue finished", logger.FieldOwner, owner)
		return append(out, Ended{Owner: owner, Normal: true})
	}
	node, _ := r.CurrentNodeID()
	return append(out, NodeActivated{Owner: owner, Node: node})
}

func (d *Driver) runnerWithAsset(owner Owner) (*runner.Runner, *asset.Asset, bool) {
	r, ok := d.runners[owner]
	if !ok {
		return nil, nil, false
	}
	a, ok := d.store.Get(r.Asset())
	if !ok {
		d.log.Debugw("Asset not loaded, ignoring command", logger.FieldOwner, owner, logger.FieldAsset, r.Asset())
		return nil, nil, false
	}
	return r, a, true
}

func (d *Driver) count(cmd Command, outcome string) {
	metrics.Commands.WithLabelValues(cmd.CommandName(), outcome).Inc()
}

// Runner returns the runner held for owner.
func (d *Driver) Runner(owner Owner) (*runner.Runner, bool) {
	r, ok := d.runners[owner]
	return r, ok
}

// Remove forgets owner's runner, any pending start and its rate limiter.
// No notification is emitted.
func (d *Driver) Remove(owner Owner) bool {
	_, ok := d.runners[owner]
	if ok {
		delete(d.runners, owner)
		metrics.ActiveRunners.Dec()
	}
	delete(d.pending, owner)

	d.mu.Lock()
	delete(d.limiters, owner)
	d.mu.Unlock()
	return ok
}

// Owners returns the owners with a runner, sorted.
func (d *Driver) Owners() []Owner {
	owners := make([]Owner, 0, len(d.runners))
	for owner := range d.runners {
		owners = append(owners, owner)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	return owners
}

// Waiting reports whether owner has a start waiting for its asset.
func (d *Driver) Waiting(owner Owner) bool {
	_, ok := d.pending[owner]
	return ok
}
