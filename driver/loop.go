package driver

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/dialogue/errors"
	"github.com/teranos/dialogue/logger"
)

// ErrLoopStopped is returned by Send once the loop has stopped.
var ErrLoopStopped = errors.New("driver: loop stopped")

// LoopConfig configures a Loop.
type LoopConfig struct {
	TickInterval       time.Duration // Time between driver ticks
	CommandBuffer      int           // Capacity of the command channel
	NotificationBuffer int           // Capacity of the notification channel
}

// DefaultLoopConfig returns sensible defaults
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		TickInterval:       50 * time.Millisecond,
		CommandBuffer:      64,
		NotificationBuffer: 64,
	}
}

// Loop hosts a Driver on its own goroutine. Commands arrive on a channel,
// the driver is ticked on a time.Ticker with the measured elapsed time, and
// notifications leave on a channel. The loop owns the driver while running.
type Loop struct {
	driver        *Driver
	interval      time.Duration
	commands      chan Command
	notifications chan Notification
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	logger        *zap.SugaredLogger

	mu              sync.Mutex
	lastTickAt      time.Time
	ticksSinceStart int64
}

// NewLoop creates a loop around d.
func NewLoop(d *Driver, cfg LoopConfig, log *zap.SugaredLogger) *Loop {
	return NewLoopWithContext(context.Background(), d, cfg, log)
}

// NewLoopWithContext creates a loop that also stops when ctx is cancelled.
func NewLoopWithContext(ctx context.Context, d *Driver, cfg LoopConfig, log *zap.SugaredLogger) *Loop {
	defaults := DefaultLoopConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaults.TickInterval
	}
	if cfg.CommandBuffer < 0 {
		cfg.CommandBuffer = defaults.CommandBuffer
	}
	if cfg.NotificationBuffer < 0 {
		cfg.NotificationBuffer = defaults.NotificationBuffer
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	return &Loop{
		driver:        d,
		interval:      cfg.TickInterval,
		commands:      make(chan Command, cfg.CommandBuffer),
		notifications: make(chan Notification, cfg.NotificationBuffer),
		ctx:           loopCtx,
		cancel:        cancel,
		logger:        log,
	}
}

// Start begins the loop
func (l *Loop) Start() {
	l.wg.Add(1)
	go l.run()
	l.logger.Infow("Dialogue loop started", "interval", l.interval)
}

// Stop gracefully stops the loop and closes the notification channel.
func (l *Loop) Stop() {
	l.cancel()
	l.wg.Wait()
	l.logger.Infow("Dialogue loop stopped", "ticks", l.Ticks())
}

// Send hands cmd to the loop. It blocks while the command buffer is full.
func (l *Loop) Send(ctx context.Context, cmd Command) error {
	select {
	case <-l.ctx.Done():
		return ErrLoopStopped
	default:
	}

	select {
	case l.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ctx.Done():
		return ErrLoopStopped
	}
}

// Notifications is closed when the loop stops.
func (l *Loop) Notifications() <-chan Notification {
	return l.notifications
}

// Ticks returns the number of ticks run so far.
func (l *Loop) Ticks() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticksSinceStart
}

func (l *Loop) run() {
	defer l.wg.Done()
	defer close(l.notifications)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.mu.Lock()
	l.lastTickAt = time.Now()
	l.mu.Unlock()

	for {
		select {
		case <-l.ctx.Done():
			return

		case cmd := <-l.commands:
			l.driver.Enqueue(cmd)

		case tickTime := <-ticker.C:
			l.mu.Lock()
			delta := tickTime.Sub(l.lastTickAt)
			l.lastTickAt = tickTime
			l.ticksSinceStart++
			l.mu.Unlock()

			for _, n := range l.driver.Tick(delta) {
				select {
				case l.notifications <- n:
				case <-l.ctx.Done():
					l.logger.Debugw("Dropping notification on shutdown", logger.FieldOwner, n.OwnerID())
					return
				}
			}
		}
	}
}
