package runner

import "time"

// Timer is a one-shot countdown driven by explicit ticks. Once finished it
// stays finished until Reset.
type Timer struct {
	duration time.Duration
	elapsed  time.Duration
}

// NewTimer returns a timer that finishes after d of ticked time.
func NewTimer(d time.Duration) Timer {
	return Timer{duration: d}
}

// Tick adds delta to the elapsed time, clamped at the duration. It reports
// whether the timer is finished after the tick.
func (t *Timer) Tick(delta time.Duration) bool {
	if delta > 0 {
		t.elapsed = min(t.elapsed+delta, t.duration)
	}
	return t.Finished()
}

func (t *Timer) Finished() bool {
	return t.elapsed >= t.duration
}

func (t *Timer) Reset() {
	t.elapsed = 0
}

func (t *Timer) Elapsed() time.Duration {
	return t.elapsed
}

// Remaining is the ticked time still needed to finish.
func (t *Timer) Remaining() time.Duration {
	return t.duration - t.elapsed
}

func (t *Timer) Duration() time.Duration {
	return t.duration
}

// SetDuration changes the duration and restarts the countdown.
func (t *Timer) SetDuration(d time.Duration) {
	t.duration = d
	t.elapsed = 0
}
