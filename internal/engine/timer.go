package engine

import (
	"sync"
	"time"
)

// Timer tracks elapsed attempt time against a deadline. Elapsed time is
// recomputed from the captured start instant on every read, never counted
// from ticks, so it stays correct when ticks are delayed or missed. The
// deadline callback fires at most once per activation; Stop halts ticking
// and prevents further callback dispatch, though one dispatched just
// before may still be in flight.
type Timer struct {
	deadline   time.Duration
	interval   time.Duration
	onTick     func()
	onDeadline func()
	clock      func() time.Time

	mu      sync.Mutex
	start   time.Time
	running bool
	fired   bool
	quit    chan struct{}
}

func NewTimer(deadline, interval time.Duration, onTick, onDeadline func()) *Timer {
	return NewTimerWithClock(deadline, interval, onTick, onDeadline, time.Now)
}

// NewTimerWithClock allows deterministic elapsed time in tests.
func NewTimerWithClock(deadline, interval time.Duration, onTick, onDeadline func(), clock func() time.Time) *Timer {
	return &Timer{
		deadline:   deadline,
		interval:   interval,
		onTick:     onTick,
		onDeadline: onDeadline,
		clock:      clock,
	}
}

// Start captures a fresh start instant and begins ticking. A running timer
// is restarted.
func (t *Timer) Start() {
	t.mu.Lock()
	t.stopLocked()
	t.start = t.clock()
	t.fired = false
	t.running = true
	t.quit = make(chan struct{})
	quit := t.quit
	t.mu.Unlock()

	go t.loop(quit)
}

func (t *Timer) loop(quit chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			if t.tick() {
				return
			}
		}
	}
}

// tick checks the deadline and reports whether ticking should stop.
func (t *Timer) tick() bool {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return true
	}
	expired := t.clock().Sub(t.start) >= t.deadline && !t.fired
	if expired {
		t.fired = true
		t.running = false
		close(t.quit)
		t.quit = nil
	}
	t.mu.Unlock()

	// Callbacks run without the lock so they may read the timer freely.
	if expired {
		if t.onDeadline != nil {
			t.onDeadline()
		}
		return true
	}
	if t.onTick != nil {
		t.onTick()
	}
	return false
}

// Elapsed returns wall-clock time since Start, clamped to the deadline.
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.start.IsZero() {
		return 0
	}
	elapsed := t.clock().Sub(t.start)
	if elapsed > t.deadline {
		return t.deadline
	}
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// ElapsedSeconds returns Elapsed in whole seconds.
func (t *Timer) ElapsedSeconds() int {
	return int(t.Elapsed() / time.Second)
}

// Remaining returns the time left before the deadline.
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	start := t.start
	t.mu.Unlock()
	if start.IsZero() {
		return t.deadline
	}
	return t.deadline - t.Elapsed()
}

// Stop halts ticking. No new callback is dispatched after Stop returns,
// but one already dispatched (tick invokes callbacks outside the lock)
// may still be running; callers that care must guard in the callback.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.stopLocked()
	t.mu.Unlock()
}

func (t *Timer) stopLocked() {
	t.running = false
	if t.quit != nil {
		close(t.quit)
		t.quit = nil
	}
}

// Reset stops the timer and clears the start instant for a fresh run.
func (t *Timer) Reset() {
	t.mu.Lock()
	t.stopLocked()
	t.start = time.Time{}
	t.fired = false
	t.mu.Unlock()
}
