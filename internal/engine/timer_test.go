package engine

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a mutable clock for deterministic timer tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestTimerElapsedClampedToDeadline(t *testing.T) {
	clock := newFakeClock()
	timer := NewTimerWithClock(60*time.Second, time.Hour, nil, nil, clock.Now)
	timer.Start()
	defer timer.Stop()

	clock.Advance(42 * time.Second)
	if got := timer.ElapsedSeconds(); got != 42 {
		t.Fatalf("expected 42s elapsed, got %d", got)
	}
	if got := timer.Remaining(); got != 18*time.Second {
		t.Fatalf("expected 18s remaining, got %v", got)
	}

	// Even far past the deadline the reading stays clamped.
	clock.Advance(time.Hour)
	if got := timer.ElapsedSeconds(); got != 60 {
		t.Fatalf("expected elapsed clamped to 60, got %d", got)
	}
	if got := timer.Remaining(); got != 0 {
		t.Fatalf("expected 0 remaining, got %v", got)
	}
}

func TestTimerDeadlineFiresOnce(t *testing.T) {
	clock := newFakeClock()
	fired := 0
	timer := NewTimerWithClock(10*time.Second, time.Hour, nil, func() { fired++ }, clock.Now)
	timer.Start()

	clock.Advance(9 * time.Second)
	if done := timer.tick(); done {
		t.Fatalf("tick before deadline should not stop the timer")
	}
	if fired != 0 {
		t.Fatalf("callback fired before deadline")
	}

	clock.Advance(2 * time.Second)
	if done := timer.tick(); !done {
		t.Fatalf("tick past deadline should stop the timer")
	}
	if fired != 1 {
		t.Fatalf("expected exactly one callback, got %d", fired)
	}

	// Further ticks are inert.
	timer.tick()
	timer.tick()
	if fired != 1 {
		t.Fatalf("callback fired again after deadline, count %d", fired)
	}
}

func TestTimerStopPreventsCallback(t *testing.T) {
	clock := newFakeClock()
	fired := 0
	timer := NewTimerWithClock(10*time.Second, time.Hour, nil, func() { fired++ }, clock.Now)
	timer.Start()
	timer.Stop()

	clock.Advance(time.Minute)
	timer.tick()
	if fired != 0 {
		t.Fatalf("callback fired after Stop")
	}
}

func TestTimerResetAllowsFreshRun(t *testing.T) {
	clock := newFakeClock()
	fired := 0
	timer := NewTimerWithClock(10*time.Second, time.Hour, nil, func() { fired++ }, clock.Now)
	timer.Start()
	clock.Advance(time.Minute)
	timer.tick()
	if fired != 1 {
		t.Fatalf("expected first run to fire, got %d", fired)
	}

	timer.Reset()
	if got := timer.ElapsedSeconds(); got != 0 {
		t.Fatalf("expected elapsed 0 after reset, got %d", got)
	}

	timer.Start()
	clock.Advance(time.Minute)
	timer.tick()
	if fired != 2 {
		t.Fatalf("expected second activation to fire again, got %d", fired)
	}
}

func TestTimerTickerLoopFires(t *testing.T) {
	clock := newFakeClock()
	fired := make(chan struct{}, 1)
	timer := NewTimerWithClock(time.Second, 2*time.Millisecond, nil, func() { fired <- struct{}{} }, clock.Now)
	timer.Start()
	defer timer.Stop()

	clock.Advance(2 * time.Second)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("ticker loop never fired the deadline callback")
	}
}
