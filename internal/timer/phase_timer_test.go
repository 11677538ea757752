package timer

import (
	"fmt"
	"testing"
	"time"
)

type recorder struct {
	ticks   []time.Duration
	expired int
}

func (r *recorder) onTick(rem time.Duration) { r.ticks = append(r.ticks, rem) }
func (r *recorder) onExpire()                { r.expired++ }

func newTestTimer() (*PhaseTimer, *ManualClock, *recorder) {
	clock := NewManualClock(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))
	return New(clock), clock, &recorder{}
}

func TestPhaseTimerExpiresAfterDuration(t *testing.T) {
	pt, clock, rec := newTestTimer()
	pt.Start(3*time.Second, rec.onTick, rec.onExpire)

	clock.Advance(2 * time.Second)
	if rec.expired != 0 {
		t.Fatalf("expired too early after 2s")
	}
	if got := pt.Remaining(); got != time.Second {
		t.Errorf("expected 1s remaining, got %v", got)
	}

	clock.Advance(time.Second)
	if rec.expired != 1 {
		t.Fatalf("expected onExpire once, got %d", rec.expired)
	}
	if len(rec.ticks) != 3 {
		t.Errorf("expected 3 ticks, got %d", len(rec.ticks))
	}

	clock.Advance(10 * time.Second)
	if rec.expired != 1 {
		t.Errorf("onExpire fired again: %d", rec.expired)
	}
	if clock.Pending() != 0 {
		t.Errorf("expected no pending callbacks after expiry, got %d", clock.Pending())
	}
}

func TestPhaseTimerPauseResumeKeepsUnpausedBudget(t *testing.T) {
	testCases := []struct {
		name  string
		steps []string // "a:<ms>" advance, "p" pause, "r" resume
	}{
		{"single pause mid interval", []string{"a:1500", "p", "a:60000", "r", "a:3400", "a:100"}},
		{"double pause", []string{"a:700", "p", "p", "a:1000", "r", "r", "a:2000", "p", "a:5000", "r", "a:2300"}},
		{"pause at boundary", []string{"a:1000", "p", "a:999", "r", "a:4000"}},
		{"resume without pause", []string{"r", "a:2500", "p", "r", "a:2500"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pt, clock, rec := newTestTimer()
			pt.Start(5*time.Second, rec.onTick, rec.onExpire)

			var unpaused time.Duration
			paused := false
			expiredAt := time.Duration(-1)
			for _, step := range tc.steps {
				switch {
				case step == "p":
					pt.Pause()
					paused = true
				case step == "r":
					pt.Resume()
					paused = false
				default:
					var ms int
					if _, err := fmt.Sscanf(step, "a:%d", &ms); err != nil {
						t.Fatalf("bad step %q", step)
					}
					// advance in 100ms slices to observe the expiry point
					for i := 0; i < ms/100; i++ {
						clock.Advance(100 * time.Millisecond)
						if !paused {
							unpaused += 100 * time.Millisecond
						}
						if rec.expired == 1 && expiredAt < 0 {
							expiredAt = unpaused
						}
					}
				}
			}

			if rec.expired != 1 {
				t.Fatalf("expected exactly one expiry, got %d", rec.expired)
			}
			if expiredAt != 5*time.Second {
				t.Errorf("expected expiry at 5s of unpaused time, got %v", expiredAt)
			}
		})
	}
}

func TestPhaseTimerZeroDurationExpiresImmediately(t *testing.T) {
	pt, clock, rec := newTestTimer()
	pt.Start(0, rec.onTick, rec.onExpire)

	clock.Advance(0)
	if rec.expired != 1 {
		t.Fatalf("expected immediate expiry, got %d", rec.expired)
	}
	if len(rec.ticks) != 0 {
		t.Errorf("zero duration should not tick, got %d ticks", len(rec.ticks))
	}
}

func TestPhaseTimerCancelSuppressesExpiry(t *testing.T) {
	pt, clock, rec := newTestTimer()
	pt.Start(2*time.Second, rec.onTick, rec.onExpire)
	clock.Advance(time.Second)
	pt.Cancel()
	clock.Advance(5 * time.Second)

	if rec.expired != 0 {
		t.Errorf("cancelled timer fired onExpire")
	}
	if len(rec.ticks) != 1 {
		t.Errorf("expected ticking to stop after cancel, got %d ticks", len(rec.ticks))
	}

	pt.Resume()
	clock.Advance(5 * time.Second)
	if rec.expired != 0 {
		t.Errorf("resume after cancel must not revive the countdown")
	}
}

func TestPhaseTimerRestartDropsPreviousRun(t *testing.T) {
	pt, clock, first := newTestTimer()
	pt.Start(2*time.Second, first.onTick, first.onExpire)
	clock.Advance(time.Second)

	second := &recorder{}
	pt.Start(3*time.Second, second.onTick, second.onExpire)
	clock.Advance(3 * time.Second)

	if first.expired != 0 {
		t.Errorf("first run should never expire, got %d", first.expired)
	}
	if second.expired != 1 {
		t.Errorf("second run should expire once, got %d", second.expired)
	}
}

func TestPhaseTimerCallbackMayRestart(t *testing.T) {
	pt, clock, rec := newTestTimer()
	restarts := 0
	var onExpire func()
	onExpire = func() {
		rec.expired++
		if restarts < 2 {
			restarts++
			pt.Start(time.Second, nil, onExpire)
		}
	}
	pt.Start(time.Second, nil, onExpire)
	clock.Advance(10 * time.Second)

	if rec.expired != 3 {
		t.Errorf("expected 3 chained expiries, got %d", rec.expired)
	}
}

// lateClock hands every callback to the test instead of running it, and its
// Stop always reports the callback as already started.
type lateClock struct {
	now       time.Time
	callbacks []func()
}

type lateStopper struct{}

func (lateStopper) Stop() bool { return false }

func (c *lateClock) Now() time.Time { return c.now }

func (c *lateClock) AfterFunc(d time.Duration, fn func()) Stopper {
	c.callbacks = append(c.callbacks, fn)
	return lateStopper{}
}

func TestPhaseTimerDropsTickStartedBeforePause(t *testing.T) {
	clock := &lateClock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	pt := New(clock)
	rec := &recorder{}
	pt.Start(5*time.Second, rec.onTick, rec.onExpire)

	clock.now = clock.now.Add(time.Second)
	stale := clock.callbacks[0]
	pt.Pause()
	pt.Resume()
	if len(clock.callbacks) != 2 {
		t.Fatalf("expected resume to schedule one callback, got %d", len(clock.callbacks))
	}

	stale()
	if len(rec.ticks) != 0 {
		t.Fatalf("tick from before the pause was counted: %v", rec.ticks)
	}
	if len(clock.callbacks) != 2 {
		t.Fatalf("tick from before the pause started a second chain")
	}

	clock.callbacks[1]()
	if len(rec.ticks) != 1 {
		t.Fatalf("expected 1 tick, got %d", len(rec.ticks))
	}
	if got := pt.Remaining(); got != 4*time.Second {
		t.Errorf("expected 4s remaining, got %v", got)
	}
	if rec.expired != 0 {
		t.Errorf("expired early")
	}
}
