// Package timer provides the countdown used for preparation and response phases.
package timer

import (
	"sync"
	"time"
)

// TickInterval is the cadence at which a running PhaseTimer counts down.
const TickInterval = time.Second

type state int

const (
	stateIdle state = iota
	stateRunning
	statePaused
	stateExpired
	stateCancelled
)

// PhaseTimer counts down in whole ticks. onExpire fires exactly once per Start,
// however pause and resume are interleaved. Callbacks never run while the timer's
// own lock is held, so they may call back into the timer.
type PhaseTimer struct {
	mu       sync.Mutex
	clock    Clock
	interval time.Duration

	gen       uint64
	st        state
	remaining int
	// intervalStart is when the tick currently being counted began; carried holds
	// the part of that interval already elapsed when the timer was paused.
	intervalStart time.Time
	carried       time.Duration
	pending       Stopper

	onTick   func(remaining time.Duration)
	onExpire func()
}

func New(clock Clock) *PhaseTimer {
	if clock == nil {
		clock = RealClock()
	}
	return &PhaseTimer{clock: clock, interval: TickInterval}
}

// Start begins a new countdown, cancelling any previous one. A zero or negative
// duration expires on the first tick, which is scheduled immediately.
func (t *PhaseTimer) Start(duration time.Duration, onTick func(remaining time.Duration), onExpire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopPendingLocked()
	t.gen++
	t.st = stateRunning
	t.onTick = onTick
	t.onExpire = onExpire
	t.carried = 0
	t.intervalStart = t.clock.Now()

	ticks := int((duration + t.interval - 1) / t.interval)
	if duration <= 0 {
		ticks = 0
	}
	t.remaining = ticks

	gen := t.gen
	if ticks == 0 {
		t.pending = t.clock.AfterFunc(0, func() { t.expireNow(gen) })
		return
	}
	t.pending = t.clock.AfterFunc(t.interval, func() { t.tick(gen) })
}

// Pause is a no-op unless the timer is running.
func (t *PhaseTimer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.st != stateRunning {
		return
	}
	t.carried = t.clock.Now().Sub(t.intervalStart)
	if t.carried > t.interval {
		t.carried = t.interval
	}
	// A tick already handed off by the clock may still be waiting on the lock.
	t.stopPendingLocked()
	t.gen++
	t.st = statePaused
}

// Resume is a no-op unless the timer is paused.
func (t *PhaseTimer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.st != statePaused {
		return
	}
	t.st = stateRunning
	gen := t.gen
	if t.remaining <= 0 {
		t.pending = t.clock.AfterFunc(0, func() { t.expireNow(gen) })
		return
	}
	wait := t.interval - t.carried
	t.intervalStart = t.clock.Now().Add(-t.carried)
	t.carried = 0
	t.pending = t.clock.AfterFunc(wait, func() { t.tick(gen) })
}

// Cancel stops ticking and suppresses a pending onExpire.
func (t *PhaseTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopPendingLocked()
	if t.st == stateRunning || t.st == statePaused {
		t.st = stateCancelled
	}
	t.gen++
}

// Remaining returns the whole ticks left, expressed as a duration.
func (t *PhaseTimer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Duration(t.remaining) * t.interval
}

func (t *PhaseTimer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.st == stateRunning
}

func (t *PhaseTimer) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.st == statePaused
}

func (t *PhaseTimer) tick(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.st != stateRunning {
		t.mu.Unlock()
		return
	}
	t.remaining--
	remaining := time.Duration(t.remaining) * t.interval
	onTick := t.onTick
	var onExpire func()
	if t.remaining <= 0 {
		t.remaining = 0
		t.st = stateExpired
		t.pending = nil
		onExpire = t.onExpire
	} else {
		t.intervalStart = t.clock.Now()
		t.pending = t.clock.AfterFunc(t.interval, func() { t.tick(gen) })
	}
	t.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
	if onExpire != nil {
		onExpire()
	}
}

func (t *PhaseTimer) expireNow(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.st != stateRunning {
		t.mu.Unlock()
		return
	}
	t.st = stateExpired
	t.pending = nil
	onExpire := t.onExpire
	t.mu.Unlock()

	if onExpire != nil {
		onExpire()
	}
}

func (t *PhaseTimer) stopPendingLocked() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}
