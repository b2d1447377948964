package event

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Timer is a one-shot countdown. Once its deadline passes it stays pending until
// Expired consumes the fire, Set re-arms it or Stop disarms it.
type Timer struct {
	notifier

	clock clockwork.Clock

	mu       sync.Mutex
	armed    bool
	deadline time.Time
	wake     clockwork.Timer
}

// NewTimer returns an unarmed timer driven by clock. A nil clock means the real
// clock.
func NewTimer(clock clockwork.Clock) *Timer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Timer{clock: clock}
}

// Set arms the timer to fire d from now. A previous deadline, fired or not, is
// forgotten.
func (t *Timer) Set(d time.Duration) {
	t.mu.Lock()
	if t.wake != nil {
		t.wake.Stop()
	}
	t.armed = true
	t.deadline = t.clock.Now().Add(d)
	t.wake = t.clock.AfterFunc(d, t.notify)
	t.mu.Unlock()

	if d <= 0 {
		t.notify()
	}
}

// Stop disarms the timer and discards a fire that was not consumed yet.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.wake != nil {
		t.wake.Stop()
		t.wake = nil
	}
	t.armed = false
}

// Expired reports whether the timer fired and consumes the fire.
func (t *Timer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.firedLocked() {
		return false
	}
	t.armed = false
	t.wake = nil
	return true
}

// Armed reports whether the timer is counting down or holds an unconsumed fire.
func (t *Timer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

// Pending implements Source.
func (t *Timer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.firedLocked()
}

func (t *Timer) firedLocked() bool {
	return t.armed && !t.clock.Now().Before(t.deadline)
}
