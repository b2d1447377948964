package event

import (
	"context"
	"sync"
)

// Flag is a binary event: set or not.
type Flag struct {
	notifier

	mu  sync.Mutex
	set bool
}

// NewFlag returns a cleared flag.
func NewFlag() *Flag {
	return &Flag{}
}

// Set marks the flag. Setting an already set flag does nothing.
func (f *Flag) Set() {
	f.mu.Lock()
	was := f.set
	f.set = true
	f.mu.Unlock()
	if !was {
		f.notify()
	}
}

// Clear resets the flag.
func (f *Flag) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.set = false
}

// IsSet reports the flag without changing it.
func (f *Flag) IsSet() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.set
}

// Take reports whether the flag was set and clears it.
func (f *Flag) Take() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	was := f.set
	f.set = false
	return was
}

// Wait blocks until the flag is set. The flag stays set.
func (f *Flag) Wait(ctx context.Context) error {
	_, err := Select(ctx, f)
	return err
}

// Pending implements Source.
func (f *Flag) Pending() bool {
	return f.IsSet()
}
