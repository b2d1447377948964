// Package event provides the primitives the state machines block on: bounded
// queues, one-shot timers, binary flags and Select, which waits until any one of
// them is ready.
//
// None of the primitives consume anything when selected. After Select returns a
// source the caller follows up with Queue.Read, Flag.Take or Timer.Expired.
package event

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrEmpty is returned by Queue.Read when nothing is pending.
	ErrEmpty = errors.New("event: queue empty")
	// ErrNoSources is returned by Select when called without sources.
	ErrNoSources = errors.New("event: select without sources")
)

// Source is anything Select can wait on.
type Source interface {
	// Pending reports whether a value, flag or fire is waiting to be consumed.
	Pending() bool

	watch(chan<- struct{})
	unwatch(chan<- struct{})
}

// Select blocks until one of sources is pending and returns it. When several are
// pending at once the one listed first wins. Nothing is consumed.
func Select(ctx context.Context, sources ...Source) (Source, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	wake := make(chan struct{}, 1)
	for _, s := range sources {
		s.watch(wake)
	}
	defer func() {
		for _, s := range sources {
			s.unwatch(wake)
		}
	}()

	for {
		// watchers are registered before checking, so a change between the
		// check and the receive below still leaves a token in wake.
		for _, s := range sources {
			if s.Pending() {
				return s, nil
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wake:
		}
	}
}

// notifier keeps the set of Select calls currently waiting on a source.
type notifier struct {
	mu       sync.Mutex
	watchers map[chan<- struct{}]struct{}
}

func (n *notifier) watch(c chan<- struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.watchers == nil {
		n.watchers = make(map[chan<- struct{}]struct{})
	}
	n.watchers[c] = struct{}{}
}

func (n *notifier) unwatch(c chan<- struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.watchers, c)
}

func (n *notifier) notify() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for c := range n.watchers {
		select {
		case c <- struct{}{}:
		default:
		}
	}
}
