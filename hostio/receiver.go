package hostio

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/gpio"

	irtag "github.com/sparques/irtag"
)

// Receiver times the falling edges of a demodulating IR receiver and reports the
// pauses between them.
//
// Edge timestamps are taken in user space, so the jitter is whatever the kernel's
// GPIO event delivery adds. The pause windows leave about 200µs of slack.
type Receiver struct {
	pin      gpio.PinIn
	listener irtag.PauseListener
	clock    clockwork.Clock
}

// NewReceiver configures pin for falling edges and returns a Receiver feeding
// listener. A nil clock means the real clock.
func NewReceiver(pin gpio.PinIn, listener irtag.PauseListener, clock clockwork.Clock) (*Receiver, error) {
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("configure receiver %s: %w", pin, err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Receiver{pin: pin, listener: listener, clock: clock}, nil
}

// Run watches the pin until ctx is done.
func (r *Receiver) Run(ctx context.Context) error {
	last := r.clock.Now()
	for {
		edge, err := waitForEdge(ctx, r.pin)
		if err != nil {
			return err
		}
		if !edge {
			continue
		}
		now := r.clock.Now()
		r.listener.PauseDetected(now.Sub(last))
		last = now
	}
}
