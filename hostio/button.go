package hostio

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/gpio"

	"github.com/sparques/irtag/game"
)

// DefaultHoldoff is how long a button ignores further presses after one was
// reported.
const DefaultHoldoff = 50 * time.Millisecond

// Button reports presses of an active-low push button wired to a pulled-up pin.
type Button struct {
	pin      gpio.PinIn
	id       int
	listener game.ButtonListener
	clock    clockwork.Clock
	holdoff  time.Duration

	last time.Time
}

// NewButton configures pin as a pulled-up input and returns a Button that reports
// id to listener. A nil clock means the real clock and a zero holdoff means
// DefaultHoldoff.
func NewButton(pin gpio.PinIn, id int, listener game.ButtonListener, clock clockwork.Clock, holdoff time.Duration) (*Button, error) {
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("configure button %s: %w", pin, err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if holdoff <= 0 {
		holdoff = DefaultHoldoff
	}
	return &Button{
		pin:      pin,
		id:       id,
		listener: listener,
		clock:    clock,
		holdoff:  holdoff,
	}, nil
}

// Run watches the pin until ctx is done.
func (b *Button) Run(ctx context.Context) error {
	for {
		edge, err := waitForEdge(ctx, b.pin)
		if err != nil {
			return err
		}
		if !edge || b.pin.Read() != gpio.Low {
			continue
		}
		now := b.clock.Now()
		if !b.last.IsZero() && now.Sub(b.last) < b.holdoff {
			continue
		}
		b.last = now
		b.listener.ButtonPressed(b.id)
	}
}
