package hostio

import (
	"context"
	"log"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	irtag "github.com/sparques/irtag"
	"github.com/sparques/irtag/event"
	"github.com/sparques/irtag/lasertag"
)

// Transmitter sends shots on an IR LED driven by a PWM capable pin. It implements
// game.Shooter; Shoot only queues the shot and Run transmits it.
type Transmitter struct {
	pin   gpio.PinOut
	clock clockwork.Clock
	shots *event.Queue[lasertag.Message]
}

// NewTransmitter returns a Transmitter on pin. A nil clock means the real clock.
func NewTransmitter(pin gpio.PinOut, clock clockwork.Clock) *Transmitter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Transmitter{
		pin:   pin,
		clock: clock,
		shots: event.NewQueue[lasertag.Message](8, event.DropNewest),
	}
}

// Shoot queues a shot. Shots beyond the queue capacity are dropped.
func (t *Transmitter) Shoot(shot lasertag.Message) {
	if !t.shots.Write(shot) {
		log.Printf("hostio: shot %+v dropped, transmitter busy", shot)
	}
}

// Run transmits queued shots until ctx is done.
func (t *Transmitter) Run(ctx context.Context) error {
	for {
		if _, err := event.Select(ctx, t.shots); err != nil {
			return err
		}
		shot, err := t.shots.Read()
		if err != nil {
			continue
		}
		f := lasertag.FrameOf(shot)
		for range lasertag.Copies {
			if err := t.SendFrame(f); err != nil {
				log.Printf("hostio: send %v: %v", f, err)
				break
			}
		}
	}
}

// SendFrame transmits one frame and blocks until it is out.
func (t *Transmitter) SendFrame(fm irtag.FrameMarshaller) error {
	for _, p := range fm.MarshalFrame() {
		if err := t.sendPair(p); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transmitter) sendPair(p irtag.TimePair) error {
	if err := t.pin.PWM(gpio.DutyHalf, irtag.Freq38Khz*physic.Hertz); err != nil {
		return err
	}
	t.clock.Sleep(p[0])
	if err := t.pin.Out(gpio.Low); err != nil {
		return err
	}
	t.clock.Sleep(p[1])
	return nil
}
