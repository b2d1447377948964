// Package hostio connects the player unit to GPIO on a Linux board through periph:
// LEDs, buttons, the IR receiver and the IR LED.
package hostio

import (
	"context"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// pollInterval bounds how long a watcher blocks in WaitForEdge before it checks
// its context again.
const pollInterval = 100 * time.Millisecond

// Init loads the periph host drivers.
func Init() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("init periph host: %w", err)
	}
	return nil
}

// Pin looks up a GPIO pin by name, e.g. "GPIO17".
func Pin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("unknown gpio pin %q", name)
	}
	return p, nil
}

// Indicator drives an LED. It implements game.Indicator.
type Indicator struct {
	pin gpio.PinOut
}

// NewIndicator switches pin off and returns it as an Indicator.
func NewIndicator(pin gpio.PinOut) (*Indicator, error) {
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("set %s low: %w", pin, err)
	}
	return &Indicator{pin: pin}, nil
}

func (i *Indicator) Set(on bool) {
	if err := i.pin.Out(gpio.Level(on)); err != nil {
		log.Printf("hostio: set %s: %v", i.pin, err)
	}
}

func waitForEdge(ctx context.Context, pin gpio.PinIn) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return pin.WaitForEdge(pollInterval), nil
}
