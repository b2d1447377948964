//go:build tinygo

package irtag

import (
	. "machine"
	"time"
)

// RxDevice measures the pauses between active edges of a demodulating IR
// receiver and hands them to a PauseListener.
type RxDevice struct {
	pin       Pin
	lastEdge  time.Time
	listener  PauseListener
	activeLow bool
}

// NewRxDevice configures pin as an input. Most 38kHz receivers idle high and pull
// the line low while the carrier is present, so the falling edge is the active one.
func NewRxDevice(pin Pin, listener PauseListener) *RxDevice {
	pin.Configure(PinConfig{Mode: PinInput})
	return &RxDevice{
		pin:       pin,
		listener:  listener,
		activeLow: true,
	}
}

func (rx *RxDevice) interruptHandler(interruptPin Pin) {
	now := time.Now()
	pause := now.Sub(rx.lastEdge)
	rx.lastEdge = now
	rx.listener.PauseDetected(pause)
}

// Start sets the interrupt handler and thus starts processing signals.
func (rx *RxDevice) Start() {
	rx.lastEdge = time.Now()
	change := PinFalling
	if !rx.activeLow {
		change = PinRising
	}
	rx.pin.SetInterrupt(change, rx.interruptHandler)
}

// StartInverted is Start for receivers that idle low.
func (rx *RxDevice) StartInverted() {
	rx.activeLow = false
	rx.Start()
}

// Stop disables the interrupt handler.
func (rx *RxDevice) Stop() {
	rx.pin.SetInterrupt(PinFalling|PinRising, nil)
}
