//go:build tinygo

package irtag

import (
	. "machine"
	"time"

	"github.com/sparques/pwm"
)

// TxDevice drives an IR LED with a 38kHz carrier from a PWM channel.
type TxDevice struct {
	pgroup pwm.Group
	ch     uint8
	on     uint32 // half duty at the carrier period
}

// NewTxDevice sets up pin as a 38kHz PWM output with the carrier off.
func NewTxDevice(pin Pin) *TxDevice {
	pin.Configure(PinConfig{Mode: PinPWM})
	pgroup := pwm.Get(pin)
	pgroup.Configure(PWMConfig{Period: uint64(time.Second) / uint64(Freq38Khz)})
	ch, _ := pgroup.Channel(pin)
	pgroup.Set(ch, 0)
	return &TxDevice{
		pgroup: pgroup,
		ch:     ch,
		on:     pgroup.Top() / 2,
	}
}

func (tx *TxDevice) carrier(on bool) {
	if on {
		tx.pgroup.Set(tx.ch, tx.on)
		return
	}
	tx.pgroup.Set(tx.ch, 0)
}

// SendPair keeps the carrier on for the mark and off for the space.
func (tx *TxDevice) SendPair(pair TimePair) {
	tx.carrier(true)
	time.Sleep(pair[0])
	tx.carrier(false)
	time.Sleep(pair[1])
}

// SendFrame sends fm copies times back to back, at least once. The last pair of
// each copy holds the gap before the next one.
func (tx *TxDevice) SendFrame(fm FrameMarshaller, copies int) {
	pairs := fm.MarshalFrame()
	for n := 0; n < max(copies, 1); n++ {
		for _, p := range pairs {
			tx.SendPair(p)
		}
	}
}
