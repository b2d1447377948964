/*
Package lasertag implements the 16-bit laser-tag IR protocol: encoding shots into
mark/space pairs and decoding the pauses seen by a receiver back into messages.

# Protocol

The receiver reports the pause between the starts of consecutive marks. A pause
longer than 2ms is a start marker; after it come 16 bits, most significant first:

	pause 600..1000us   one
	pause 1400..1800us  zero

The 16 bits are laid out as

	CCCCC DDDDD PPPPP R

	C - control, Player XOR Data (bits 11-15)
	D - data, weapon id or a configuration value (bits 6-10)
	P - player id (bits 1-5)
	R - reserved, always zero (bit 0)

Player 0 is the referee: data 1..15 sets the round length in minutes and data 0
starts the round.

Transmitters send every frame twice. The second copy starts 3ms after the last mark
of the first, and a decoder drops a repeat that arrives within 4ms of the previous
frame. A trigger pulled twice is separated by much more than that and counts twice.
*/
package lasertag

import (
	"time"

	"github.com/sparques/irtag"
)

const (
	playerMask  = 0b0000000000111110
	dataMask    = 0b0000011111000000
	controlMask = 0b1111100000000000

	playerShift  = 1
	dataShift    = 6
	controlShift = 11

	// MaxField is the largest player id or data value.
	MaxField = 31
)

// Transmit timings. The pause a receiver measures is the period of a pair.
const (
	Mark         = 400 * time.Microsecond
	OnePeriod    = 800 * time.Microsecond
	ZeroPeriod   = 1600 * time.Microsecond
	RepeatPeriod = 3000 * time.Microsecond
)

// Copies is how many times a transmitter sends each frame. The receiving decoder
// folds the repeat into one message.
const Copies = 2

// Message is a validated frame split into its fields.
type Message struct {
	Player uint8
	Data   uint8
}

// IsConfig reports whether the message comes from the referee.
func (m Message) IsConfig() bool {
	return m.Player == 0
}

// Frame is a raw 16-bit frame as assembled by the decoder.
type Frame uint16

// NewFrame builds the frame carrying player and data, control bits included.
// Both values are truncated to 5 bits.
func NewFrame(player, data uint8) Frame {
	p := uint16(player) & MaxField
	d := uint16(data) & MaxField
	return Frame(p<<playerShift | d<<dataShift | (p^d)<<controlShift)
}

// FrameOf returns the frame that carries m.
func FrameOf(m Message) Frame {
	return NewFrame(m.Player, m.Data)
}

func (f Frame) Player() uint8 {
	return uint8((f & playerMask) >> playerShift)
}

func (f Frame) Data() uint8 {
	return uint8((f & dataMask) >> dataShift)
}

func (f Frame) Control() uint8 {
	return uint8((f & controlMask) >> controlShift)
}

// Valid reports whether the control field matches Player XOR Data.
func (f Frame) Valid() bool {
	return f.Control() == f.Player()^f.Data()
}

// Message returns the fields of f. It does not check Valid.
func (f Frame) Message() Message {
	return Message{Player: f.Player(), Data: f.Data()}
}

func bitPeriod(one bool) time.Duration {
	if one {
		return OnePeriod
	}
	return ZeroPeriod
}

// MarshalFrame implements irtag.FrameMarshaller. The first mark ends whatever
// gap preceded the frame; each following pair ends one bit, most significant
// first; the final pair leaves RepeatPeriod before a repeated frame may start.
func (f Frame) MarshalFrame() []irtag.TimePair {
	out := make([]irtag.TimePair, 17)
	for i := 0; i < 16; i++ {
		one := (f>>(15-i))&1 == 1
		out[i] = irtag.TimePair{Mark, bitPeriod(one) - Mark}
	}
	out[16] = irtag.TimePair{Mark, RepeatPeriod - Mark}
	return out
}

// Pauses returns what a receiver reports for f when the frame follows a gap of
// lead: the start marker and then one pause per bit.
func (f Frame) Pauses(lead time.Duration) []time.Duration {
	pairs := f.MarshalFrame()
	out := make([]time.Duration, 0, len(pairs))
	out = append(out, lead)
	for _, p := range pairs[:len(pairs)-1] {
		out = append(out, p.Period())
	}
	return out
}
