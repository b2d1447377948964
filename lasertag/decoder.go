package lasertag

import (
	"context"
	"log"
	"time"

	"github.com/sparques/irtag/event"
)

// Pause windows, exclusive on both ends.
const (
	StartPause     = 2000 * time.Microsecond
	RepeatWindow   = 4000 * time.Microsecond
	oneMin, oneMax = 600 * time.Microsecond, 1000 * time.Microsecond
	zeroMin        = 1400 * time.Microsecond
	zeroMax        = 1800 * time.Microsecond
)

// MessageListener receives decoded messages. It is called from the decoder's
// goroutine.
type MessageListener interface {
	MessageReceived(Message)
}

// MessageListenerFunc adapts a function to MessageListener.
type MessageListenerFunc func(Message)

func (f MessageListenerFunc) MessageReceived(m Message) {
	f(m)
}

// DecoderState is where the decoder is within a frame.
type DecoderState int

const (
	Idle DecoderState = iota
	Receiving
)

func (s DecoderState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Receiving:
		return "receiving"
	}
	return "unknown"
}

// DecoderStats counts what happened to the frames the decoder saw.
type DecoderStats struct {
	Decoded    uint64 // messages handed to the listener
	Duplicates uint64 // valid repeats that were suppressed
	Corrupt    uint64 // 16 bits that failed the control check
	Aborted    uint64 // frames abandoned on an out-of-window pause
}

// Decoder turns pauses into Messages. PauseDetected may be called from any
// goroutine; everything else belongs to the goroutine running Run or Step.
type Decoder struct {
	pauses   *event.Queue[time.Duration]
	listener MessageListener

	state        DecoderState
	buf          Frame
	bitcount     int
	initialPause time.Duration

	previous    Frame
	hasPrevious bool

	stats    DecoderStats
	reported uint64
}

// NewDecoder returns an idle decoder with room for capacity unread pauses.
// When the queue is full new pauses are dropped; the frame they belonged to then
// fails to decode.
func NewDecoder(listener MessageListener, capacity int) *Decoder {
	return &Decoder{
		pauses:   event.NewQueue[time.Duration](capacity, event.DropNewest),
		listener: listener,
	}
}

// PauseDetected implements irtag.PauseListener.
func (d *Decoder) PauseDetected(pause time.Duration) {
	d.pauses.Write(pause)
}

// Run decodes until ctx is done.
func (d *Decoder) Run(ctx context.Context) error {
	for {
		if err := d.Step(ctx); err != nil {
			return err
		}
		if lost := d.pauses.Dropped(); lost != d.reported {
			log.Printf("lasertag: %d pauses lost to a full queue", lost-d.reported)
			d.reported = lost
		}
	}
}

// Step waits for one pause and processes it.
func (d *Decoder) Step(ctx context.Context) error {
	if _, err := event.Select(ctx, d.pauses); err != nil {
		return err
	}
	p, err := d.pauses.Read()
	if err != nil {
		return nil
	}
	d.handlePause(p)
	return nil
}

// State returns the current decoder state.
func (d *Decoder) State() DecoderState {
	return d.state
}

// Stats returns the frame counters.
func (d *Decoder) Stats() DecoderStats {
	return d.stats
}

// Dropped returns how many pauses were lost to a full queue.
func (d *Decoder) Dropped() uint64 {
	return d.pauses.Dropped()
}

func (d *Decoder) handlePause(p time.Duration) {
	switch d.state {
	case Idle:
		if p > StartPause {
			d.buf = 0
			d.bitcount = 0
			d.initialPause = p
			d.state = Receiving
		}
	case Receiving:
		switch {
		case p > oneMin && p < oneMax:
			d.buf = d.buf<<1 | 1
		case p > zeroMin && p < zeroMax:
			d.buf <<= 1
		default:
			d.stats.Aborted++
			d.reset()
			return
		}
		d.bitcount++
		if d.bitcount == 16 {
			d.frameComplete()
		}
	}
}

func (d *Decoder) frameComplete() {
	f := d.buf
	repeat := d.initialPause > StartPause && d.initialPause < RepeatWindow
	d.reset()

	if !f.Valid() {
		d.stats.Corrupt++
		return
	}
	if repeat && d.hasPrevious && f == d.previous {
		d.stats.Duplicates++
		d.hasPrevious = false
		return
	}
	d.previous = f
	d.hasPrevious = true
	d.stats.Decoded++
	d.listener.MessageReceived(f.Message())
}

func (d *Decoder) reset() {
	d.state = Idle
	d.buf = 0
	d.bitcount = 0
}
