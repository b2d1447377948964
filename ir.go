package irtag

import "time"

const (
	// Freq38Khz is the carrier frequency the receivers demodulate.
	Freq38Khz = 38000
)

// TimePair encodes a mark (carrier on) followed by a space (carrier off).
type TimePair [2]time.Duration

// Period returns the time from the start of the mark to the start of the next one.
func (p TimePair) Period() time.Duration {
	return p[0] + p[1]
}

// FrameMarshaller defines an interface for marshalling data to slice of TimePairs
type FrameMarshaller interface {
	MarshalFrame() []TimePair
}

// PauseListener receives the time between two consecutive active edges of the
// receiver output. It is called from the edge source, often an interrupt handler,
// so implementations must not block.
type PauseListener interface {
	PauseDetected(pause time.Duration)
}

// PauseListenerFunc adapts a function to PauseListener.
type PauseListenerFunc func(time.Duration)

func (f PauseListenerFunc) PauseDetected(pause time.Duration) {
	f(pause)
}

type multiPauseListener []PauseListener

func (m multiPauseListener) PauseDetected(pause time.Duration) {
	for i := range m {
		m[i].PauseDetected(pause)
	}
}

// MultiPauseListener returns a PauseListener that hands every pause to each of
// pls in order, so several decoders (or a decoder and a capture tool) can share
// one receiver.
func MultiPauseListener(pls ...PauseListener) PauseListener {
	return multiPauseListener(pls)
}
