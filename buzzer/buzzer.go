// Package buzzer plays the unit's beeps as sine tones through beep.
package buzzer

import (
	"fmt"
	"log"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/speaker"
)

// Defaults for NewSpeaker.
const (
	DefaultSampleRate beep.SampleRate = 44100
	DefaultFrequency                  = 2700.0 // Hz, typical piezo resonance
)

// Buzzer implements game.Buzzer. MakeSound hands the tone to play and returns at
// once.
type Buzzer struct {
	sr   beep.SampleRate
	freq float64
	play func(beep.Streamer)
}

// New returns a Buzzer producing tones at freq, sampled at sr, and passing them
// to play.
func New(sr beep.SampleRate, freq float64, play func(beep.Streamer)) *Buzzer {
	return &Buzzer{sr: sr, freq: freq, play: play}
}

// NewSpeaker opens the default audio device and returns a Buzzer playing on it.
func NewSpeaker(sr beep.SampleRate, freq float64) (*Buzzer, error) {
	if err := speaker.Init(sr, sr.N(time.Second/20)); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	return New(sr, freq, func(s beep.Streamer) { speaker.Play(s) }), nil
}

// Close releases the audio device opened by NewSpeaker.
func Close() {
	speaker.Close()
}

// Tone returns a streamer of d worth of tone.
func (b *Buzzer) Tone(d time.Duration) (beep.Streamer, error) {
	sine, err := generators.SineTone(b.sr, b.freq)
	if err != nil {
		return nil, fmt.Errorf("sine tone: %w", err)
	}
	return beep.Take(b.sr.N(d), sine), nil
}

func (b *Buzzer) MakeSound(d time.Duration) {
	if d <= 0 {
		return
	}
	tone, err := b.Tone(d)
	if err != nil {
		log.Printf("buzzer: %v", err)
		return
	}
	b.play(tone)
}
