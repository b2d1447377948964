package buzzer

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
)

func drain(s beep.Streamer) int {
	buf := make([][2]float64, 512)
	total := 0
	for {
		n, ok := s.Stream(buf)
		total += n
		if !ok {
			return total
		}
	}
}

func TestMakeSoundLength(t *testing.T) {
	var played []beep.Streamer
	b := New(DefaultSampleRate, 1000, func(s beep.Streamer) { played = append(played, s) })

	b.MakeSound(100 * time.Millisecond)
	if len(played) != 1 {
		t.Fatalf("played %d tones, want 1", len(played))
	}
	if got, want := drain(played[0]), 4410; got != want {
		t.Fatalf("samples = %d, want %d", got, want)
	}
}

func TestMakeSoundIgnoresZero(t *testing.T) {
	played := 0
	b := New(DefaultSampleRate, 1000, func(beep.Streamer) { played++ })
	b.MakeSound(0)
	if played != 0 {
		t.Fatalf("played %d tones, want 0", played)
	}
}

func TestToneRejectsFrequencyAboveNyquist(t *testing.T) {
	b := New(8000, 5000, func(beep.Streamer) {})
	if _, err := b.Tone(time.Second); err == nil {
		t.Fatal("expected error for a tone above half the sample rate")
	}
}

func TestMakeSoundLogsToneError(t *testing.T) {
	var logged bytes.Buffer
	log.SetOutput(&logged)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	played := 0
	b := New(8000, 5000, func(beep.Streamer) { played++ })
	b.MakeSound(time.Second)
	if played != 0 {
		t.Fatalf("played %d tones, want 0", played)
	}
	if !strings.Contains(logged.String(), "buzzer: ") {
		t.Fatalf("log = %q, want the tone error", logged.String())
	}
}
