// Package gamelog keeps the list of hits a player took during a round and prints
// it when the round is over.
package gamelog

import (
	"context"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/jonboulle/clockwork"
)

// Entry is one hit.
type Entry struct {
	Round    int
	Attacker uint8
	Weapon   string
	At       time.Time
}

// Log is an in-memory hit log. It implements game.HitLog.
type Log struct {
	out   io.Writer
	clock clockwork.Clock

	mu      sync.Mutex
	round   int
	entries []Entry
}

// New returns an empty log that prints to out. A nil clock means the real clock.
func New(out io.Writer, clock clockwork.Clock) *Log {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Log{out: out, clock: clock, round: 1}
}

func (l *Log) AddLog(ctx context.Context, attacker uint8, weapon string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{
		Round:    l.round,
		Attacker: attacker,
		Weapon:   weapon,
		At:       l.clock.Now(),
	})
	return nil
}

func (l *Log) PrintLogs(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return Print(l.out, l.Entries())
}

// ClearLogs forgets every entry and starts the next round.
func (l *Log) ClearLogs(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.round++
	return nil
}

// Entries returns a copy of the current round's hits, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Print writes entries as a table.
func Print(w io.Writer, entries []Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no hits")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPLAYER\tWEAPON\tTIME")
	for i, e := range entries {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", i+1, e.Attacker, e.Weapon, e.At.Format(time.TimeOnly))
	}
	return tw.Flush()
}
