// Package sqlite provides a SQLite-backed hit log that survives restarts and keeps
// every round it has seen.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"github.com/sparques/irtag/gamelog"
	"github.com/sparques/irtag/gamelog/sqlite/migrations"
	"github.com/sparques/irtag/internal/platform/storage/sqlitemigrate"
)

// Store persists hits in SQLite. It implements game.HitLog; ClearLogs starts a
// new round instead of deleting rows.
type Store struct {
	sqlDB *sql.DB
	out   io.Writer
	clock clockwork.Clock
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the hit log at path and applies the embedded migrations. PrintLogs
// writes to out. A nil clock means the real clock.
func Open(ctx context.Context, path string, out io.Writer, clock clockwork.Clock) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	if out == nil {
		out = io.Discard
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	s := &Store{sqlDB: sqlDB, out: out, clock: clock}
	if _, err := s.Round(ctx); errors.Is(err, sql.ErrNoRows) {
		err = s.startRound(ctx)
		if err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("start first round: %w", err)
		}
	} else if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("read round: %w", err)
	}
	return s, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Round returns the id of the round new hits are recorded under.
func (s *Store) Round(ctx context.Context) (int, error) {
	var id int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT id FROM rounds ORDER BY id DESC LIMIT 1`).Scan(&id)
	return id, err
}

// AddLog records a hit in the current round.
func (s *Store) AddLog(ctx context.Context, attacker uint8, weapon string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO hits (round_id, attacker, weapon, hit_at)
		 VALUES ((SELECT MAX(id) FROM rounds), ?, ?, ?)`,
		int(attacker), weapon, toMillis(s.clock.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert hit: %w", err)
	}
	return nil
}

// PrintLogs prints the current round's hits.
func (s *Store) PrintLogs(ctx context.Context) error {
	round, err := s.Round(ctx)
	if err != nil {
		return fmt.Errorf("read round: %w", err)
	}
	entries, err := s.ListRound(ctx, round)
	if err != nil {
		return err
	}
	return gamelog.Print(s.out, entries)
}

// ClearLogs closes the current round. Its hits stay available through ListRound.
func (s *Store) ClearLogs(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.startRound(ctx); err != nil {
		return fmt.Errorf("start round: %w", err)
	}
	return nil
}

// ListRound returns the hits of one round, oldest first.
func (s *Store) ListRound(ctx context.Context, round int) ([]gamelog.Entry, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT attacker, weapon, hit_at FROM hits WHERE round_id = ? ORDER BY id`,
		round,
	)
	if err != nil {
		return nil, fmt.Errorf("query hits: %w", err)
	}
	defer rows.Close()

	var entries []gamelog.Entry
	for rows.Next() {
		var (
			attacker int
			weapon   string
			at       int64
		)
		if err := rows.Scan(&attacker, &weapon, &at); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		entries = append(entries, gamelog.Entry{
			Round:    round,
			Attacker: uint8(attacker),
			Weapon:   weapon,
			At:       fromMillis(at),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hits: %w", err)
	}
	return entries, nil
}

func (s *Store) startRound(ctx context.Context) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO rounds (started_at) VALUES (?)`,
		toMillis(s.clock.Now()),
	)
	return err
}
