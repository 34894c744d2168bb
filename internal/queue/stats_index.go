package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

// StatsIndex is a rebuildable SQLite view over a run's per-round
// statistics, adapted from the teacher's internal/store/index_sqlite.go
// pattern: queue/ and crashes/ remain the flat-file source of truth
// (spec.md §6), stats.sqlite is a derived index that lets a restarted
// graycon process recover its run-level counters without replaying every
// artifact (spec.md §4.8, SPEC_FULL §2 domain stack).
type StatsIndex struct {
	db *sql.DB
}

// OpenStatsIndex opens (creating if necessary) the stats index at path.
func OpenStatsIndex(ctx context.Context, path string) (*StatsIndex, error) {
	if path == "" {
		return nil, errors.New("queue: stats index path is empty")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("queue: open stats index: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("queue: ping stats index: %w", err)
	}

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()

		return nil, err
	}

	if err := createStatsSchema(ctx, db); err != nil {
		_ = db.Close()

		return nil, err
	}

	return &StatsIndex{db: db}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	statements := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("queue: apply pragma %q: %w", stmt, err)
		}
	}

	return nil
}

func createStatsSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS rounds (
			round INTEGER PRIMARY KEY,
			test_cases INTEGER NOT NULL,
			crashes_by_signal TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("queue: create stats schema: %w", err)
		}
	}

	return nil
}

// Close closes the underlying database handle.
func (s *StatsIndex) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("queue: close stats index: %w", err)
	}

	return nil
}

// RecordRound upserts a round's test-case count and a JSON-encoded
// signal-name-to-count crash tally (spec.md §4.8's per-signal crash
// breakdown).
func (s *StatsIndex) RecordRound(ctx context.Context, round, testCases int, crashesBySignalJSON string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rounds (round, test_cases, crashes_by_signal) VALUES (?, ?, ?)
		ON CONFLICT(round) DO UPDATE SET test_cases = excluded.test_cases,
			crashes_by_signal = excluded.crashes_by_signal`,
		round, testCases, crashesBySignalJSON)
	if err != nil {
		return fmt.Errorf("queue: record round %d: %w", round, err)
	}

	return nil
}

// TotalTestCases sums test_cases across every recorded round.
func (s *StatsIndex) TotalTestCases(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(test_cases), 0) FROM rounds")

	var total int
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("queue: sum test cases: %w", err)
	}

	return total, nil
}
