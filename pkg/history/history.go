// Package history records state transitions and heating runs in sqlite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	ended_at    TEXT
);

CREATE TABLE IF NOT EXISTS transitions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT,
	state       TEXT NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT,
	message     TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
`

// States that start and end a heating run.
const (
	runStartState = "START"
	runEndState   = "IDLE"
)

// Store implements controller.Publisher. A heating run starts when START is
// entered and ends on IDLE; transitions in between carry the run id.
type Store struct {
	db  *sql.DB
	now func() time.Time

	mu    sync.Mutex
	runID string
}

type Transition struct {
	RunID     string
	State     string
	CreatedAt time.Time
}

type Run struct {
	RunID     string
	StartedAt time.Time
	EndedAt   *time.Time
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) PublishState(name string) {
	if err := s.recordTransition(context.Background(), name); err != nil {
		logrus.WithError(err).Error("history: error recording transition")
	}
}

func (s *Store) PublishInfo(msg string) {
	s.mu.Lock()
	runID := s.runID
	s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO messages (run_id, message, created_at) VALUES (?, ?, ?)`,
		nullable(runID), msg, s.timestamp())
	if err != nil {
		logrus.WithError(err).Error("history: error recording message")
	}
}

// PublishValue is a no-op, values are published to mqtt only.
func (s *Store) PublishValue(key string, v float64) {}

func (s *Store) recordTransition(ctx context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := s.timestamp()
	runID := s.runID
	if state == runStartState && runID == "" {
		runID = uuid.New().String()
		if _, err := tx.ExecContext(ctx, `INSERT INTO runs (run_id, started_at) VALUES (?, ?)`, runID, now); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO transitions (run_id, state, created_at) VALUES (?, ?, ?)`,
		nullable(runID), state, now)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}

	if state == runEndState && runID != "" {
		if _, err := tx.ExecContext(ctx, `UPDATE runs SET ended_at = ? WHERE run_id = ?`, now, runID); err != nil {
			return fmt.Errorf("end run: %w", err)
		}
		runID = ""
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.runID = runID
	return nil
}

// Transitions returns the latest transitions, newest first.
func (s *Store) Transitions(ctx context.Context, limit int) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(run_id, ''), state, created_at FROM transitions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var t Transition
		var created string
		if err := rows.Scan(&t.RunID, &t.State, &created); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		if t.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Runs returns the latest heating runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, started_at, ended_at FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started string
		var ended sql.NullString
		if err := rows.Scan(&r.RunID, &started, &ended); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if ended.Valid {
			t, err := time.Parse(time.RFC3339Nano, ended.String)
			if err != nil {
				return nil, fmt.Errorf("parse ended_at: %w", err)
			}
			r.EndedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
