// Package auditlog persists every cog.ErrorEnvelope a running graph
// emits to SQLite, independent of whether any subscriber happened to be
// listening at fault time. It does not persist cog context (spec.md
// Non-goals: "No persistence of context") — only the error-envelope
// stream, which is ordinary output data per spec.md §7.
package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nugget/cogflow/cog"
)

// Entry is one persisted error envelope.
type Entry struct {
	ID         string
	CogID      string
	Kind       string
	Cause      string
	Input      string
	OccurredAt time.Time
}

// Store is an append-only SQLite store for error envelopes. All public
// methods are safe for concurrent use (SQLite serializes writes).
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite database at path using the
// cgo mattn/go-sqlite3 driver, and runs migrations. Test code should
// instead open a *sql.DB with the pure-Go modernc.org/sqlite driver and
// call NewStore directly, avoiding a cgo requirement in test binaries.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("auditlog: open database: %w", err)
	}
	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an already-opened *sql.DB, running migrations on first
// use.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("auditlog: migrate schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS error_envelopes (
			id          TEXT PRIMARY KEY,
			cog_id      TEXT NOT NULL,
			kind        TEXT NOT NULL,
			cause       TEXT NOT NULL,
			input_json  TEXT NOT NULL,
			occurred_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_error_envelopes_cog ON error_envelopes(cog_id);
		CREATE INDEX IF NOT EXISTS idx_error_envelopes_time ON error_envelopes(occurred_at);
	`)
	return err
}

// Record persists one error envelope emitted by cogID. The context is
// used for cancellation only.
func (s *Store) Record(ctx context.Context, cogID string, env cog.ErrorEnvelope) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("auditlog: generate entry id: %w", err)
	}

	var cause string
	if env.Cause != nil {
		cause = env.Cause.Error()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO error_envelopes (id, cog_id, kind, cause, input_json, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(),
		cogID,
		env.Kind,
		cause,
		fmt.Sprintf("%v", env.Input),
		// Fixed-width fraction so the TEXT column sorts chronologically.
		time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z07:00"),
	)
	if err != nil {
		return fmt.Errorf("auditlog: insert entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, cog_id, kind, cause, input_json, occurred_at
		   FROM error_envelopes
		  ORDER BY occurred_at DESC
		  LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("auditlog: query recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var occurredAt string
		if err := rows.Scan(&e.ID, &e.CogID, &e.Kind, &e.Cause, &e.Input, &occurredAt); err != nil {
			return nil, fmt.Errorf("auditlog: scan entry: %w", err)
		}
		e.OccurredAt, err = time.Parse(time.RFC3339Nano, occurredAt)
		if err != nil {
			return nil, fmt.Errorf("auditlog: parse occurred_at: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the total number of persisted entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM error_envelopes`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("auditlog: count: %w", err)
	}
	return n, nil
}

// Watch subscribes to source and persists every cog.ErrorEnvelope it
// sees until source ends or ctx is cancelled. Non-error values are
// ignored — the audit trail is error-envelopes only, per spec.md §7
// ("errors are data on the output stream").
func (s *Store) Watch(ctx context.Context, cogID string, source *cog.Broadcast) {
	tap := cog.NewChannel(cog.Fixed(64))
	sub := source.Subscribe(tap, true)
	defer source.Unsubscribe(sub)

	// Closing is the core's only cancellation mechanism (spec.md §5): to
	// stop watching on ctx cancellation, close our own tap rather than
	// polling ctx.Done() around a blocking Receive.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			tap.Close()
		case <-stop:
		}
	}()

	for {
		v, ok := tap.Receive()
		if !ok {
			return
		}
		env, isEnvelope := v.(cog.ErrorEnvelope)
		if !isEnvelope {
			continue
		}
		_ = s.Record(ctx, cogID, env)
	}
}
