// Package sqlite persists audit events to an append-only SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	id "edugrant/pkg/domain"
	audit "edugrant/pkg/platform/audit"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	seq            INTEGER PRIMARY KEY AUTOINCREMENT,
	id             TEXT    NOT NULL UNIQUE,
	category       TEXT    NOT NULL,
	timestamp      TEXT    NOT NULL,
	actor_id       TEXT    NOT NULL,
	subject        TEXT    NOT NULL,
	action         TEXT    NOT NULL,
	scholarship_id INTEGER,
	amount         INTEGER NOT NULL DEFAULT 0,
	reason         TEXT    NOT NULL DEFAULT '',
	request_id     TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_events_subject ON audit_events(subject);
`

// Store implements audit.Store on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema exists.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Append inserts an event. Re-appending an event with the same ID is ignored.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	var scholarshipID sql.NullInt64
	if event.ScholarshipID != nil {
		scholarshipID = sql.NullInt64{Int64: int64(*event.ScholarshipID), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, category, timestamp, actor_id, subject, action, scholarship_id, amount, reason, request_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		event.ID,
		string(event.Category),
		event.Timestamp.UTC().Format(time.RFC3339Nano),
		string(event.ActorID),
		string(event.Subject),
		event.Action,
		scholarshipID,
		int64(event.Amount),
		event.Reason,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListBySubject(ctx context.Context, subject id.Identity) ([]audit.Event, error) {
	return s.query(ctx, `
		SELECT id, category, timestamp, actor_id, subject, action, scholarship_id, amount, reason, request_id
		FROM audit_events WHERE subject = ? ORDER BY seq
	`, string(subject))
}

func (s *Store) ListAll(ctx context.Context) ([]audit.Event, error) {
	return s.query(ctx, `
		SELECT id, category, timestamp, actor_id, subject, action, scholarship_id, amount, reason, request_id
		FROM audit_events ORDER BY seq
	`)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e             audit.Event
			category      string
			timestamp     string
			actorID       string
			subject       string
			scholarshipID sql.NullInt64
			amount        int64
		)
		if err := rows.Scan(&e.ID, &category, &timestamp, &actorID, &subject, &e.Action, &scholarshipID, &amount, &e.Reason, &e.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, timestamp)
		if err != nil {
			return nil, fmt.Errorf("parse audit timestamp: %w", err)
		}
		e.Category = audit.EventCategory(category)
		e.Timestamp = ts
		e.ActorID = id.Identity(actorID)
		e.Subject = id.Identity(subject)
		e.Amount = id.Amount(amount)
		if scholarshipID.Valid {
			sid := id.ScholarshipID(scholarshipID.Int64)
			e.ScholarshipID = &sid
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
