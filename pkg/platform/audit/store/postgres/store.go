package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	id "edugrant/pkg/domain"
	audit "edugrant/pkg/platform/audit"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	seq            BIGSERIAL   PRIMARY KEY,
	id             UUID        NOT NULL UNIQUE,
	category       TEXT        NOT NULL,
	timestamp      TIMESTAMPTZ NOT NULL,
	actor_id       TEXT        NOT NULL,
	subject        TEXT        NOT NULL,
	action         TEXT        NOT NULL,
	scholarship_id BIGINT,
	amount         BIGINT      NOT NULL DEFAULT 0,
	reason         TEXT        NOT NULL DEFAULT '',
	request_id     TEXT        NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_events_subject ON audit_events(subject);
`

const selectColumns = `
	SELECT id, category, timestamp, actor_id, subject, action,
		   scholarship_id, amount, reason, request_id
	FROM audit_events
`

// Store implements audit.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle. Call Migrate before first use.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects with the lib/pq driver and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping audit db: %w", err)
	}
	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Append inserts an event. Duplicate IDs are ignored via ON CONFLICT DO NOTHING.
// Events without a parseable UUID get a fresh one.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID, err := uuid.Parse(event.ID)
	if err != nil {
		eventID = uuid.New()
	}
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}

	var scholarshipID sql.NullInt64
	if event.ScholarshipID != nil {
		scholarshipID = sql.NullInt64{Int64: int64(*event.ScholarshipID), Valid: true}
	}

	query := `
		INSERT INTO audit_events (
			id, category, timestamp, actor_id, subject, action,
			scholarship_id, amount, reason, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, query,
		eventID,
		string(category),
		event.Timestamp.UTC(),
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

// ListBySubject returns events about subject in append order.
func (s *Store) ListBySubject(ctx context.Context, subject id.Identity) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE subject = $1 ORDER BY seq`, string(subject))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) ListAll(ctx context.Context) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event         audit.Event
			eventID       uuid.UUID
			category      string
			actorID       string
			subject       string
			scholarshipID sql.NullInt64
			amount        int64
		)
		err := rows.Scan(
			&eventID,
			&category,
			&event.Timestamp,
			&actorID,
			&subject,
			&event.Action,
			&scholarshipID,
			&amount,
			&event.Reason,
			&event.RequestID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.ID = eventID.String()
		event.Category = audit.EventCategory(category)
		event.ActorID = id.Identity(actorID)
		event.Subject = id.Identity(subject)
		event.Amount = id.Amount(amount)
		if scholarshipID.Valid {
			sid := id.ScholarshipID(scholarshipID.Int64)
			event.ScholarshipID = &sid
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
