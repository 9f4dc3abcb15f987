package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"vodex/internal/queue"
)

const schema = `
CREATE TABLE IF NOT EXISTS record_events (
	id          UUID PRIMARY KEY,
	kind        TEXT NOT NULL,
	collection  TEXT NOT NULL,
	record_id   TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS record_events_record_idx ON record_events (collection, record_id);
`

// Entry is one stored record-change event.
type Entry struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Collection string    `json:"collection"`
	RecordID   string    `json:"record_id"`
	OccurredAt time.Time `json:"occurred_at"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Filter narrows List; empty fields match everything.
type Filter struct {
	Collection string
	RecordID   string
	Limit      int
	Offset     int
}

// Repository persists record-change events in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the events table if it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// Insert writes an event. Re-delivered events with a known id are ignored.
func (r *Repository) Insert(ctx context.Context, evt queue.Event) error {
	if evt.Kind == "" || evt.Collection == "" || evt.RecordID == "" {
		return errors.New("audit: kind, collection and record id required")
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO record_events (id, kind, collection, record_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, evt.ID, evt.Kind, evt.Collection, evt.RecordID, evt.At)
	return err
}

// List returns events newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]Entry, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	query := `SELECT id, kind, collection, record_id, occurred_at, recorded_at FROM record_events`
	var (
		args    []any
		clauses []string
	)
	if f.Collection != "" {
		args = append(args, f.Collection)
		clauses = append(clauses, fmt.Sprintf("collection = $%d", len(args)))
	}
	if f.RecordID != "" {
		args = append(args, f.RecordID)
		clauses = append(clauses, fmt.Sprintf("record_id = $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY occurred_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Collection, &e.RecordID, &e.OccurredAt, &e.RecordedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
