package db

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hackgods/testcenter-scheduler/internal/appointment"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS scheduler_events (
	id          UUID PRIMARY KEY,
	event_type  TEXT NOT NULL,
	slot_id     BIGINT NOT NULL,
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
)`

const insertEvent = `
INSERT INTO scheduler_events (id, event_type, slot_id, payload, created_at)
VALUES ($1, $2, $3, $4, $5)`

// Execer is the slice of pgxpool.Pool the journal needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Journal appends scheduler events to the scheduler_events table. It is
// write-only: nothing in the service reads the table back.
type Journal struct {
	db Execer
}

func NewJournal(db Execer) *Journal {
	return &Journal{db: db}
}

// EnsureSchema creates the journal table if it is missing.
func (j *Journal) EnsureSchema(ctx context.Context) error {
	if _, err := j.db.Exec(ctx, journalSchema); err != nil {
		return fmt.Errorf("create scheduler_events: %w", err)
	}
	return nil
}

func (j *Journal) Name() string {
	return "postgres"
}

func (j *Journal) Deliver(ctx context.Context, ev appointment.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = j.db.Exec(ctx, insertEvent,
		ev.ID,
		ev.Type,
		int64(ev.SlotID),
		payload,
		ev.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", ev.ID, err)
	}
	return nil
}
