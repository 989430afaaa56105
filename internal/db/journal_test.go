package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/testcenter-scheduler/internal/appointment"
)

type fakeExecer struct {
	err   error
	calls []execCall
}

type execCall struct {
	sql  string
	args []any
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestJournal_Deliver(t *testing.T) {
	pos := 0
	ev := appointment.Event{
		ID:         uuid.New(),
		Type:       appointment.EventSlotBooked,
		SlotID:     7,
		Date:       "2024-01-15",
		Time:       "09:00",
		Position:   &pos,
		OccurredAt: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
	}

	t.Run("inserts one row per event", func(t *testing.T) {
		fake := &fakeExecer{}
		j := NewJournal(fake)

		require.NoError(t, j.Deliver(context.Background(), ev))
		require.Len(t, fake.calls, 1)

		args := fake.calls[0].args
		require.Len(t, args, 5)
		assert.Contains(t, fake.calls[0].sql, "INSERT INTO scheduler_events")
		assert.Equal(t, ev.ID, args[0])
		assert.Equal(t, appointment.EventSlotBooked, args[1])
		assert.Equal(t, int64(7), args[2])
		assert.Equal(t, ev.OccurredAt, args[4])

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(args[3].([]byte), &decoded))
		assert.Equal(t, "SLOT_BOOKED", decoded["type"])
		assert.Equal(t, "2024-01-15", decoded["date"])
		assert.NotContains(t, decoded, "patient_name")
	})

	t.Run("wraps driver errors", func(t *testing.T) {
		boom := errors.New("connection refused")
		j := NewJournal(&fakeExecer{err: boom})

		err := j.Deliver(context.Background(), ev)
		assert.ErrorIs(t, err, boom)
	})
}

func TestJournal_EnsureSchema(t *testing.T) {
	fake := &fakeExecer{}
	j := NewJournal(fake)

	require.NoError(t, j.EnsureSchema(context.Background()))
	require.Len(t, fake.calls, 1)
	assert.Contains(t, fake.calls[0].sql, "CREATE TABLE IF NOT EXISTS scheduler_events")
	assert.Equal(t, "postgres", j.Name())
}
