package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/testcenter-scheduler/internal/appointment"
)

type fakeAdder struct {
	err  error
	args []*redis.XAddArgs
}

func (f *fakeAdder) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.args = append(f.args, a)
	cmd := redis.NewStringCmd(ctx, "xadd", a.Stream)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	cmd.SetVal("1700000000000-0")
	return cmd
}

func testEvent() appointment.Event {
	return appointment.Event{
		ID:         uuid.New(),
		Type:       appointment.EventSlotAdded,
		SlotID:     12,
		Date:       "2024-01-15",
		Time:       "10:30",
		OccurredAt: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestStreamSink_Deliver(t *testing.T) {
	t.Run("adds a trimmed entry", func(t *testing.T) {
		fake := &fakeAdder{}
		sink := NewStreamSink(fake, "scheduler:events", 1000)
		ev := testEvent()

		require.NoError(t, sink.Deliver(context.Background(), ev))
		require.Len(t, fake.args, 1)

		got := fake.args[0]
		assert.Equal(t, "scheduler:events", got.Stream)
		assert.Equal(t, int64(1000), got.MaxLen)
		assert.True(t, got.Approx)

		values, ok := got.Values.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, ev.ID.String(), values["id"])
		assert.Equal(t, "SLOT_ADDED", values["type"])
		assert.Equal(t, "12", values["slot_id"])
		assert.Contains(t, values["payload"], `"time":"10:30"`)
	})

	t.Run("no trimming when max length is zero", func(t *testing.T) {
		fake := &fakeAdder{}
		sink := NewStreamSink(fake, "events", 0)

		require.NoError(t, sink.Deliver(context.Background(), testEvent()))
		assert.Zero(t, fake.args[0].MaxLen)
		assert.False(t, fake.args[0].Approx)
	})

	t.Run("wraps redis errors", func(t *testing.T) {
		boom := errors.New("READONLY")
		sink := NewStreamSink(&fakeAdder{err: boom}, "events", 10)

		err := sink.Deliver(context.Background(), testEvent())
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, "redis", sink.Name())
	})
}
