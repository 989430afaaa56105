package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type captureSink struct {
	name string
	err  error

	mu     sync.Mutex
	events []Event
}

func (s *captureSink) Name() string { return s.name }

func (s *captureSink) Deliver(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestNewEvent(t *testing.T) {
	slot := Slot{ID: 4, Date: "2024-01-15", Time: "09:00"}
	pos := 2
	local := time.Date(2024, 1, 10, 12, 0, 0, 0, time.FixedZone("X", 3600))

	ev := newEvent(EventSlotBooked, slot, &pos, local)

	assert.NotEqual(t, uuid.Nil, ev.ID)
	assert.Equal(t, EventSlotBooked, ev.Type)
	assert.Equal(t, SlotID(4), ev.SlotID)
	assert.Equal(t, "2024-01-15", ev.Date)
	assert.Equal(t, "09:00", ev.Time)
	require.NotNil(t, ev.Position)
	assert.Equal(t, 2, *ev.Position)
	assert.Equal(t, time.UTC, ev.OccurredAt.Location())
}

func TestDispatcher_FansOutToEverySink(t *testing.T) {
	good := &captureSink{name: "good"}
	bad := &captureSink{name: "bad", err: errors.New("unreachable")}
	core, logs := observer.New(zap.ErrorLevel)

	d := NewDispatcher(8, time.Second, zap.New(core), bad, good)
	d.Publish(Event{Type: EventSlotAdded, SlotID: 1})
	d.Publish(Event{Type: EventSlotAdded, SlotID: 2})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return good.count() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 2, bad.count())
	assert.Equal(t, 2, logs.FilterMessage("event delivery failed").Len())
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewDispatcher(1, time.Second, zap.New(core))

	d.Publish(Event{Type: EventSlotAdded, SlotID: 1})
	d.Publish(Event{Type: EventSlotAdded, SlotID: 2})

	assert.Equal(t, int64(1), d.Dropped())
	assert.Equal(t, 1, logs.FilterMessage("event buffer full, dropping event").Len())
}

// ctxSink fails like a network client would when handed a dead context.
type ctxSink struct {
	mu        sync.Mutex
	delivered int
	failed    int
}

func (s *ctxSink) Name() string { return "ctx" }

func (s *ctxSink) Deliver(ctx context.Context, _ Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		s.failed++
		return err
	}
	s.delivered++
	return nil
}

func TestDispatcher_DrainsOnShutdown(t *testing.T) {
	const buffered = 50

	for run := 0; run < 20; run++ {
		sink := &ctxSink{}
		d := NewDispatcher(64, time.Second, nil, sink)
		for i := 1; i <= buffered; i++ {
			d.Publish(Event{Type: EventSlotAdded, SlotID: SlotID(i)})
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		d.Run(ctx)

		require.Equal(t, buffered, sink.delivered, "run %d", run)
		require.Zero(t, sink.failed, "run %d", run)
	}
}
