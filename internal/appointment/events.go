package appointment

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EventSlotAdded        = "SLOT_ADDED"
	EventSlotBooked       = "SLOT_BOOKED"
	EventBookingCancelled = "BOOKING_CANCELLED"
)

// Event describes one successful scheduler mutation. Patient details are
// deliberately left off.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	SlotID     SlotID    `json:"slot_id"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Position   *int      `json:"position,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newEvent(eventType string, slot Slot, position *int, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		SlotID:     slot.ID,
		Date:       slot.Date,
		Time:       slot.Time,
		Position:   position,
		OccurredAt: at.UTC(),
	}
}

// Publisher accepts events from the service. Publish must not block.
type Publisher interface {
	Publish(ev Event)
}

// Sink delivers events to one external destination.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev Event) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// Dispatcher buffers events and fans them out to sinks from a single
// goroutine, so scheduler calls never wait on sink I/O.
type Dispatcher struct {
	events  chan Event
	sinks   []Sink
	timeout time.Duration
	log     *zap.Logger
	dropped atomic.Int64
}

func NewDispatcher(buffer int, timeout time.Duration, log *zap.Logger, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		events:  make(chan Event, buffer),
		sinks:   sinks,
		timeout: timeout,
		log:     log,
	}
}

// Publish enqueues ev, dropping it when the buffer is full.
func (d *Dispatcher) Publish(ev Event) {
	select {
	case d.events <- ev:
	default:
		d.dropped.Add(1)
		d.log.Warn("event buffer full, dropping event",
			zap.String("event_type", ev.Type),
			zap.Int64("slot_id", int64(ev.SlotID)),
		)
	}
}

// Dropped is the number of events discarded because the buffer was full.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Run delivers events until ctx is done, then drains whatever is still
// buffered before returning.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case ev := <-d.events:
			// Both cases can be ready after cancel; select picks at random.
			if ctx.Err() != nil {
				d.deliver(context.Background(), ev)
				d.drain()
				return
			}
			d.deliver(ctx, ev)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.events:
			d.deliver(context.Background(), ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	for _, sink := range d.sinks {
		deliverCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := sink.Deliver(deliverCtx, ev)
		cancel()
		if err != nil {
			d.log.Error("event delivery failed",
				zap.String("sink", sink.Name()),
				zap.String("event_type", ev.Type),
				zap.String("event_id", ev.ID.String()),
				zap.Error(err),
			)
		}
	}
}
