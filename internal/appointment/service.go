package appointment

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrInvalidDate           = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidTime           = errors.New("time must be in HH:MM format")
	ErrEmptyName             = errors.New("patient name is required")
	ErrInvalidAge            = errors.New("patient age must be between 1 and 120")
	ErrNoSlotsForDate        = errors.New("no slots available for this date")
	ErrSlotNoLongerAvailable = errors.New("slot is no longer available")
	ErrNoBookingsToCancel    = errors.New("no bookings to cancel")
)

// Service is the entry point to the scheduler. It owns the registry, the date queue and
// the ledger and changes them together, so none of them is ever observed
// out of step with the others.
//
// Every exported method holds mu for its whole duration; that single
// boundary is what serialises concurrent callers.
type Service struct {
	mu       sync.Mutex
	registry *Registry
	queue    *DateQueue
	ledger   *Ledger

	events Publisher
	clock  Clock
	log    *zap.Logger
}

func NewService(events Publisher, clock Clock, log *zap.Logger) *Service {
	if events == nil {
		events = noopPublisher{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		registry: NewRegistry(),
		queue:    NewDateQueue(),
		ledger:   NewLedger(),
		events:   events,
		clock:    clock,
		log:      log,
	}
}

// AddSlot creates an available slot at date (YYYY-MM-DD) and clock (HH:MM).
func (s *Service) AddSlot(date, clock string) (Slot, error) {
	_, day, err := parseDate(date)
	if err != nil {
		return Slot{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	hour, minute, err := parseClock(clock)
	if err != nil {
		return Slot{}, fmt.Errorf("%w: %q", ErrInvalidTime, clock)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slot, err := s.registry.Create(slotStart(day, hour, minute))
	if err != nil {
		s.log.Warn("add slot rejected", zap.String("date", date), zap.String("time", clock), zap.Error(err))
		return Slot{}, err
	}
	s.queue.Insert(slot.Date, slot.ID, slot.Start)

	s.log.Info("slot added",
		zap.Int64("slot_id", int64(slot.ID)),
		zap.String("date", slot.Date),
		zap.String("time", slot.Time),
	)
	s.events.Publish(newEvent(EventSlotAdded, slot, nil, s.clock.Now()))

	return slot, nil
}

// BookSlot books the slot id on date for a patient. The slot must still be
// in that date's pool.
func (s *Service) BookSlot(date string, id SlotID, patientName string, patientAge int) (Booking, error) {
	name, day, err := validateBooking(date, patientName, patientAge)
	if err != nil {
		return Booking{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.Len(day) == 0 {
		s.log.Warn("book slot rejected: empty pool", zap.String("date", day), zap.Int64("slot_id", int64(id)))
		return Booking{}, fmt.Errorf("%w: %s", ErrNoSlotsForDate, day)
	}

	slot, err := s.registry.Get(id)
	if err != nil {
		s.log.Warn("book slot rejected: unknown slot", zap.String("date", day), zap.Int64("slot_id", int64(id)))
		return Booking{}, fmt.Errorf("%w: slot %d", ErrSlotNoLongerAvailable, id)
	}
	if !s.queue.ExtractByID(day, id) {
		s.log.Warn("book slot rejected: not in pool", zap.String("date", day), zap.Int64("slot_id", int64(id)))
		return Booking{}, fmt.Errorf("%w: slot %d on %s", ErrSlotNoLongerAvailable, id, day)
	}

	return s.commitBooking(slot, name, patientAge)
}

// BookEarliest books the earliest available slot on date.
func (s *Service) BookEarliest(date, patientName string, patientAge int) (Booking, error) {
	name, day, err := validateBooking(date, patientName, patientAge)
	if err != nil {
		return Booking{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.queue.Earliest(day)
	if !ok {
		s.log.Warn("book earliest rejected: empty pool", zap.String("date", day))
		return Booking{}, fmt.Errorf("%w: %s", ErrNoSlotsForDate, day)
	}
	slot, err := s.registry.Get(id)
	if err != nil {
		return Booking{}, err
	}
	s.queue.ExtractByID(day, id)

	return s.commitBooking(slot, name, patientAge)
}

// commitBooking finishes a booking whose slot has already left its pool.
// Must be called with mu held.
func (s *Service) commitBooking(slot Slot, name string, age int) (Booking, error) {
	if err := s.registry.SetBooked(slot.ID, true); err != nil {
		s.queue.Insert(slot.Date, slot.ID, slot.Start)
		return Booking{}, err
	}

	now := s.clock.Now()
	booking := Booking{
		PatientName: name,
		PatientAge:  age,
		SlotID:      slot.ID,
		CreatedAt:   now,
	}
	position := s.ledger.Append(booking)
	slot.Booked = true

	s.log.Info("slot booked",
		zap.Int64("slot_id", int64(slot.ID)),
		zap.String("date", slot.Date),
		zap.String("time", slot.Time),
		zap.Int("position", position),
	)
	s.events.Publish(newEvent(EventSlotBooked, slot, &position, now))

	return booking, nil
}

// CancelBooking removes the booking at position and returns its slot to the
// date pool at its sorted position.
func (s *Service) CancelBooking(position int) (Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ledger.Len() == 0 {
		return Booking{}, ErrNoBookingsToCancel
	}

	booking, err := s.ledger.RemoveAt(position)
	if err != nil {
		s.log.Warn("cancel booking rejected", zap.Int("position", position), zap.Error(err))
		return Booking{}, err
	}

	slot, err := s.registry.Get(booking.SlotID)
	if err != nil {
		return Booking{}, err
	}
	if err := s.registry.SetBooked(slot.ID, false); err != nil {
		return Booking{}, err
	}
	s.queue.Insert(slot.Date, slot.ID, slot.Start)
	slot.Booked = false

	s.log.Info("booking cancelled",
		zap.Int64("slot_id", int64(slot.ID)),
		zap.String("date", slot.Date),
		zap.String("time", slot.Time),
		zap.Int("position", position),
	)
	s.events.Publish(newEvent(EventBookingCancelled, slot, &position, s.clock.Now()))

	return booking, nil
}

// ListAvailable returns the unbooked slots on date, earliest first. A date
// with no slots, or only booked ones, yields an empty list.
func (s *Service) ListAvailable(date string) ([]Slot, error) {
	day, _, err := parseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.queue.PeekOrdered(day)
	slots := make([]Slot, 0, len(ids))
	for _, id := range ids {
		slot, err := s.registry.Get(id)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// ListBookings returns active bookings in the order they were made.
func (s *Service) ListBookings() []Booking {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ledger.List()
}

func (s *Service) Slot(id SlotID) (Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.registry.Get(id)
}

func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Slots:     s.registry.Len(),
		Available: s.queue.Total(),
		Booked:    s.registry.BookedCount(),
		Bookings:  s.ledger.Len(),
	}
}

// Seed stocks days consecutive dates starting at start with one slot per
// entry in times. Ids are assigned in creation order.
func (s *Service) Seed(start time.Time, days int, times []string) ([]SlotID, error) {
	ids := make([]SlotID, 0, days*len(times))
	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d).Format(DateFormat)
		for _, t := range times {
			slot, err := s.AddSlot(date, t)
			if err != nil {
				return ids, fmt.Errorf("seed %s %s: %w", date, t, err)
			}
			ids = append(ids, slot.ID)
		}
	}
	return ids, nil
}

func validateBooking(date, patientName string, patientAge int) (name, day string, err error) {
	name = strings.TrimSpace(patientName)
	if name == "" {
		return "", "", ErrEmptyName
	}
	if patientAge < MinPatientAge || patientAge > MaxPatientAge {
		return "", "", fmt.Errorf("%w: got %d", ErrInvalidAge, patientAge)
	}
	day, _, err = parseDate(date)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return name, day, nil
}
