package appointment

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDuplicateSlot = errors.New("slot already exists for this date and time")
	ErrUnknownSlot   = errors.New("slot not found")
)

// Registry owns every slot ever created. The date queue and the ledger
// hold only ids and resolve them here.
type Registry struct {
	slots   map[SlotID]*Slot
	byStart map[int64]SlotID
	lastID  SlotID
	booked  int
}

func NewRegistry() *Registry {
	return &Registry{
		slots:   make(map[SlotID]*Slot),
		byStart: make(map[int64]SlotID),
	}
}

// Create stores a new unbooked slot starting at start (UTC) and assigns it
// the next id.
func (r *Registry) Create(start time.Time) (Slot, error) {
	start = start.UTC()
	key := start.Unix()
	if existing, ok := r.byStart[key]; ok {
		return Slot{}, fmt.Errorf("%w: %s (slot %d)", ErrDuplicateSlot, start.Format(DateFormat+" "+TimeFormat), existing)
	}

	r.lastID++
	s := &Slot{
		ID:    r.lastID,
		Date:  start.Format(DateFormat),
		Time:  start.Format(TimeFormat),
		Start: start,
	}
	r.slots[s.ID] = s
	r.byStart[key] = s.ID

	return *s, nil
}

func (r *Registry) Get(id SlotID) (Slot, error) {
	s, ok := r.slots[id]
	if !ok {
		return Slot{}, fmt.Errorf("%w: id %d", ErrUnknownSlot, id)
	}
	return *s, nil
}

// SetBooked flips the booked flag. Keeping the date queue consistent is the
// caller's job.
func (r *Registry) SetBooked(id SlotID, booked bool) error {
	s, ok := r.slots[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrUnknownSlot, id)
	}
	if s.Booked == booked {
		return nil
	}
	s.Booked = booked
	if booked {
		r.booked++
	} else {
		r.booked--
	}
	return nil
}

func (r *Registry) Len() int {
	return len(r.slots)
}

func (r *Registry) BookedCount() int {
	return r.booked
}
