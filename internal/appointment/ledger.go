package appointment

import (
	"errors"
	"fmt"
)

var ErrUnknownBooking = errors.New("booking not found")

// Ledger lists active bookings in insertion order. Bookings are addressed
// by 0-based position; removing an entry shifts the ones after it.
type Ledger struct {
	entries []Booking
}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Append adds b at the end and returns its position.
func (l *Ledger) Append(b Booking) int {
	l.entries = append(l.entries, b)
	return len(l.entries) - 1
}

func (l *Ledger) RemoveAt(position int) (Booking, error) {
	if position < 0 || position >= len(l.entries) {
		return Booking{}, fmt.Errorf("%w: position %d (have %d)", ErrUnknownBooking, position, len(l.entries))
	}
	b := l.entries[position]
	l.entries = append(l.entries[:position], l.entries[position+1:]...)
	return b, nil
}

func (l *Ledger) List() []Booking {
	out := make([]Booking, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Ledger) Len() int {
	return len(l.entries)
}
