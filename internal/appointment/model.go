package appointment

import (
	"strings"
	"time"
)

const (
	DateFormat = "2006-01-02" // YYYY-MM-DD
	TimeFormat = "15:04"      // HH:MM
)

const (
	MinPatientAge = 1
	MaxPatientAge = 120
)

// SlotID identifies a slot for the lifetime of the process. Ids start at 1.
type SlotID int64

// Slot is one bookable appointment. Only Booked ever changes after creation.
type Slot struct {
	ID     SlotID
	Date   string    // canonical YYYY-MM-DD
	Time   string    // canonical HH:MM
	Start  time.Time // Date and Time combined in UTC, the ordering key
	Booked bool
}

// Booking is a patient's occupancy of a slot.
type Booking struct {
	PatientName string
	PatientAge  int
	SlotID      SlotID
	CreatedAt   time.Time
}

// Stats is a snapshot of the scheduler's counters.
// Slots == Available + Booked and Booked == Bookings at all times.
type Stats struct {
	Slots     int
	Available int
	Booked    int
	Bookings  int
}

// Clock supplies the booking creation time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// parseDate normalises a YYYY-MM-DD string into its canonical form.
func parseDate(raw string) (string, time.Time, error) {
	d, err := time.Parse(DateFormat, strings.TrimSpace(raw))
	if err != nil {
		return "", time.Time{}, err
	}
	return d.Format(DateFormat), d, nil
}

// parseClock parses an HH:MM time-of-day.
func parseClock(raw string) (hour, minute int, err error) {
	t, err := time.Parse(TimeFormat, strings.TrimSpace(raw))
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

func slotStart(day time.Time, hour, minute int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, time.UTC)
}
