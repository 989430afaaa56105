package api

import (
	"time"

	"github.com/hackgods/testcenter-scheduler/internal/appointment"
)

type CreateSlotRequest struct {
	Date string `json:"date" validate:"required"`
	Time string `json:"time" validate:"required"`
}

// Name and age are checked by the scheduler so its own errors reach the client.
type BookSlotRequest struct {
	Date        string `json:"date" validate:"required"`
	SlotID      int64  `json:"slot_id" validate:"required,gt=0"`
	PatientName string `json:"patient_name"`
	PatientAge  int    `json:"patient_age"`
}

type BookEarliestRequest struct {
	Date        string `json:"date" validate:"required"`
	PatientName string `json:"patient_name"`
	PatientAge  int    `json:"patient_age"`
}

type SlotResponse struct {
	ID     int64  `json:"id"`
	Date   string `json:"date"`
	Time   string `json:"time"`
	Booked bool   `json:"booked"`
}

type BookingResponse struct {
	Position    *int      `json:"position,omitempty"`
	PatientName string    `json:"patient_name"`
	PatientAge  int       `json:"patient_age"`
	SlotID      int64     `json:"slot_id"`
	Date        string    `json:"date,omitempty"`
	Time        string    `json:"time,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type StatsResponse struct {
	Slots     int `json:"slots"`
	Available int `json:"available"`
	Booked    int `json:"booked"`
	Bookings  int `json:"bookings"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toSlotResponse(s appointment.Slot) SlotResponse {
	return SlotResponse{
		ID:     int64(s.ID),
		Date:   s.Date,
		Time:   s.Time,
		Booked: s.Booked,
	}
}

func toBookingResponse(b appointment.Booking, slot appointment.Slot) BookingResponse {
	return BookingResponse{
		PatientName: b.PatientName,
		PatientAge:  b.PatientAge,
		SlotID:      int64(b.SlotID),
		Date:        slot.Date,
		Time:        slot.Time,
		CreatedAt:   b.CreatedAt,
	}
}
