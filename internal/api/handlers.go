package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/hackgods/testcenter-scheduler/internal/appointment"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func createSlotHandler(svc Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSlotRequest
		if !decodeRequest(w, r, &req) {
			return
		}

		slot, err := svc.AddSlot(req.Date, req.Time)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toSlotResponse(slot))
	}
}

func listSlotsHandler(svc Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slots, err := svc.ListAvailable(r.URL.Query().Get("date"))
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := make([]SlotResponse, 0, len(slots))
		for _, s := range slots {
			resp = append(resp, toSlotResponse(s))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getSlotHandler(svc Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "id must be a positive integer")
			return
		}

		slot, err := svc.Slot(appointment.SlotID(id))
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

func bookSlotHandler(svc Scheduler, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookSlotRequest
		if !decodeRequest(w, r, &req) {
			return
		}

		booking, err := svc.BookSlot(req.Date, appointment.SlotID(req.SlotID), req.PatientName, req.PatientAge)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, bookingResponse(svc, log, booking))
	}
}

func bookEarliestHandler(svc Scheduler, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookEarliestRequest
		if !decodeRequest(w, r, &req) {
			return
		}

		booking, err := svc.BookEarliest(req.Date, req.PatientName, req.PatientAge)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, bookingResponse(svc, log, booking))
	}
}

func listBookingsHandler(svc Scheduler, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookings := svc.ListBookings()

		resp := make([]BookingResponse, 0, len(bookings))
		for i, b := range bookings {
			item := bookingResponse(svc, log, b)
			pos := i
			item.Position = &pos
			resp = append(resp, item)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func cancelBookingHandler(svc Scheduler, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		position, err := strconv.Atoi(chi.URLParam(r, "position"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_position", "position must be an integer")
			return
		}

		booking, err := svc.CancelBooking(position)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, bookingResponse(svc, log, booking))
	}
}

func statsHandler(svc Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := svc.Stats()
		writeJSON(w, http.StatusOK, StatsResponse{
			Slots:     st.Slots,
			Available: st.Available,
			Booked:    st.Booked,
			Bookings:  st.Bookings,
		})
	}
}

// bookingResponse resolves the slot's date and time. Slots are never
// removed, so the lookup only fails for a booking the scheduler never made;
// the booking is still returned, without date and time.
func bookingResponse(svc Scheduler, log *zap.Logger, b appointment.Booking) BookingResponse {
	slot, err := svc.Slot(b.SlotID)
	if err != nil {
		log.Debug("booking references unknown slot",
			zap.Int64("slot_id", int64(b.SlotID)),
			zap.Error(err),
		)
	}
	return toBookingResponse(b, slot)
}

func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
	case errors.Is(err, appointment.ErrInvalidTime):
		writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
	case errors.Is(err, appointment.ErrEmptyName):
		writeError(w, http.StatusBadRequest, "empty_name", err.Error())
	case errors.Is(err, appointment.ErrInvalidAge):
		writeError(w, http.StatusBadRequest, "invalid_age", err.Error())
	case errors.Is(err, appointment.ErrDuplicateSlot):
		writeError(w, http.StatusConflict, "duplicate_slot", err.Error())
	case errors.Is(err, appointment.ErrSlotNoLongerAvailable):
		writeError(w, http.StatusConflict, "slot_no_longer_available", err.Error())
	case errors.Is(err, appointment.ErrNoSlotsForDate):
		writeError(w, http.StatusNotFound, "no_slots_for_date", err.Error())
	case errors.Is(err, appointment.ErrNoBookingsToCancel):
		writeError(w, http.StatusNotFound, "no_bookings_to_cancel", err.Error())
	case errors.Is(err, appointment.ErrUnknownBooking):
		writeError(w, http.StatusNotFound, "unknown_booking", err.Error())
	case errors.Is(err, appointment.ErrUnknownSlot):
		writeError(w, http.StatusNotFound, "unknown_slot", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
