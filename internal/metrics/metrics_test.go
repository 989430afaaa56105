package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/testcenter-scheduler/internal/appointment"
)

type staticStats appointment.Stats

func (s staticStats) Stats() appointment.Stats { return appointment.Stats(s) }

func TestMetrics_DeliverCountsByType(t *testing.T) {
	m := New("test")

	require.NoError(t, m.Deliver(context.Background(), appointment.Event{Type: appointment.EventSlotAdded}))
	require.NoError(t, m.Deliver(context.Background(), appointment.Event{Type: appointment.EventSlotAdded}))
	require.NoError(t, m.Deliver(context.Background(), appointment.Event{Type: appointment.EventSlotBooked}))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues(appointment.EventSlotAdded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues(appointment.EventSlotBooked)))
	assert.Equal(t, "metrics", m.Name())
}

func TestMetrics_GaugesReadStats(t *testing.T) {
	m := New("test")
	m.RegisterStats(staticStats{Slots: 30, Available: 27, Booked: 3, Bookings: 3})

	expected := `
# HELP test_scheduler_bookings Active bookings.
# TYPE test_scheduler_bookings gauge
test_scheduler_bookings 3
# HELP test_scheduler_slots Slots ever created.
# TYPE test_scheduler_slots gauge
test_scheduler_slots 30
# HELP test_scheduler_slots_available Slots waiting in a date pool.
# TYPE test_scheduler_slots_available gauge
test_scheduler_slots_available 27
`
	err := testutil.GatherAndCompare(m.registry, strings.NewReader(expected),
		"test_scheduler_slots", "test_scheduler_slots_available", "test_scheduler_bookings")
	assert.NoError(t, err)
}

func TestMetrics_MiddlewareUsesRoutePattern(t *testing.T) {
	m := New("test")

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/slots/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, path := range []string{"/slots/1", "/slots/2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/slots/{id}", "404")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New("test")
	require.NoError(t, m.Deliver(context.Background(), appointment.Event{Type: appointment.EventBookingCancelled}))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_scheduler_events_total{type="BOOKING_CANCELLED"} 1`)
}
