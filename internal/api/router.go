package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/hackgods/testcenter-scheduler/internal/appointment"
	"github.com/hackgods/testcenter-scheduler/internal/metrics"
)

// Scheduler is what the HTTP layer needs from appointment.Service.
type Scheduler interface {
	AddSlot(date, clock string) (appointment.Slot, error)
	BookSlot(date string, id appointment.SlotID, patientName string, patientAge int) (appointment.Booking, error)
	BookEarliest(date, patientName string, patientAge int) (appointment.Booking, error)
	CancelBooking(position int) (appointment.Booking, error)
	ListAvailable(date string) ([]appointment.Slot, error)
	ListBookings() []appointment.Booking
	Slot(id appointment.SlotID) (appointment.Slot, error)
	Stats() appointment.Stats
}

type RouterConfig struct {
	Service      Scheduler
	Health       *HealthHandler
	Metrics      *metrics.Metrics // optional
	MetricsPath  string
	Logger       *zap.Logger
	CORSOrigins  []string
	RateLimitRPS int
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	if cfg.RateLimitRPS > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitRPS, time.Second))
	}

	// Health endpoints
	health := cfg.Health
	if health == nil {
		health = NewHealthHandler(nil, "", "")
	}
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, cfg.Metrics.Handler())
	}

	r.Route("/slots", func(r chi.Router) {
		r.Post("/", createSlotHandler(cfg.Service))
		r.Get("/", listSlotsHandler(cfg.Service))
		r.Get("/{id}", getSlotHandler(cfg.Service))
	})

	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", bookSlotHandler(cfg.Service, log))
		r.Post("/earliest", bookEarliestHandler(cfg.Service, log))
		r.Get("/", listBookingsHandler(cfg.Service, log))
		r.Delete("/{position}", cancelBookingHandler(cfg.Service, log))
	})

	r.Get("/stats", statsHandler(cfg.Service))

	return r
}
