package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hackgods/testcenter-scheduler/internal/appointment"
)

// StatsSource reports the scheduler's current counters.
type StatsSource interface {
	Stats() appointment.Stats
}

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	namespace string
	registry  *prometheus.Registry

	events       *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		namespace: namespace,
		registry:  reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_events_total",
			Help:      "Scheduler events delivered, by type.",
		}, []string{"type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.events,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RegisterStats exposes the scheduler counters as gauges read at scrape
// time. Call it once.
func (m *Metrics) RegisterStats(source StatsSource) {
	gauge := func(name, help string, read func(appointment.Stats) int) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: m.namespace,
			Name:      name,
			Help:      help,
		}, func() float64 {
			return float64(read(source.Stats()))
		})
	}
	m.registry.MustRegister(
		gauge("scheduler_slots", "Slots ever created.", func(s appointment.Stats) int { return s.Slots }),
		gauge("scheduler_slots_available", "Slots waiting in a date pool.", func(s appointment.Stats) int { return s.Available }),
		gauge("scheduler_bookings", "Active bookings.", func(s appointment.Stats) int { return s.Bookings }),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Name() string {
	return "metrics"
}

// Deliver counts the event. It never fails.
func (m *Metrics) Deliver(_ context.Context, ev appointment.Event) error {
	m.events.WithLabelValues(ev.Type).Inc()
	return nil
}

// Middleware records request count and latency per chi route pattern, so
// /slots/1 and /slots/2 share a series.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
