package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/hackgods/testcenter-scheduler/internal/config"
	"github.com/hackgods/testcenter-scheduler/internal/logger"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	CancelRatio  float64
	ReadRatio    float64
	Dates        []string
}

type Metrics struct {
	Book         OperationMetrics
	BookEarliest OperationMetrics
	Cancel       OperationMetrics
	ListSlots    OperationMetrics
	ListBookings OperationMetrics
}

type Simulator struct {
	config  SimConfig
	client  *http.Client
	log     *zap.Logger
	metrics Metrics
}

type slotView struct {
	ID   int64  `json:"id"`
	Date string `json:"date"`
}

type bookingView struct {
	Position *int `json:"position"`
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}
	zl, err := logger.New(baseCfg.LogLevel, baseCfg.Env)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	cfg := loadConfig(baseCfg)
	if err := validateConfig(cfg); err != nil {
		zl.Fatal("invalid config", zap.Error(err))
	}

	zl.Info("simulator starting",
		zap.Duration("duration", cfg.Duration),
		zap.Int("workers", cfg.Workers),
		zap.Float64("booking", cfg.BookingRatio),
		zap.Float64("cancel", cfg.CancelRatio),
		zap.Float64("read", cfg.ReadRatio),
		zap.Strings("dates", cfg.Dates),
	)

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    zl,
	}

	sim.Run()
	sim.PrintReport()
}

// loadConfig targets the dates the api-server seeds unless SIM_DATES names
// others.
func loadConfig(base config.Config) SimConfig {
	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:"+base.HTTPPort),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.5),
		CancelRatio:  getFloat("SIM_CANCEL_RATIO", 0.2),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.3),
	}

	if raw := os.Getenv("SIM_DATES"); raw != "" {
		for _, d := range strings.Split(raw, ",") {
			if d = strings.TrimSpace(d); d != "" {
				cfg.Dates = append(cfg.Dates, d)
			}
		}
	} else {
		cfg.Dates = seededDates(base.SeedStart, base.SeedDays)
	}

	cfg.BookingRatio, cfg.CancelRatio, cfg.ReadRatio = normalize(cfg.BookingRatio, cfg.CancelRatio, cfg.ReadRatio)
	return cfg
}

func seededDates(start time.Time, days int) []string {
	dates := make([]string, 0, days)
	for d := 0; d < days; d++ {
		dates = append(dates, start.AddDate(0, 0, d).Format("2006-01-02"))
	}
	return dates
}

func normalize(booking, cancel, read float64) (float64, float64, float64) {
	total := booking + cancel + read
	if total <= 0 {
		return booking, cancel, read
	}
	return booking / total, cancel / total, read / total
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if len(cfg.Dates) == 0 {
		return fmt.Errorf("no dates to book: set SIM_DATES or SEED_DAYS")
	}
	return nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.log.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	seed := time.Now().UnixNano() + int64(workerID)
	rng := rand.New(rand.NewSource(seed))
	faker := gofakeit.New(uint64(seed))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		date := s.config.Dates[rng.Intn(len(s.config.Dates))]
		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			if rng.Intn(2) == 0 {
				s.doBook(ctx, rng, faker, date)
			} else {
				s.doBookEarliest(ctx, faker, date)
			}
		case r < s.config.BookingRatio+s.config.CancelRatio:
			s.doCancel(ctx, rng)
		default:
			if rng.Intn(2) == 0 {
				s.doListSlots(ctx, date)
			} else {
				s.doListBookings(ctx)
			}
		}
	}
}

// doBook picks a slot from the listing and books it. Another worker may take
// it first, which the server reports as a conflict.
func (s *Simulator) doBook(ctx context.Context, rng *rand.Rand, faker *gofakeit.Faker, date string) {
	var slots []slotView
	if _, err := s.call(ctx, http.MethodGet, "/slots?date="+date, nil, &slots); err != nil || len(slots) == 0 {
		return
	}
	slot := slots[rng.Intn(len(slots))]

	body := map[string]any{
		"date":         date,
		"slot_id":      slot.ID,
		"patient_name": faker.Name(),
		"patient_age":  faker.Number(1, 120),
	}

	start := time.Now()
	status, err := s.call(ctx, http.MethodPost, "/bookings", body, nil)
	s.metrics.Book.Record(time.Since(start), err == nil && status == http.StatusCreated, status == http.StatusConflict)
}

func (s *Simulator) doBookEarliest(ctx context.Context, faker *gofakeit.Faker, date string) {
	body := map[string]any{
		"date":         date,
		"patient_name": faker.Name(),
		"patient_age":  faker.Number(1, 120),
	}

	start := time.Now()
	status, err := s.call(ctx, http.MethodPost, "/bookings/earliest", body, nil)
	// A fully booked date is expected under load, count it with conflicts.
	s.metrics.BookEarliest.Record(time.Since(start), err == nil && status == http.StatusCreated, status == http.StatusNotFound)
}

// doCancel cancels a random position. Positions shift as other workers
// cancel, so a 404 is a lost race rather than a failure.
func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	var bookings []bookingView
	if _, err := s.call(ctx, http.MethodGet, "/bookings", nil, &bookings); err != nil || len(bookings) == 0 {
		return
	}
	position := rng.Intn(len(bookings))

	start := time.Now()
	status, err := s.call(ctx, http.MethodDelete, "/bookings/"+strconv.Itoa(position), nil, nil)
	s.metrics.Cancel.Record(time.Since(start), err == nil && status == http.StatusOK, status == http.StatusNotFound)
}

func (s *Simulator) doListSlots(ctx context.Context, date string) {
	start := time.Now()
	status, err := s.call(ctx, http.MethodGet, "/slots?date="+date, nil, nil)
	s.metrics.ListSlots.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

func (s *Simulator) doListBookings(ctx context.Context) {
	start := time.Now()
	status, err := s.call(ctx, http.MethodGet, "/bookings", nil, nil)
	s.metrics.ListBookings.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

// call sends one request and decodes a 2xx body into out when out is set.
func (s *Simulator) call(ctx context.Context, method, path string, in, out any) (int, error) {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, &body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		}
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < http.StatusMultipleChoices {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Dates: %s\n", strings.Join(s.config.Dates, ", "))
	fmt.Println()

	printOperationReport("Book slot", &s.metrics.Book)
	printOperationReport("Book earliest", &s.metrics.BookEarliest)
	printOperationReport("Cancel booking", &s.metrics.Cancel)
	printOperationReport("List slots", &s.metrics.ListSlots)
	printOperationReport("List bookings", &s.metrics.ListBookings)
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
