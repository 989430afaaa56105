package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/hackgods/testcenter-scheduler/internal/api"
	"github.com/hackgods/testcenter-scheduler/internal/appointment"
	"github.com/hackgods/testcenter-scheduler/internal/config"
	"github.com/hackgods/testcenter-scheduler/internal/db"
	"github.com/hackgods/testcenter-scheduler/internal/logger"
	"github.com/hackgods/testcenter-scheduler/internal/messaging"
	"github.com/hackgods/testcenter-scheduler/internal/metrics"
	redisclient "github.com/hackgods/testcenter-scheduler/internal/redis"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err = run(rootCtx, cfg, zl)
	stop()
	if err != nil {
		zl.Fatal("api-server failed", zap.Error(err))
	}
	_ = zl.Sync()
}

// run owns every connection it opens; each is closed by a defer before run
// returns, whether it returns an error or not.
func run(ctx context.Context, cfg config.Config, zl *zap.Logger) error {
	zl.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("version", version),
	)

	checks := map[string]api.Check{
		"postgres": nil,
		"redis":    nil,
		"amqp":     nil,
	}
	var sinks []appointment.Sink

	if cfg.PostgresDSN != "" {
		pgCtx, cancelPg := context.WithTimeout(ctx, 10*time.Second)
		defer cancelPg()

		pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("postgres connection: %w", err)
		}
		defer pgPool.Close()

		journal := db.NewJournal(pgPool)
		if err := journal.EnsureSchema(pgCtx); err != nil {
			return fmt.Errorf("postgres schema: %w", err)
		}
		sinks = append(sinks, journal)
		checks["postgres"] = pgPool.Ping
		zl.Info("event journal enabled", zap.String("sink", "postgres"))
	}

	if cfg.RedisAddr != "" {
		rdb, err := redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			return fmt.Errorf("redis connection: %w", err)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				zl.Warn("error closing redis", zap.Error(err))
			}
		}()
		sinks = append(sinks, redisclient.NewStreamSink(rdb, cfg.RedisStream, cfg.RedisStreamMaxLen))
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		zl.Info("event stream enabled", zap.String("sink", "redis"), zap.String("stream", cfg.RedisStream))
	}

	if cfg.AMQPURL != "" {
		conn, ch, err := messaging.Dial(cfg.AMQPURL)
		if err != nil {
			return fmt.Errorf("rabbitmq connection: %w", err)
		}
		defer closeAMQP(zl, conn, ch)

		publisher, err := messaging.NewPublisher(ch, cfg.AMQPExchange)
		if err != nil {
			return fmt.Errorf("rabbitmq setup: %w", err)
		}
		sinks = append(sinks, publisher)
		checks["amqp"] = func(context.Context) error {
			if conn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}
		zl.Info("event exchange enabled", zap.String("sink", "amqp"), zap.String("exchange", cfg.AMQPExchange))
	}

	collector := metrics.New("testcenter")
	sinks = append(sinks, collector)

	dispatcher := appointment.NewDispatcher(cfg.EventBuffer, 5*time.Second, zl.Named("events"), sinks...)
	svc := appointment.NewService(dispatcher, appointment.SystemClock{}, zl.Named("scheduler"))
	collector.RegisterStats(svc)

	// Registered after the sink defers, so it runs first and the dispatcher
	// drains while the sinks are still open.
	var wg sync.WaitGroup
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(dispatchCtx)
	}()
	defer func() {
		stopDispatch()
		wg.Wait()
		zl.Info("event dispatcher stopped", zap.Int64("dropped_events", dispatcher.Dropped()))
	}()

	if cfg.SeedDays > 0 {
		ids, err := svc.Seed(cfg.SeedStart, cfg.SeedDays, cfg.SeedTimes)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		zl.Info("seeded slots",
			zap.Int("count", len(ids)),
			zap.String("start", cfg.SeedStart.Format(appointment.DateFormat)),
			zap.Int("days", cfg.SeedDays),
		)
	}

	router := api.NewRouter(api.RouterConfig{
		Service:      svc,
		Health:       api.NewHealthHandler(checks, cfg.Env, version),
		Metrics:      collector,
		MetricsPath:  cfg.MetricsPath,
		Logger:       zl.Named("http"),
		CORSOrigins:  cfg.CORSOrigins,
		RateLimitRPS: cfg.RateLimitRPS,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		zl.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		zl.Info("shutting down api-server")
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("http shutdown error", zap.Error(err))
	}

	return runErr
}

func closeAMQP(zl *zap.Logger, conn *amqp091.Connection, ch *amqp091.Channel) {
	if err := ch.Close(); err != nil {
		zl.Warn("error closing rabbitmq channel", zap.Error(err))
	}
	if err := conn.Close(); err != nil {
		zl.Warn("error closing rabbitmq connection", zap.Error(err))
	}
}
