package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dejobratic/libris/internal/accounts"
	"github.com/dejobratic/libris/internal/catalog"
	"github.com/dejobratic/libris/internal/config"
	"github.com/dejobratic/libris/internal/idempotency"
	"github.com/dejobratic/libris/internal/kafka"
	"github.com/dejobratic/libris/internal/orders/adapters"
	"github.com/dejobratic/libris/internal/orders/adapters/collection"
	httpadapter "github.com/dejobratic/libris/internal/orders/adapters/http"
	ordersapp "github.com/dejobratic/libris/internal/orders/app"
	ordersmetrics "github.com/dejobratic/libris/internal/orders/metrics"
	"github.com/dejobratic/libris/internal/orders/ports"
	"github.com/dejobratic/libris/internal/seed"
	"github.com/dejobratic/libris/internal/storage"
	"github.com/dejobratic/libris/internal/telemetry"
	"go.opentelemetry.io/otel/metric"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(os.Stdout, telemetry.ParseLevel(cfg.Telemetry.LogLevel),
		slog.String("service", cfg.Service.Name),
		slog.String("version", cfg.Service.Version),
		slog.String("environment", cfg.Service.Environment),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, stop, cfg, logger); err != nil {
		logger.Error("api exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stop context.CancelFunc, cfg *config.Config, logger *slog.Logger) error {
	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		Insecure:       cfg.Telemetry.OTelInsecure,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		SampleRate:     cfg.Telemetry.SampleRate,
		MetricInterval: cfg.Telemetry.MetricInterval,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	meter := tel.Meter(cfg.Service.Name)

	dbMetrics, err := storage.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create storage metrics: %w", err)
	}
	backend, err := storage.Open(ctx, cfg.Storage, cfg.Database, dbMetrics, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("closing storage failed", "error", err)
		}
	}()

	books := catalog.New(backend.Store, logger)
	directory := accounts.NewDirectory(backend.Store, logger)

	if cfg.Seed.File != "" {
		if err := applySeed(ctx, cfg.Seed.File, books, directory, logger); err != nil {
			return err
		}
	}

	events, closeEvents, err := newEventBus(cfg.Kafka, meter)
	if err != nil {
		return err
	}
	defer closeEvents()

	orderMetrics, err := ordersmetrics.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create order metrics: %w", err)
	}

	service := ordersapp.NewService(
		collection.NewRepository(backend.Store),
		books,
		directory,
		events,
		idempotency.NewStore(backend.Store),
		logger,
		orderMetrics,
		ordersapp.WithReservationTTL(cfg.Engine.ReservationTTL),
		ordersapp.WithRentalDays(cfg.Engine.RentalDays),
	)

	sweeper := ordersapp.NewSweeper(service, cfg.Engine.SweepInterval, logger)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweeper.Run(ctx)
	}()

	httpMetrics, err := httpadapter.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create http metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := backend.Ready(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	httpadapter.NewHandler(service, books, directory, logger).Register(mux)

	handler := httpadapter.WithRecovery(
		httpadapter.WithLogging(
			httpadapter.WithMetrics(mux, httpMetrics),
			logger,
		),
		logger,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "port", cfg.HTTP.Port, "storage", backend.Name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownGrace)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	} else {
		logger.Info("http server stopped")
	}
	<-sweepDone
	return nil
}

func applySeed(ctx context.Context, path string, books *catalog.Catalog, directory *accounts.Directory, logger *slog.Logger) error {
	f, err := seed.LoadFile(path)
	if err != nil {
		return err
	}
	res, err := seed.Apply(ctx, f, books, directory)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "seed applied", "file", path, "admin_created", res.AdminCreated, "books_added", res.BooksAdded)
	return nil
}

// newEventBus publishes to Kafka when brokers are configured and only logs
// otherwise.
func newEventBus(cfg config.KafkaConfig, meter metric.Meter) (ports.EventBus, func(), error) {
	kafkaMetrics, err := kafka.NewMetrics(meter)
	if err != nil {
		return nil, nil, fmt.Errorf("create kafka metrics: %w", err)
	}

	if len(cfg.Brokers) == 0 {
		return adapters.NewObservableEventBus(kafka.NewNoopEventBus(), kafkaMetrics), func() {}, nil
	}

	bus := kafka.NewEventBus(cfg.Brokers, cfg.TopicPrefix)
	closeFn := func() {
		if err := bus.Close(); err != nil {
			slog.Error("closing kafka writer failed", "error", err)
		}
	}
	return adapters.NewObservableEventBus(bus, kafkaMetrics), closeFn, nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
