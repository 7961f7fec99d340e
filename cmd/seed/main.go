package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dejobratic/libris/internal/accounts"
	"github.com/dejobratic/libris/internal/catalog"
	"github.com/dejobratic/libris/internal/config"
	"github.com/dejobratic/libris/internal/seed"
	"github.com/dejobratic/libris/internal/storage"
	"github.com/dejobratic/libris/internal/telemetry"
	"go.opentelemetry.io/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	path := flag.String("file", cfg.Seed.File, "YAML or JSON seed file")
	flag.Parse()

	logger := telemetry.NewLogger(os.Stdout, telemetry.ParseLevel(cfg.Telemetry.LogLevel),
		slog.String("service", "libris-seed"),
	)

	if *path == "" {
		logger.Error("no seed file given, set -file or SEED_FILE")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := seed.LoadFile(*path)
	if err != nil {
		logger.Error("failed to load seed file", "error", err)
		os.Exit(1)
	}

	metrics, err := storage.NewMetrics(otel.GetMeterProvider().Meter("libris-seed"))
	if err != nil {
		logger.Error("failed to create metrics", "error", err)
		os.Exit(1)
	}

	backend, err := storage.Open(ctx, cfg.Storage, cfg.Database, metrics, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	res, err := seed.Apply(ctx, f,
		catalog.New(backend.Store, logger),
		accounts.NewDirectory(backend.Store, logger),
	)
	if err != nil {
		logger.Error("seeding failed", "error", err)
		backend.Close()
		os.Exit(1)
	}

	logger.Info("seed complete",
		"file", *path,
		"backend", backend.Name,
		"admin_created", res.AdminCreated,
		"books_added", res.BooksAdded,
	)
}
