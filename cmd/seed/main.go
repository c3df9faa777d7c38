// Command seed loads demo data into the configured database.
//
// It follows the same startup order any entry point in this repo uses:
//
//  1. load configuration (config file, .env, CONDUIT_* variables)
//  2. build the logger from it
//  3. open the store and wire the services (internal/app)
//  4. do the work, then close the store
//
// Usage:
//
//	go run ./cmd/seed -config config.yaml
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sakif/conduit/internal/app"
	"github.com/sakif/conduit/internal/config"
	"github.com/sakif/conduit/internal/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file (optional)")
	flag.Parse()

	// === 1. CONFIGURATION ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. LOGGING ===
	logger := app.NewLogger(cfg.Log)

	// === 3. WIRING ===
	a, err := app.New(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Error("failed to start", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// === 4. SEED ===
	wrote, err := a.Seed(ctx)
	if err != nil {
		logger.Error("seeding failed", slog.String("error", err.Error()))
		a.Close()
		os.Exit(1)
	}

	page, err := a.Articles.List(ctx, "", service.ListQuery{})
	if err != nil {
		logger.Error("listing failed", slog.String("error", err.Error()))
		a.Close()
		os.Exit(1)
	}

	logger.Info("seed finished",
		slog.Bool("wrote", wrote),
		slog.Int("articles", page.TotalCount),
	)
}
