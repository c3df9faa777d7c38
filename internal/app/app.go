// Package app is the composition root: it opens the store and wires every
// service around it.
//
// DEPENDENCY FLOW:
//
//	config.Config → sqlite.DB → RelationService → ArticleService
//	                                            ↘ ProfileService
//	                          → TagService
//	                          → UserService
//
// Entry points under cmd/ build a Config and a logger, call New, and use
// the services hanging off App. They never construct services themselves.
package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sakif/conduit/internal/config"
	"github.com/sakif/conduit/internal/metrics"
	"github.com/sakif/conduit/internal/repository/sqlite"
	"github.com/sakif/conduit/internal/service"
)

// App owns the database handle and the services built on it.
type App struct {
	DB        *sqlite.DB
	Metrics   *metrics.Metrics
	Relations *service.RelationService
	Articles  *service.ArticleService
	Profiles  *service.ProfileService
	Tags      *service.TagService
	Users     *service.UserService

	logger *slog.Logger
}

// New opens the database named by cfg and wires the services. reg may be
// nil to leave the metrics unregistered.
func New(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*App, error) {
	if cfg.Database.Path != ":memory:" {
		dir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	m := metrics.New(reg)
	relations := service.NewRelationService(db, m, logger)

	a := &App{
		DB:        db,
		Metrics:   m,
		Relations: relations,
		Articles: service.NewArticleService(db, relations, service.ArticleOptions{
			DefaultLimit:   cfg.Articles.DefaultLimit,
			MaxLimit:       cfg.Articles.MaxLimit,
			LegacyTagMatch: cfg.Articles.LegacyTagMatch,
		}, m, logger),
		Profiles: service.NewProfileService(db, relations, logger),
		Tags:     service.NewTagService(db, logger),
		Users:    service.NewUserService(db, logger),
		logger:   logger,
	}

	logger.Info("database opened", slog.String("path", cfg.Database.Path))
	return a, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.DB.Close()
}

// NewLogger builds the process logger from the log section of the config.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
