// Package server initializes and runs the container server: storage
// backend selection, migrations, service wiring and graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ownyourdata/semcon/internal/logging"
	"github.com/ownyourdata/semcon/internal/server/auth"
	"github.com/ownyourdata/semcon/internal/server/config"
	"github.com/ownyourdata/semcon/internal/server/httpapi"
	"github.com/ownyourdata/semcon/internal/server/repositories/repomanager"
	"github.com/ownyourdata/semcon/internal/server/services"
)

// Version is overridable at build time with
// -ldflags "-X github.com/ownyourdata/semcon/internal/server.Version=...".
var Version = "dev"

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

// NewApp wires the application. An empty DSN selects the in-memory store;
// a Postgres DSN opens the pool and applies migrations.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	var db *sql.DB
	var rm repomanager.RepositoryManager

	if cfg.DatabaseDSN == "" {
		logger.Info(ctx, "no database DSN configured, using in-memory store")
		rm = repomanager.NewMemoryRepositoryManager()
	} else {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		rm = repomanager.NewPostgresRepositoryManager()
		if err := rm.RunMigrations(ctx, db); err != nil {
			return nil, fmt.Errorf("migration error: %w", err)
		}
	}

	store := services.NewStoreService(db, rm, logger)
	query := services.NewQueryService(db, rm, logger)
	gate := auth.NewGate(cfg.AuthEnabled, []byte(cfg.SecretKey), rm.DIDs(db))

	srv := httpapi.NewServer(cfg, logger, store, query, gate, Version)

	return &App{config: cfg, logger: logger, db: db, server: srv}, nil
}

// Run serves until the context is cancelled or an OS signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sigs
		cancel()
	}()

	err := app.server.Run(ctx)

	if app.db != nil {
		if closeErr := app.db.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
