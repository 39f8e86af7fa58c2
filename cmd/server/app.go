package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/ovehub/asset-manager/internal/config"
	"github.com/ovehub/asset-manager/internal/domain"
	"github.com/ovehub/asset-manager/internal/platform/objectstore"
	"github.com/ovehub/asset-manager/internal/platform/postgres"
	"github.com/ovehub/asset-manager/internal/service"
)

// application holds the wired dependencies of the scheduler server.
type application struct {
	config    *config.Config
	logger    *slog.Logger
	db        *sql.DB
	assets    *objectstore.Client
	scheduler *service.Scheduler
}

// newApplication connects the database and the object store and wires the
// stores into the scheduler service.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := openDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}

	storeCfg := domain.StoreConfig{
		Name:      cfg.Store.Name,
		Endpoint:  cfg.Store.Endpoint,
		AccessKey: cfg.Store.AccessKey,
		SecretKey: cfg.Store.SecretKey,
		Secure:    cfg.Store.Secure,
		ProxyURL:  cfg.Store.ProxyURL,
	}
	assets, err := objectstore.Connect(&storeCfg, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to object store %q: %w", cfg.Store.Name, err)
	}

	tasks := postgres.NewPostgresTaskStore(db, logger)
	workers := postgres.NewPostgresWorkerStore(db, logger)
	scheduler := service.NewScheduler(tasks, workers, assets, storeCfg, logger)

	return &application{
		config:    cfg,
		logger:    logger,
		db:        db,
		assets:    assets,
		scheduler: scheduler,
	}, nil
}

// cleanup releases the application's long-lived resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("closing database failed", slog.String("error", err.Error()))
		}
	}
}

// openDatabase opens the task queue database and verifies connectivity.
func openDatabase(cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("database connection established")
	return db, nil
}
