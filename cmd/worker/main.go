// Package main implements a worker process: it registers itself with the
// scheduler's registry, polls the task queue for tasks matching its type
// and runs the configured transform plugin.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ovehub/asset-manager/internal/config"
	"github.com/ovehub/asset-manager/internal/domain"
	"github.com/ovehub/asset-manager/internal/platform/logger"
	"github.com/ovehub/asset-manager/internal/platform/objectstore"
	"github.com/ovehub/asset-manager/internal/platform/postgres"
	"github.com/ovehub/asset-manager/internal/worker"
	"github.com/ovehub/asset-manager/internal/worker/plugins/dzimage"
	"github.com/ovehub/asset-manager/internal/worker/plugins/zipextract"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (environment variables take precedence)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatalf("worker failed: %v", err)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if cfg.Worker.Name == "" || cfg.Worker.Type == "" {
		return fmt.Errorf("worker name and type must be configured")
	}

	logLevel := cfg.Worker.LogLevel
	if logLevel == "" {
		logLevel = cfg.Server.LogLevel
	}
	appLogger, err := logger.Setup(logLevel)
	if err != nil {
		return fmt.Errorf("setting up logger: %w", err)
	}

	registry := worker.NewRegistry()
	for _, factory := range []func() worker.Plugin{
		func() worker.Plugin { return zipextract.New(cfg.Worker.TempDir) },
		func() worker.Plugin { return dzimage.New(cfg.Worker.TempDir) },
	} {
		if err := registry.Register(factory); err != nil {
			return err
		}
	}
	plugin, err := registry.New(cfg.Worker.Type)
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg, appLogger)
	if err != nil {
		return err
	}
	defer db.Close()

	connect := func(storeCfg *domain.StoreConfig, l *slog.Logger) (worker.AssetStore, error) {
		return objectstore.Connect(storeCfg, l)
	}
	runtime := worker.NewRuntime(cfg.Worker.Name, plugin,
		postgres.NewPostgresTaskStore(db, appLogger),
		postgres.NewPostgresWorkerStore(db, appLogger),
		connect, cfg.Worker.PollInterval, appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLogger.Info("worker starting",
		slog.String("name", cfg.Worker.Name),
		slog.String("type", cfg.Worker.Type))

	runErr := runtime.Run(ctx)

	// The run context is already canceled here; unregister with a fresh one.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := runtime.Unregister(shutdownCtx); err != nil {
		appLogger.Error("unregistering worker failed", slog.String("error", err.Error()))
	}

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	appLogger.Info("worker stopped")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func openDatabase(cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
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
