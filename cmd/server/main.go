// Package main implements the scheduler server: the HTTP API that accepts
// asset processing requests, manages the persistent task queue and the
// worker registry.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ovehub/asset-manager/internal/config"
	"github.com/ovehub/asset-manager/internal/platform/logger"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a config file (environment variables take precedence)")
		migrateCmd = flag.String("migrate", "", "run a migration command instead of the server: up, down or status")
	)
	flag.Parse()

	if err := run(*configPath, *migrateCmd); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func run(configPath, migrateCmd string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server.LogLevel)
	if err != nil {
		return fmt.Errorf("setting up logger: %w", err)
	}

	if migrateCmd != "" {
		return runMigrations(cfg, migrateCmd, appLogger)
	}

	app, err := newApplication(cfg, appLogger)
	if err != nil {
		return err
	}
	defer app.cleanup()

	appLogger.Info("scheduler starting",
		slog.Int("port", cfg.Server.Port),
		slog.String("store", cfg.Store.Name))

	return app.serve(context.Background())
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
