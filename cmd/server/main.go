// Package main implements the entry point for the Psyche API server, which
// runs psychological assessment sessions and scores their answers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/phrazzld/psyche-api/internal/config"
	"github.com/phrazzld/psyche-api/internal/platform/logger"
	"github.com/phrazzld/psyche-api/internal/platform/postgres"
	"github.com/phrazzld/psyche-api/internal/redact"
)

// main loads configuration, sets up logging, connects to the database and
// then either runs a migration command or serves HTTP until interrupted.
func main() {
	migrate := flag.String("migrate", "",
		"run a migration command and exit ("+strings.Join(postgres.MigrationCommands, ", ")+")")
	flag.Parse()

	if err := run(*migrate); err != nil {
		log.Fatalf("psyche-api: %v", err)
	}
}

func run(migrateCommand string) error {
	if migrateCommand != "" && !slices.Contains(postgres.MigrationCommands, migrateCommand) {
		return fmt.Errorf("unknown migration command %q", migrateCommand)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, closeLog, err := logger.Setup(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	defer func() {
		if err := closeLog(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
	}()

	appLogger.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.Bool("cache_enabled", cfg.Cache.Enabled))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, appLogger)

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %s", redact.Error(err))
	}

	if migrateCommand != "" {
		defer func() {
			if err := db.Close(); err != nil {
				appLogger.Error("failed to close database", slog.String("error", err.Error()))
			}
		}()
		if err := postgres.Migrate(ctx, db, migrateCommand); err != nil {
			return fmt.Errorf("migration %s failed: %w", migrateCommand, err)
		}
		appLogger.Info("migration finished", slog.String("command", migrateCommand))
		return nil
	}

	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			appLogger.Error("failed to close database", slog.String("error", closeErr.Error()))
		}
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}
