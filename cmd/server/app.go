package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/psyche-api/internal/config"
	"github.com/phrazzld/psyche-api/internal/domain/scoring"
	"github.com/phrazzld/psyche-api/internal/events"
	"github.com/phrazzld/psyche-api/internal/export"
	"github.com/phrazzld/psyche-api/internal/platform/postgres"
	"github.com/phrazzld/psyche-api/internal/platform/redis"
	"github.com/phrazzld/psyche-api/internal/questionbank"
	"github.com/phrazzld/psyche-api/internal/service/assessment"
	"github.com/phrazzld/psyche-api/internal/store"
	"github.com/phrazzld/psyche-api/internal/task"
	goredis "github.com/redis/go-redis/v9"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB
	redis  *goredis.Client

	// Stores
	sessionStore store.SessionStore
	answerStore  store.AnswerStore
	resultCache  store.ResultCache

	// Scoring and sessions
	bank              *questionbank.Bank
	engine            scoring.Engine
	assessmentService assessment.Service

	// Event system
	eventEmitter *events.InMemoryEventEmitter

	// Background work
	taskRunner *task.Runner
}

// newApplication creates a new application instance with all dependencies initialized.
// The database connection must be established before application initialization.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.bank, err = loadQuestionBank(cfg.Scoring)
	if err != nil {
		return nil, err
	}
	logger.Info("question bank loaded", slog.String("version", app.bank.Version()))

	params := scoring.NewParams(scoring.ParamsConfig{
		MaxTextLength:           cfg.Scoring.MaxTextLength,
		MinResponseTime:         cfg.Scoring.MinResponseTimeMS,
		LowReliabilityThreshold: cfg.Scoring.LowReliabilityThreshold,
	})
	app.engine, err = scoring.NewEngineWithParams(app.bank, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create scoring engine: %w", err)
	}

	// Initialize stores
	app.sessionStore = postgres.NewPostgresSessionStore(db, logger)
	app.answerStore = postgres.NewPostgresAnswerStore(db, logger)

	if cfg.Cache.Enabled {
		app.redis, err = redis.NewClient(ctx, cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to result cache: %w", err)
		}
		app.resultCache = redis.NewResultCache(app.redis, cfg.Cache.ResultTTL, logger)
		logger.Info("result cache enabled", slog.Duration("ttl", cfg.Cache.ResultTTL))
	}

	// Initialize event emitter
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(events.NewRiskAlertHandler(logger), events.TypeRiskFlagged)

	deps := assessment.Dependencies{
		Sessions:         app.sessionStore,
		Answers:          app.answerStore,
		Engine:           app.engine,
		Cache:            app.resultCache,
		Exporter:         export.NewExporter(app.engine),
		Events:           app.eventEmitter,
		DB:               db,
		BatchConcurrency: cfg.Scoring.BatchConcurrency,
		Logger:           logger,
	}
	app.assessmentService = assessment.NewService(deps)

	// Initialize background expiry
	app.taskRunner = task.NewRunner(task.RunnerConfig{
		Interval:   cfg.Scoring.ExpirySweepInterval,
		Timeout:    cfg.Scoring.ExpirySweepInterval,
		RunOnStart: true,
	}, logger, task.NewSessionExpiryTask(app.assessmentService, cfg.Scoring.SessionTTL, nil, logger))

	logger.Info("application initialized successfully")
	return app, nil
}

func loadQuestionBank(cfg config.ScoringConfig) (*questionbank.Bank, error) {
	if cfg.QuestionBankPath == "" {
		bank, err := questionbank.Default()
		if err != nil {
			return nil, fmt.Errorf("failed to load embedded question bank: %w", err)
		}
		return bank, nil
	}
	bank, err := questionbank.LoadFile(cfg.QuestionBankPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load question bank %s: %w", cfg.QuestionBankPath, err)
	}
	return bank, nil
}

// Run starts the background runner and the HTTP server, blocking until the
// context is cancelled or the server fails.
func (app *application) Run(ctx context.Context) error {
	if err := app.taskRunner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	router := app.setupRouter()
	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", slog.String("error", err.Error()))
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}

	app.logger.Info("application shutdown completed")
}
