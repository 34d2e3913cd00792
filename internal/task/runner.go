package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrRunnerStarted is returned when Start is called on a running runner.
var ErrRunnerStarted = errors.New("task runner already started")

// RunnerConfig holds configuration for the periodic task runner
type RunnerConfig struct {
	// Interval defines how often each task is executed
	// If zero, defaults to 5 minutes
	Interval time.Duration

	// Timeout bounds a single execution. Zero means no timeout.
	Timeout time.Duration

	// RunOnStart executes every task once before the first tick.
	RunOnStart bool
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Interval: 5 * time.Minute,
		Timeout:  time.Minute,
	}
}

// Runner executes a fixed set of tasks on a ticker until stopped.
type Runner struct {
	tasks      []Task
	config     RunnerConfig
	logger     *slog.Logger
	errHandler func(task Task, err error)

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewRunner creates a new Runner for the given tasks.
func NewRunner(config RunnerConfig, logger *slog.Logger, tasks ...Task) *Runner {
	if config.Interval <= 0 {
		config.Interval = DefaultRunnerConfig().Interval
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "task_runner"))

	return &Runner{
		tasks:  tasks,
		config: config,
		logger: logger,
		errHandler: func(task Task, err error) {
			logger.Error("task execution failed",
				slog.String("task_type", task.Type()),
				slog.String("error", err.Error()))
		},
	}
}

// SetErrorHandler allows setting a custom error handler function
func (r *Runner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// Start launches one goroutine per task. The parent context bounds the
// runner's lifetime together with Stop.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return ErrRunnerStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.started = true

	for _, t := range r.tasks {
		r.wg.Add(1)
		go r.loop(ctx, t)
	}

	r.logger.Info("task runner started",
		slog.Int("task_count", len(r.tasks)),
		slog.Duration("interval", r.config.Interval))
	return nil
}

// Stop cancels all loops and waits for in-flight executions to return.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.started = false
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
	r.logger.Info("task runner stopped")
}

func (r *Runner) loop(ctx context.Context, t Task) {
	defer r.wg.Done()

	if r.config.RunOnStart {
		r.RunOnce(ctx, t)
	}

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx, t)
		}
	}
}

// RunOnce executes a task immediately, recovering from panics and routing
// failures to the error handler.
func (r *Runner) RunOnce(ctx context.Context, t Task) {
	log := r.logger.With(slog.String("task_type", t.Type()))

	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("task panicked: %v", p)
			}
		}()
		return t.Execute(ctx)
	}()

	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			log.Debug("task interrupted by shutdown")
			return
		}
		r.errHandler(t, err)
		return
	}
	log.Debug("task completed successfully")
}
