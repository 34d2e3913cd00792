package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingTask struct {
	calls atomic.Int32
	err   error
	panic bool
}

func (c *countingTask) Type() string { return "counting" }

func (c *countingTask) Execute(ctx context.Context) error {
	c.calls.Add(1)
	if c.panic {
		panic("boom")
	}
	return c.err
}

type fakeExpirer struct {
	mu      sync.Mutex
	cutoffs []time.Time
	expired int
	err     error
}

func (f *fakeExpirer) ExpireStale(ctx context.Context, cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.expired, f.err
}

func TestRunner_RunsOnTicker(t *testing.T) {
	t.Parallel()

	task := &countingTask{}
	runner := NewRunner(RunnerConfig{Interval: 5 * time.Millisecond}, discardLogger(), task)

	require.NoError(t, runner.Start(context.Background()))
	assert.ErrorIs(t, runner.Start(context.Background()), ErrRunnerStarted)

	assert.Eventually(t, func() bool {
		return task.calls.Load() >= 3
	}, time.Second, time.Millisecond)

	runner.Stop()
	calls := task.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, task.calls.Load(), "no executions after Stop")

	// Stop is idempotent
	runner.Stop()
}

func TestRunner_RunOnStart(t *testing.T) {
	t.Parallel()

	task := &countingTask{}
	runner := NewRunner(RunnerConfig{Interval: time.Hour, RunOnStart: true}, discardLogger(), task)
	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	assert.Eventually(t, func() bool {
		return task.calls.Load() == 1
	}, time.Second, time.Millisecond)
}

func TestRunner_RunOnceErrors(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	tests := []struct {
		name    string
		task    *countingTask
		wantErr string
	}{
		{name: "success", task: &countingTask{}},
		{name: "error", task: &countingTask{err: errBoom}, wantErr: "boom"},
		{name: "panic", task: &countingTask{panic: true}, wantErr: "task panicked: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got error
			runner := NewRunner(DefaultRunnerConfig(), discardLogger(), tt.task)
			runner.SetErrorHandler(func(task Task, err error) {
				got = err
			})

			runner.RunOnce(context.Background(), tt.task)

			assert.Equal(t, int32(1), tt.task.calls.Load())
			if tt.wantErr == "" {
				assert.NoError(t, got)
			} else {
				require.Error(t, got)
				assert.Equal(t, tt.wantErr, got.Error())
			}
		})
	}
}

func TestSessionExpiryTask(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("passes cutoff", func(t *testing.T) {
		t.Parallel()

		expirer := &fakeExpirer{expired: 2}
		task := NewSessionExpiryTask(expirer, 24*time.Hour, clock, discardLogger())

		assert.Equal(t, TaskTypeSessionExpiry, task.Type())
		require.NoError(t, task.Execute(context.Background()))
		require.Len(t, expirer.cutoffs, 1)
		assert.Equal(t, now.Add(-24*time.Hour), expirer.cutoffs[0])
	})

	t.Run("wraps failure", func(t *testing.T) {
		t.Parallel()

		errDB := errors.New("db down")
		task := NewSessionExpiryTask(&fakeExpirer{err: errDB}, time.Hour, clock, discardLogger())

		err := task.Execute(context.Background())
		assert.ErrorIs(t, err, errDB)
		assert.Contains(t, err.Error(), "2024-03-01T11:00:00Z")
	})

	t.Run("rejects bad arguments", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() { NewSessionExpiryTask(nil, time.Hour, clock, nil) })
		assert.Panics(t, func() { NewSessionExpiryTask(&fakeExpirer{}, 0, clock, nil) })
	})
}
