package logger_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/phrazzld/psyche-api/internal/config"
	"github.com/phrazzld/psyche-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   slog.Level
		wantOK bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{" warn ", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"fatal", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		got, ok := logger.ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
	}
}

func TestNewFiltersByLevel(t *testing.T) {
	t.Parallel()
	buf := &logger.TestLogBuffer{}
	l := logger.New(config.LoggingConfig{Level: "warn"}, buf)

	l.Info("hidden")
	l.Warn("shown", slog.String("component", "test"))

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["msg"])
	assert.Equal(t, "WARN", entries[0]["level"])
	assert.Equal(t, "test", entries[0]["component"])
}

func TestNewWarnsOnInvalidLevel(t *testing.T) {
	t.Parallel()
	buf := &logger.TestLogBuffer{}
	l := logger.New(config.LoggingConfig{Level: "chatty"}, buf)
	l.Debug("not at info")

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "invalid log level configured, using default level", entries[0]["msg"])
	assert.Equal(t, "chatty", entries[0]["configured_level"])
}

func TestSetupWritesRotatedFile(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	path := filepath.Join(t.TempDir(), "psyche.log")
	l, cleanup, err := logger.Setup(config.LoggingConfig{
		Level:     "info",
		File:      path,
		MaxSizeMB: 1,
	})
	require.NoError(t, err)
	l.Info("written to file", slog.String("session_id", "s-1"))
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"written to file"`)
	assert.Same(t, l, slog.Default())
}

func TestContextHelpers(t *testing.T) {
	t.Parallel()
	_, custom := logger.NewTestLogger(t)
	fallback := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx := logger.WithLogger(context.Background(), custom)
	assert.Same(t, custom, logger.FromContext(ctx))
	assert.Same(t, custom, logger.FromContextOrDefault(ctx, fallback))

	empty := context.Background()
	assert.Same(t, fallback, logger.FromContextOrDefault(empty, fallback))
	assert.NotNil(t, logger.FromContext(empty))

	assert.Equal(t, empty, logger.WithLogger(empty, nil), "nil logger leaves context unchanged")
	assert.NotNil(t, logger.FromContextOrDefault(empty, nil))
}
