package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/psyche-api/internal/platform/logger"
)

// SessionExpirer expires open sessions idle since before the cutoff and
// returns how many were expired.
type SessionExpirer interface {
	ExpireStale(ctx context.Context, cutoff time.Time) (int, error)
}

// SessionExpiryTask expires sessions whose last update is older than TTL.
type SessionExpiryTask struct {
	expirer SessionExpirer
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

var _ Task = (*SessionExpiryTask)(nil)

// NewSessionExpiryTask creates the expiry task. A nil clock uses time.Now.
func NewSessionExpiryTask(
	expirer SessionExpirer,
	ttl time.Duration,
	now func() time.Time,
	log *slog.Logger,
) *SessionExpiryTask {
	if expirer == nil {
		panic("expirer cannot be nil")
	}
	if ttl <= 0 {
		panic("ttl must be positive")
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	return &SessionExpiryTask{
		expirer: expirer,
		ttl:     ttl,
		now:     now,
		logger:  log.With(slog.String("component", "session_expiry")),
	}
}

// Type implements Task.Type
func (t *SessionExpiryTask) Type() string {
	return TaskTypeSessionExpiry
}

// Execute implements Task.Execute
func (t *SessionExpiryTask) Execute(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, t.logger)
	cutoff := t.now().UTC().Add(-t.ttl)

	expired, err := t.expirer.ExpireStale(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to expire sessions idle since %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if expired > 0 {
		log.Info("expired stale sessions",
			slog.Int("count", expired),
			slog.Time("cutoff", cutoff))
	}
	return nil
}
