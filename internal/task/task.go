package task

import "context"

// Task type constants
const (
	// TaskTypeSessionExpiry expires sessions idle past their time-to-live.
	TaskTypeSessionExpiry = "session_expiry"
)

// Task represents a unit of recurring background work.
type Task interface {
	// Type returns the task type identifier
	Type() string

	// Execute runs the task logic once
	Execute(ctx context.Context) error
}
