// Package assessment coordinates test sessions: it records answers, scores
// finished sessions, caches and exports results and aggregates statistics.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/psyche-api/internal/domain"
	"github.com/phrazzld/psyche-api/internal/domain/scoring"
	"github.com/phrazzld/psyche-api/internal/export"
)

// StartSessionRequest describes a new session.
type StartSessionRequest struct {
	TestTypeID string
	Category   domain.Instrument
	Metadata   map[string]any
}

// StatisticsFilter narrows the sessions included in statistics.
type StatisticsFilter struct {
	TestTypeID   string
	Category     domain.Instrument
	StartedAfter time.Time
}

// SessionScore is the outcome of scoring one stored session in a batch.
type SessionScore struct {
	SessionID uuid.UUID
	Result    *domain.Result
	Err       error
}

// Service manages assessment sessions.
type Service interface {
	// StartSession creates a session in the created state.
	StartSession(ctx context.Context, req StartSessionRequest) (*domain.Session, error)

	// SubmitAnswer validates an answer, stores its cleaned form and advances
	// the session. Invalid answers return an *AnswerRejectedError and are not
	// stored. The returned session carries every stored answer.
	SubmitAnswer(ctx context.Context, sessionID uuid.UUID, answer domain.AnswerRecord) (*domain.Session, error)

	// FinalizeSession scores the stored answers and completes the session.
	// confirmed must be true; otherwise domain.ErrConfirmationRequired is
	// returned and nothing changes.
	FinalizeSession(ctx context.Context, sessionID uuid.UUID, confirmed bool) (*domain.Session, error)

	// AbandonSession marks an open session abandoned.
	AbandonSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error)

	// ExpireSession marks an open session expired.
	ExpireSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error)

	// ExpireStale expires every open session not updated since cutoff and
	// returns how many were expired.
	ExpireStale(ctx context.Context, cutoff time.Time) (int, error)

	// GetSession returns a session with its answers in submission order.
	GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error)

	// GetResult returns the result of a completed session, reading the cache
	// first. ErrResultNotAvailable is returned while the session is open.
	GetResult(ctx context.Context, sessionID uuid.UUID) (*domain.Result, error)

	// Statistics aggregates stored sessions matching the filter.
	Statistics(ctx context.Context, filter StatisticsFilter) (domain.Statistics, error)

	// ExportSession renders the answers of a session.
	ExportSession(ctx context.Context, sessionID uuid.UUID, opts export.Options) (*export.Payload, error)

	// ScoreSessions scores stored sessions in parallel without changing them.
	// Per-session failures are reported in SessionScore.Err.
	ScoreSessions(ctx context.Context, sessionIDs []uuid.UUID) ([]SessionScore, error)
}

// Common error types for Service.
var (
	// ErrSessionNotFound indicates that the session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidAnswer indicates that a submitted answer failed validation.
	ErrInvalidAnswer = errors.New("invalid answer")

	// ErrResultNotAvailable indicates that the session has no result yet.
	ErrResultNotAvailable = errors.New("session result not available")

	// ErrInvalidRequest indicates a malformed service request.
	ErrInvalidRequest = errors.New("invalid request")
)

// AnswerRejectedError carries the validation result of a rejected answer.
// It matches ErrInvalidAnswer with errors.Is.
type AnswerRejectedError struct {
	Validation scoring.ValidationResult
}

// Error implements the error interface.
func (e *AnswerRejectedError) Error() string {
	if len(e.Validation.Errors) == 0 {
		return ErrInvalidAnswer.Error()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidAnswer, strings.Join(e.Validation.Errors, "; "))
}

// Is reports whether target is ErrInvalidAnswer.
func (e *AnswerRejectedError) Is(target error) bool {
	return target == ErrInvalidAnswer
}

// ServiceError wraps errors from the assessment service with the failing operation.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "submit_answer", "finalize_session")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError returns a ServiceError for the named operation.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
