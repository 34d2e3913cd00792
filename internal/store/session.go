package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/psyche-api/internal/domain"
)

// SessionFilter narrows List. Zero fields match everything.
type SessionFilter struct {
	TestTypeID string
	Category   domain.Instrument
	Status     domain.SessionStatus
	// StartedAfter keeps sessions started at or after this instant.
	StartedAfter time.Time
	// UpdatedBefore keeps sessions last touched strictly before this instant.
	UpdatedBefore time.Time
	Limit         int
	Offset        int
}

// SessionStore defines the interface for session persistence. Stored
// sessions never carry their answers; those live in the AnswerStore and are
// attached by the caller.
type SessionStore interface {
	// Create saves a new session.
	// Returns validation errors from the domain Session if data is invalid.
	Create(ctx context.Context, session *domain.Session) error

	// GetByID retrieves a session by its unique ID.
	// Returns ErrSessionNotFound if the session does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)

	// GetForUpdate retrieves a session with a row-level lock using SELECT FOR UPDATE.
	// It must be called inside a transaction.
	// Returns ErrSessionNotFound if the session does not exist.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Session, error)

	// Update persists status, progress, result, metadata and timing fields.
	// Returns ErrSessionNotFound if the session does not exist.
	Update(ctx context.Context, session *domain.Session) error

	// List returns sessions matching filter ordered by start time, newest first.
	// Returns an empty slice when nothing matches.
	List(ctx context.Context, filter SessionFilter) ([]*domain.Session, error)

	// WithTx returns a new SessionStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) SessionStore
}
