package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/psyche-api/internal/domain"
)

// AnswerStore defines the interface for answer persistence. Answers are
// append-only: there is no update or delete.
type AnswerStore interface {
	// Create appends an answer to its session.
	// Returns ErrAnswerExists if an answer with the same ID is already stored.
	// Returns ErrInvalidEntity if the session does not exist.
	Create(ctx context.Context, answer *domain.AnswerRecord) error

	// ListBySession returns a session's answers in submission order.
	// Returns an empty slice when the session has no answers.
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.AnswerRecord, error)

	// WithTx returns a new AnswerStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) AnswerStore
}
