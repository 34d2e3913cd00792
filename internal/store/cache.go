package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/psyche-api/internal/domain"
)

// ResultCache holds completed session results for fast reads. The session
// row stays the source of truth; a cache failure must never fail a request.
type ResultCache interface {
	// Get returns ErrResultNotFound on a miss.
	Get(ctx context.Context, sessionID uuid.UUID) (*domain.Result, error)
	Set(ctx context.Context, sessionID uuid.UUID, result *domain.Result) error
	Delete(ctx context.Context, sessionID uuid.UUID) error
}
