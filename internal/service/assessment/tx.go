package assessment

import (
	"context"
	"database/sql"

	"github.com/phrazzld/psyche-api/internal/store"
)

// txStores are the stores visible inside one unit of work.
type txStores struct {
	sessions store.SessionStore
	answers  store.AnswerStore
}

type txFn func(ctx context.Context, stores txStores) error

// runInTransaction runs fn with transaction-bound stores. Without a database
// handle the stores are used directly, which is how in-memory stores run.
func (s *serviceImpl) runInTransaction(ctx context.Context, fn txFn) error {
	if s.db == nil {
		return fn(ctx, txStores{sessions: s.sessions, answers: s.answers})
	}
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, txStores{
			sessions: s.sessions.WithTx(tx),
			answers:  s.answers.WithTx(tx),
		})
	})
}
