package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/psyche-api/internal/domain"
	"github.com/phrazzld/psyche-api/internal/platform/logger"
	"github.com/phrazzld/psyche-api/internal/store"
)

// PostgresAnswerStore implements the store.AnswerStore interface
// using a PostgreSQL database as the storage backend.
type PostgresAnswerStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAnswerStore creates a new PostgreSQL implementation of the AnswerStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresAnswerStore(db store.DBTX, logger *slog.Logger) *PostgresAnswerStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAnswerStore{
		db:     db,
		logger: logger.With(slog.String("component", "answer_store")),
	}
}

// Ensure PostgresAnswerStore implements store.AnswerStore interface
var _ store.AnswerStore = (*PostgresAnswerStore)(nil)

// WithTx implements store.AnswerStore.WithTx
func (s *PostgresAnswerStore) WithTx(tx *sql.Tx) store.AnswerStore {
	return &PostgresAnswerStore{db: tx, logger: s.logger}
}

// Create implements store.AnswerStore.Create
// Returns store.ErrAnswerExists for a repeated answer ID and
// store.ErrInvalidEntity when the session does not exist.
func (s *PostgresAnswerStore) Create(ctx context.Context, answer *domain.AnswerRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if answer.SessionID == uuid.Nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrEmptyAnswerSessionID)
	}
	if answer.QuestionID == "" {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrEmptyAnswerQuestionID)
	}

	var metadata []byte
	if len(answer.Metadata) > 0 {
		b, err := json.Marshal(answer.Metadata)
		if err != nil {
			return store.NewStoreError("answer", "create", "failed to encode metadata", err)
		}
		metadata = b
	}

	query := `
		INSERT INTO answers (id, session_id, question_id, instrument, dimension, value,
			preference, satisfaction, importance, confidence, text, response_time_ms,
			metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(ctx, query,
		answer.ID,
		answer.SessionID,
		answer.QuestionID,
		string(answer.Instrument),
		answer.Dimension,
		answer.Value,
		answer.Preference,
		answer.Satisfaction,
		answer.Importance,
		answer.Confidence,
		answer.Text,
		answer.ResponseTime,
		metadata,
		answer.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate answer ID",
				slog.String("answer_id", answer.ID.String()),
				slog.String("session_id", answer.SessionID.String()))
			return fmt.Errorf("%w: %v", store.ErrAnswerExists, err)
		}
		if IsForeignKeyViolation(err) {
			log.Warn("answer references a missing session",
				slog.String("session_id", answer.SessionID.String()))
			return fmt.Errorf("%w: session with ID %s not found", store.ErrInvalidEntity, answer.SessionID)
		}
		log.Error("failed to create answer",
			slog.String("error", err.Error()),
			slog.String("answer_id", answer.ID.String()),
			slog.String("session_id", answer.SessionID.String()))
		return MapError(err, store.ErrAnswerNotFound)
	}

	log.Debug("answer stored",
		slog.String("answer_id", answer.ID.String()),
		slog.String("session_id", answer.SessionID.String()),
		slog.String("question_id", answer.QuestionID))
	return nil
}

// ListBySession implements store.AnswerStore.ListBySession
func (s *PostgresAnswerStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.AnswerRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, session_id, question_id, instrument, dimension, value, preference,
			satisfaction, importance, confidence, text, response_time_ms, metadata, created_at
		FROM answers
		WHERE session_id = $1
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		log.Error("failed to query answers",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID.String()))
		return nil, MapError(err, nil)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	answers := []domain.AnswerRecord{}
	for rows.Next() {
		var (
			a          domain.AnswerRecord
			instrument string
			metadata   []byte
		)
		if err := rows.Scan(
			&a.ID,
			&a.SessionID,
			&a.QuestionID,
			&instrument,
			&a.Dimension,
			&a.Value,
			&a.Preference,
			&a.Satisfaction,
			&a.Importance,
			&a.Confidence,
			&a.Text,
			&a.ResponseTime,
			&metadata,
			&a.CreatedAt,
		); err != nil {
			log.Error("failed to scan answer row", slog.String("error", err.Error()))
			return nil, err
		}
		a.Instrument = domain.Instrument(instrument)
		a.CreatedAt = a.CreatedAt.UTC()
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode answer metadata: %w", err)
			}
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("listed answers",
		slog.String("session_id", sessionID.String()),
		slog.Int("count", len(answers)))
	return answers, nil
}
