package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/psyche-api/internal/domain"
	"github.com/phrazzld/psyche-api/internal/platform/logger"
	"github.com/phrazzld/psyche-api/internal/store"
)

const defaultListLimit = 1000

const sessionColumns = `id, test_type_id, category, status, progress, result, metadata,
		started_at, updated_at, completed_at, total_time_ms`

// PostgresSessionStore implements the store.SessionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSessionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSessionStore creates a new PostgreSQL implementation of the SessionStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresSessionStore(db store.DBTX, logger *slog.Logger) *PostgresSessionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSessionStore{
		db:     db,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

// Ensure PostgresSessionStore implements store.SessionStore interface
var _ store.SessionStore = (*PostgresSessionStore)(nil)

// WithTx implements store.SessionStore.WithTx
func (s *PostgresSessionStore) WithTx(tx *sql.Tx) store.SessionStore {
	return &PostgresSessionStore{db: tx, logger: s.logger}
}

// Create implements store.SessionStore.Create
func (s *PostgresSessionStore) Create(ctx context.Context, session *domain.Session) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := session.Validate(); err != nil {
		log.Warn("session validation failed during create",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return err
	}

	result, metadata, err := encodeSessionJSON(session)
	if err != nil {
		return store.NewStoreError("session", "create", "failed to encode session", err)
	}

	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.db.ExecContext(ctx, query,
		session.ID,
		session.TestTypeID,
		string(session.Category),
		string(session.Status),
		session.Progress,
		result,
		metadata,
		session.StartedAt,
		session.UpdatedAt,
		session.CompletedAt,
		session.TotalTime.Milliseconds(),
	)
	if err != nil {
		log.Error("failed to create session",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return MapError(err, store.ErrSessionNotFound)
	}

	log.Info("session created successfully",
		slog.String("session_id", session.ID.String()),
		slog.String("category", string(session.Category)),
		slog.String("test_type_id", session.TestTypeID))
	return nil
}

// GetByID implements store.SessionStore.GetByID
func (s *PostgresSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return s.get(ctx, id, false)
}

// GetForUpdate implements store.SessionStore.GetForUpdate
func (s *PostgresSessionStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return s.get(ctx, id, true)
}

func (s *PostgresSessionStore) get(ctx context.Context, id uuid.UUID, lock bool) (*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	log.Debug("retrieving session",
		slog.String("session_id", id.String()),
		slog.Bool("for_update", lock))

	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	session, err := scanSession(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		mapped := MapError(err, store.ErrSessionNotFound)
		if store.IsNotFoundError(mapped) {
			log.Debug("session not found", slog.String("session_id", id.String()))
		} else {
			log.Error("failed to get session",
				slog.String("error", err.Error()),
				slog.String("session_id", id.String()))
		}
		return nil, mapped
	}
	return session, nil
}

// Update implements store.SessionStore.Update
func (s *PostgresSessionStore) Update(ctx context.Context, session *domain.Session) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := session.Validate(); err != nil {
		log.Warn("session validation failed during update",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return err
	}

	result, metadata, err := encodeSessionJSON(session)
	if err != nil {
		return store.NewStoreError("session", "update", "failed to encode session", err)
	}

	query := `
		UPDATE sessions
		SET status = $1, progress = $2, result = $3, metadata = $4,
		    updated_at = $5, completed_at = $6, total_time_ms = $7
		WHERE id = $8
	`
	res, err := s.db.ExecContext(ctx, query,
		string(session.Status),
		session.Progress,
		result,
		metadata,
		session.UpdatedAt,
		session.CompletedAt,
		session.TotalTime.Milliseconds(),
		session.ID,
	)
	if err != nil {
		log.Error("failed to update session",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return MapError(err, store.ErrSessionNotFound)
	}
	if err := CheckRowsAffected(res, store.ErrSessionNotFound); err != nil {
		log.Debug("session not found for update",
			slog.String("session_id", session.ID.String()))
		return err
	}

	log.Info("session updated successfully",
		slog.String("session_id", session.ID.String()),
		slog.String("status", string(session.Status)),
		slog.Float64("progress", session.Progress))
	return nil
}

// List implements store.SessionStore.List
func (s *PostgresSessionStore) List(ctx context.Context, filter store.SessionFilter) ([]*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.TestTypeID != "" {
		add("test_type_id = $%d", filter.TestTypeID)
	}
	if filter.Category != "" {
		add("category = $%d", string(filter.Category))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if !filter.StartedAfter.IsZero() {
		add("started_at >= $%d", filter.StartedAfter)
	}
	if !filter.UpdatedBefore.IsZero() {
		add("updated_at < $%d", filter.UpdatedBefore)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var query strings.Builder
	query.WriteString(`SELECT ` + sessionColumns + ` FROM sessions`)
	if len(where) > 0 {
		query.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	args = append(args, limit, offset)
	fmt.Fprintf(&query, " ORDER BY started_at DESC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		log.Error("failed to list sessions", slog.String("error", err.Error()))
		return nil, MapError(err, nil)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	sessions := []*domain.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			log.Error("failed to scan session row", slog.String("error", err.Error()))
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("listed sessions", slog.Int("count", len(sessions)))
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		session     domain.Session
		category    string
		status      string
		result      []byte
		metadata    []byte
		completedAt sql.NullTime
		totalTimeMS int64
	)
	if err := row.Scan(
		&session.ID,
		&session.TestTypeID,
		&category,
		&status,
		&session.Progress,
		&result,
		&metadata,
		&session.StartedAt,
		&session.UpdatedAt,
		&completedAt,
		&totalTimeMS,
	); err != nil {
		return nil, err
	}

	session.Category = domain.Instrument(category)
	session.Status = domain.SessionStatus(status)
	session.TotalTime = time.Duration(totalTimeMS) * time.Millisecond
	session.Answers = []domain.AnswerRecord{}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		session.CompletedAt = &t
	}
	session.StartedAt = session.StartedAt.UTC()
	session.UpdatedAt = session.UpdatedAt.UTC()

	if len(result) > 0 {
		var r domain.Result
		if err := json.Unmarshal(result, &r); err != nil {
			return nil, fmt.Errorf("failed to decode session result: %w", err)
		}
		session.Result = &r
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &session.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode session metadata: %w", err)
		}
		if len(session.Metadata) == 0 {
			session.Metadata = nil
		}
	}
	return &session, nil
}

// encodeSessionJSON returns the JSONB columns. A nil result stays SQL NULL.
func encodeSessionJSON(session *domain.Session) (result any, metadata []byte, err error) {
	if session.Result != nil {
		b, err := json.Marshal(session.Result)
		if err != nil {
			return nil, nil, err
		}
		result = b
	}
	meta := session.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metadata, err = json.Marshal(meta)
	if err != nil {
		return nil, nil, err
	}
	return result, metadata, nil
}
