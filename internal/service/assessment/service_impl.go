package assessment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/psyche-api/internal/domain"
	"github.com/phrazzld/psyche-api/internal/domain/scoring"
	"github.com/phrazzld/psyche-api/internal/events"
	"github.com/phrazzld/psyche-api/internal/export"
	"github.com/phrazzld/psyche-api/internal/platform/logger"
	"github.com/phrazzld/psyche-api/internal/store"
)

// listPageSize bounds each List call when walking all matching sessions.
const listPageSize = 500

// errSessionActive marks a session touched after the expiry cutoff.
var errSessionActive = errors.New("session updated after cutoff")

// Dependencies are the collaborators of the assessment service. Sessions,
// Answers and Engine are required; everything else is optional.
type Dependencies struct {
	Sessions store.SessionStore
	Answers  store.AnswerStore
	Engine   scoring.Engine

	// Cache holds completed results. Nil disables caching.
	Cache store.ResultCache
	// Exporter defaults to export.NewExporter(Engine).
	Exporter *export.Exporter
	// Events receives session.completed and risk.flagged. Nil disables events.
	Events events.EventEmitter
	// DB enables transactions. Nil runs each unit of work without one.
	DB *sql.DB

	BatchConcurrency int
	Logger           *slog.Logger
	Now              func() time.Time
}

// Verify interface compliance at compile time
var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	sessions store.SessionStore
	answers  store.AnswerStore
	engine   scoring.Engine
	cache    store.ResultCache
	exporter *export.Exporter
	events   events.EventEmitter
	db       *sql.DB
	batch    *scoring.BatchScorer
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a Service from its dependencies.
func NewService(deps Dependencies) Service {
	if deps.Sessions == nil {
		panic("sessions cannot be nil")
	}
	if deps.Answers == nil {
		panic("answers cannot be nil")
	}
	if deps.Engine == nil {
		panic("engine cannot be nil")
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	if deps.Exporter == nil {
		deps.Exporter = export.NewExporter(deps.Engine)
	}

	return &serviceImpl{
		sessions: deps.Sessions,
		answers:  deps.Answers,
		engine:   deps.Engine,
		cache:    deps.Cache,
		exporter: deps.Exporter,
		events:   deps.Events,
		db:       deps.DB,
		batch:    scoring.NewBatchScorer(deps.Engine, deps.BatchConcurrency),
		logger:   deps.Logger.With(slog.String("component", "assessment_service")),
		now:      deps.Now,
	}
}

// StartSession implements Service.StartSession.
func (s *serviceImpl) StartSession(ctx context.Context, req StartSessionRequest) (*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !req.Category.IsValid() {
		log.Warn("session requested for unsupported category",
			slog.String("category", string(req.Category)))
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, domain.NewUnsupportedInstrumentError(req.Category))
	}
	testTypeID := req.TestTypeID
	if testTypeID == "" {
		testTypeID = string(req.Category)
	}

	session, err := domain.NewSession(testTypeID, req.Category)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	now := s.now()
	session.StartedAt = now
	session.UpdatedAt = now
	if len(req.Metadata) > 0 {
		session.Metadata = req.Metadata
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, s.wrapError(log, "start_session", session.ID, err)
	}

	log.Info("session started",
		slog.String("session_id", session.ID.String()),
		slog.String("category", string(session.Category)))
	return session, nil
}

// SubmitAnswer implements Service.SubmitAnswer.
func (s *serviceImpl) SubmitAnswer(
	ctx context.Context,
	sessionID uuid.UUID,
	answer domain.AnswerRecord,
) (*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()

	var (
		updated    *domain.Session
		storedID   *uuid.UUID
		instrument domain.Instrument
		flags      []string
	)
	err := s.runInTransaction(ctx, func(ctx context.Context, st txStores) error {
		session, err := st.sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.Status.IsTerminal() {
			return fmt.Errorf("%w: status %s", domain.ErrSessionClosed, session.Status)
		}

		// Identity and ordering belong to the server: the latest stored
		// answer per question wins when the session is scored.
		submitted := answer.Clone()
		submitted.SessionID = session.ID
		submitted.ID = uuid.New()
		submitted.CreatedAt = now
		if submitted.Instrument == "" {
			submitted.Instrument = session.Category
		}

		instrument = submitted.Instrument
		validation := s.engine.ValidateAnswerData(submitted)
		flags = validation.Flags

		// An answer for another instrument would be dropped at scoring time,
		// so it is rejected even when flagged.
		if submitted.Instrument != session.Category {
			validation.IsValid = false
			validation.Errors = append(validation.Errors, fmt.Sprintf(
				"instrument: answer belongs to %s, session measures %s",
				submitted.Instrument, session.Category))
			log.Debug("answer rejected",
				slog.String("session_id", session.ID.String()),
				slog.String("question_id", submitted.QuestionID),
				slog.String("instrument", string(submitted.Instrument)))
			return &AnswerRejectedError{Validation: validation}
		}

		// Flagged answers are stored even when invalid so the risk stays visible.
		if !validation.IsValid && len(validation.Flags) == 0 {
			log.Debug("answer rejected",
				slog.String("session_id", session.ID.String()),
				slog.String("question_id", submitted.QuestionID),
				slog.Int("error_count", len(validation.Errors)))
			return &AnswerRejectedError{Validation: validation}
		}

		cleaned := s.engine.CleanAnswerData(submitted)
		existing, err := st.answers.ListBySession(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("failed to load answers: %w", err)
		}
		session.Answers = existing
		if err := session.RecordAnswer(cleaned, s.engine.ExpectedAnswers(session.Category), now); err != nil {
			return err
		}
		if err := st.answers.Create(ctx, &cleaned); err != nil {
			return fmt.Errorf("failed to store answer: %w", err)
		}
		if err := st.sessions.Update(ctx, session); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		updated = session
		storedID = &cleaned.ID
		return nil
	})

	// Alert as soon as a flagged answer is seen, stored or rejected; the
	// session may never be finalized.
	if len(flags) > 0 && (err == nil || errors.Is(err, ErrInvalidAnswer)) {
		log.Warn("flagged answer received",
			slog.String("session_id", sessionID.String()),
			slog.String("question_id", answer.QuestionID),
			slog.Bool("stored", err == nil),
			slog.Any("flags", flags))
		s.emit(ctx, events.TypeRiskFlagged, sessionID, events.RiskFlaggedPayload{
			Category:   instrument,
			Indicators: flags,
			QuestionID: answer.QuestionID,
			AnswerID:   storedID,
		})
	}
	if err != nil {
		return nil, s.wrapError(log, "submit_answer", sessionID, err)
	}

	log.Debug("answer recorded",
		slog.String("session_id", sessionID.String()),
		slog.String("status", string(updated.Status)),
		slog.Float64("progress", updated.Progress))
	return updated, nil
}

// FinalizeSession implements Service.FinalizeSession.
func (s *serviceImpl) FinalizeSession(
	ctx context.Context,
	sessionID uuid.UUID,
	confirmed bool,
) (*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if !confirmed {
		return nil, domain.ErrConfirmationRequired
	}
	now := s.now()

	var completed *domain.Session
	err := s.runInTransaction(ctx, func(ctx context.Context, st txStores) error {
		session, err := st.sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if !session.Status.CanTransition(domain.SessionStatusCompleted) {
			return fmt.Errorf("%w: %s -> %s",
				domain.ErrInvalidTransition, session.Status, domain.SessionStatusCompleted)
		}

		answers, err := st.answers.ListBySession(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("failed to load answers: %w", err)
		}
		session.Answers = answers

		result, err := s.engine.GenerateResult(session.Category, answers)
		if err != nil {
			return err
		}
		if err := session.Complete(result, confirmed, now); err != nil {
			return err
		}
		if err := st.sessions.Update(ctx, session); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		completed = session
		return nil
	})
	if err != nil {
		return nil, s.wrapError(log, "finalize_session", sessionID, err)
	}

	s.cacheResult(ctx, completed.ID, completed.Result)
	s.emitCompletion(ctx, completed)

	log.Info("session completed",
		slog.String("session_id", completed.ID.String()),
		slog.String("label", completed.Result.Label),
		slog.Float64("confidence", completed.Result.Confidence),
		slog.Bool("risk_flag", completed.Result.RiskFlag))
	return completed, nil
}

// AbandonSession implements Service.AbandonSession.
func (s *serviceImpl) AbandonSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	return s.closeSession(ctx, "abandon_session", sessionID, func(session *domain.Session, now time.Time) error {
		return session.Abandon(now)
	})
}

// ExpireSession implements Service.ExpireSession.
func (s *serviceImpl) ExpireSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	return s.closeSession(ctx, "expire_session", sessionID, func(session *domain.Session, now time.Time) error {
		return session.Expire(now)
	})
}

// ExpireStale implements Service.ExpireStale.
func (s *serviceImpl) ExpireStale(ctx context.Context, cutoff time.Time) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var stale []*domain.Session
	for _, status := range []domain.SessionStatus{domain.SessionStatusCreated, domain.SessionStatusInProgress} {
		page, err := s.listAll(ctx, store.SessionFilter{Status: status, UpdatedBefore: cutoff})
		if err != nil {
			return 0, s.wrapError(log, "expire_stale", uuid.Nil, err)
		}
		stale = append(stale, page...)
	}

	expired := 0
	for _, candidate := range stale {
		_, err := s.closeSession(ctx, "expire_session", candidate.ID,
			func(session *domain.Session, now time.Time) error {
				if !session.UpdatedAt.Before(cutoff) {
					return errSessionActive
				}
				return session.Expire(now)
			})
		switch {
		case err == nil:
			expired++
		case errors.Is(err, errSessionActive),
			errors.Is(err, domain.ErrInvalidTransition),
			errors.Is(err, ErrSessionNotFound):
			log.Debug("session no longer stale",
				slog.String("session_id", candidate.ID.String()),
				slog.String("reason", err.Error()))
		default:
			return expired, err
		}
	}

	if expired > 0 {
		log.Info("expired stale sessions",
			slog.Int("count", expired),
			slog.Time("cutoff", cutoff))
	}
	return expired, nil
}

// GetSession implements Service.GetSession.
func (s *serviceImpl) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, s.wrapError(log, "get_session", sessionID, err)
	}
	return session, nil
}

// GetResult implements Service.GetResult.
func (s *serviceImpl) GetResult(ctx context.Context, sessionID uuid.UUID) (*domain.Result, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if s.cache != nil {
		result, err := s.cache.Get(ctx, sessionID)
		if err == nil {
			log.Debug("result served from cache", slog.String("session_id", sessionID.String()))
			return result, nil
		}
		if !errors.Is(err, store.ErrResultNotFound) {
			log.Warn("result cache read failed",
				slog.String("error", err.Error()),
				slog.String("session_id", sessionID.String()))
		}
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, s.wrapError(log, "get_result", sessionID, err)
	}
	if session.Result == nil {
		return nil, fmt.Errorf("%w: session is %s", ErrResultNotAvailable, session.Status)
	}

	s.cacheResult(ctx, session.ID, session.Result)
	return session.Result, nil
}

// Statistics implements Service.Statistics.
func (s *serviceImpl) Statistics(ctx context.Context, filter StatisticsFilter) (domain.Statistics, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	sessions, err := s.listAll(ctx, store.SessionFilter{
		TestTypeID:   filter.TestTypeID,
		Category:     filter.Category,
		StartedAfter: filter.StartedAfter,
	})
	if err != nil {
		return domain.Statistics{}, s.wrapError(log, "statistics", uuid.Nil, err)
	}

	stats := domain.ComputeStatistics(sessions)
	log.Debug("computed statistics",
		slog.Int("total_sessions", stats.TotalSessions),
		slog.Float64("completion_rate", stats.CompletionRate))
	return stats, nil
}

// ExportSession implements Service.ExportSession.
func (s *serviceImpl) ExportSession(
	ctx context.Context,
	sessionID uuid.UUID,
	opts export.Options,
) (*export.Payload, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, s.wrapError(log, "export_session", sessionID, err)
	}

	payload, err := s.exporter.ExportAnswerData(session.ID, session.Category, session.Answers, opts)
	if err != nil {
		return nil, s.wrapError(log, "export_session", sessionID, err)
	}

	log.Debug("session exported",
		slog.String("session_id", sessionID.String()),
		slog.String("format", string(payload.Format)),
		slog.Int("bytes", len(payload.Data)))
	return payload, nil
}

// ScoreSessions implements Service.ScoreSessions.
func (s *serviceImpl) ScoreSessions(ctx context.Context, sessionIDs []uuid.UUID) ([]SessionScore, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	scores := make([]SessionScore, len(sessionIDs))
	items := make([]scoring.BatchItem, 0, len(sessionIDs))
	positions := make([]int, 0, len(sessionIDs))
	for i, id := range sessionIDs {
		scores[i].SessionID = id
		session, err := s.loadSession(ctx, id)
		if err != nil {
			if store.IsNotFoundError(err) {
				scores[i].Err = ErrSessionNotFound
				continue
			}
			return nil, s.wrapError(log, "score_sessions", id, err)
		}
		items = append(items, scoring.BatchItem{
			Key:        id.String(),
			Instrument: session.Category,
			Answers:    session.Answers,
		})
		positions = append(positions, i)
	}

	results, err := s.batch.Score(ctx, items)
	if err != nil {
		return nil, s.wrapError(log, "score_sessions", uuid.Nil, err)
	}
	for j, r := range results {
		scores[positions[j]].Result = r.Result
		scores[positions[j]].Err = r.Err
	}

	log.Debug("scored sessions", slog.Int("count", len(sessionIDs)))
	return scores, nil
}

// closeSession applies a terminal transition to an open session.
func (s *serviceImpl) closeSession(
	ctx context.Context,
	operation string,
	sessionID uuid.UUID,
	apply func(session *domain.Session, now time.Time) error,
) (*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()

	var closed *domain.Session
	err := s.runInTransaction(ctx, func(ctx context.Context, st txStores) error {
		session, err := st.sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := apply(session, now); err != nil {
			return err
		}
		if err := st.sessions.Update(ctx, session); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		closed = session
		return nil
	})
	if err != nil {
		if errors.Is(err, errSessionActive) {
			return nil, err
		}
		return nil, s.wrapError(log, operation, sessionID, err)
	}

	log.Info("session closed",
		slog.String("session_id", closed.ID.String()),
		slog.String("status", string(closed.Status)))
	return closed, nil
}

// loadSession returns a session with its answers attached.
func (s *serviceImpl) loadSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	answers, err := s.answers.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}
	session.Answers = answers
	return session, nil
}

// listAll pages through every session matching filter.
func (s *serviceImpl) listAll(ctx context.Context, filter store.SessionFilter) ([]*domain.Session, error) {
	var all []*domain.Session
	filter.Limit = listPageSize
	for filter.Offset = 0; ; filter.Offset += listPageSize {
		page, err := s.sessions.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < listPageSize {
			return all, nil
		}
	}
}

// cacheResult stores a result in the cache. Failures are logged only.
func (s *serviceImpl) cacheResult(ctx context.Context, sessionID uuid.UUID, result *domain.Result) {
	if s.cache == nil || result == nil {
		return
	}
	if err := s.cache.Set(ctx, sessionID, result); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to cache result",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID.String()))
	}
}

func (s *serviceImpl) emitCompletion(ctx context.Context, session *domain.Session) {
	s.emit(ctx, events.TypeSessionCompleted, session.ID, events.SessionCompletedPayload{
		TestTypeID:  session.TestTypeID,
		Category:    session.Category,
		Label:       session.Result.Label,
		Confidence:  session.Result.Confidence,
		Reliability: session.Result.Reliability,
		TotalTime:   session.TotalTime,
		RiskFlag:    session.Result.RiskFlag,
	})
}

// emit publishes an event. Delivery failures never fail the caller.
func (s *serviceImpl) emit(ctx context.Context, eventType string, sessionID uuid.UUID, payload any) {
	if s.events == nil {
		return
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewEvent(eventType, sessionID, payload)
	if err != nil {
		log.Error("failed to build event",
			slog.String("error", err.Error()),
			slog.String("event_type", eventType))
		return
	}
	if err := s.events.EmitEvent(ctx, event); err != nil {
		log.Error("failed to emit event",
			slog.String("error", err.Error()),
			slog.String("event_type", eventType),
			slog.String("session_id", sessionID.String()))
	}
}

// wrapError maps store errors onto service sentinels and passes domain and
// service errors through unchanged. Anything else becomes a ServiceError.
func (s *serviceImpl) wrapError(log *slog.Logger, operation string, sessionID uuid.UUID, err error) error {
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		log.Debug("session not found", slog.String("session_id", sessionID.String()))
		return ErrSessionNotFound
	case errors.Is(err, ErrInvalidAnswer),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrResultNotAvailable),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrSessionClosed),
		errors.Is(err, domain.ErrResultRequired),
		errors.Is(err, domain.ErrConfirmationRequired),
		errors.Is(err, domain.ErrSessionMismatch),
		errors.Is(err, export.ErrUnsupportedFormat),
		domain.IsConfigurationError(err):
		return err
	}

	log.Error("assessment operation failed",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
		slog.String("session_id", sessionID.String()))
	return NewServiceError(operation, "unexpected failure", err)
}
