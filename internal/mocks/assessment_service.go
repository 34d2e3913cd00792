package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/psyche-api/internal/domain"
	"github.com/phrazzld/psyche-api/internal/export"
	"github.com/phrazzld/psyche-api/internal/service/assessment"
)

// MockAssessmentService implements assessment.Service for testing.
type MockAssessmentService struct {
	StartSessionFn    func(ctx context.Context, req assessment.StartSessionRequest) (*domain.Session, error)
	SubmitAnswerFn    func(ctx context.Context, sessionID uuid.UUID, answer domain.AnswerRecord) (*domain.Session, error)
	FinalizeSessionFn func(ctx context.Context, sessionID uuid.UUID, confirmed bool) (*domain.Session, error)
	AbandonSessionFn  func(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error)
	ExpireSessionFn   func(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error)
	ExpireStaleFn     func(ctx context.Context, cutoff time.Time) (int, error)
	GetSessionFn      func(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error)
	GetResultFn       func(ctx context.Context, sessionID uuid.UUID) (*domain.Result, error)
	StatisticsFn      func(ctx context.Context, filter assessment.StatisticsFilter) (domain.Statistics, error)
	ExportSessionFn   func(ctx context.Context, sessionID uuid.UUID, opts export.Options) (*export.Payload, error)
	ScoreSessionsFn   func(ctx context.Context, sessionIDs []uuid.UUID) ([]assessment.SessionScore, error)

	// Default return values
	Session      *domain.Session
	Result       *domain.Result
	DefaultError error
}

var _ assessment.Service = (*MockAssessmentService)(nil)

// StartSession implements assessment.Service.StartSession.
func (m *MockAssessmentService) StartSession(
	ctx context.Context,
	req assessment.StartSessionRequest,
) (*domain.Session, error) {
	if m.StartSessionFn != nil {
		return m.StartSessionFn(ctx, req)
	}
	return m.Session, m.DefaultError
}

// SubmitAnswer implements assessment.Service.SubmitAnswer.
func (m *MockAssessmentService) SubmitAnswer(
	ctx context.Context,
	sessionID uuid.UUID,
	answer domain.AnswerRecord,
) (*domain.Session, error) {
	if m.SubmitAnswerFn != nil {
		return m.SubmitAnswerFn(ctx, sessionID, answer)
	}
	return m.Session, m.DefaultError
}

// FinalizeSession implements assessment.Service.FinalizeSession.
func (m *MockAssessmentService) FinalizeSession(
	ctx context.Context,
	sessionID uuid.UUID,
	confirmed bool,
) (*domain.Session, error) {
	if m.FinalizeSessionFn != nil {
		return m.FinalizeSessionFn(ctx, sessionID, confirmed)
	}
	return m.Session, m.DefaultError
}

// AbandonSession implements assessment.Service.AbandonSession.
func (m *MockAssessmentService) AbandonSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	if m.AbandonSessionFn != nil {
		return m.AbandonSessionFn(ctx, sessionID)
	}
	return m.Session, m.DefaultError
}

// ExpireSession implements assessment.Service.ExpireSession.
func (m *MockAssessmentService) ExpireSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	if m.ExpireSessionFn != nil {
		return m.ExpireSessionFn(ctx, sessionID)
	}
	return m.Session, m.DefaultError
}

// ExpireStale implements assessment.Service.ExpireStale.
func (m *MockAssessmentService) ExpireStale(ctx context.Context, cutoff time.Time) (int, error) {
	if m.ExpireStaleFn != nil {
		return m.ExpireStaleFn(ctx, cutoff)
	}
	return 0, m.DefaultError
}

// GetSession implements assessment.Service.GetSession.
func (m *MockAssessmentService) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	if m.GetSessionFn != nil {
		return m.GetSessionFn(ctx, sessionID)
	}
	return m.Session, m.DefaultError
}

// GetResult implements assessment.Service.GetResult.
func (m *MockAssessmentService) GetResult(ctx context.Context, sessionID uuid.UUID) (*domain.Result, error) {
	if m.GetResultFn != nil {
		return m.GetResultFn(ctx, sessionID)
	}
	return m.Result, m.DefaultError
}

// Statistics implements assessment.Service.Statistics.
func (m *MockAssessmentService) Statistics(
	ctx context.Context,
	filter assessment.StatisticsFilter,
) (domain.Statistics, error) {
	if m.StatisticsFn != nil {
		return m.StatisticsFn(ctx, filter)
	}
	return domain.Statistics{}, m.DefaultError
}

// ExportSession implements assessment.Service.ExportSession.
func (m *MockAssessmentService) ExportSession(
	ctx context.Context,
	sessionID uuid.UUID,
	opts export.Options,
) (*export.Payload, error) {
	if m.ExportSessionFn != nil {
		return m.ExportSessionFn(ctx, sessionID, opts)
	}
	return nil, m.DefaultError
}

// ScoreSessions implements assessment.Service.ScoreSessions.
func (m *MockAssessmentService) ScoreSessions(
	ctx context.Context,
	sessionIDs []uuid.UUID,
) ([]assessment.SessionScore, error) {
	if m.ScoreSessionsFn != nil {
		return m.ScoreSessionsFn(ctx, sessionIDs)
	}
	return nil, m.DefaultError
}
