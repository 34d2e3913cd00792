package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/psyche-api/internal/domain"
	"github.com/phrazzld/psyche-api/internal/domain/scoring"
)

// AnswerRequest is one raw answer as submitted by a client. Range checks
// belong to the engine's validator, so only shape is enforced here.
// ID and CreatedAt only order answers on the stateless endpoints; answers
// stored in a session get both from the server.
type AnswerRequest struct {
	ID           *uuid.UUID     `json:"id,omitempty"`
	QuestionID   string         `json:"question_id"             validate:"required,max=64"`
	Instrument   string         `json:"instrument,omitempty"    validate:"max=64"`
	Dimension    string         `json:"dimension,omitempty"     validate:"max=64"`
	Value        *float64       `json:"value,omitempty"`
	Preference   string         `json:"preference,omitempty"    validate:"max=16"`
	Satisfaction *float64       `json:"satisfaction,omitempty"`
	Importance   *float64       `json:"importance,omitempty"`
	Confidence   *float64       `json:"confidence,omitempty"`
	Text         string         `json:"text,omitempty"          validate:"max=20000"`
	ResponseTime int64          `json:"response_time_ms"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    *time.Time     `json:"created_at,omitempty"`
}

// toDomain builds an AnswerRecord. An empty instrument falls back to def.
func (a AnswerRequest) toDomain(sessionID uuid.UUID, def domain.Instrument) domain.AnswerRecord {
	record := domain.AnswerRecord{
		SessionID:    sessionID,
		QuestionID:   a.QuestionID,
		Instrument:   domain.Instrument(a.Instrument),
		Dimension:    a.Dimension,
		Value:        a.Value,
		Preference:   a.Preference,
		Satisfaction: a.Satisfaction,
		Importance:   a.Importance,
		Confidence:   a.Confidence,
		Text:         a.Text,
		ResponseTime: a.ResponseTime,
		Metadata:     a.Metadata,
	}
	if a.ID != nil {
		record.ID = *a.ID
	}
	if a.CreatedAt != nil {
		record.CreatedAt = a.CreatedAt.UTC()
	}
	if record.Instrument == "" {
		record.Instrument = def
	}
	return record
}

// AnswerBatchRequest carries answers for the stateless answer endpoints.
type AnswerBatchRequest struct {
	Answers []AnswerRequest `json:"answers" validate:"required,min=1,max=1000,dive"`
}

// ValidateAnswersResponse returns one validation result per answer, in order.
type ValidateAnswersResponse struct {
	Results []scoring.ValidationResult `json:"results"`
	Valid   int                        `json:"valid"`
	Invalid int                        `json:"invalid"`
}

// CleanAnswersResponse returns the cleaned, de-duplicated answers.
type CleanAnswersResponse struct {
	Answers []domain.AnswerRecord `json:"answers"`
}

// ScoringRequest asks the engine to score an answer set directly.
type ScoringRequest struct {
	Instrument string          `json:"instrument" validate:"required,max=64"`
	SessionID  *uuid.UUID      `json:"session_id,omitempty"`
	Answers    []AnswerRequest `json:"answers"    validate:"max=1000,dive"`
}

func (s ScoringRequest) answers() (domain.Instrument, []domain.AnswerRecord) {
	instrument := domain.Instrument(s.Instrument)
	sessionID := uuid.Nil
	if s.SessionID != nil {
		sessionID = *s.SessionID
	}
	out := make([]domain.AnswerRecord, len(s.Answers))
	for i, a := range s.Answers {
		out[i] = a.toDomain(sessionID, instrument)
	}
	return instrument, out
}

// DimensionScoresResponse wraps the per-dimension scores.
type DimensionScoresResponse struct {
	Instrument      domain.Instrument       `json:"instrument"`
	DimensionScores []domain.DimensionScore `json:"dimension_scores"`
}

// BatchScoreRequest lists stored sessions to score.
type BatchScoreRequest struct {
	SessionIDs []uuid.UUID `json:"session_ids" validate:"required,min=1,max=200"`
}

// BatchScoreItem is the outcome for one session of a batch.
type BatchScoreItem struct {
	SessionID string         `json:"session_id"`
	Result    *domain.Result `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// BatchScoreResponse lists the batch outcomes in request order.
type BatchScoreResponse struct {
	Results []BatchScoreItem `json:"results"`
}

// CreateSessionRequest starts a session.
type CreateSessionRequest struct {
	TestTypeID string         `json:"test_type_id,omitempty" validate:"max=128"`
	Category   string         `json:"category"               validate:"required,oneof=type_inventory clinical_screening emotional_competency wellbeing"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// CompleteSessionRequest finalizes a session. Confirm must be true.
type CompleteSessionRequest struct {
	Confirm bool `json:"confirm"`
}

// SessionResponse is the API view of a session.
type SessionResponse struct {
	ID          string                `json:"id"`
	TestTypeID  string                `json:"test_type_id"`
	Category    domain.Instrument     `json:"category"`
	Status      domain.SessionStatus  `json:"status"`
	Progress    float64               `json:"progress"`
	AnswerCount int                   `json:"answer_count"`
	Answers     []domain.AnswerRecord `json:"answers,omitempty"`
	Result      *domain.Result        `json:"result,omitempty"`
	Metadata    map[string]any        `json:"metadata,omitempty"`
	StartedAt   time.Time             `json:"started_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
	TotalTimeMS int64                 `json:"total_time_ms"`
}

// sessionToResponse converts a domain session. Answers are included only
// when withAnswers is set.
func sessionToResponse(s *domain.Session, withAnswers bool) SessionResponse {
	resp := SessionResponse{
		ID:          s.ID.String(),
		TestTypeID:  s.TestTypeID,
		Category:    s.Category,
		Status:      s.Status,
		Progress:    s.Progress,
		AnswerCount: len(s.Answers),
		Result:      s.Result,
		Metadata:    s.Metadata,
		StartedAt:   s.StartedAt,
		UpdatedAt:   s.UpdatedAt,
		CompletedAt: s.CompletedAt,
		TotalTimeMS: s.TotalTime.Milliseconds(),
	}
	if withAnswers {
		resp.Answers = s.Answers
	}
	return resp
}

// HealthResponse reports service health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}
