package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/psyche-api/internal/api/shared"
	"github.com/phrazzld/psyche-api/internal/domain"
	"github.com/phrazzld/psyche-api/internal/domain/scoring"
	"github.com/phrazzld/psyche-api/internal/platform/logger"
	"github.com/phrazzld/psyche-api/internal/service/assessment"
)

// ScoringHandler exposes the stateless engine operations: validating,
// cleaning and scoring answer sets that are not stored.
type ScoringHandler struct {
	engine  scoring.Engine
	service assessment.Service
	logger  *slog.Logger
}

// NewScoringHandler creates a ScoringHandler. service is used by the batch
// endpoint only.
func NewScoringHandler(engine scoring.Engine, service assessment.Service, logger *slog.Logger) *ScoringHandler {
	if engine == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("engine cannot be nil for ScoringHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoringHandler{
		engine:  engine,
		service: service,
		logger:  logger.With(slog.String("component", "scoring_handler")),
	}
}

// ValidateAnswers handles POST /api/answers/validate.
// Invalid answers are reported in the body; the response is still 200.
func (h *ScoringHandler) ValidateAnswers(w http.ResponseWriter, r *http.Request) {
	var req AnswerBatchRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp := ValidateAnswersResponse{Results: make([]scoring.ValidationResult, len(req.Answers))}
	for i, a := range req.Answers {
		result := h.engine.ValidateAnswerData(a.toDomain(uuid.Nil, ""))
		resp.Results[i] = result
		if result.IsValid {
			resp.Valid++
		} else {
			resp.Invalid++
		}
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("validated answers",
		slog.Int("valid", resp.Valid),
		slog.Int("invalid", resp.Invalid))
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// CleanAnswers handles POST /api/answers/clean.
func (h *ScoringHandler) CleanAnswers(w http.ResponseWriter, r *http.Request) {
	var req AnswerBatchRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	answers := make([]domain.AnswerRecord, len(req.Answers))
	for i, a := range req.Answers {
		answers[i] = a.toDomain(uuid.Nil, "")
	}
	shared.RespondWithJSON(w, r, http.StatusOK, CleanAnswersResponse{
		Answers: h.engine.CleanAnswerDataBatch(answers),
	})
}

// CalculateDimensionScores handles POST /api/scoring/dimensions.
func (h *ScoringHandler) CalculateDimensionScores(w http.ResponseWriter, r *http.Request) {
	var req ScoringRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	instrument, answers := req.answers()
	scores, err := h.engine.CalculateDimensionScores(instrument, answers)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to calculate dimension scores")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, DimensionScoresResponse{
		Instrument:      instrument,
		DimensionScores: scores,
	})
}

// AnalyzeAnswerPattern handles POST /api/scoring/pattern.
func (h *ScoringHandler) AnalyzeAnswerPattern(w http.ResponseWriter, r *http.Request) {
	var req ScoringRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	instrument, answers := req.answers()
	pattern, err := h.engine.AnalyzeAnswerPattern(instrument, answers)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to analyze answer pattern")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, pattern)
}

// GenerateResult handles POST /api/scoring/result.
func (h *ScoringHandler) GenerateResult(w http.ResponseWriter, r *http.Request) {
	var req ScoringRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	instrument, answers := req.answers()
	result, err := h.engine.GenerateResult(instrument, answers)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate result")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("generated result",
		slog.String("instrument", string(instrument)),
		slog.String("label", result.Label),
		slog.Bool("risk_flag", result.RiskFlag))
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// ScoreSessions handles POST /api/scoring/batch. Stored sessions are scored
// in parallel and left unchanged.
func (h *ScoringHandler) ScoreSessions(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		shared.RespondWithError(w, r, http.StatusNotImplemented, "Batch scoring is not available")
		return
	}
	var req BatchScoreRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	scores, err := h.service.ScoreSessions(r.Context(), req.SessionIDs)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to score sessions")
		return
	}

	resp := BatchScoreResponse{Results: make([]BatchScoreItem, len(scores))}
	for i, s := range scores {
		resp.Results[i] = BatchScoreItem{SessionID: s.SessionID.String(), Result: s.Result}
		if s.Err != nil {
			resp.Results[i].Error = GetSafeErrorMessage(s.Err)
		}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
