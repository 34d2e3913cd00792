package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/phrazzld/psyche-api/internal/api/shared"
	"github.com/phrazzld/psyche-api/internal/domain"
	"github.com/phrazzld/psyche-api/internal/export"
	"github.com/phrazzld/psyche-api/internal/platform/logger"
	"github.com/phrazzld/psyche-api/internal/service/assessment"
)

// SessionHandler handles session lifecycle, result, export and statistics requests.
type SessionHandler struct {
	service assessment.Service
	logger  *slog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(service assessment.Service, logger *slog.Logger) *SessionHandler {
	if service == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("service cannot be nil for SessionHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{
		service: service,
		logger:  logger.With(slog.String("component", "session_handler")),
	}
}

// CreateSession handles POST /api/sessions.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.service.StartSession(r.Context(), assessment.StartSessionRequest{
		TestTypeID: req.TestTypeID,
		Category:   domain.Instrument(req.Category),
		Metadata:   req.Metadata,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start session")
		return
	}

	w.Header().Set("Location", "/api/sessions/"+session.ID.String())
	shared.RespondWithJSON(w, r, http.StatusCreated, sessionToResponse(session, false))
}

// GetSession handles GET /api/sessions/{id}.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDFromPath(w, r)
	if !ok {
		return
	}

	session, err := h.service.GetSession(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(session, true))
}

// SubmitAnswer handles POST /api/sessions/{id}/answers.
// A rejected answer returns 422 with the validation result as details.
func (h *SessionHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDFromPath(w, r)
	if !ok {
		return
	}
	var req AnswerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.service.SubmitAnswer(r.Context(), id, req.toDomain(id, ""))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit answer")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, sessionToResponse(session, false))
}

// CompleteSession handles POST /api/sessions/{id}/complete.
func (h *SessionHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDFromPath(w, r)
	if !ok {
		return
	}
	var req CompleteSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.service.FinalizeSession(r.Context(), id, req.Confirm)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to complete session")
		return
	}

	log := logger.FromContextOrDefault(r.Context(), h.logger)
	log.Debug("session completed via API",
		slog.String("session_id", session.ID.String()),
		slog.String("label", session.Result.Label))
	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(session, false))
}

// AbandonSession handles POST /api/sessions/{id}/abandon.
func (h *SessionHandler) AbandonSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDFromPath(w, r)
	if !ok {
		return
	}
	session, err := h.service.AbandonSession(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to abandon session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(session, false))
}

// ExpireSession handles POST /api/sessions/{id}/expire.
func (h *SessionHandler) ExpireSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDFromPath(w, r)
	if !ok {
		return
	}
	session, err := h.service.ExpireSession(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to expire session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(session, false))
}

// GetResult handles GET /api/sessions/{id}/result.
func (h *SessionHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDFromPath(w, r)
	if !ok {
		return
	}
	result, err := h.service.GetResult(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get result")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// ExportSession handles GET /api/sessions/{id}/export.
// Query parameters: format (json, csv, xml), language, include_metadata,
// include_timestamps, include_calculations and compress.
func (h *SessionHandler) ExportSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDFromPath(w, r)
	if !ok {
		return
	}
	opts, err := exportOptions(r.URL.Query())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	payload, err := h.service.ExportSession(r.Context(), id, opts)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to export session")
		return
	}

	w.Header().Set("Content-Type", payload.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", payload.Filename))
	w.Header().Set("Content-Language", payload.Language)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload.Data); err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Error("failed to write export",
			slog.String("error", err.Error()),
			slog.String("session_id", id.String()))
	}
}

// GetStatistics handles GET /api/statistics.
// Query parameters: test_type_id, category and started_after (RFC 3339).
func (h *SessionHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := assessment.StatisticsFilter{
		TestTypeID: q.Get("test_type_id"),
		Category:   domain.Instrument(q.Get("category")),
	}
	if filter.Category != "" && !filter.Category.IsValid() {
		HandleAPIError(w, r, fmt.Errorf("%w: unknown category", domain.ErrValidation), "")
		return
	}
	if v := q.Get("started_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			HandleAPIError(w, r, fmt.Errorf("%w: started_after must be RFC 3339", domain.ErrValidation), "")
			return
		}
		filter.StartedAfter = t.UTC()
	}

	stats, err := h.service.Statistics(r.Context(), filter)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute statistics")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

func exportOptions(q url.Values) (export.Options, error) {
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		return export.Options{}, err
	}
	opts := export.Options{Format: format, Language: q.Get("language")}

	flags := []struct {
		name string
		dst  *bool
	}{
		{"include_metadata", &opts.IncludeMetadata},
		{"include_timestamps", &opts.IncludeTimestamps},
		{"include_calculations", &opts.IncludeCalculations},
		{"compress", &opts.Compress},
	}
	for _, f := range flags {
		v := q.Get(f.name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return export.Options{}, fmt.Errorf("%w: %s must be a boolean", domain.ErrValidation, f.name)
		}
		*f.dst = b
	}
	return opts, nil
}
