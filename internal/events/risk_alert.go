package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/psyche-api/internal/platform/logger"
)

// RiskAlertHandler logs risk.flagged events at WARN so they surface in
// alerting pipelines. It never logs answer content, only the indicators.
type RiskAlertHandler struct {
	logger *slog.Logger
}

// NewRiskAlertHandler creates a RiskAlertHandler.
func NewRiskAlertHandler(l *slog.Logger) *RiskAlertHandler {
	if l == nil {
		l = slog.Default()
	}
	return &RiskAlertHandler{logger: l.With("component", "risk_alert")}
}

// HandleEvent implements EventHandler.
func (h *RiskAlertHandler) HandleEvent(ctx context.Context, event *Event) error {
	if event.Type != TypeRiskFlagged {
		return nil
	}
	var payload RiskFlaggedPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to decode risk payload: %w", err)
	}
	logger.FromContextOrDefault(ctx, h.logger).Warn("risk indicators flagged",
		slog.String("event_id", event.ID.String()),
		slog.String("session_id", event.SessionID.String()),
		slog.String("category", string(payload.Category)),
		slog.String("question_id", payload.QuestionID),
		slog.Bool("stored", payload.AnswerID != nil),
		slog.Any("indicators", payload.Indicators))
	return nil
}
