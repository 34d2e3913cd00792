package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/psyche-api/internal/domain"
)

// Event types.
const (
	TypeSessionCompleted = "session.completed"
	TypeRiskFlagged      = "risk.flagged"
)

// Event is one domain event. Payload holds the type-specific body as JSON.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	SessionID uuid.UUID       `json:"session_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// SessionCompletedPayload is the body of a session.completed event.
type SessionCompletedPayload struct {
	TestTypeID  string            `json:"test_type_id"`
	Category    domain.Instrument `json:"category"`
	Label       string            `json:"label"`
	Confidence  float64           `json:"confidence"`
	Reliability float64           `json:"reliability"`
	TotalTime   time.Duration     `json:"total_time"`
	RiskFlag    bool              `json:"risk_flag"`
}

// RiskFlaggedPayload is the body of a risk.flagged event. AnswerID is nil
// when the flagged answer was rejected rather than stored.
type RiskFlaggedPayload struct {
	Category   domain.Instrument `json:"category"`
	Indicators []string          `json:"indicators"`
	QuestionID string            `json:"question_id"`
	AnswerID   *uuid.UUID        `json:"answer_id,omitempty"`
}

// NewEvent creates an event with a fresh ID and the payload encoded as JSON.
func NewEvent(eventType string, sessionID uuid.UUID, payload any) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		SessionID: sessionID,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// UnmarshalPayload decodes the event payload into v.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler processes events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventEmitter publishes events to registered handlers.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *Event) error
}
