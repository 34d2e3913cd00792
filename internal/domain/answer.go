package domain

import (
	"errors"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Answer record construction errors.
var (
	ErrEmptyAnswerSessionID  = errors.New("answer session ID cannot be empty")
	ErrEmptyAnswerQuestionID = errors.New("answer question ID cannot be empty")
)

// AnswerRecord is one submitted answer. Records are immutable once created:
// a correction is submitted as a new record for the same question, and the
// latest record per question wins when an answer set is cleaned.
type AnswerRecord struct {
	ID         uuid.UUID  `json:"id"`
	SessionID  uuid.UUID  `json:"session_id"`
	QuestionID string     `json:"question_id"`
	Instrument Instrument `json:"instrument"`
	Dimension  string     `json:"dimension"`

	// Value is the raw numeric answer (Likert value, item score, domain score).
	Value *float64 `json:"value,omitempty"`
	// Preference is the chosen pole for type inventory answers.
	Preference string `json:"preference,omitempty"`
	// Satisfaction and Importance are optional wellbeing ratings.
	Satisfaction *float64 `json:"satisfaction,omitempty"`
	Importance   *float64 `json:"importance,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty"`

	Text         string         `json:"text,omitempty"`
	ResponseTime int64          `json:"response_time_ms"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// NewAnswerRecord creates an AnswerRecord with a fresh ID and creation time.
// Optional fields are set by the caller on the returned value before it is
// handed to the engine.
func NewAnswerRecord(
	sessionID uuid.UUID,
	questionID string,
	instrument Instrument,
	dimension string,
) (AnswerRecord, error) {
	if sessionID == uuid.Nil {
		return AnswerRecord{}, ErrEmptyAnswerSessionID
	}
	if questionID == "" {
		return AnswerRecord{}, ErrEmptyAnswerQuestionID
	}
	return AnswerRecord{
		ID:         uuid.New(),
		SessionID:  sessionID,
		QuestionID: questionID,
		Instrument: instrument,
		Dimension:  dimension,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Clone returns a deep copy so derived records never share pointers or maps
// with the original submission.
func (a AnswerRecord) Clone() AnswerRecord {
	out := a
	out.Value = cloneFloat(a.Value)
	out.Satisfaction = cloneFloat(a.Satisfaction)
	out.Importance = cloneFloat(a.Importance)
	out.Confidence = cloneFloat(a.Confidence)
	if a.Metadata != nil {
		out.Metadata = maps.Clone(a.Metadata)
	}
	return out
}

// ConfidenceOr returns the answer confidence or def when none was given.
func (a AnswerRecord) ConfidenceOr(def float64) float64 {
	if a.Confidence == nil {
		return def
	}
	return *a.Confidence
}

// Float returns a pointer to v, for populating optional numeric fields.
func Float(v float64) *float64 {
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
