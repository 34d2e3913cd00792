package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the lifecycle state of a test session.
type SessionStatus string

// Possible session status values.
const (
	SessionStatusCreated    SessionStatus = "created"
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusAbandoned  SessionStatus = "abandoned"
	SessionStatusExpired    SessionStatus = "expired"
)

// allowedTransitions lists every forward move. Anything absent is rejected,
// including created -> completed.
var allowedTransitions = map[SessionStatus][]SessionStatus{
	SessionStatusCreated: {
		SessionStatusInProgress,
		SessionStatusAbandoned,
		SessionStatusExpired,
	},
	SessionStatusInProgress: {
		SessionStatusCompleted,
		SessionStatusAbandoned,
		SessionStatusExpired,
	},
}

// IsValid reports whether the status is a known SessionStatus.
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusCreated, SessionStatusInProgress, SessionStatusCompleted,
		SessionStatusAbandoned, SessionStatusExpired:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusAbandoned || s == SessionStatusExpired
}

// CanTransition reports whether moving from s to next is allowed.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Session validation errors.
var (
	ErrEmptySessionID  = fmt.Errorf("%w: session ID cannot be empty", ErrValidation)
	ErrEmptyTestTypeID = fmt.Errorf("%w: session test type ID cannot be empty", ErrValidation)
	ErrInvalidCategory = fmt.Errorf("%w: session category is not a supported instrument", ErrValidation)
	ErrInvalidStatus   = fmt.Errorf("%w: invalid session status", ErrValidation)
)

// Session is one attempt at an instrument by one respondent. It normalizes
// every test category into the same shape so sessions can be queried and
// aggregated together.
type Session struct {
	ID          uuid.UUID      `json:"id"`
	TestTypeID  string         `json:"test_type_id"`
	Category    Instrument     `json:"category"`
	Status      SessionStatus  `json:"status"`
	Answers     []AnswerRecord `json:"answers"`
	Result      *Result        `json:"result,omitempty"`
	Progress    float64        `json:"progress"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	TotalTime   time.Duration  `json:"total_time"`
}

// NewSession creates a session in the created state.
func NewSession(testTypeID string, category Instrument) (*Session, error) {
	now := time.Now().UTC()
	s := &Session{
		ID:         uuid.New(),
		TestTypeID: testTypeID,
		Category:   category,
		Status:     SessionStatusCreated,
		Answers:    []AnswerRecord{},
		StartedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks if the Session has valid data.
func (s *Session) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptySessionID
	}
	if s.TestTypeID == "" {
		return ErrEmptyTestTypeID
	}
	if !s.Category.IsValid() {
		return ErrInvalidCategory
	}
	if !s.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// RecordAnswer appends an answer and advances created -> in_progress on the
// first write. expected is the number of questions in the instrument and is
// used to refresh Progress.
func (s *Session) RecordAnswer(answer AnswerRecord, expected int, now time.Time) error {
	if s.Status.IsTerminal() {
		return fmt.Errorf("%w: status %s", ErrSessionClosed, s.Status)
	}
	if answer.SessionID != s.ID {
		return ErrSessionMismatch
	}
	if s.Status == SessionStatusCreated {
		if err := s.transition(SessionStatusInProgress, now); err != nil {
			return err
		}
	}
	s.Answers = append(s.Answers, answer)
	s.Progress = progress(s.Answers, expected)
	s.UpdatedAt = now
	return nil
}

// Complete attaches the result and moves the session to completed. Both a
// non-nil result and explicit confirmation are required.
func (s *Session) Complete(result *Result, confirmed bool, now time.Time) error {
	if result == nil {
		return ErrResultRequired
	}
	if !confirmed {
		return ErrConfirmationRequired
	}
	if err := s.transition(SessionStatusCompleted, now); err != nil {
		return err
	}
	s.Result = result
	return nil
}

// Abandon marks the session abandoned. The timeout policy belongs to the caller.
func (s *Session) Abandon(now time.Time) error {
	return s.transition(SessionStatusAbandoned, now)
}

// Expire marks the session expired. The timeout policy belongs to the caller.
func (s *Session) Expire(now time.Time) error {
	return s.transition(SessionStatusExpired, now)
}

// Duration returns the elapsed time between start and end, or zero while the
// session is still open.
func (s *Session) Duration() time.Duration {
	if s.CompletedAt == nil {
		return 0
	}
	return s.CompletedAt.Sub(s.StartedAt)
}

func (s *Session) transition(next SessionStatus, now time.Time) error {
	if !s.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, next)
	}
	s.Status = next
	s.UpdatedAt = now
	if next.IsTerminal() {
		end := now
		s.CompletedAt = &end
		s.TotalTime = now.Sub(s.StartedAt)
	}
	return nil
}

// progress is the share of distinct questions answered, capped at 1.
func progress(answers []AnswerRecord, expected int) float64 {
	if expected <= 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		seen[a.QuestionID] = struct{}{}
	}
	p := float64(len(seen)) / float64(expected)
	if p > 1 {
		return 1
	}
	return p
}
