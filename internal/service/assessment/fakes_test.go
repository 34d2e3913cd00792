package assessment_test

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/psyche-api/internal/domain"
	"github.com/phrazzld/psyche-api/internal/events"
	"github.com/phrazzld/psyche-api/internal/store"
)

// memSessionStore keeps sessions in memory and hands out copies, the way
// rows come back from the database.
type memSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]domain.Session
	listErr  error
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: map[uuid.UUID]domain.Session{}}
}

func copySession(s domain.Session) *domain.Session {
	s.Answers = []domain.AnswerRecord{}
	return &s
}

func (m *memSessionStore) Create(_ context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := session.Validate(); err != nil {
		return err
	}
	if _, ok := m.sessions[session.ID]; ok {
		return store.ErrDuplicate
	}
	m.sessions[session.ID] = *session
	return nil
}

func (m *memSessionStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	return copySession(s), nil
}

func (m *memSessionStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return m.GetByID(ctx, id)
}

func (m *memSessionStore) Update(_ context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; !ok {
		return store.ErrSessionNotFound
	}
	m.sessions[session.ID] = *session
	return nil
}

func (m *memSessionStore) List(_ context.Context, filter store.SessionFilter) ([]*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}

	var out []*domain.Session
	for _, s := range m.sessions {
		switch {
		case filter.TestTypeID != "" && s.TestTypeID != filter.TestTypeID,
			filter.Category != "" && s.Category != filter.Category,
			filter.Status != "" && s.Status != filter.Status,
			!filter.StartedAfter.IsZero() && s.StartedAt.Before(filter.StartedAfter),
			!filter.UpdatedBefore.IsZero() && !s.UpdatedAt.Before(filter.UpdatedBefore):
			continue
		}
		out = append(out, copySession(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})

	if filter.Offset >= len(out) {
		return []*domain.Session{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memSessionStore) WithTx(*sql.Tx) store.SessionStore { return m }

func (m *memSessionStore) status(id uuid.UUID) domain.SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id].Status
}

type memAnswerStore struct {
	mu       sync.Mutex
	sessions *memSessionStore
	answers  map[uuid.UUID][]domain.AnswerRecord
	ids      map[uuid.UUID]struct{}
}

func newMemAnswerStore(sessions *memSessionStore) *memAnswerStore {
	return &memAnswerStore{
		sessions: sessions,
		answers:  map[uuid.UUID][]domain.AnswerRecord{},
		ids:      map[uuid.UUID]struct{}{},
	}
}

func (m *memAnswerStore) Create(ctx context.Context, answer *domain.AnswerRecord) error {
	if _, err := m.sessions.GetByID(ctx, answer.SessionID); err != nil {
		return store.ErrInvalidEntity
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[answer.ID]; ok {
		return store.ErrAnswerExists
	}
	m.ids[answer.ID] = struct{}{}
	m.answers[answer.SessionID] = append(m.answers[answer.SessionID], answer.Clone())
	return nil
}

func (m *memAnswerStore) ListBySession(_ context.Context, sessionID uuid.UUID) ([]domain.AnswerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AnswerRecord, 0, len(m.answers[sessionID]))
	for _, a := range m.answers[sessionID] {
		out = append(out, a.Clone())
	}
	return out, nil
}

func (m *memAnswerStore) WithTx(*sql.Tx) store.AnswerStore { return m }

func (m *memAnswerStore) count(sessionID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.answers[sessionID])
}

var errCacheDown = errors.New("cache unavailable")

type memResultCache struct {
	mu      sync.Mutex
	results map[uuid.UUID]*domain.Result
	hits    int
	down    bool
}

func newMemResultCache() *memResultCache {
	return &memResultCache{results: map[uuid.UUID]*domain.Result{}}
}

func (c *memResultCache) Get(_ context.Context, id uuid.UUID) (*domain.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil, errCacheDown
	}
	r, ok := c.results[id]
	if !ok {
		return nil, store.ErrResultNotFound
	}
	c.hits++
	return r, nil
}

func (c *memResultCache) Set(_ context.Context, id uuid.UUID, result *domain.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return errCacheDown
	}
	c.results[id] = result
	return nil
}

func (c *memResultCache) Delete(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.results, id)
	return nil
}

func (c *memResultCache) has(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.results[id]
	return ok
}

type eventRecorder struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *eventRecorder) HandleEvent(_ context.Context, event *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *eventRecorder) ofType(eventType string) []*events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*events.Event
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
