//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/psyche-api/internal/domain"
	"github.com/phrazzld/psyche-api/internal/platform/postgres"
	"github.com/phrazzld/psyche-api/internal/store"
	"github.com/phrazzld/psyche-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T, category domain.Instrument) *domain.Session {
	t.Helper()
	s, err := domain.NewSession("test-"+string(category), category)
	require.NoError(t, err)
	s.StartedAt = s.StartedAt.Truncate(time.Millisecond)
	s.UpdatedAt = s.StartedAt
	return s
}

func TestSessionStoreRoundTrip(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		sessions := postgres.NewPostgresSessionStore(db, nil).WithTx(tx)

		s := newSession(t, domain.InstrumentWellbeing)
		s.Metadata = map[string]any{"channel": "web"}
		require.NoError(t, sessions.Create(ctx, s))

		got, err := sessions.GetByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
		assert.Equal(t, domain.SessionStatusCreated, got.Status)
		assert.Equal(t, "web", got.Metadata["channel"])
		assert.Nil(t, got.Result)
		assert.Empty(t, got.Answers)

		now := s.StartedAt.Add(90 * time.Second)
		answer, err := domain.NewAnswerRecord(s.ID, "wb-01", domain.InstrumentWellbeing, domain.DomainPhysical)
		require.NoError(t, err)
		require.NoError(t, got.RecordAnswer(answer, 15, now))
		result := &domain.Result{Instrument: domain.InstrumentWellbeing, Label: "good", Overall: 6.5}
		require.NoError(t, got.Complete(result, true, now))
		require.NoError(t, sessions.Update(ctx, got))

		locked, err := sessions.GetForUpdate(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SessionStatusCompleted, locked.Status)
		require.NotNil(t, locked.Result)
		assert.Equal(t, "good", locked.Result.Label)
		require.NotNil(t, locked.CompletedAt)
		assert.Equal(t, 90*time.Second, locked.TotalTime)
		assert.InDelta(t, 1.0/15.0, locked.Progress, 1e-9)
	})
}

func TestSessionStoreNotFound(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)
	ctx := context.Background()
	sessions := postgres.NewPostgresSessionStore(db, nil)

	_, err := sessions.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	missing := newSession(t, domain.InstrumentClinicalScreening)
	err = sessions.Update(ctx, missing)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestSessionStoreList(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		sessions := postgres.NewPostgresSessionStore(tx, nil)
		testType := "list-" + uuid.NewString()

		base := time.Now().UTC().Truncate(time.Millisecond)
		for i, category := range []domain.Instrument{
			domain.InstrumentWellbeing,
			domain.InstrumentWellbeing,
			domain.InstrumentTypeInventory,
		} {
			s := newSession(t, category)
			s.TestTypeID = testType
			s.StartedAt = base.Add(time.Duration(i) * time.Minute)
			s.UpdatedAt = s.StartedAt
			require.NoError(t, sessions.Create(ctx, s))
		}

		all, err := sessions.List(ctx, store.SessionFilter{TestTypeID: testType})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.True(t, all[0].StartedAt.After(all[1].StartedAt), "newest first")

		wellbeing, err := sessions.List(ctx, store.SessionFilter{
			TestTypeID: testType,
			Category:   domain.InstrumentWellbeing,
		})
		require.NoError(t, err)
		assert.Len(t, wellbeing, 2)

		stale, err := sessions.List(ctx, store.SessionFilter{
			TestTypeID:    testType,
			Status:        domain.SessionStatusCreated,
			UpdatedBefore: base.Add(30 * time.Second),
		})
		require.NoError(t, err)
		assert.Len(t, stale, 1)

		page, err := sessions.List(ctx, store.SessionFilter{TestTypeID: testType, Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, all[1].ID, page[0].ID)
	})
}

func TestAnswerStore(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		sessions := postgres.NewPostgresSessionStore(tx, nil)
		answers := postgres.NewPostgresAnswerStore(db, nil).WithTx(tx)

		s := newSession(t, domain.InstrumentEmotionalCompetency)
		require.NoError(t, sessions.Create(ctx, s))

		first, err := domain.NewAnswerRecord(s.ID, "ec-01", domain.InstrumentEmotionalCompetency, domain.DimensionSelfAwareness)
		require.NoError(t, err)
		first.Value = domain.Float(4)
		first.Confidence = domain.Float(0.8)
		first.Metadata = map[string]any{"device": "mobile"}
		first.ResponseTime = 2100

		second, err := domain.NewAnswerRecord(s.ID, "ec-02", domain.InstrumentEmotionalCompetency, domain.DimensionSelfAwareness)
		require.NoError(t, err)
		second.Value = domain.Float(2)

		require.NoError(t, answers.Create(ctx, &first))
		require.NoError(t, answers.Create(ctx, &second))

		got, err := answers.ListBySession(ctx, s.ID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, first.ID, got[0].ID, "submission order")
		assert.Equal(t, 4.0, *got[0].Value)
		assert.Equal(t, 0.8, *got[0].Confidence)
		assert.Nil(t, got[0].Satisfaction)
		assert.Equal(t, "mobile", got[0].Metadata["device"])
		assert.Equal(t, int64(2100), got[0].ResponseTime)
		assert.Nil(t, got[1].Metadata)

		err = answers.Create(ctx, &first)
		assert.ErrorIs(t, err, store.ErrAnswerExists)
	})
}

func TestAnswerStoreRejectsUnknownSession(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		answers := postgres.NewPostgresAnswerStore(tx, nil)
		orphan, err := domain.NewAnswerRecord(uuid.New(), "cs-01", domain.InstrumentClinicalScreening, domain.DimensionAnhedonia)
		require.NoError(t, err)

		err = answers.Create(context.Background(), &orphan)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)

		empty, err := answers.ListBySession(context.Background(), uuid.New())
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

func TestRunInTransaction(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)
	ctx := context.Background()
	sessions := postgres.NewPostgresSessionStore(db, nil)

	rolledBack := newSession(t, domain.InstrumentWellbeing)
	errBoom := errors.New("boom")
	err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		require.NoError(t, sessions.WithTx(tx).Create(ctx, rolledBack))
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	_, err = sessions.GetByID(ctx, rolledBack.ID)
	assert.ErrorIs(t, err, store.ErrSessionNotFound, "rolled back on error")

	committed := newSession(t, domain.InstrumentWellbeing)
	err = store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return sessions.WithTx(tx).Create(ctx, committed)
	})
	require.NoError(t, err)
	got, err := sessions.GetByID(ctx, committed.ID)
	require.NoError(t, err)
	assert.Equal(t, committed.ID, got.ID)
	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), "DELETE FROM sessions WHERE id = $1", committed.ID)
	})

	assert.Panics(t, func() {
		_ = store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
			panic("in transaction")
		})
	})
}
