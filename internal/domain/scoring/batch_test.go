package scoring

import (
	"context"
	"testing"

	"github.com/phrazzld/psyche-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchScorer(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	scorer := NewBatchScorer(e, 2)

	items := []BatchItem{
		{
			Key:        "moderate",
			Instrument: domain.InstrumentClinicalScreening,
			Answers:    clinicalAnswers(t, e, 2, 2, 1, 1, 1, 1, 1, 1, 0),
		},
		{
			Key:        "unsupported",
			Instrument: domain.Instrument("astrology"),
		},
		{
			Key:        "empty",
			Instrument: domain.InstrumentWellbeing,
		},
	}

	results, err := scorer.Score(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "moderate", results[0].Key)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "moderate", results[0].Result.Label)

	assert.Equal(t, "unsupported", results[1].Key)
	assert.True(t, domain.IsConfigurationError(results[1].Err))
	assert.Nil(t, results[1].Result)

	require.NoError(t, results[2].Err)
	assert.True(t, results[2].Result.IsInsufficient())
}

func TestBatchScorerMatchesSequentialScoring(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	answers := clinicalAnswers(t, e, 3, 3, 3, 2, 2, 2, 1, 1, 1)
	want, err := e.GenerateResult(domain.InstrumentClinicalScreening, answers)
	require.NoError(t, err)

	items := make([]BatchItem, 8)
	for i := range items {
		items[i] = BatchItem{Instrument: domain.InstrumentClinicalScreening, Answers: answers}
	}
	results, err := NewBatchScorer(e, 4).Score(context.Background(), items)
	require.NoError(t, err)
	for _, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, want, r.Result)
	}
}

func TestBatchScorerCancelled(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBatchScorer(e, 0).Score(ctx, []BatchItem{{Instrument: domain.InstrumentWellbeing}})
	assert.ErrorIs(t, err, context.Canceled)
}
