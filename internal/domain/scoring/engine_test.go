package scoring

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/psyche-api/internal/domain"
	"github.com/phrazzld/psyche-api/internal/questionbank"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSessionID = uuid.MustParse("6f1c2a9e-0c3b-4c51-9f0e-1d2b3c4d5e6f")
	testNow       = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
)

func newTestEngine(t *testing.T) *engine {
	t.Helper()
	bank, err := questionbank.Default()
	require.NoError(t, err)

	e, err := NewEngine(bank, WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	return e.(*engine)
}

func answer(instrument domain.Instrument, questionID, dimension string, value float64) domain.AnswerRecord {
	return domain.AnswerRecord{
		ID:           uuid.New(),
		SessionID:    testSessionID,
		QuestionID:   questionID,
		Instrument:   instrument,
		Dimension:    dimension,
		Value:        domain.Float(value),
		ResponseTime: 4200,
		CreatedAt:    testNow,
	}
}

func preference(questionID, dimension, pole string) domain.AnswerRecord {
	a := answer(domain.InstrumentTypeInventory, questionID, dimension, 0)
	a.Value = nil
	a.Preference = pole
	return a
}

// clinicalAnswers builds one answer per item in bank order.
func clinicalAnswers(t *testing.T, e *engine, scores ...float64) []domain.AnswerRecord {
	t.Helper()
	questions := e.bank.Questions(domain.InstrumentClinicalScreening)
	require.Len(t, scores, len(questions))

	answers := make([]domain.AnswerRecord, len(questions))
	for i, q := range questions {
		answers[i] = answer(domain.InstrumentClinicalScreening, q.ID, q.Dimension, scores[i])
	}
	return answers
}

func TestNewEngine(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(nil)
	assert.ErrorIs(t, err, ErrNilBank)

	bank, err := questionbank.Default()
	require.NoError(t, err)

	bad := NewDefaultParams()
	bad.MaxTextLength = -1
	_, err = NewEngineWithParams(bank, bad)
	assert.ErrorIs(t, err, ErrInvalidParams)

	e, err := NewEngine(bank)
	require.NoError(t, err)
	assert.Equal(t, 64, e.ExpectedAnswers(domain.InstrumentTypeInventory))
}

func TestGenerateResultTypeInventoryESTJ(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	var answers []domain.AnswerRecord
	for _, q := range e.bank.Questions(domain.InstrumentTypeInventory) {
		first, _, _ := domain.Poles(q.Dimension)
		value := 1.0
		if q.KeyedPole == first {
			value = 5
		}
		answers = append(answers, answer(domain.InstrumentTypeInventory, q.ID, q.Dimension, value))
	}
	require.Len(t, answers, 64)

	result, err := e.GenerateResult(domain.InstrumentTypeInventory, answers)
	require.NoError(t, err)

	assert.Equal(t, "ESTJ", result.Label)
	assert.Greater(t, result.Confidence, 0.5)
	assert.False(t, result.RiskFlag)
	assert.Equal(t, 1.0, result.Pattern.CompletionRate)
	assert.Equal(t, 1.0, result.Pattern.ConsistencyScore)
	assert.InDelta(t, 1.0, result.Reliability, 1e-9)

	require.Len(t, result.DimensionScores, 4)
	for _, ds := range result.DimensionScores {
		assert.Equal(t, 16, ds.ItemCount, ds.Dimension)
		assert.Equal(t, domain.StrengthStrong, ds.Strength, ds.Dimension)
	}

	codes := recommendationCodes(result.Recommendations)
	assert.ElementsMatch(t, []string{
		"recharge_socially", "use_concrete_plans", "balance_logic_empathy", "leave_room_to_adapt",
	}, codes)

	assert.Equal(t, AlgorithmVersion, result.Metadata.AlgorithmVersion)
	assert.Equal(t, 64, result.Metadata.ValidAnswers)
	assert.Equal(t, 0, result.Metadata.DroppedAnswers)
	assert.Equal(t, testNow, result.Metadata.GeneratedAt)
}

func TestTypeCodeSlotOrder(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	// Supplied out of canonical order on purpose.
	answers := []domain.AnswerRecord{
		preference("ti-64", domain.DimensionJudgingPerceiving, "P"),
		preference("ti-33", domain.DimensionThinkingFeeling, "F"),
		preference("ti-02", domain.DimensionExtraversionIntroversion, "I"),
		preference("ti-18", domain.DimensionSensingIntuition, "N"),
	}

	result, err := e.GenerateResult(domain.InstrumentTypeInventory, answers)
	require.NoError(t, err)
	assert.Equal(t, "INFP", result.Label)

	dims := make([]string, 0, 4)
	for _, ds := range result.DimensionScores {
		dims = append(dims, ds.Dimension)
	}
	assert.Equal(t, domain.InstrumentTypeInventory.Dimensions(), dims)
}

func TestTypeInventoryTieGoesToFirstPole(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	e1 := preference("ti-01", domain.DimensionExtraversionIntroversion, "E")
	e1.Confidence = domain.Float(0.5)
	i1 := preference("ti-02", domain.DimensionExtraversionIntroversion, "I")
	i1.Confidence = domain.Float(0.5)
	// A neutral Likert answer abstains.
	neutral := answer(domain.InstrumentTypeInventory, "ti-03", domain.DimensionExtraversionIntroversion, 3)

	scores, err := e.CalculateDimensionScores(domain.InstrumentTypeInventory, []domain.AnswerRecord{e1, i1, neutral})
	require.NoError(t, err)

	ei := scores[0]
	assert.Equal(t, "E", ei.Label)
	assert.Equal(t, 0.0, ei.Score)
	assert.Equal(t, domain.StrengthWeak, ei.Strength)
	assert.Equal(t, 3, ei.ItemCount)
	assert.Equal(t, map[string]float64{"E": 0.5, "I": 0.5}, ei.SubScores)
}

func TestTypeInventoryLikertVotes(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	// ti-01 is keyed to E and ti-02 to I. Value 4 on ti-01 votes E with 0.5;
	// value 2 on ti-02 votes E with 0.5; value 4 on ti-04 votes I with 0.5.
	answers := []domain.AnswerRecord{
		answer(domain.InstrumentTypeInventory, "ti-01", domain.DimensionExtraversionIntroversion, 4),
		answer(domain.InstrumentTypeInventory, "ti-02", domain.DimensionExtraversionIntroversion, 2),
		answer(domain.InstrumentTypeInventory, "ti-04", domain.DimensionExtraversionIntroversion, 4),
	}

	scores, err := e.CalculateDimensionScores(domain.InstrumentTypeInventory, answers)
	require.NoError(t, err)

	ei := scores[0]
	assert.Equal(t, "E", ei.Label)
	assert.InDelta(t, 1.0, ei.SubScores["E"], 1e-9)
	assert.InDelta(t, 0.5, ei.SubScores["I"], 1e-9)
	assert.InDelta(t, 1.0/3.0, ei.Confidence, 1e-9)
	assert.Equal(t, domain.StrengthModerate, ei.Strength)
}

func TestClinicalScreeningModerateExample(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	result, err := e.GenerateResult(domain.InstrumentClinicalScreening,
		clinicalAnswers(t, e, 2, 2, 1, 1, 1, 1, 1, 1, 0))
	require.NoError(t, err)

	assert.Equal(t, "moderate", result.Label)
	assert.Equal(t, 10.0, result.Overall)
	assert.False(t, result.RiskFlag)
	assert.Empty(t, result.RiskIndicators)

	anhedonia, ok := result.Dimension(domain.DimensionAnhedonia)
	require.True(t, ok)
	assert.Equal(t, "more_than_half_the_days", anhedonia.Label)

	selfHarm, ok := result.Dimension(domain.DimensionSelfHarmIdeation)
	require.True(t, ok)
	assert.Equal(t, "not_at_all", selfHarm.Label)

	assert.Contains(t, recommendationCodes(result.Recommendations), "consult_professional")
}

func TestClinicalScreeningBands(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	testCases := []struct {
		name   string
		scores []float64
		want   string
	}{
		{"all zero", []float64{0, 0, 0, 0, 0, 0, 0, 0, 0}, "none"},
		{"four", []float64{1, 1, 1, 1, 0, 0, 0, 0, 0}, "none"},
		{"five", []float64{1, 1, 1, 1, 1, 0, 0, 0, 0}, "mild"},
		{"nine", []float64{3, 3, 3, 0, 0, 0, 0, 0, 0}, "mild"},
		{"ten", []float64{3, 3, 3, 1, 0, 0, 0, 0, 0}, "moderate"},
		{"fourteen", []float64{3, 3, 3, 3, 2, 0, 0, 0, 0}, "moderate"},
		{"fifteen", []float64{3, 3, 3, 3, 3, 0, 0, 0, 0}, "severe"},
		{"maximum", []float64{3, 3, 3, 3, 3, 3, 3, 3, 3}, "severe"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := e.GenerateResult(domain.InstrumentClinicalScreening, clinicalAnswers(t, e, tc.scores...))
			require.NoError(t, err)
			assert.Equal(t, tc.want, result.Label)
		})
	}
}

func TestClinicalScreeningRiskFlagIndependentOfBand(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	result, err := e.GenerateResult(domain.InstrumentClinicalScreening,
		clinicalAnswers(t, e, 0, 0, 0, 0, 0, 0, 0, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, "none", result.Label)
	assert.True(t, result.RiskFlag)
	assert.Equal(t, []string{RiskSelfHarmIdeation}, result.RiskIndicators)
	require.NotEmpty(t, result.Recommendations)
	assert.Equal(t, RecommendationCrisisSupport, result.Recommendations[0])
}

func TestClinicalScreeningIgnoresExtraItems(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	answers := clinicalAnswers(t, e, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	for _, id := range []string{"x1", "x2", "x3", "x4"} {
		answers = append(answers, answer(domain.InstrumentClinicalScreening, id, domain.DimensionDepressedMood, 3))
	}
	// A flagged answer outside the bank is kept for risk but never scored.
	answers = append(answers, answer(domain.InstrumentClinicalScreening, "x5", domain.DimensionSelfHarmIdeation, 3))

	result, err := e.GenerateResult(domain.InstrumentClinicalScreening, answers)
	require.NoError(t, err)

	assert.Equal(t, "none", result.Label)
	assert.Equal(t, 0.0, result.Overall)
	assert.True(t, result.RiskFlag)
	for _, ds := range result.DimensionScores {
		assert.LessOrEqual(t, ds.ItemCount, 1, ds.Dimension)
		assert.LessOrEqual(t, ds.Score, 3.0, ds.Dimension)
	}
	assert.Equal(t, 4, result.Metadata.DroppedAnswers)
}

func TestClinicalScreeningTotalIsBounded(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	answers := clinicalAnswers(t, e, 3, 3, 3, 3, 3, 3, 3, 3, 3)
	// The same item answered again under a fresh ID must not push the total
	// past the scale.
	again := answer(domain.InstrumentClinicalScreening, "cs-02", domain.DimensionDepressedMood, 3)
	again.CreatedAt = testNow.Add(time.Minute)
	answers = append(answers, again)

	result, err := e.GenerateResult(domain.InstrumentClinicalScreening, answers)
	require.NoError(t, err)
	assert.Equal(t, 27.0, result.Overall)
	assert.Equal(t, "severe", result.Label)
}

func TestRiskDetectedOnInvalidAnswers(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	// The self-harm answer names a question of another dimension and fails
	// validation, but its flag keeps it in play.
	flagged := answer(domain.InstrumentClinicalScreening, "cs-01", domain.DimensionSelfHarmIdeation, 2)

	vr := e.ValidateAnswerData(flagged)
	assert.False(t, vr.IsValid)
	assert.Equal(t, []string{RiskSelfHarmIdeation}, vr.Flags)

	result, err := e.GenerateResult(domain.InstrumentClinicalScreening, []domain.AnswerRecord{flagged})
	require.NoError(t, err)
	assert.True(t, result.RiskFlag)
	assert.Equal(t, 0, result.Metadata.DroppedAnswers)
}

func TestGenerateResultEmptyInput(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	for _, instrument := range domain.Instruments() {
		t.Run(string(instrument), func(t *testing.T) {
			result, err := e.GenerateResult(instrument, nil)
			require.NoError(t, err)

			assert.Equal(t, domain.LabelInsufficientData, result.Label)
			assert.True(t, result.IsInsufficient())
			assert.Equal(t, 0.0, result.Confidence)
			assert.Equal(t, []domain.Recommendation{RecommendationInsufficientData}, result.Recommendations)
			assert.Empty(t, result.DimensionScores)
			assert.Equal(t, 0.0, result.Pattern.ConsistencyScore)
		})
	}
}

func TestGenerateResultAllInvalid(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	bad := answer(domain.InstrumentWellbeing, "wb-01", domain.DomainPhysical, 5)
	bad.Value = nil

	result, err := e.GenerateResult(domain.InstrumentWellbeing, []domain.AnswerRecord{bad})
	require.NoError(t, err)
	assert.Equal(t, domain.LabelInsufficientData, result.Label)
	assert.Equal(t, 1, result.Metadata.DroppedAnswers)
}

func TestGenerateResultUnsupportedInstrument(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	_, err := e.GenerateResult(domain.Instrument("enneagram"), nil)
	require.Error(t, err)

	var cfgErr *domain.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.ErrorIs(t, err, domain.ErrUnsupportedInstrument)

	_, err = e.CalculateDimensionScores(domain.Instrument("enneagram"), nil)
	assert.True(t, domain.IsConfigurationError(err))

	_, err = e.AnalyzeAnswerPattern(domain.Instrument("enneagram"), nil)
	assert.True(t, domain.IsConfigurationError(err))
}

func TestGenerateResultIsIdempotent(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	answers := []domain.AnswerRecord{
		answer(domain.InstrumentEmotionalCompetency, "ec-01", domain.DimensionSelfAwareness, 4),
		answer(domain.InstrumentEmotionalCompetency, "ec-02", domain.DimensionSelfAwareness, 2),
		answer(domain.InstrumentEmotionalCompetency, "ec-06", domain.DimensionSelfManagement, 3),
		answer(domain.InstrumentEmotionalCompetency, "ec-11", domain.DimensionSocialAwareness, 5),
	}

	first, err := e.GenerateResult(domain.InstrumentEmotionalCompetency, answers)
	require.NoError(t, err)
	second, err := e.GenerateResult(domain.InstrumentEmotionalCompetency, answers)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEmotionalCompetencyReverseItems(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	// ec-02 is reverse keyed, so 1 counts as 5.
	answers := []domain.AnswerRecord{
		answer(domain.InstrumentEmotionalCompetency, "ec-01", domain.DimensionSelfAwareness, 5),
		answer(domain.InstrumentEmotionalCompetency, "ec-02", domain.DimensionSelfAwareness, 1),
	}

	result, err := e.GenerateResult(domain.InstrumentEmotionalCompetency, answers)
	require.NoError(t, err)

	ds, ok := result.Dimension(domain.DimensionSelfAwareness)
	require.True(t, ok)
	assert.Equal(t, 5.0, ds.Score)
	assert.Equal(t, "high", ds.Label)
	assert.Equal(t, 1.0, ds.Confidence)
	assert.Equal(t, domain.StrengthStrong, ds.Strength)

	missing, ok := result.Dimension(domain.DimensionRelationshipManagement)
	require.True(t, ok)
	assert.Equal(t, 0, missing.ItemCount)
	assert.Equal(t, domain.LabelInsufficientData, missing.Label)

	assert.Equal(t, "high", result.Label)
	assert.Equal(t, 5.0, result.Overall)

	// 2 of 20 answered, one of four dimensions consistent: 0.4*0.1 + 0.6*0.25.
	assert.InDelta(t, 0.19, result.Reliability, 1e-9)
	assert.Contains(t, recommendationCodes(result.Recommendations), RecommendationLowReliability.Code)
	// Three unanswered dimensions pull the overall confidence down.
	assert.InDelta(t, 0.25, result.Confidence, 1e-9)
}

func TestSingleAnswerIsNotConfident(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	result, err := e.GenerateResult(domain.InstrumentTypeInventory, []domain.AnswerRecord{
		answer(domain.InstrumentTypeInventory, "ti-02", domain.DimensionExtraversionIntroversion, 5),
	})
	require.NoError(t, err)

	assert.Len(t, result.Label, 4)
	assert.Less(t, result.Confidence, 1.0)
	assert.InDelta(t, 0.25, result.Confidence, 1e-9)
	assert.Less(t, result.Reliability, 0.5)
	assert.Contains(t, recommendationCodes(result.Recommendations), RecommendationLowReliability.Code)
}

func TestLowReliabilityRecommendation(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	// Two forward items answered at opposite ends of the scale.
	answers := []domain.AnswerRecord{
		answer(domain.InstrumentEmotionalCompetency, "ec-01", domain.DimensionSelfAwareness, 5),
		answer(domain.InstrumentEmotionalCompetency, "ec-03", domain.DimensionSelfAwareness, 1),
	}

	result, err := e.GenerateResult(domain.InstrumentEmotionalCompetency, answers)
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.Pattern.ConsistencyScore)
	assert.InDelta(t, 0.04, result.Reliability, 1e-9)
	assert.Equal(t, "moderate", result.Label)
	assert.Contains(t, recommendationCodes(result.Recommendations), RecommendationLowReliability.Code)
}

func TestWellbeingSubScores(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	a1 := answer(domain.InstrumentWellbeing, "wb-01", domain.DomainPhysical, 8)
	a1.Satisfaction = domain.Float(4)
	a1.Importance = domain.Float(5)
	a2 := answer(domain.InstrumentWellbeing, "wb-02", domain.DomainPhysical, 6)
	a2.Satisfaction = domain.Float(2)
	// wb-03 is reverse keyed on [0,10], so 2 counts as 8.
	a3 := answer(domain.InstrumentWellbeing, "wb-03", domain.DomainPhysical, 2)

	scores, err := e.CalculateDimensionScores(domain.InstrumentWellbeing, []domain.AnswerRecord{a1, a2, a3})
	require.NoError(t, err)
	require.Len(t, scores, 5)

	physical := scores[0]
	assert.Equal(t, domain.DomainPhysical, physical.Dimension)
	assert.InDelta(t, 22.0/3.0, physical.Score, 1e-9)
	assert.Equal(t, "good", physical.Label)
	assert.InDelta(t, 3.0, physical.SubScores["satisfaction"], 1e-9)
	assert.InDelta(t, 5.0, physical.SubScores["importance"], 1e-9)
	assert.Less(t, physical.Confidence, 1.0)
	assert.Greater(t, physical.Confidence, 0.0)
}

func TestLatestAnswerPerQuestionWins(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	original := answer(domain.InstrumentWellbeing, "wb-04", domain.DomainEmotional, 2)
	correction := answer(domain.InstrumentWellbeing, "wb-04", domain.DomainEmotional, 9)
	correction.CreatedAt = original.CreatedAt.Add(time.Minute)

	// Order in the slice does not matter, CreatedAt does.
	scores, err := e.CalculateDimensionScores(domain.InstrumentWellbeing, []domain.AnswerRecord{correction, original})
	require.NoError(t, err)

	emotional := scores[1]
	assert.Equal(t, 1, emotional.ItemCount)
	assert.Equal(t, 9.0, emotional.Score)
}

func recommendationCodes(recs []domain.Recommendation) []string {
	codes := make([]string, 0, len(recs))
	for _, r := range recs {
		codes = append(codes, r.Code)
	}
	return codes
}
