package scoring

import (
	"math"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/phrazzld/psyche-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanAnswerData(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	raw := answer(domain.Instrument(" Wellbeing "), " wb-07 ", "Social", 14)
	raw.Text = "  " + strings.Repeat("é", 2100) + "  "
	raw.Satisfaction = domain.Float(9)
	raw.Importance = domain.Float(math.NaN())
	raw.Confidence = domain.Float(-0.2)
	raw.ResponseTime = -50
	raw.Metadata = map[string]any{"device": "tablet", "tracking": "x", "page": map[string]int{"n": 1}}

	cleaned := e.CleanAnswerData(raw)

	assert.Equal(t, domain.InstrumentWellbeing, cleaned.Instrument)
	assert.Equal(t, "wb-07", cleaned.QuestionID)
	assert.Equal(t, domain.DomainSocial, cleaned.Dimension)
	assert.Equal(t, 2000, utf8.RuneCountInString(cleaned.Text))
	require.NotNil(t, cleaned.Value)
	assert.Equal(t, 10.0, *cleaned.Value)
	assert.Equal(t, 5.0, *cleaned.Satisfaction)
	assert.Nil(t, cleaned.Importance)
	assert.Equal(t, 0.0, *cleaned.Confidence)
	assert.Equal(t, int64(0), cleaned.ResponseTime)
	assert.Equal(t, map[string]any{"device": "tablet"}, cleaned.Metadata)

	// The input is left untouched.
	assert.Equal(t, 14.0, *raw.Value)
	assert.Len(t, raw.Metadata, 3)

	assert.True(t, e.ValidateAnswerData(cleaned).IsValid)
}

func TestCleanAnswerDataIsIdempotent(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	raw := answer(domain.InstrumentClinicalScreening, "cs-02", "Depressed Mood", 2.6)
	raw.Text = "  tired  "

	once := e.CleanAnswerData(raw)
	twice := e.CleanAnswerData(once)

	assert.Equal(t, once, twice)
	assert.Equal(t, 3.0, *once.Value, "clinical items round to whole scores")
	assert.Equal(t, domain.DimensionDepressedMood, once.Dimension)
}

func TestCleanAnswerDataFillsDimensionFromBank(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	raw := preference("ti-20", "", " n ")
	cleaned := e.CleanAnswerData(raw)

	assert.Equal(t, domain.DimensionSensingIntuition, cleaned.Dimension)
	assert.Equal(t, "N", cleaned.Preference)
}

func TestCleanAnswerDataBatch(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	first := answer(domain.InstrumentWellbeing, "wb-01", domain.DomainPhysical, 3)
	other := answer(domain.InstrumentWellbeing, "wb-02", domain.DomainPhysical, 6)
	latest := answer(domain.InstrumentWellbeing, "wb-01", domain.DomainPhysical, 7)
	latest.CreatedAt = first.CreatedAt.Add(time.Second)
	sameTime := answer(domain.InstrumentWellbeing, "wb-02", domain.DomainPhysical, 8)
	orphan := answer(domain.InstrumentWellbeing, "", domain.DomainPhysical, 1)

	out := e.CleanAnswerDataBatch([]domain.AnswerRecord{first, other, latest, sameTime, orphan})

	require.Len(t, out, 3)
	assert.Equal(t, latest.ID, out[0].ID)
	assert.Equal(t, sameTime.ID, out[1].ID, "later position wins a CreatedAt tie")
	assert.Equal(t, orphan.ID, out[2].ID)

	assert.Empty(t, e.CleanAnswerDataBatch(nil))
}
