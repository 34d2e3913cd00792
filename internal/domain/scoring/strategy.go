package scoring

import (
	"math"

	"github.com/phrazzld/psyche-api/internal/domain"
	"github.com/phrazzld/psyche-api/internal/questionbank"
)

// Strategy encapsulates everything that differs between instruments. The
// engine dispatches through a table of strategies keyed by instrument; adding
// an instrument means adding one Strategy and one table entry.
type Strategy interface {
	// Instrument returns the instrument this strategy scores.
	Instrument() domain.Instrument

	// ValidateAnswer adds instrument-specific problems to result. The shared
	// checks (instrument, question, dimension, confidence, metadata) have
	// already run. question is nil when the bank does not know the ID.
	ValidateAnswer(answer domain.AnswerRecord, question *questionbank.Question, result *ValidationResult)

	// CleanValue clamps a raw numeric answer into the instrument's range.
	CleanValue(v float64) float64

	// Score computes one DimensionScore per dimension of the instrument, in
	// canonical order, from validated answers.
	Score(answers []domain.AnswerRecord) []domain.DimensionScore

	// Summarize derives the composite label and overall score.
	Summarize(scores []domain.DimensionScore) (label string, overall float64)

	// Normalize maps an answer onto [0,1] for consistency analysis.
	Normalize(answer domain.AnswerRecord) (float64, bool)

	// RiskIndicators scans answers for safety signals regardless of their
	// validity.
	RiskIndicators(answers []domain.AnswerRecord) []string
}

// newStrategies builds the dispatch table for every supported instrument.
func newStrategies(bank *questionbank.Bank, params *Params) map[domain.Instrument]Strategy {
	table := map[domain.Instrument]Strategy{
		domain.InstrumentTypeInventory:     &typeInventoryStrategy{bank: bank, params: params},
		domain.InstrumentClinicalScreening: &clinicalStrategy{bank: bank, params: params},
		domain.InstrumentEmotionalCompetency: &ordinalStrategy{
			instrument: domain.InstrumentEmotionalCompetency,
			bank:       bank,
			params:     params,
			lo:         1,
			hi:         5,
			levels:     params.CompetencyLevels,
		},
		domain.InstrumentWellbeing: &ordinalStrategy{
			instrument:  domain.InstrumentWellbeing,
			bank:        bank,
			params:      params,
			lo:          0,
			hi:          10,
			levels:      params.WellbeingLevels,
			withRatings: true,
		},
	}
	return table
}

// ReverseScore inverts a value on the closed scale [lo, hi]. Applying it twice
// returns the original value.
func ReverseScore(v, lo, hi float64) float64 {
	return lo + hi - v
}

// groupByDimension buckets answers by dimension preserving input order.
func groupByDimension(answers []domain.AnswerRecord) map[string][]domain.AnswerRecord {
	groups := make(map[string][]domain.AnswerRecord)
	for _, a := range answers {
		groups[a.Dimension] = append(groups[a.Dimension], a)
	}
	return groups
}

// questionWeight returns the bank weight for the answer's question, or 1.
func questionWeight(bank *questionbank.Bank, a domain.AnswerRecord) float64 {
	if q, ok := bank.Lookup(a.Instrument, a.QuestionID); ok {
		return q.Weight
	}
	return 1
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance is the population variance of values.
func variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

// emptyScore is the placeholder for a dimension no answer reached.
func emptyScore(dimension string) domain.DimensionScore {
	return domain.DimensionScore{
		Dimension: dimension,
		SubScores: map[string]float64{},
		Label:     domain.LabelInsufficientData,
		Strength:  domain.StrengthWeak,
	}
}

// answeredMean averages field over dimensions that received answers.
func answeredMean(scores []domain.DimensionScore, field func(domain.DimensionScore) float64) float64 {
	var values []float64
	for _, s := range scores {
		if s.ItemCount > 0 {
			values = append(values, field(s))
		}
	}
	return mean(values)
}
