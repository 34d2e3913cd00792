package scoring

import (
	"math"

	"github.com/phrazzld/psyche-api/internal/domain"
	"github.com/phrazzld/psyche-api/internal/questionbank"
)

const (
	ratingMin = 1
	ratingMax = 5
)

// ordinalStrategy scores Likert-like scales where each dimension is the
// weighted mean of its items after reverse-keyed items are inverted. It
// serves both emotional competency and wellbeing; the latter also accepts
// satisfaction and importance ratings.
type ordinalStrategy struct {
	instrument  domain.Instrument
	bank        *questionbank.Bank
	params      *Params
	lo, hi      float64
	levels      []Band
	withRatings bool
}

func (s *ordinalStrategy) Instrument() domain.Instrument {
	return s.instrument
}

func (s *ordinalStrategy) ValidateAnswer(
	answer domain.AnswerRecord,
	_ *questionbank.Question,
	result *ValidationResult,
) {
	if answer.Value == nil {
		result.addError("value: score is required")
	} else if !inRange(*answer.Value, s.lo, s.hi) {
		result.addError("value: score must be between %g and %g, got %g", s.lo, s.hi, *answer.Value)
	}

	ratings := []struct {
		name  string
		value *float64
	}{
		{"satisfaction", answer.Satisfaction},
		{"importance", answer.Importance},
	}
	for _, r := range ratings {
		if r.value == nil {
			continue
		}
		if !s.withRatings {
			result.addWarning("%s: ignored for %s", r.name, s.instrument)
			continue
		}
		if !inRange(*r.value, ratingMin, ratingMax) {
			result.addError("%s: must be between %d and %d, got %g", r.name, ratingMin, ratingMax, *r.value)
		}
	}
}

func (s *ordinalStrategy) CleanValue(v float64) float64 {
	return clamp(v, s.lo, s.hi)
}

// transformed returns the answer value with reverse-keyed items inverted.
func (s *ordinalStrategy) transformed(a domain.AnswerRecord) float64 {
	v := *a.Value
	if q, ok := s.bank.Lookup(a.Instrument, a.QuestionID); ok && q.Reverse {
		return ReverseScore(v, s.lo, s.hi)
	}
	return v
}

// Score computes per-dimension weighted means.
//
// For each dimension:
//   - Score is the weighted mean of transformed values
//   - Confidence is the mean answer confidence scaled by 1 - variance/maxVariance,
//     where maxVariance is the square of the half-range
//   - Strength classifies |mean - midpoint| / half-range
//   - Label is the first level band the mean reaches
func (s *ordinalStrategy) Score(answers []domain.AnswerRecord) []domain.DimensionScore {
	groups := groupByDimension(answers)
	dims := s.instrument.Dimensions()
	scores := make([]domain.DimensionScore, 0, len(dims))

	halfRange := (s.hi - s.lo) / 2
	mid := s.lo + halfRange
	maxVariance := halfRange * halfRange

	for _, dim := range dims {
		items := groups[dim]
		if len(items) == 0 {
			scores = append(scores, emptyScore(dim))
			continue
		}

		var (
			sumW, sumWV float64
			confidences = make([]float64, 0, len(items))
			values      = make([]float64, 0, len(items))
			weights     = make([]float64, 0, len(items))
			sat, imp    []float64
		)
		for _, a := range items {
			v := s.transformed(a)
			w := questionWeight(s.bank, a)
			values = append(values, v)
			weights = append(weights, w)
			sumW += w
			sumWV += w * v
			confidences = append(confidences, clamp(a.ConfidenceOr(1), 0, 1))
			if a.Satisfaction != nil {
				sat = append(sat, *a.Satisfaction)
			}
			if a.Importance != nil {
				imp = append(imp, *a.Importance)
			}
		}

		m := mean(values)
		if sumW > 0 {
			m = sumWV / sumW
		}
		spread := weightedVariance(values, weights, m)
		confidence := clamp(mean(confidences)*(1-spread/maxVariance), 0, 1)

		sub := map[string]float64{"mean": m}
		if s.withRatings && len(sat) > 0 {
			sub["satisfaction"] = mean(sat)
		}
		if s.withRatings && len(imp) > 0 {
			sub["importance"] = mean(imp)
		}

		scores = append(scores, domain.DimensionScore{
			Dimension:  dim,
			SubScores:  sub,
			Score:      m,
			ItemCount:  len(items),
			Label:      band(s.levels, m),
			Confidence: confidence,
			Strength:   s.params.strength(clamp(math.Abs(m-mid)/halfRange, 0, 1)),
		})
	}

	return scores
}

// Summarize labels the mean of answered dimensions.
func (s *ordinalStrategy) Summarize(scores []domain.DimensionScore) (string, float64) {
	overall := answeredMean(scores, func(ds domain.DimensionScore) float64 { return ds.Score })
	return band(s.levels, overall), overall
}

func (s *ordinalStrategy) Normalize(a domain.AnswerRecord) (float64, bool) {
	if a.Value == nil {
		return 0, false
	}
	return clamp((s.transformed(a)-s.lo)/(s.hi-s.lo), 0, 1), true
}

func (s *ordinalStrategy) RiskIndicators([]domain.AnswerRecord) []string {
	return nil
}

func weightedVariance(values, weights []float64, m float64) float64 {
	var sumW, sum float64
	for i, v := range values {
		d := v - m
		sum += weights[i] * d * d
		sumW += weights[i]
	}
	if sumW == 0 {
		return variance(values)
	}
	return sum / sumW
}
