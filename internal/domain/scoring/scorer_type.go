package scoring

import (
	"math"
	"strings"

	"github.com/phrazzld/psyche-api/internal/domain"
	"github.com/phrazzld/psyche-api/internal/questionbank"
)

const (
	likertMin    = 1
	likertMax    = 5
	likertMiddle = 3
)

// typeInventoryStrategy scores binary-pole dimensions by summing
// confidence-weighted votes per pole.
type typeInventoryStrategy struct {
	bank   *questionbank.Bank
	params *Params
}

func (s *typeInventoryStrategy) Instrument() domain.Instrument {
	return domain.InstrumentTypeInventory
}

func (s *typeInventoryStrategy) ValidateAnswer(
	answer domain.AnswerRecord,
	question *questionbank.Question,
	result *ValidationResult,
) {
	switch {
	case answer.Preference != "":
		first, second, ok := domain.Poles(answer.Dimension)
		if !ok {
			return
		}
		if answer.Preference != first && answer.Preference != second {
			result.addError("preference: %q is not a pole of %s", answer.Preference, answer.Dimension)
			if norm := strings.ToUpper(strings.TrimSpace(answer.Preference)); norm == first || norm == second {
				result.addSuggestion("preference: use %q", norm)
			}
		}
		if answer.Value != nil {
			result.addWarning("value: ignored when a preference is given")
		}

	case answer.Value != nil:
		if !inRange(*answer.Value, likertMin, likertMax) {
			result.addError("value: must be between %d and %d, got %g", likertMin, likertMax, *answer.Value)
		}
		if question == nil || question.KeyedPole == "" {
			result.addError("question_id: %s has no keyed pole, send a preference instead", answer.QuestionID)
		}

	default:
		result.addError("preference: a preference or a value is required")
	}
}

func (s *typeInventoryStrategy) CleanValue(v float64) float64 {
	return clamp(v, likertMin, likertMax)
}

// vote resolves one answer into a pole and a non-negative weight.
//
// An explicit preference votes for its pole with the answer's confidence
// (default 1). A Likert value v votes for the question's keyed pole with
// weight (v-3)/2 when v > 3, for the opposite pole with weight (3-v)/2 when
// v < 3, and abstains (empty pole, ok true) at 3. Both weights are scaled by
// the question's bank weight.
func (s *typeInventoryStrategy) vote(a domain.AnswerRecord) (pole string, weight float64, ok bool) {
	conf := clamp(a.ConfidenceOr(1), 0, 1)
	q, found := s.bank.Lookup(a.Instrument, a.QuestionID)
	qw := 1.0
	if found {
		qw = q.Weight
	}

	if a.Preference != "" {
		return a.Preference, conf * qw, true
	}
	if a.Value == nil || !found || q.KeyedPole == "" {
		return "", 0, false
	}

	first, second, _ := domain.Poles(a.Dimension)
	opposite := first
	if q.KeyedPole == first {
		opposite = second
	}

	v := *a.Value
	switch {
	case v > likertMiddle:
		return q.KeyedPole, (v - likertMiddle) / 2 * conf * qw, true
	case v < likertMiddle:
		return opposite, (likertMiddle - v) / 2 * conf * qw, true
	default:
		return "", 0, true
	}
}

// Score sums votes per pole. The preferred pole is the larger sum with ties
// going to the first-listed pole; the margin |a-b|/(a+b) drives both
// confidence and strength.
func (s *typeInventoryStrategy) Score(answers []domain.AnswerRecord) []domain.DimensionScore {
	groups := groupByDimension(answers)
	scores := make([]domain.DimensionScore, 0, 4)

	for _, dim := range domain.InstrumentTypeInventory.Dimensions() {
		first, second, _ := domain.Poles(dim)
		sums := map[string]float64{first: 0, second: 0}

		for _, a := range groups[dim] {
			pole, weight, ok := s.vote(a)
			if ok && pole != "" {
				sums[pole] += weight
			}
		}

		a, b := sums[first], sums[second]
		var margin float64
		if a+b > 0 {
			margin = math.Abs(a-b) / (a + b)
		}
		label := first
		if b > a {
			label = second
		}

		scores = append(scores, domain.DimensionScore{
			Dimension:  dim,
			SubScores:  sums,
			Score:      margin,
			ItemCount:  len(groups[dim]),
			Label:      label,
			Confidence: margin,
			Strength:   s.params.strength(margin),
		})
	}

	return scores
}

// Summarize joins dimension labels into the type code in canonical order.
func (s *typeInventoryStrategy) Summarize(scores []domain.DimensionScore) (string, float64) {
	var code strings.Builder
	for _, ds := range scores {
		code.WriteString(ds.Label)
	}
	return code.String(), answeredMean(scores, func(ds domain.DimensionScore) float64 { return ds.Score })
}

// Normalize places a vote at 0.5 +/- weight/2, toward 1 for the first pole.
func (s *typeInventoryStrategy) Normalize(a domain.AnswerRecord) (float64, bool) {
	pole, weight, ok := s.vote(a)
	if !ok {
		return 0, false
	}
	first, _, _ := domain.Poles(a.Dimension)
	switch pole {
	case "":
		return 0.5, true
	case first:
		return clamp(0.5+weight/2, 0, 1), true
	default:
		return clamp(0.5-weight/2, 0, 1), true
	}
}

func (s *typeInventoryStrategy) RiskIndicators([]domain.AnswerRecord) []string {
	return nil
}
