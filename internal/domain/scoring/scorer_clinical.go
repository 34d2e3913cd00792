package scoring

import (
	"math"

	"github.com/phrazzld/psyche-api/internal/domain"
	"github.com/phrazzld/psyche-api/internal/questionbank"
)

const (
	clinicalItemMin = 0
	clinicalItemMax = 3
)

// Frequency labels for clinical screening item scores, indexed by score.
var clinicalItemLabels = [...]string{
	"not_at_all",
	"several_days",
	"more_than_half_the_days",
	"nearly_every_day",
}

// clinicalStrategy sums item scores into a severity band and raises a risk
// flag on any positive self-harm item.
type clinicalStrategy struct {
	bank   *questionbank.Bank
	params *Params
}

func (s *clinicalStrategy) Instrument() domain.Instrument {
	return domain.InstrumentClinicalScreening
}

func (s *clinicalStrategy) ValidateAnswer(
	answer domain.AnswerRecord,
	question *questionbank.Question,
	result *ValidationResult,
) {
	if question == nil && answer.QuestionID != "" {
		result.addError("question_id: %s is not a %s item", answer.QuestionID, domain.InstrumentClinicalScreening)
	}
	if answer.Value == nil {
		result.addError("value: item score is required")
		return
	}

	v := *answer.Value
	if !inRange(v, clinicalItemMin, clinicalItemMax) || v != math.Trunc(v) {
		result.addError("value: item score must be an integer between %d and %d, got %g",
			clinicalItemMin, clinicalItemMax, v)
	}
	if s.isSelfHarmItem(answer) && v > 0 {
		result.addFlag(RiskSelfHarmIdeation)
	}
}

func (s *clinicalStrategy) CleanValue(v float64) float64 {
	return math.Round(clamp(v, clinicalItemMin, clinicalItemMax))
}

// Score takes one item per symptom: the latest answer to a bank question
// that measures it. Flagged answers reach Score even when invalid, so
// anything else is ignored here and the total stays within 0..27.
func (s *clinicalStrategy) Score(answers []domain.AnswerRecord) []domain.DimensionScore {
	items := s.latestItems(answers)
	dims := domain.InstrumentClinicalScreening.Dimensions()
	scores := make([]domain.DimensionScore, 0, len(dims))

	for _, dim := range dims {
		a, ok := items[dim]
		if !ok {
			scores = append(scores, emptyScore(dim))
			continue
		}

		v := clamp(*a.Value, clinicalItemMin, clinicalItemMax)
		scores = append(scores, domain.DimensionScore{
			Dimension:  dim,
			SubScores:  map[string]float64{"raw": v},
			Score:      v,
			ItemCount:  1,
			Label:      itemLabel(v),
			Confidence: clamp(a.ConfidenceOr(1), 0, 1),
			Strength:   s.params.strength(v / clinicalItemMax),
		})
	}

	return scores
}

func (s *clinicalStrategy) latestItems(answers []domain.AnswerRecord) map[string]domain.AnswerRecord {
	items := make(map[string]domain.AnswerRecord)
	for _, a := range answers {
		if a.Instrument != domain.InstrumentClinicalScreening || a.Value == nil {
			continue
		}
		q, ok := s.bank.Lookup(a.Instrument, a.QuestionID)
		if !ok || q.Dimension != a.Dimension {
			continue
		}
		if prev, seen := items[a.Dimension]; seen && a.CreatedAt.Before(prev.CreatedAt) {
			continue
		}
		items[a.Dimension] = a
	}
	return items
}

// Summarize maps the item total onto the severity band table.
func (s *clinicalStrategy) Summarize(scores []domain.DimensionScore) (string, float64) {
	var total float64
	for _, ds := range scores {
		total += ds.Score
	}
	return band(s.params.SeverityBands, total), total
}

func (s *clinicalStrategy) Normalize(a domain.AnswerRecord) (float64, bool) {
	if a.Value == nil {
		return 0, false
	}
	return clamp(*a.Value/clinicalItemMax, 0, 1), true
}

// RiskIndicators flags any positive self-harm item, valid or not.
func (s *clinicalStrategy) RiskIndicators(answers []domain.AnswerRecord) []string {
	for _, a := range answers {
		if a.Instrument != domain.InstrumentClinicalScreening || a.Value == nil {
			continue
		}
		if s.isSelfHarmItem(a) && *a.Value > 0 {
			return []string{RiskSelfHarmIdeation}
		}
	}
	return nil
}

func (s *clinicalStrategy) isSelfHarmItem(a domain.AnswerRecord) bool {
	if a.Dimension == domain.DimensionSelfHarmIdeation {
		return true
	}
	q, ok := s.bank.Lookup(a.Instrument, a.QuestionID)
	return ok && q.Dimension == domain.DimensionSelfHarmIdeation
}

// itemLabel returns the frequency label for a clinical screening item score.
func itemLabel(score float64) string {
	i := int(math.Round(clamp(score, clinicalItemMin, clinicalItemMax)))
	return clinicalItemLabels[i]
}
