package scoring

import (
	"math"
	"strings"

	"github.com/phrazzld/psyche-api/internal/domain"
)

// CleanAnswerData returns a normalized copy of answer. The input is never
// modified. Cleaning:
//   - trims identifiers, normalizes instrument and dimension spelling and
//     fills a missing dimension from the question bank
//   - upper-cases type inventory preferences
//   - trims text and truncates it to Params.MaxTextLength runes
//   - clamps numeric fields into their ranges and drops NaN values
//   - raises a negative response time to 0
//   - strips unknown or non-scalar metadata
func (e *engine) CleanAnswerData(answer domain.AnswerRecord) domain.AnswerRecord {
	out := answer.Clone()

	out.QuestionID = strings.TrimSpace(out.QuestionID)
	if inst, ok := domain.ParseInstrument(string(out.Instrument)); ok {
		out.Instrument = inst
	}

	out.Dimension = domain.NormalizeDimension(out.Instrument, out.Dimension)
	if out.Dimension == "" {
		if q, ok := e.bank.Lookup(out.Instrument, out.QuestionID); ok {
			out.Dimension = q.Dimension
		}
	}

	out.Preference = strings.TrimSpace(out.Preference)
	if out.Instrument == domain.InstrumentTypeInventory {
		out.Preference = strings.ToUpper(out.Preference)
	}

	out.Text = truncateRunes(strings.TrimSpace(out.Text), e.params.MaxTextLength)

	if strategy, ok := e.strategies[out.Instrument]; ok {
		out.Value = cleanFloat(out.Value, strategy.CleanValue)
	} else {
		out.Value = cleanFloat(out.Value, func(v float64) float64 { return v })
	}
	out.Satisfaction = cleanFloat(out.Satisfaction, clampTo(ratingMin, ratingMax))
	out.Importance = cleanFloat(out.Importance, clampTo(ratingMin, ratingMax))
	out.Confidence = cleanFloat(out.Confidence, clampTo(0, 1))

	if out.ResponseTime < 0 {
		out.ResponseTime = 0
	}

	out.Metadata = cleanMetadata(out.Metadata)
	return out
}

// CleanAnswerDataBatch cleans every answer and keeps only the latest record
// per question, judged by CreatedAt with later positions winning ties. The
// surviving records keep their input order. Answers without a question ID
// are kept so validation can report them.
func (e *engine) CleanAnswerDataBatch(answers []domain.AnswerRecord) []domain.AnswerRecord {
	cleaned := make([]domain.AnswerRecord, len(answers))
	for i, a := range answers {
		cleaned[i] = e.CleanAnswerData(a)
	}

	type key struct {
		instrument domain.Instrument
		question   string
	}
	winners := make(map[key]int, len(cleaned))
	for i, a := range cleaned {
		if a.QuestionID == "" {
			continue
		}
		k := key{a.Instrument, a.QuestionID}
		if j, seen := winners[k]; !seen || !a.CreatedAt.Before(cleaned[j].CreatedAt) {
			winners[k] = i
		}
	}

	out := make([]domain.AnswerRecord, 0, len(winners))
	for i, a := range cleaned {
		if a.QuestionID == "" || winners[key{a.Instrument, a.QuestionID}] == i {
			out = append(out, a)
		}
	}
	return out
}

func cleanFloat(p *float64, fn func(float64) float64) *float64 {
	if p == nil || math.IsNaN(*p) {
		return nil
	}
	v := fn(*p)
	return &v
}

func clampTo(lo, hi float64) func(float64) float64 {
	return func(v float64) float64 { return clamp(v, lo, hi) }
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func cleanMetadata(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if _, ok := allowedMetadataKeys[k]; ok && isScalar(v) {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
