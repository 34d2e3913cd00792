package scoring

import (
	"github.com/phrazzld/psyche-api/internal/domain"
)

// prepared is the shared front half of the pipeline.
type prepared struct {
	strategy Strategy
	cleaned  []domain.AnswerRecord
	valid    []domain.AnswerRecord
}

// prepare cleans answers, keeps the latest record per question and filters
// out answers that fail validation for instrument. Flagged answers are kept
// even when invalid.
func (e *engine) prepare(instrument domain.Instrument, answers []domain.AnswerRecord) (*prepared, error) {
	strategy, err := e.strategy(instrument)
	if err != nil {
		return nil, err
	}

	cleaned := e.CleanAnswerDataBatch(answers)
	valid := make([]domain.AnswerRecord, 0, len(cleaned))
	for _, a := range cleaned {
		if e.validate(a, instrument).keep() {
			valid = append(valid, a)
		}
	}

	return &prepared{strategy: strategy, cleaned: cleaned, valid: valid}, nil
}

// GenerateResult runs the full pipeline for one answer set.
//
// The steps are: clean, validate (counting dropped answers), score each
// dimension, analyze the answer pattern, derive the composite label and
// overall score, then attach recommendations and metadata. Risk indicators
// are collected from every cleaned answer, valid or not.
//
// When no valid answers remain the result carries the insufficient_data
// label with zero confidence; that is not an error. The only error returned
// is a *domain.ConfigurationError for an unsupported instrument.
func (e *engine) GenerateResult(instrument domain.Instrument, answers []domain.AnswerRecord) (*domain.Result, error) {
	start := e.now()

	p, err := e.prepare(instrument, answers)
	if err != nil {
		return nil, err
	}

	risk := p.strategy.RiskIndicators(p.cleaned)
	result := &domain.Result{
		Instrument:      instrument,
		DimensionScores: []domain.DimensionScore{},
		Pattern:         e.analyzePattern(p.strategy, p.valid),
		RiskFlag:        len(risk) > 0,
		RiskIndicators:  risk,
	}

	if len(p.valid) == 0 {
		result.Label = domain.LabelInsufficientData
	} else {
		result.DimensionScores = p.strategy.Score(p.valid)
		result.Label, result.Overall = p.strategy.Summarize(result.DimensionScores)
		// Unanswered dimensions count as zero confidence.
		confidences := make([]float64, len(result.DimensionScores))
		for i, ds := range result.DimensionScores {
			confidences[i] = ds.Confidence
		}
		result.Confidence = mean(confidences)
		result.Reliability = result.Pattern.ReliabilityScore
	}

	result.Recommendations = e.recommend(result)

	end := e.now()
	result.Metadata = domain.ResultMetadata{
		Instrument:       instrument,
		AlgorithmVersion: AlgorithmVersion,
		ProcessingTime:   end.Sub(start),
		GeneratedAt:      end.UTC(),
		TotalAnswers:     len(answers),
		ValidAnswers:     len(p.valid),
		DroppedAnswers:   len(p.cleaned) - len(p.valid),
	}

	return result, nil
}
