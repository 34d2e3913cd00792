package scoring

import (
	"fmt"

	"github.com/phrazzld/psyche-api/internal/domain"
)

// analyzePattern derives the answer pattern of validated answers.
//
// Parameters:
//   - strategy: The instrument strategy, used to normalize values for consistency
//   - answers: Cleaned, validated answers of that instrument
//
// Returns:
//   - AverageResponseTime and ResponseTimeHistogram: over answers with a
//     recorded (positive) response time; 0 and empty when none has one
//   - CompletionRate: distinct answered questions / bank questions, capped at 1,
//     and 0 when the bank has no questions for the instrument
//   - ConsistencyScore: mean over the dimensions the bank probes with at least
//     two questions of 1 - variance/ConsistencyMaxVariance, where a dimension
//     with fewer than two answers scores 0; 1 when the bank has no such
//     dimension, 0 on empty input
//   - ReliabilityScore: CompletionWeight*completion + ConsistencyWeight*consistency
func (e *engine) analyzePattern(strategy Strategy, answers []domain.AnswerRecord) domain.AnswerPattern {
	instrument := strategy.Instrument()
	expected := e.bank.Expected(instrument)

	pattern := domain.AnswerPattern{
		TotalAnswers:          len(answers),
		ExpectedAnswers:       expected,
		ConfidenceHistogram:   confidenceBuckets(e.params.ConfidenceEdges),
		ResponseTimeHistogram: responseTimeBuckets(e.params.ResponseTimeEdges),
		DimensionHistogram:    map[string]int{},
	}
	if len(answers) == 0 {
		return pattern
	}

	distinct := make(map[string]struct{}, len(answers))
	var totalTime float64
	var timed int
	for _, a := range answers {
		distinct[a.QuestionID] = struct{}{}
		pattern.DimensionHistogram[a.Dimension]++
		pattern.ConfidenceHistogram[bucketIndex(e.params.ConfidenceEdges, a.ConfidenceOr(1), true)].Count++

		// 0 means the client did not record a time.
		if a.ResponseTime <= 0 {
			continue
		}
		timed++
		totalTime += float64(a.ResponseTime)
		pattern.ResponseTimeHistogram[bucketIndex(e.params.ResponseTimeEdges, float64(a.ResponseTime), false)].Count++
	}

	if expected > 0 {
		pattern.CompletionRate = clamp(float64(len(distinct))/float64(expected), 0, 1)
	}
	if timed > 0 {
		pattern.AverageResponseTime = totalTime / float64(timed)
	}
	pattern.ConsistencyScore = e.consistency(strategy, answers)
	pattern.ReliabilityScore = e.params.CompletionWeight*pattern.CompletionRate +
		e.params.ConsistencyWeight*pattern.ConsistencyScore

	return pattern
}

// consistency walks dimensions in canonical order so the floating point sum
// is reproducible. Single-item dimensions cannot disagree with themselves
// and are left out.
func (e *engine) consistency(strategy Strategy, answers []domain.AnswerRecord) float64 {
	instrument := strategy.Instrument()
	probed := make(map[string]int)
	for _, q := range e.bank.Questions(instrument) {
		probed[q.Dimension]++
	}

	normalized := make(map[string][]float64)
	for _, a := range answers {
		if v, ok := strategy.Normalize(a); ok {
			normalized[a.Dimension] = append(normalized[a.Dimension], v)
		}
	}

	var perDimension []float64
	for _, dim := range instrument.Dimensions() {
		if probed[dim] < 2 {
			continue
		}
		values := normalized[dim]
		if len(values) < 2 {
			perDimension = append(perDimension, 0)
			continue
		}
		perDimension = append(perDimension, clamp(1-variance(values)/e.params.ConsistencyMaxVariance, 0, 1))
	}

	if len(perDimension) == 0 {
		return 1
	}
	return mean(perDimension)
}

// confidenceBuckets builds closed-ended buckets; the final bucket includes
// its upper edge.
func confidenceBuckets(edges []float64) []domain.HistogramBucket {
	buckets := make([]domain.HistogramBucket, 0, len(edges)-1)
	for i := 0; i+1 < len(edges); i++ {
		buckets = append(buckets, domain.HistogramBucket{
			Label: fmt.Sprintf("%.1f-%.1f", edges[i], edges[i+1]),
			Lower: edges[i],
			Upper: edges[i+1],
		})
	}
	return buckets
}

// responseTimeBuckets builds one bucket per edge; the final bucket is open
// ended and reports Upper 0.
func responseTimeBuckets(edges []float64) []domain.HistogramBucket {
	buckets := make([]domain.HistogramBucket, 0, len(edges))
	for i, lower := range edges {
		b := domain.HistogramBucket{Lower: lower}
		if i+1 < len(edges) {
			b.Upper = edges[i+1]
			b.Label = fmt.Sprintf("%g-%gms", lower, edges[i+1])
		} else {
			b.Label = fmt.Sprintf(">=%gms", lower)
		}
		buckets = append(buckets, b)
	}
	return buckets
}

// bucketIndex finds the bucket whose inclusive lower edge v reaches. Values
// below the first edge land in the first bucket. For closed histograms the
// last edge is an upper bound, not a bucket of its own.
func bucketIndex(edges []float64, v float64, closed bool) int {
	last := len(edges) - 1
	if closed {
		last = len(edges) - 2
	}
	for i := last; i > 0; i-- {
		if v >= edges[i] {
			return i
		}
	}
	return 0
}
