package domain

import "time"

// Strength classifies how decisive a dimension score is.
type Strength string

// Strength values.
const (
	StrengthStrong   Strength = "strong"
	StrengthModerate Strength = "moderate"
	StrengthWeak     Strength = "weak"
)

// LabelInsufficientData is the result label used when no valid answers remain
// after cleaning.
const LabelInsufficientData = "insufficient_data"

// DimensionScore is the aggregate score for one dimension or domain.
type DimensionScore struct {
	Dimension string `json:"dimension"`
	// SubScores holds per-pole sums for binary dimensions, or named
	// sub-scale means (e.g. "mean", "satisfaction") for ordinal scales.
	SubScores  map[string]float64 `json:"sub_scores"`
	Score      float64            `json:"score"`
	ItemCount  int                `json:"item_count"`
	Label      string             `json:"label"`
	Confidence float64            `json:"confidence"`
	Strength   Strength           `json:"strength"`
}

// HistogramBucket is one bucket of a fixed-edge histogram. Lower bounds are
// inclusive, upper bounds exclusive except for the final bucket.
type HistogramBucket struct {
	Label string  `json:"label"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// AnswerPattern summarizes how an answer set was given.
type AnswerPattern struct {
	TotalAnswers          int               `json:"total_answers"`
	ExpectedAnswers       int               `json:"expected_answers"`
	CompletionRate        float64           `json:"completion_rate"`
	AverageResponseTime   float64           `json:"average_response_time_ms"`
	ConfidenceHistogram   []HistogramBucket `json:"confidence_histogram"`
	ResponseTimeHistogram []HistogramBucket `json:"response_time_histogram"`
	DimensionHistogram    map[string]int    `json:"dimension_histogram"`
	ConsistencyScore      float64           `json:"consistency_score"`
	ReliabilityScore      float64           `json:"reliability_score"`
}

// Recommendation is a fixed entry from the recommendation rule table.
type Recommendation struct {
	Code     string `json:"code"`
	Priority int    `json:"priority"`
	Message  string `json:"message"`
}

// ResultMetadata carries diagnostic information about a scoring run.
// GeneratedAt and ProcessingTime are the only fields that vary between runs
// over identical input.
type ResultMetadata struct {
	Instrument       Instrument    `json:"instrument"`
	AlgorithmVersion string        `json:"algorithm_version"`
	ProcessingTime   time.Duration `json:"processing_time"`
	GeneratedAt      time.Time     `json:"generated_at"`
	TotalAnswers     int           `json:"total_answers"`
	ValidAnswers     int           `json:"valid_answers"`
	DroppedAnswers   int           `json:"dropped_answers"`
}

// Result is the canonical scoring outcome for one answer set.
type Result struct {
	Instrument      Instrument       `json:"instrument"`
	Label           string           `json:"label"`
	Overall         float64          `json:"overall"`
	DimensionScores []DimensionScore `json:"dimension_scores"`
	Pattern         AnswerPattern    `json:"pattern"`
	Confidence      float64          `json:"confidence"`
	Reliability     float64          `json:"reliability"`
	RiskFlag        bool             `json:"risk_flag"`
	RiskIndicators  []string         `json:"risk_indicators,omitempty"`
	Recommendations []Recommendation `json:"recommendations"`
	Metadata        ResultMetadata   `json:"metadata"`
}

// IsInsufficient reports whether the result was produced without any valid answers.
func (r *Result) IsInsufficient() bool {
	return r != nil && r.Label == LabelInsufficientData
}

// Dimension returns the score for the named dimension, if present.
func (r *Result) Dimension(name string) (DimensionScore, bool) {
	if r == nil {
		return DimensionScore{}, false
	}
	for _, ds := range r.DimensionScores {
		if ds.Dimension == name {
			return ds, true
		}
	}
	return DimensionScore{}, false
}
