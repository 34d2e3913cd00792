package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/phrazzld/psyche-api/internal/domain"
)

// AlgorithmVersion is stamped into every result's metadata.
const AlgorithmVersion = "psyche-scoring/2.1.0"

// Band maps an inclusive lower bound to a label. Band tables are ordered by
// descending Lower so the first match wins.
type Band struct {
	Lower float64
	Label string
}

// Params defines all tunable constants of the scoring pipeline
type Params struct {
	// Strength thresholds on a normalized [0,1] margin
	StrongThreshold   float64
	ModerateThreshold float64

	// Cleaning
	MaxTextLength   int
	MinResponseTime int64 // milliseconds; faster answers get a careless-responding warning

	// Pattern analysis
	ConsistencyMaxVariance float64
	CompletionWeight       float64
	ConsistencyWeight      float64
	ConfidenceEdges        []float64
	ResponseTimeEdges      []float64 // milliseconds

	// Synthesis
	LowReliabilityThreshold float64

	// Label tables
	SeverityBands    []Band
	CompetencyLevels []Band
	WellbeingLevels  []Band
}

// ParamsConfig allows overriding the default parameters when creating a new
// Params instance. Zero values keep the defaults.
type ParamsConfig struct {
	MaxTextLength           int
	MinResponseTime         int64
	LowReliabilityThreshold float64
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		StrongThreshold:   0.6,
		ModerateThreshold: 0.3,

		MaxTextLength:   2000,
		MinResponseTime: 300,

		// 0.25 is the largest variance of values confined to [0,1]
		ConsistencyMaxVariance: 0.25,
		CompletionWeight:       0.4,
		ConsistencyWeight:      0.6,
		ConfidenceEdges:        []float64{0, 0.2, 0.4, 0.6, 0.8, 1.0},
		ResponseTimeEdges:      []float64{0, 2000, 5000, 10000, 30000},

		LowReliabilityThreshold: 0.5,

		SeverityBands: []Band{
			{Lower: 15, Label: "severe"},
			{Lower: 10, Label: "moderate"},
			{Lower: 5, Label: "mild"},
			{Lower: 0, Label: "none"},
		},
		CompetencyLevels: []Band{
			{Lower: 4.0, Label: "high"},
			{Lower: 2.5, Label: "moderate"},
			{Lower: 1, Label: "low"},
		},
		WellbeingLevels: []Band{
			{Lower: 8, Label: "excellent"},
			{Lower: 6, Label: "good"},
			{Lower: 4, Label: "fair"},
			{Lower: 0, Label: "low"},
		},
	}
}

// NewParams creates a new Params instance with custom values, falling back
// to defaults for any zero values in config
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.MaxTextLength != 0 {
		params.MaxTextLength = config.MaxTextLength
	}
	if config.MinResponseTime != 0 {
		params.MinResponseTime = config.MinResponseTime
	}
	if config.LowReliabilityThreshold != 0 {
		params.LowReliabilityThreshold = config.LowReliabilityThreshold
	}

	return params
}

// ErrInvalidParams is returned when a Params instance cannot drive the pipeline.
var ErrInvalidParams = errors.New("invalid scoring parameters")

// Validate checks that thresholds are ordered and tables are usable.
func (p *Params) Validate() error {
	switch {
	case p == nil:
		return fmt.Errorf("%w: nil params", ErrInvalidParams)
	case p.ModerateThreshold <= 0 || p.StrongThreshold <= p.ModerateThreshold || p.StrongThreshold > 1:
		return fmt.Errorf("%w: strength thresholds must satisfy 0 < moderate < strong <= 1", ErrInvalidParams)
	case p.MaxTextLength <= 0:
		return fmt.Errorf("%w: max text length must be positive", ErrInvalidParams)
	case p.MinResponseTime < 0:
		return fmt.Errorf("%w: min response time cannot be negative", ErrInvalidParams)
	case p.ConsistencyMaxVariance <= 0:
		return fmt.Errorf("%w: consistency variance must be positive", ErrInvalidParams)
	case p.CompletionWeight < 0 || p.ConsistencyWeight < 0 || math.Abs(p.CompletionWeight+p.ConsistencyWeight-1) > 1e-9:
		return fmt.Errorf("%w: reliability weights must be non-negative and sum to 1", ErrInvalidParams)
	case len(p.ConfidenceEdges) < 2 || len(p.ResponseTimeEdges) < 1:
		return fmt.Errorf("%w: histogram edges missing", ErrInvalidParams)
	case len(p.SeverityBands) == 0 || len(p.CompetencyLevels) == 0 || len(p.WellbeingLevels) == 0:
		return fmt.Errorf("%w: label tables cannot be empty", ErrInvalidParams)
	}
	return nil
}

// strength classifies a normalized margin.
func (p *Params) strength(margin float64) domain.Strength {
	switch {
	case margin >= p.StrongThreshold:
		return domain.StrengthStrong
	case margin >= p.ModerateThreshold:
		return domain.StrengthModerate
	default:
		return domain.StrengthWeak
	}
}

// band returns the label of the first band whose lower bound v reaches. Values
// below every band take the last label.
func band(bands []Band, v float64) string {
	for _, b := range bands {
		if v >= b.Lower {
			return b.Label
		}
	}
	return bands[len(bands)-1].Label
}
