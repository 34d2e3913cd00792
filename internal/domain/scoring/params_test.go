package scoring

import (
	"errors"
	"testing"

	"github.com/phrazzld/psyche-api/internal/domain"
)

func TestNewDefaultParams(t *testing.T) {
	params := NewDefaultParams()

	if err := params.Validate(); err != nil {
		t.Fatalf("Default params should validate, got %v", err)
	}

	if params.CompletionWeight != 0.4 || params.ConsistencyWeight != 0.6 {
		t.Errorf("Expected reliability weights 0.4/0.6, got %f/%f",
			params.CompletionWeight, params.ConsistencyWeight)
	}

	if len(params.ConfidenceEdges) != 6 {
		t.Errorf("Expected 6 confidence edges, got %d", len(params.ConfidenceEdges))
	}

	if params.MaxTextLength != 2000 {
		t.Errorf("Expected max text length 2000, got %d", params.MaxTextLength)
	}
}

func TestNewParams(t *testing.T) {
	params := NewParams(ParamsConfig{MinResponseTime: 500})

	if params.MinResponseTime != 500 {
		t.Errorf("Expected MinResponseTime 500, got %d", params.MinResponseTime)
	}
	if params.MaxTextLength != NewDefaultParams().MaxTextLength {
		t.Errorf("Expected default MaxTextLength, got %d", params.MaxTextLength)
	}
}

func TestParamsValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"inverted thresholds", func(p *Params) { p.StrongThreshold = 0.2 }},
		{"zero text length", func(p *Params) { p.MaxTextLength = 0 }},
		{"weights not summing to one", func(p *Params) { p.ConsistencyWeight = 0.9 }},
		{"missing edges", func(p *Params) { p.ConfidenceEdges = nil }},
		{"empty band table", func(p *Params) { p.SeverityBands = nil }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewDefaultParams()
			tc.mutate(p)
			if err := p.Validate(); !errors.Is(err, ErrInvalidParams) {
				t.Errorf("Expected ErrInvalidParams, got %v", err)
			}
		})
	}

	var nilParams *Params
	if err := nilParams.Validate(); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("Expected ErrInvalidParams for nil params, got %v", err)
	}
}

func TestSeverityBandBoundaries(t *testing.T) {
	params := NewDefaultParams()

	testCases := []struct {
		total float64
		want  string
	}{
		{0, "none"},
		{4, "none"},
		{5, "mild"},
		{9, "mild"},
		{10, "moderate"},
		{14, "moderate"},
		{15, "severe"},
		{27, "severe"},
	}

	for _, tc := range testCases {
		if got := band(params.SeverityBands, tc.total); got != tc.want {
			t.Errorf("band(%v) = %q, want %q", tc.total, got, tc.want)
		}
	}
}

func TestStrength(t *testing.T) {
	params := NewDefaultParams()

	testCases := []struct {
		margin float64
		want   domain.Strength
	}{
		{1, domain.StrengthStrong},
		{0.6, domain.StrengthStrong},
		{0.59, domain.StrengthModerate},
		{0.3, domain.StrengthModerate},
		{0.29, domain.StrengthWeak},
		{0, domain.StrengthWeak},
	}

	for _, tc := range testCases {
		if got := params.strength(tc.margin); got != tc.want {
			t.Errorf("strength(%v) = %s, want %s", tc.margin, got, tc.want)
		}
	}
}

func TestReverseScoreIsInvolution(t *testing.T) {
	scales := [][2]float64{{1, 5}, {0, 10}, {0, 3}}

	for _, s := range scales {
		for v := s[0]; v <= s[1]; v += 0.5 {
			if got := ReverseScore(ReverseScore(v, s[0], s[1]), s[0], s[1]); got != v {
				t.Errorf("reverse(reverse(%v)) on [%v,%v] = %v", v, s[0], s[1], got)
			}
		}
	}

	if got := ReverseScore(1, 1, 5); got != 5 {
		t.Errorf("Expected reverse of 1 on [1,5] to be 5, got %v", got)
	}
}
