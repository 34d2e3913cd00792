package scoring

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/phrazzld/psyche-api/internal/domain"
	"github.com/phrazzld/psyche-api/internal/questionbank"
)

// RiskSelfHarmIdeation is the flag raised by a positive self-harm item.
const RiskSelfHarmIdeation = "self_harm_ideation"

// allowedMetadataKeys are the client metadata keys kept by cleaning.
var allowedMetadataKeys = map[string]struct{}{
	"device":         {},
	"platform":       {},
	"locale":         {},
	"timezone":       {},
	"source":         {},
	"client_version": {},
	"attempt":        {},
	"skipped":        {},
	"page":           {},
}

// ValidationResult describes the problems found in one answer. Bad input
// never produces an error; it produces a ValidationResult with IsValid false.
type ValidationResult struct {
	IsValid     bool     `json:"is_valid"`
	Errors      []string `json:"errors"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
	// Flags carry safety signals. Flagged answers are never dropped.
	Flags []string `json:"flags"`
}

func newValidationResult() ValidationResult {
	return ValidationResult{
		IsValid:     true,
		Errors:      []string{},
		Warnings:    []string{},
		Suggestions: []string{},
		Flags:       []string{},
	}
}

func (v *ValidationResult) addError(format string, args ...any) {
	v.IsValid = false
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

func (v *ValidationResult) addWarning(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

func (v *ValidationResult) addSuggestion(format string, args ...any) {
	v.Suggestions = append(v.Suggestions, fmt.Sprintf(format, args...))
}

func (v *ValidationResult) addFlag(flag string) {
	for _, f := range v.Flags {
		if f == flag {
			return
		}
	}
	v.Flags = append(v.Flags, flag)
}

// keep reports whether the answer should reach the scorer.
func (v ValidationResult) keep() bool {
	return v.IsValid || len(v.Flags) > 0
}

// validate runs the shared checks and then the instrument strategy's checks.
// An empty expected instrument accepts whatever instrument the answer names.
func (e *engine) validate(answer domain.AnswerRecord, expected domain.Instrument) ValidationResult {
	vr := newValidationResult()

	strategy, ok := e.strategies[answer.Instrument]
	if !ok {
		vr.addError("instrument: unknown instrument %q", answer.Instrument)
		if inst, valid := domain.ParseInstrument(string(answer.Instrument)); valid {
			vr.addSuggestion("instrument: use %q", inst)
		}
		return vr
	}
	if expected != "" && answer.Instrument != expected {
		vr.addError("instrument: answer belongs to %s, expected %s", answer.Instrument, expected)
		return vr
	}

	if strings.TrimSpace(answer.QuestionID) == "" {
		vr.addError("question_id: required")
	}

	var question *questionbank.Question
	if q, found := e.bank.Lookup(answer.Instrument, answer.QuestionID); found {
		question = &q
	}

	switch {
	case answer.Dimension == "":
		vr.addError("dimension: required")
		if question != nil {
			vr.addSuggestion("dimension: question %s measures %s", question.ID, question.Dimension)
		}
	case !answer.Instrument.HasDimension(answer.Dimension):
		vr.addError("dimension: %q is not a dimension of %s", answer.Dimension, answer.Instrument)
		if norm := domain.NormalizeDimension(answer.Instrument, answer.Dimension); answer.Instrument.HasDimension(norm) {
			vr.addSuggestion("dimension: use %q", norm)
		}
	case question != nil && question.Dimension != answer.Dimension:
		vr.addError("dimension: question %s measures %s, not %s", question.ID, question.Dimension, answer.Dimension)
	}

	if question == nil && answer.QuestionID != "" {
		vr.addWarning("question_id: %s is not in question bank %s", answer.QuestionID, e.bank.Version())
	}

	if answer.Confidence != nil && !inRange(*answer.Confidence, 0, 1) {
		vr.addError("confidence: must be between 0 and 1, got %g", *answer.Confidence)
	}

	switch {
	case answer.ResponseTime < 0:
		vr.addError("response_time_ms: cannot be negative")
	case answer.ResponseTime > 0 && answer.ResponseTime < e.params.MinResponseTime:
		vr.addWarning("response_time_ms: answered in %dms, possible careless responding", answer.ResponseTime)
	}

	if n := utf8.RuneCountInString(answer.Text); n > e.params.MaxTextLength {
		vr.addWarning("text: %d characters will be truncated to %d", n, e.params.MaxTextLength)
	}

	for _, key := range slices.Sorted(maps.Keys(answer.Metadata)) {
		value := answer.Metadata[key]
		if _, known := allowedMetadataKeys[key]; !known {
			vr.addWarning("metadata: unknown key %q will be dropped", key)
			continue
		}
		if !isScalar(value) {
			vr.addWarning("metadata: value of %q is not a scalar and will be dropped", key)
		}
	}

	if answer.Instrument != domain.InstrumentTypeInventory && answer.Preference != "" {
		vr.addWarning("preference: ignored for %s", answer.Instrument)
	}

	strategy.ValidateAnswer(answer, question, &vr)
	return vr
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}
