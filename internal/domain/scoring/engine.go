package scoring

import (
	"errors"
	"time"

	"github.com/phrazzld/psyche-api/internal/domain"
	"github.com/phrazzld/psyche-api/internal/questionbank"
)

// ErrNilBank is returned when an engine is created without a question bank.
var ErrNilBank = errors.New("question bank cannot be nil")

// Engine defines the scoring operations exposed to the rest of the application
type Engine interface {
	// ValidateAnswerData checks one raw answer against the instrument it names.
	ValidateAnswerData(answer domain.AnswerRecord) ValidationResult

	// CleanAnswerData returns a normalized copy of one answer.
	CleanAnswerData(answer domain.AnswerRecord) domain.AnswerRecord

	// CleanAnswerDataBatch cleans a batch and keeps the latest record per question.
	CleanAnswerDataBatch(answers []domain.AnswerRecord) []domain.AnswerRecord

	// CalculateDimensionScores scores the valid answers per dimension.
	CalculateDimensionScores(
		instrument domain.Instrument,
		answers []domain.AnswerRecord,
	) ([]domain.DimensionScore, error)

	// AnalyzeAnswerPattern summarizes completion, timing and consistency.
	AnalyzeAnswerPattern(
		instrument domain.Instrument,
		answers []domain.AnswerRecord,
	) (domain.AnswerPattern, error)

	// GenerateResult runs the whole pipeline and returns the canonical result.
	GenerateResult(instrument domain.Instrument, answers []domain.AnswerRecord) (*domain.Result, error)

	// ExpectedAnswers returns the number of bank questions for the instrument.
	ExpectedAnswers(instrument domain.Instrument) int
}

// Option configures an engine.
type Option func(*engine)

// WithClock overrides the time source used for result metadata.
func WithClock(now func() time.Time) Option {
	return func(e *engine) {
		e.now = now
	}
}

// engine is the standard implementation of the Engine interface
type engine struct {
	bank       *questionbank.Bank
	params     *Params
	strategies map[domain.Instrument]Strategy
	now        func() time.Time
}

// NewEngine creates a new scoring engine with default parameters
func NewEngine(bank *questionbank.Bank, opts ...Option) (Engine, error) {
	return NewEngineWithParams(bank, NewDefaultParams(), opts...)
}

// NewEngineWithParams creates a new scoring engine with custom parameters
func NewEngineWithParams(bank *questionbank.Bank, params *Params, opts ...Option) (Engine, error) {
	if bank == nil {
		return nil, ErrNilBank
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	e := &engine{
		bank:       bank,
		params:     params,
		strategies: newStrategies(bank, params),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *engine) strategy(instrument domain.Instrument) (Strategy, error) {
	s, ok := e.strategies[instrument]
	if !ok {
		return nil, domain.NewUnsupportedInstrumentError(instrument)
	}
	return s, nil
}

// ValidateAnswerData implements the Engine interface. An answer naming an
// unknown instrument is reported as a validation error, not a Go error.
func (e *engine) ValidateAnswerData(answer domain.AnswerRecord) ValidationResult {
	return e.validate(answer, "")
}

// CalculateDimensionScores implements the Engine interface
func (e *engine) CalculateDimensionScores(
	instrument domain.Instrument,
	answers []domain.AnswerRecord,
) ([]domain.DimensionScore, error) {
	p, err := e.prepare(instrument, answers)
	if err != nil {
		return nil, err
	}
	return p.strategy.Score(p.valid), nil
}

// AnalyzeAnswerPattern implements the Engine interface
func (e *engine) AnalyzeAnswerPattern(
	instrument domain.Instrument,
	answers []domain.AnswerRecord,
) (domain.AnswerPattern, error) {
	p, err := e.prepare(instrument, answers)
	if err != nil {
		return domain.AnswerPattern{}, err
	}
	return e.analyzePattern(p.strategy, p.valid), nil
}

// ExpectedAnswers implements the Engine interface
func (e *engine) ExpectedAnswers(instrument domain.Instrument) int {
	return e.bank.Expected(instrument)
}
