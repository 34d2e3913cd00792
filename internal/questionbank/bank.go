// Package questionbank holds the read-only question reference table that
// maps each instrument's question IDs to the dimension they probe, their
// scoring direction and weight. The bank is loaded once at process start and
// shared immutably by every scoring call.
package questionbank

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/phrazzld/psyche-api/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed default_bank.yaml
var defaultBankYAML []byte

// Load errors.
var (
	ErrDuplicateQuestion = errors.New("duplicate question ID")
	ErrInvalidQuestion   = errors.New("invalid question definition")
)

// Question is one scoring key in the bank.
type Question struct {
	ID         string            `yaml:"id" json:"id"`
	Instrument domain.Instrument `yaml:"-" json:"instrument"`
	Dimension  string            `yaml:"dimension" json:"dimension"`
	// Reverse marks items worded against their dimension's polarity.
	Reverse bool `yaml:"reverse" json:"reverse"`
	// KeyedPole is the type inventory pole that agreement points toward.
	KeyedPole string  `yaml:"keyed_pole" json:"keyed_pole,omitempty"`
	Weight    float64 `yaml:"weight" json:"weight"`
}

type bankFile struct {
	Version     string                            `yaml:"version"`
	Instruments map[domain.Instrument][]*Question `yaml:"instruments"`
}

type questionKey struct {
	instrument domain.Instrument
	id         string
}

// Bank is an immutable question table. All methods are safe for concurrent use.
type Bank struct {
	version      string
	questions    map[questionKey]Question
	byInstrument map[domain.Instrument][]Question
}

// Default returns the bank compiled into the binary.
func Default() (*Bank, error) {
	return Load(bytes.NewReader(defaultBankYAML))
}

// LoadFile reads a bank from a YAML file on disk.
func LoadFile(path string) (*Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open question bank: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Load(f)
}

// Load parses and validates a YAML bank. Every question must name a
// dimension of its instrument, and type inventory questions must be keyed to
// one of their dimension's poles.
func Load(r io.Reader) (*Bank, error) {
	var file bankFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode question bank: %w", err)
	}

	bank := &Bank{
		version:      file.Version,
		questions:    make(map[questionKey]Question),
		byInstrument: make(map[domain.Instrument][]Question),
	}

	for _, instrument := range domain.Instruments() {
		for _, q := range file.Instruments[instrument] {
			if q == nil {
				continue
			}
			q.Instrument = instrument
			if err := bank.add(*q); err != nil {
				return nil, err
			}
		}
	}

	for instrument := range file.Instruments {
		if !instrument.IsValid() {
			return nil, domain.NewUnsupportedInstrumentError(instrument)
		}
	}

	return bank, nil
}

func (b *Bank) add(q Question) error {
	if q.ID == "" {
		return fmt.Errorf("%w: %s question without ID", ErrInvalidQuestion, q.Instrument)
	}
	if !q.Instrument.HasDimension(q.Dimension) {
		return domain.NewUnsupportedDimensionError(q.Instrument, q.Dimension)
	}
	if q.Instrument == domain.InstrumentTypeInventory {
		first, second, _ := domain.Poles(q.Dimension)
		if q.KeyedPole != first && q.KeyedPole != second {
			return fmt.Errorf("%w: %s keyed to %q, want %s or %s",
				ErrInvalidQuestion, q.ID, q.KeyedPole, first, second)
		}
	}
	if q.Weight < 0 {
		return fmt.Errorf("%w: %s has negative weight", ErrInvalidQuestion, q.ID)
	}
	if q.Weight == 0 {
		q.Weight = 1
	}

	key := questionKey{instrument: q.Instrument, id: q.ID}
	if _, exists := b.questions[key]; exists {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateQuestion, q.Instrument, q.ID)
	}
	b.questions[key] = q
	b.byInstrument[q.Instrument] = append(b.byInstrument[q.Instrument], q)
	return nil
}

// Version returns the bank's declared version.
func (b *Bank) Version() string {
	return b.version
}

// Lookup returns the question with the given ID for the instrument.
func (b *Bank) Lookup(instrument domain.Instrument, id string) (Question, bool) {
	q, ok := b.questions[questionKey{instrument: instrument, id: id}]
	return q, ok
}

// Expected returns the number of questions the instrument asks.
func (b *Bank) Expected(instrument domain.Instrument) int {
	return len(b.byInstrument[instrument])
}

// Questions returns a copy of the instrument's questions in bank order.
func (b *Bank) Questions(instrument domain.Instrument) []Question {
	qs := b.byInstrument[instrument]
	out := make([]Question, len(qs))
	copy(out, qs)
	return out
}
