// Package export renders a session's answers for download in JSON, CSV or
// XML, optionally with computed scores and gzip compression.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/phrazzld/psyche-api/internal/domain"
	"github.com/phrazzld/psyche-api/internal/domain/scoring"
)

// Format selects the export encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXML  Format = "xml"
)

// ErrUnsupportedFormat is returned for a format outside json, csv and xml.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat maps a user-supplied format name onto a Format. An empty name
// selects JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatXML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Options controls what goes into an export.
type Options struct {
	IncludeMetadata     bool
	IncludeTimestamps   bool
	IncludeCalculations bool
	// Language is a BCP 47 tag; it is matched against the supported
	// languages and falls back to English.
	Language string
	Format   Format
	Compress bool
}

// Payload is a rendered export ready to be written to a client.
type Payload struct {
	Format      Format
	ContentType string
	Filename    string
	Language    string
	Compressed  bool
	Data        []byte
}

// Exporter renders answer exports. It is safe for concurrent use.
type Exporter struct {
	engine scoring.Engine
	now    func() time.Time
}

// NewExporter creates an Exporter that uses engine for calculations.
func NewExporter(engine scoring.Engine) *Exporter {
	return &Exporter{engine: engine, now: time.Now}
}

type metadataEntry struct {
	Key   string `json:"key" xml:"key,attr"`
	Value string `json:"value" xml:",chardata"`
}

type answerRow struct {
	QuestionID   string          `json:"question_id" xml:"question_id,attr"`
	Dimension    string          `json:"dimension" xml:"dimension,attr"`
	Value        *float64        `json:"value,omitempty" xml:"value,omitempty"`
	Preference   string          `json:"preference,omitempty" xml:"preference,omitempty"`
	Satisfaction *float64        `json:"satisfaction,omitempty" xml:"satisfaction,omitempty"`
	Importance   *float64        `json:"importance,omitempty" xml:"importance,omitempty"`
	Confidence   *float64        `json:"confidence,omitempty" xml:"confidence,omitempty"`
	Text         string          `json:"text,omitempty" xml:"text,omitempty"`
	ResponseTime int64           `json:"response_time_ms" xml:"response_time_ms"`
	Metadata     []metadataEntry `json:"metadata,omitempty" xml:"metadata>entry,omitempty"`
	CreatedAt    *time.Time      `json:"created_at,omitempty" xml:"created_at,omitempty"`
}

type calculations struct {
	DimensionScores []scoreRow `json:"dimension_scores" xml:"dimension_scores>dimension"`
	CompletionRate  float64    `json:"completion_rate" xml:"completion_rate"`
	Consistency     float64    `json:"consistency_score" xml:"consistency_score"`
	Reliability     float64    `json:"reliability_score" xml:"reliability_score"`
}

type scoreRow struct {
	Dimension  string  `json:"dimension" xml:"name,attr"`
	Score      float64 `json:"score" xml:"score"`
	Label      string  `json:"label" xml:"label"`
	Confidence float64 `json:"confidence" xml:"confidence"`
	Strength   string  `json:"strength" xml:"strength"`
	ItemCount  int     `json:"item_count" xml:"item_count"`
}

type document struct {
	XMLName      xml.Name      `json:"-" xml:"answer_export"`
	Title        string        `json:"title" xml:"title"`
	SessionID    string        `json:"session_id" xml:"session_id,attr"`
	TestType     string        `json:"test_type" xml:"test_type,attr"`
	Language     string        `json:"language" xml:"language,attr"`
	ExportedAt   *time.Time    `json:"exported_at,omitempty" xml:"exported_at,omitempty"`
	Answers      []answerRow   `json:"answers" xml:"answers>answer"`
	Calculations *calculations `json:"calculations,omitempty" xml:"calculations,omitempty"`
}

// ExportAnswerData renders answers of one session. testType names the
// instrument and is used to compute scores when IncludeCalculations is set.
func (x *Exporter) ExportAnswerData(
	sessionID uuid.UUID,
	testType domain.Instrument,
	answers []domain.AnswerRecord,
	opts Options,
) (*Payload, error) {
	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}
	lang := matchLanguage(opts.Language)
	text := labelsFor(lang)

	doc := document{
		Title:     text.title,
		SessionID: sessionID.String(),
		TestType:  string(testType),
		Language:  lang.String(),
		Answers:   make([]answerRow, 0, len(answers)),
	}
	if opts.IncludeTimestamps {
		now := x.now().UTC()
		doc.ExportedAt = &now
	}
	for _, a := range answers {
		doc.Answers = append(doc.Answers, toRow(a, opts))
	}

	if opts.IncludeCalculations {
		calc, err := x.calculate(testType, answers)
		if err != nil {
			return nil, err
		}
		doc.Calculations = calc
	}

	var (
		buf         bytes.Buffer
		contentType string
	)
	switch format {
	case FormatJSON:
		contentType = "application/json"
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		err = enc.Encode(doc)
	case FormatXML:
		contentType = "application/xml"
		buf.WriteString(xml.Header)
		enc := xml.NewEncoder(&buf)
		enc.Indent("", "  ")
		err = enc.Encode(doc)
	case FormatCSV:
		contentType = "text/csv"
		err = writeCSV(&buf, doc, opts, text)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s export: %w", format, err)
	}

	payload := &Payload{
		Format:      format,
		ContentType: contentType,
		Filename:    fmt.Sprintf("%s-%s.%s", testType, sessionID, format),
		Language:    lang.String(),
		Data:        buf.Bytes(),
	}

	if opts.Compress {
		compressed, err := gzipBytes(payload.Data, payload.Filename)
		if err != nil {
			return nil, err
		}
		payload.Data = compressed
		payload.Compressed = true
		payload.ContentType = "application/gzip"
		payload.Filename += ".gz"
	}

	return payload, nil
}

func (x *Exporter) calculate(instrument domain.Instrument, answers []domain.AnswerRecord) (*calculations, error) {
	scores, err := x.engine.CalculateDimensionScores(instrument, answers)
	if err != nil {
		return nil, err
	}
	pattern, err := x.engine.AnalyzeAnswerPattern(instrument, answers)
	if err != nil {
		return nil, err
	}

	calc := &calculations{
		DimensionScores: make([]scoreRow, 0, len(scores)),
		CompletionRate:  pattern.CompletionRate,
		Consistency:     pattern.ConsistencyScore,
		Reliability:     pattern.ReliabilityScore,
	}
	for _, ds := range scores {
		calc.DimensionScores = append(calc.DimensionScores, scoreRow{
			Dimension:  ds.Dimension,
			Score:      ds.Score,
			Label:      ds.Label,
			Confidence: ds.Confidence,
			Strength:   string(ds.Strength),
			ItemCount:  ds.ItemCount,
		})
	}
	return calc, nil
}

func toRow(a domain.AnswerRecord, opts Options) answerRow {
	row := answerRow{
		QuestionID:   a.QuestionID,
		Dimension:    a.Dimension,
		Value:        a.Value,
		Preference:   a.Preference,
		Satisfaction: a.Satisfaction,
		Importance:   a.Importance,
		Confidence:   a.Confidence,
		Text:         a.Text,
		ResponseTime: a.ResponseTime,
	}
	if opts.IncludeTimestamps && !a.CreatedAt.IsZero() {
		created := a.CreatedAt.UTC()
		row.CreatedAt = &created
	}
	if opts.IncludeMetadata && len(a.Metadata) > 0 {
		keys := make([]string, 0, len(a.Metadata))
		for k := range a.Metadata {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			row.Metadata = append(row.Metadata, metadataEntry{Key: k, Value: fmt.Sprint(a.Metadata[k])})
		}
	}
	return row
}

func writeCSV(w io.Writer, doc document, opts Options, l labels) error {
	cw := csv.NewWriter(w)

	header := []string{l.question, l.dimension, l.value, l.preference, l.satisfaction,
		l.importance, l.confidence, l.responseTime, l.text}
	if opts.IncludeMetadata {
		header = append(header, l.metadata)
	}
	if opts.IncludeTimestamps {
		header = append(header, l.createdAt)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range doc.Answers {
		record := []string{
			row.QuestionID,
			row.Dimension,
			formatFloat(row.Value),
			row.Preference,
			formatFloat(row.Satisfaction),
			formatFloat(row.Importance),
			formatFloat(row.Confidence),
			strconv.FormatInt(row.ResponseTime, 10),
			row.Text,
		}
		if opts.IncludeMetadata {
			var meta bytes.Buffer
			for i, e := range row.Metadata {
				if i > 0 {
					meta.WriteByte(';')
				}
				meta.WriteString(e.Key + "=" + e.Value)
			}
			record = append(record, meta.String())
		}
		if opts.IncludeTimestamps {
			created := ""
			if row.CreatedAt != nil {
				created = row.CreatedAt.Format(time.RFC3339)
			}
			record = append(record, created)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	if doc.Calculations != nil {
		if err := cw.Write([]string{l.dimension, l.score, l.label, l.confidence, l.strength}); err != nil {
			return err
		}
		for _, s := range doc.Calculations.DimensionScores {
			if err := cw.Write([]string{
				s.Dimension,
				strconv.FormatFloat(s.Score, 'f', 4, 64),
				s.Label,
				strconv.FormatFloat(s.Confidence, 'f', 4, 64),
				s.Strength,
			}); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func gzipBytes(data []byte, name string) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Name = name
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress export: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress export: %w", err)
	}
	return buf.Bytes(), nil
}
