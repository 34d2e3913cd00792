package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/phrazzld/psyche-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceID(t *testing.T) {
	t.Parallel()

	assert.Empty(t, GetTraceID(context.Background()))
	assert.Empty(t, GetTraceID(context.WithValue(context.Background(), TraceIDKey, 42)))

	ctx := SetTraceID(context.Background())
	assert.Len(t, GetTraceID(ctx), 32)
	assert.NotEqual(t, GetTraceID(ctx), GetTraceID(SetTraceID(context.Background())))

	tests := []struct {
		name string
		in   string
		keep bool
	}{
		{name: "client id", in: "req-42_abc", keep: true},
		{name: "empty", in: "", keep: false},
		{name: "bad characters", in: "abc\ndef", keep: false},
		{name: "too long", in: strings.Repeat("a", 65), keep: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetTraceID(WithTraceID(context.Background(), tt.in))
			if tt.keep {
				assert.Equal(t, tt.in, got)
			} else {
				assert.Len(t, got, 32)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
		target  error
	}{
		{name: "valid", body: `{"name":"wb"}`},
		{name: "empty body", body: "", wantErr: true, target: ErrEmptyBody},
		{name: "malformed", body: `{"name":`, wantErr: true},
		{name: "unknown field", body: `{"name":"wb","extra":1}`, wantErr: true},
		{name: "trailing data", body: `{"name":"wb"} {}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(req, &p)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "wb", p.Name)
				return
			}
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

type customValidated struct{ ok bool }

func (c customValidated) Validate() error {
	if !c.ok {
		return errors.New("custom rule failed")
	}
	return nil
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	type tagged struct {
		Category string `validate:"required,oneof=wellbeing clinical_screening"`
	}
	assert.NoError(t, ValidateRequest(&tagged{Category: "wellbeing"}))
	assert.Error(t, ValidateRequest(&tagged{}))
	assert.Error(t, ValidateRequest(&tagged{Category: "tarot"}))

	assert.NoError(t, ValidateRequest(customValidated{ok: true}))
	assert.EqualError(t, ValidateRequest(customValidated{}), "custom rule failed")
}

func TestRespondWithErrorAndLog(t *testing.T) {
	t.Parallel()
	buf, log := logger.NewTestLogger(t)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/x", nil)
	ctx := logger.WithLogger(WithTraceID(req.Context(), "trace-1"), log)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	err := errors.New("dial postgres://psyche:hunter22@db:5432/psyche failed")
	RespondWithErrorAndLog(rec, req, http.StatusInternalServerError, "An unexpected error occurred", err,
		WithDetails(map[string]string{"hint": "retry"}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "An unexpected error occurred", body["error"])
	assert.Equal(t, "trace-1", body["trace_id"])
	assert.Equal(t, map[string]any{"hint": "retry"}, body["details"])
	assert.NotContains(t, rec.Body.String(), "hunter22")

	logs := buf.String()
	assert.Contains(t, logs, `"level":"ERROR"`)
	assert.Contains(t, logs, "trace-1")
	assert.NotContains(t, logs, "hunter22")
}

func TestRespondWithErrorLogLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		opts   []ResponseOption
		level  string
	}{
		{name: "client error", status: http.StatusNotFound, level: "DEBUG"},
		{name: "elevated client error", status: http.StatusConflict, opts: []ResponseOption{WithElevatedLogLevel()}, level: "WARN"},
		{name: "rate limited", status: http.StatusTooManyRequests, level: "WARN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, log := logger.NewTestLogger(t)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(logger.WithLogger(req.Context(), log))
			rec := httptest.NewRecorder()

			RespondWithErrorAndLog(rec, req, tt.status, "nope", nil, tt.opts...)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, buf.String(), `"level":"`+tt.level+`"`)
		})
	}
}
