package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug, "INFO": slog.LevelInfo, "": slog.LevelInfo,
		"warn": slog.LevelWarn, "warning": slog.LevelWarn, "Error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("trace")
	assert.Error(t, err)
}

func TestNew_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: "api", Output: &buf})

	logger.Debug("hidden")
	logger.WithComponent(ComponentLedger).Info("Ledger updated", FieldProfileID, "diego")

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "api.ledger", recs[0][FieldComponent])
	assert.Equal(t, "diego", recs[0][FieldProfileID])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Output: &buf}).Info("hello")
	assert.Contains(t, buf.String(), "component=app")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestLogFields(t *testing.T) {
	fields := NewFields().
		WithPeriod("diego", 2026, 0).
		WithOperation(OpExport).
		WithError(nil)

	assert.Equal(t, []any{FieldOperation, OpExport, FieldProfileID, "diego", FieldYear, 2026}, fields.ToSlice())

	fields.WithError(errors.New("boom"))
	assert.Equal(t, "boom", fields[FieldError])
}

func TestMiddlewareAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf})

	handler := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		l := FromContext(ctx).With(NewFields().WithRequestID(r.Header.Get("X-Request-ID")).ToSlice()...)
		l.InfoContext(ctx, "inside")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/profiles", nil)
	req.Header.Set("X-Request-ID", "req-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "req-1", recs[0][FieldRequestID])
}

func TestFromContext_Default(t *testing.T) {
	assert.Equal(t, ComponentApp, FromContext(context.Background()).Component())
}

func TestStructuredLogger_LogHTTPEnd(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Output: &buf}))

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard?profileId=diego", nil)
	sl.LogHTTPEnd(context.Background(), req, http.StatusNotFound, 12, "10.0.0.1")
	sl.LogHTTPEnd(context.Background(), req, http.StatusInternalServerError, 3, "10.0.0.1")
	sl.LogLedgerWrite(context.Background(), "diego", "ingest", 4)

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 3)
	assert.Equal(t, "WARN", recs[0]["level"])
	assert.Equal(t, "profileId=diego", recs[0][FieldQuery])
	assert.Equal(t, false, recs[0][FieldSuccess])
	assert.Equal(t, "ERROR", recs[1]["level"])
	assert.Equal(t, "ingest", recs[2][FieldAction])
	assert.Equal(t, float64(4), recs[2][FieldCount])
}
