package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dirtySet map[string][]int

func (d dirtySet) MarkDirty(profileID string, years ...int) {
	d[profileID] = append(d[profileID], years...)
}

type stubReports struct {
	calls int
	err   error
}

func (s *stubReports) Generate(_ context.Context, profileID string, year, month int, _ string) (core.Report, error) {
	s.calls++
	if s.err != nil {
		return core.Report{}, s.err
	}
	return core.Report{ID: 1, ProfileID: profileID, Year: year, Month: month}, nil
}

func TestHandleLedgerChanged(t *testing.T) {
	dirty := dirtySet{}
	w := New(dirty, nil)
	ctx := context.Background()

	require.NoError(t, w.HandleLedgerChanged(ctx, amqp.NewLedgerChangedMessage("diego", []int{2025, 2026}, "ingest")))
	require.NoError(t, w.HandleLedgerChanged(ctx, amqp.NewLedgerChangedMessage("", []int{2026}, "ingest")))
	require.NoError(t, w.HandleLedgerChanged(ctx, amqp.NewLedgerChangedMessage("casa", nil, "delete")))

	assert.Equal(t, dirtySet{"diego": {2025, 2026}}, dirty)
}

func TestHandleLedgerChanged_NoExporter(t *testing.T) {
	w := New(nil, nil)
	assert.NoError(t, w.HandleLedgerChanged(context.Background(), amqp.NewLedgerChangedMessage("diego", []int{2026}, "ingest")))
}

func TestHandleReportRequested(t *testing.T) {
	ctx := context.Background()
	msg := amqp.NewReportRequestedMessage("diego", 2026, 1, "")

	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "generated", err: nil},
		{name: "no data is dropped", err: fmt.Errorf("diego 1/2026: %w", core.ErrNoData)},
		{name: "unknown profile is dropped", err: fmt.Errorf("get profile: %w", core.ErrProfileNotFound)},
		{name: "bad month is dropped", err: core.ErrInvalidMonth},
		{name: "missing analyzer is dropped", err: services.ErrAnalyzerUnavailable},
		{name: "analyzer failure is retried", err: errors.New("deadline exceeded"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reports := &stubReports{err: tt.err}
			err := New(nil, reports).HandleReportRequested(ctx, msg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, 1, reports.calls)
		})
	}
}

func TestHandleReportRequested_NoGenerator(t *testing.T) {
	w := New(nil, nil)
	assert.NoError(t, w.HandleReportRequested(context.Background(), amqp.NewReportRequestedMessage("diego", 2026, 1, "")))
}

func TestHandlers(t *testing.T) {
	h := New(dirtySet{}, &stubReports{}).Handlers()
	assert.NotNil(t, h.LedgerChanged)
	assert.NotNil(t, h.ReportRequested)
}
