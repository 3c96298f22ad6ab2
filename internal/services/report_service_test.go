package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"finanzas/internal/core"
	"finanzas/internal/summary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalyzer struct {
	calls    int
	comments string
	err      error
}

func (a *stubAnalyzer) AnalyzeMonth(_ context.Context, m summary.Monthly, comments string) (string, error) {
	a.calls++
	a.comments = comments
	if a.err != nil {
		return "", a.err
	}
	return fmt.Sprintf("%s spent %s in %d/%d", m.Profile.Name, m.KPIs.TotalExpenses, m.Month, m.Year), nil
}

func newReportService(t *testing.T, analyzer Analyzer, requests ReportRequester) *ReportService {
	t.Helper()
	store := newSeededStore(t)
	return NewReportService(NewSummaryService(store, summary.PacingCalendar), store, analyzer, requests)
}

func TestReportService_Generate(t *testing.T) {
	analyzer := &stubAnalyzer{}
	svc := newReportService(t, analyzer, nil)
	ctx := context.Background()

	report, err := svc.Generate(ctx, "diego", 2026, 1, "  viaje a Lisboa ")
	require.NoError(t, err)
	assert.Equal(t, "Diego spent 1060 in 1/2026", report.Text)
	assert.Equal(t, "viaje a Lisboa", analyzer.comments)

	again, err := svc.Generate(ctx, "diego", 2026, 1, "")
	require.NoError(t, err)
	assert.Equal(t, report.ID, again.ID, "one report per month")

	got, err := svc.Get(ctx, "diego", 2026, 1)
	require.NoError(t, err)
	assert.Empty(t, got.UserComments)
}

func TestReportService_NoData(t *testing.T) {
	analyzer := &stubAnalyzer{}
	svc := newReportService(t, analyzer, nil)

	_, err := svc.Generate(context.Background(), "diego", 2026, 7, "")
	assert.ErrorIs(t, err, core.ErrNoData)
	assert.Zero(t, analyzer.calls)
}

func TestReportService_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := newReportService(t, nil, nil).Generate(ctx, "diego", 2026, 1, "")
	assert.ErrorIs(t, err, ErrAnalyzerUnavailable)

	failing := &stubAnalyzer{err: errors.New("quota exceeded")}
	_, err = newReportService(t, failing, nil).Generate(ctx, "diego", 2026, 1, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	_, err = newReportService(t, failing, nil).Get(ctx, "diego", 2026, 2)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = newReportService(t, failing, nil).Get(ctx, "diego", 2026, 0)
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
}

func TestReportService_Request(t *testing.T) {
	ctx := context.Background()

	t.Run("queued when a broker is configured", func(t *testing.T) {
		pub := &recordingPublisher{}
		analyzer := &stubAnalyzer{}
		svc := newReportService(t, analyzer, pub)

		_, queued, err := svc.Request(ctx, "diego", 2026, 1, "")
		require.NoError(t, err)
		assert.True(t, queued)
		assert.Equal(t, []string{"diego"}, pub.requests)
		assert.Zero(t, analyzer.calls)

		_, _, err = svc.Request(ctx, "ghost", 2026, 1, "")
		assert.ErrorIs(t, err, core.ErrProfileNotFound)
	})

	t.Run("inline otherwise", func(t *testing.T) {
		svc := newReportService(t, &stubAnalyzer{}, nil)
		report, queued, err := svc.Request(ctx, "diego", 2026, 2, "")
		require.NoError(t, err)
		assert.False(t, queued)
		assert.NotEmpty(t, report.Text)
	})
}
