// Package worker turns broker messages into exports and reports.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/services"
)

// DirtyMarker collects profile-years whose yearly export is stale.
type DirtyMarker interface {
	MarkDirty(profileID string, years ...int)
}

// ReportGenerator builds and stores a monthly report.
type ReportGenerator interface {
	Generate(ctx context.Context, profileID string, year, month int, comments string) (core.Report, error)
}

// Worker handles ledger.changed and report.requested messages. Either
// dependency may be nil, in which case that message type is acknowledged
// and ignored.
type Worker struct {
	exports DirtyMarker
	reports ReportGenerator
}

func New(exports DirtyMarker, reports ReportGenerator) *Worker {
	return &Worker{exports: exports, reports: reports}
}

// Handlers returns the consumer callbacks for amqp.Client.Consume.
func (w *Worker) Handlers() amqp.Handlers {
	return amqp.Handlers{
		LedgerChanged:   w.HandleLedgerChanged,
		ReportRequested: w.HandleReportRequested,
	}
}

// HandleLedgerChanged schedules the affected years for export.
func (w *Worker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	slog.InfoContext(ctx, "Processing ledger change",
		"profile_id", msg.ProfileID,
		"years", msg.Years,
		"action", msg.Action)

	if w.exports == nil {
		slog.DebugContext(ctx, "No exporter configured, skipping ledger change")
		return nil
	}
	if msg.ProfileID == "" || len(msg.Years) == 0 {
		slog.WarnContext(ctx, "Ledger change without profile or years, skipping",
			"profile_id", msg.ProfileID)
		return nil
	}
	w.exports.MarkDirty(msg.ProfileID, msg.Years...)
	return nil
}

// HandleReportRequested generates the requested report. Requests that can
// never succeed are logged and acknowledged; anything else is returned so
// the delivery is retried.
func (w *Worker) HandleReportRequested(ctx context.Context, msg *amqp.ReportRequestedMessage) error {
	slog.InfoContext(ctx, "Processing report request",
		"profile_id", msg.ProfileID,
		"year", msg.Year,
		"month", msg.Month)

	if w.reports == nil {
		slog.WarnContext(ctx, "No report generator configured, dropping request")
		return nil
	}

	report, err := w.reports.Generate(ctx, msg.ProfileID, msg.Year, msg.Month, msg.UserComments)
	switch {
	case err == nil:
		slog.InfoContext(ctx, "Report generated",
			"profile_id", report.ProfileID,
			"report_id", report.ID)
		return nil
	case errors.Is(err, core.ErrNoData),
		errors.Is(err, core.ErrProfileNotFound),
		errors.Is(err, services.ErrAnalyzerUnavailable),
		core.IsValidation(err):
		slog.WarnContext(ctx, "Report request dropped",
			"profile_id", msg.ProfileID,
			"year", msg.Year,
			"month", msg.Month,
			"error", err)
		return nil
	default:
		return fmt.Errorf("generate report: %w", err)
	}
}
