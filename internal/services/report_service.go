package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
	"finanzas/internal/summary"
)

var ErrAnalyzerUnavailable = errors.New("report analyzer not configured")

// Analyzer writes the narrative for a month.
type Analyzer interface {
	AnalyzeMonth(ctx context.Context, m summary.Monthly, userComments string) (string, error)
}

// ReportRequester queues report generation on another process.
type ReportRequester interface {
	PublishReportRequested(ctx context.Context, profileID string, year, month int, comments string) error
}

type ReportService struct {
	summaries *SummaryService
	store     ledger.ReportStore
	analyzer  Analyzer
	requests  ReportRequester
}

func NewReportService(summaries *SummaryService, store ledger.ReportStore, analyzer Analyzer, requests ReportRequester) *ReportService {
	return &ReportService{
		summaries: summaries,
		store:     store,
		analyzer:  analyzer,
		requests:  requests,
	}
}

// Generate builds the monthly summary, asks the analyzer for a narrative
// and stores it, replacing any earlier report for the same month.
func (s *ReportService) Generate(ctx context.Context, profileID string, year, month int, comments string) (core.Report, error) {
	if s.analyzer == nil {
		return core.Report{}, ErrAnalyzerUnavailable
	}

	m, err := s.summaries.Monthly(ctx, profileID, year, month)
	if err != nil {
		return core.Report{}, err
	}
	if m.KPIs.TransactionCount == 0 {
		return core.Report{}, fmt.Errorf("%s %04d-%02d: %w", profileID, year, month, core.ErrNoData)
	}

	comments = strings.TrimSpace(comments)
	text, err := s.analyzer.AnalyzeMonth(ctx, m, comments)
	if err != nil {
		return core.Report{}, fmt.Errorf("analyze month: %w", err)
	}

	report, err := s.store.UpsertReport(ctx, core.Report{
		ProfileID:    m.Profile.ID,
		Month:        month,
		Year:         year,
		UserComments: comments,
		Text:         text,
	})
	if err != nil {
		return core.Report{}, fmt.Errorf("save report: %w", err)
	}

	slog.InfoContext(ctx, "Monthly report generated",
		"profile_id", report.ProfileID,
		"year", year,
		"month", month,
		"chars", len(text))
	return report, nil
}

func (s *ReportService) Get(ctx context.Context, profileID string, year, month int) (core.Report, error) {
	if err := core.ValidateMonth(month); err != nil {
		return core.Report{}, err
	}
	if err := core.ValidateYear(year); err != nil {
		return core.Report{}, err
	}
	if strings.TrimSpace(profileID) == "" {
		return core.Report{}, core.ErrEmptyProfile
	}
	return s.store.GetReport(ctx, profileID, year, month)
}

// Request queues generation when a broker is configured and generates
// inline otherwise. queued reports which path was taken.
func (s *ReportService) Request(ctx context.Context, profileID string, year, month int, comments string) (report core.Report, queued bool, err error) {
	if s.requests == nil {
		report, err = s.Generate(ctx, profileID, year, month, comments)
		return report, false, err
	}

	if _, err := s.summaries.profile(ctx, profileID); err != nil {
		return core.Report{}, false, err
	}
	if err := core.ValidateMonth(month); err != nil {
		return core.Report{}, false, err
	}
	if err := core.ValidateYear(year); err != nil {
		return core.Report{}, false, err
	}
	if err := s.requests.PublishReportRequested(ctx, profileID, year, month, comments); err != nil {
		return core.Report{}, false, fmt.Errorf("queue report: %w", err)
	}
	return core.Report{}, true, nil
}
