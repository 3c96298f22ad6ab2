package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/summary"

	"golang.org/x/sync/errgroup"
)

// SummaryReader is the read side of the ledger the dashboards need.
type SummaryReader interface {
	GetProfile(ctx context.Context, id string) (core.Profile, error)
	ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error)
	ListBudgetLines(ctx context.Context, profileID string, year int) ([]core.BudgetLine, error)
}

// SummaryService resolves a profile and period, loads its rows and hands
// them to the pure builders in internal/summary.
type SummaryService struct {
	store  SummaryReader
	pacing summary.PacingMode
	now    func() time.Time
}

func NewSummaryService(store SummaryReader, pacing summary.PacingMode) *SummaryService {
	if pacing == "" {
		pacing = summary.PacingCalendar
	}
	return &SummaryService{
		store:  store,
		pacing: pacing,
		now:    time.Now,
	}
}

// WithClock replaces the clock used for yearly pacing.
func (s *SummaryService) WithClock(now func() time.Time) *SummaryService {
	s.now = now
	return s
}

// Monthly builds the dashboard for one calendar month.
func (s *SummaryService) Monthly(ctx context.Context, profileID string, year, month int) (summary.Monthly, error) {
	if err := core.ValidateMonth(month); err != nil {
		return summary.Monthly{}, err
	}
	if err := core.ValidateYear(year); err != nil {
		return summary.Monthly{}, err
	}

	profile, err := s.profile(ctx, profileID)
	if err != nil {
		return summary.Monthly{}, err
	}

	txs, lines, err := s.load(ctx, core.TransactionFilter{ProfileID: profile.ID, Year: year, Month: month})
	if err != nil {
		return summary.Monthly{}, err
	}

	out := summary.BuildMonthly(summary.MonthlyInput{
		Profile:      profile,
		Year:         year,
		Month:        month,
		Transactions: txs,
		BudgetLines:  lines,
	})
	fields := applog.NewFields().WithPeriod(profile.ID, year, month)
	slog.DebugContext(ctx, "Monthly summary built",
		append(fields.ToSlice(), "transactions", len(txs), "budget_lines", len(lines))...)
	return out, nil
}

// Yearly builds the year-to-date dashboard.
func (s *SummaryService) Yearly(ctx context.Context, profileID string, year int) (summary.Yearly, error) {
	if err := core.ValidateYear(year); err != nil {
		return summary.Yearly{}, err
	}

	profile, err := s.profile(ctx, profileID)
	if err != nil {
		return summary.Yearly{}, err
	}

	txs, lines, err := s.load(ctx, core.TransactionFilter{ProfileID: profile.ID, Year: year})
	if err != nil {
		return summary.Yearly{}, err
	}

	out := summary.BuildYearly(summary.YearlyInput{
		Profile:      profile,
		Year:         year,
		Transactions: txs,
		BudgetLines:  lines,
		Pacing:       summary.Pacing{Mode: s.pacing, Now: s.now()},
	})
	fields := applog.NewFields().WithPeriod(profile.ID, year, 0)
	slog.DebugContext(ctx, "Yearly summary built",
		append(fields.ToSlice(), "transactions", len(txs), "budget_lines", len(lines))...)
	return out, nil
}

func (s *SummaryService) profile(ctx context.Context, id string) (core.Profile, error) {
	if strings.TrimSpace(id) == "" {
		return core.Profile{}, core.ErrEmptyProfile
	}
	p, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile %s: %w", id, err)
	}
	return p, nil
}

// load reads the period's transactions and the year's budget lines
// concurrently.
func (s *SummaryService) load(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, []core.BudgetLine, error) {
	var (
		txs   []core.Transaction
		lines []core.BudgetLine
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.store.ListTransactions(gctx, f)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		lines, err = s.store.ListBudgetLines(gctx, f.ProfileID, f.Year)
		if err != nil {
			return fmt.Errorf("list budget lines: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return txs, lines, nil
}
