package services

import (
	"context"
	"sync"
	"testing"

	"finanzas/internal/core"
	"finanzas/internal/storage/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type ledgerEvent struct {
	profileID string
	years     []int
	action    string
}

type recordingPublisher struct {
	mu       sync.Mutex
	events   []ledgerEvent
	requests []string
	err      error
}

func (p *recordingPublisher) PublishLedgerChanged(_ context.Context, profileID string, years []int, action string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ledgerEvent{profileID: profileID, years: years, action: action})
	return p.err
}

func (p *recordingPublisher) PublishReportRequested(_ context.Context, profileID string, year, month int, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, profileID)
	return p.err
}

func (p *recordingPublisher) last() ledgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return ledgerEvent{}
	}
	return p.events[len(p.events)-1]
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newSeededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New(core.Profile{ID: "diego", Name: "Diego"}, core.Profile{ID: "casa", Name: "Casa"})

	for _, bl := range []core.BudgetLine{
		{ProfileID: "diego", Group: core.GroupFixedCosts, Name: "Rent / Mortgage", MonthlyAmount: dec("1000"), AnnualAmount: dec("12000"), Year: 2026},
		{ProfileID: "diego", Group: core.GroupFixedCosts, Name: "Seguro coche", MonthlyAmount: dec("60"), AnnualAmount: dec("720"), IsAnnual: true, Year: 2026},
		{ProfileID: "diego", Group: core.GroupGuiltFree, Name: "Guilt-Free Spending", MonthlyAmount: dec("500"), AnnualAmount: dec("6000"), Year: 2026},
	} {
		_, err := store.CreateBudgetLine(ctx, bl)
		require.NoError(t, err)
	}

	_, err := store.InsertBatch(ctx, core.Upload{BatchID: "seed", ProfileID: "diego", Source: "BBVA"}, []core.Transaction{
		{ProfileID: "diego", Date: core.NewDate(2026, 1, 1), Description: "Nómina", Amount: dec("3000"), Type: core.TypeIncome, Source: "BBVA", Category: "Salary", BudgetGroup: core.GroupIncome},
		{ProfileID: "diego", Date: core.NewDate(2026, 1, 3), Description: "Alquiler", Amount: dec("1000"), Type: core.TypeExpense, Source: "BBVA", Category: "Rent", BudgetGroup: core.GroupFixedCosts, BudgetLine: "Rent / Mortgage"},
		{ProfileID: "diego", Date: core.NewDate(2026, 1, 15), Description: "Cena", Amount: dec("80"), Type: core.TypeExpense, Source: "AMEX", Category: "Dining Out", BudgetGroup: core.GroupGuiltFree, BudgetLine: "Guilt-Free Spending"},
		{ProfileID: "diego", Date: core.NewDate(2026, 1, 20), Description: "Devolución", Amount: dec("20"), Type: core.TypeCredit, Source: "AMEX", Category: "Dining Out", BudgetGroup: core.GroupGuiltFree, BudgetLine: "Guilt-Free Spending"},
		{ProfileID: "diego", Date: core.NewDate(2026, 2, 10), Description: "Seguro", Amount: dec("720"), Type: core.TypeExpense, Source: "BBVA", Category: "Insurance", BudgetGroup: core.GroupFixedCosts, BudgetLine: "Seguro coche"},
	})
	require.NoError(t, err)
	return store
}
