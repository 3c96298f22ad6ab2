package memory

import (
	"context"
	"errors"
	"testing"

	"finanzas/internal/core"
	"finanzas/internal/ledger"

	"github.com/shopspring/decimal"
)

func expense(day int, amount, category string) core.Transaction {
	return core.Transaction{
		ProfileID:   "marta",
		Date:        core.NewDate(2026, 5, day),
		Description: category,
		Amount:      decimal.RequireFromString(amount),
		Type:        core.TypeExpense,
		Source:      "Revolut",
		Category:    category,
	}
}

func TestStoreProfiles(t *testing.T) {
	s := New(core.Profile{ID: "marta", Name: "Marta"}, core.Profile{ID: "casa", Name: "Casa"})
	ctx := context.Background()

	ps, err := s.ListProfiles(ctx)
	if err != nil || len(ps) != 2 || ps[0].ID != "casa" {
		t.Fatalf("unexpected profiles %v err=%v", ps, err)
	}
	if _, err := s.GetProfile(ctx, "diego"); !errors.Is(err, core.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
	if err := s.UpsertProfile(ctx, core.Profile{ID: "marta", Name: "Marta G."}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	p, _ := s.GetProfile(ctx, "marta")
	if p.Name != "Marta G." {
		t.Fatalf("expected updated name, got %q", p.Name)
	}
}

func TestStoreBatchAndOrdering(t *testing.T) {
	s := New(core.Profile{ID: "marta"})
	ctx := context.Background()

	stored, err := s.InsertBatch(ctx, core.Upload{BatchID: "b1", ProfileID: "marta"}, []core.Transaction{
		expense(9, "10", "Fuel"),
		expense(2, "20", "Groceries"),
		expense(9, "5", "Parking & Tolls"),
	})
	if err != nil || len(stored) != 3 {
		t.Fatalf("insert batch: %v", err)
	}

	txs, _ := s.ListTransactions(ctx, core.TransactionFilter{ProfileID: "marta", Year: 2026, Month: 5})
	want := []string{"Groceries", "Fuel", "Parking & Tolls"}
	for i, tx := range txs {
		if tx.Category != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, tx.Category, want[i])
		}
	}

	if txs, _ := s.ListTransactions(ctx, core.TransactionFilter{ProfileID: "marta", Year: 2026, Month: 6}); len(txs) != 0 {
		t.Fatalf("expected no June rows, got %d", len(txs))
	}

	if _, err := s.InsertBatch(ctx, core.Upload{BatchID: "b1", ProfileID: "marta"}, nil); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	n, err := s.DeleteBatch(ctx, "b1")
	if err != nil || n != 3 {
		t.Fatalf("delete batch: n=%d err=%v", n, err)
	}
}

func TestStoreReplaceAndDistinct(t *testing.T) {
	s := New(core.Profile{ID: "marta"})
	ctx := context.Background()
	_, _ = s.InsertBatch(ctx, core.Upload{BatchID: "b", ProfileID: "marta"}, []core.Transaction{
		expense(1, "1", "Cafe"),
		expense(2, "1", "Cafe"),
		expense(3, "1", "Health"),
	})

	n, err := s.ReplaceField(ctx, ledger.BulkReplace{ProfileID: "marta", Field: ledger.FieldCategory, From: "Cafe", To: "Dining Out"})
	if err != nil || n != 2 {
		t.Fatalf("replace: n=%d err=%v", n, err)
	}
	vals, _ := s.DistinctValues(ctx, "marta", ledger.FieldCategory)
	if len(vals) != 2 || vals[0].Value != "Dining Out" || vals[0].Count != 2 {
		t.Fatalf("unexpected distinct values %v", vals)
	}
}

func TestStoreBudgetLines(t *testing.T) {
	s := New(core.Profile{ID: "marta"})
	ctx := context.Background()

	a, err := s.CreateBudgetLine(ctx, core.BudgetLine{ProfileID: "marta", Group: core.GroupGuiltFree, Name: "Ocio", Year: 2026})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateBudgetLine(ctx, core.BudgetLine{ProfileID: "marta", Group: core.GroupFixedCosts, Name: "Ocio", Year: 2026}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := s.CreateBudgetLine(ctx, core.BudgetLine{ProfileID: "marta", Group: core.GroupFixedCosts, Name: "Gym", Year: 2026}); err != nil {
		t.Fatalf("create: %v", err)
	}

	lines, _ := s.ListBudgetLines(ctx, "marta", 2026)
	if len(lines) != 2 || lines[0].Name != "Gym" {
		t.Fatalf("expected group-ordered lines, got %v", lines)
	}

	if err := s.DeleteBudgetLine(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteBudgetLine(ctx, a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreReports(t *testing.T) {
	s := New(core.Profile{ID: "marta"})
	ctx := context.Background()
	first, _ := s.UpsertReport(ctx, core.Report{ProfileID: "marta", Year: 2026, Month: 5, Text: "a"})
	second, _ := s.UpsertReport(ctx, core.Report{ProfileID: "marta", Year: 2026, Month: 5, Text: "b"})
	if first.ID != second.ID {
		t.Fatalf("upsert must keep the id")
	}
	r, err := s.GetReport(ctx, "marta", 2026, 5)
	if err != nil || r.Text != "b" {
		t.Fatalf("unexpected report %v err=%v", r, err)
	}
}
