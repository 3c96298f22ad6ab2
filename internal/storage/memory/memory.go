// Package memory is an in-process ledger store used for demos and tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
)

type reportKey struct {
	profileID   string
	year, month int
}

type Store struct {
	mu       sync.Mutex
	profiles []core.Profile
	txs      []core.Transaction
	uploads  map[string]core.Upload
	budgets  []core.BudgetLine
	reports  map[reportKey]core.Report

	nextTxID     int64
	nextBudgetID int64
	nextReportID int64
	now          func() time.Time
}

var _ ledger.Store = (*Store)(nil)

func New(profiles ...core.Profile) *Store {
	s := &Store{
		uploads: make(map[string]core.Upload),
		reports: make(map[reportKey]core.Report),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, p := range profiles {
		_ = s.UpsertProfile(context.Background(), p)
	}
	return s
}

func (s *Store) Close() error { return nil }

func (s *Store) GetProfile(_ context.Context, id string) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return core.Profile{}, fmt.Errorf("%w: %q", core.ErrProfileNotFound, id)
}

func (s *Store) ListProfiles(_ context.Context) ([]core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Profile(nil), s.profiles...)
	slices.SortFunc(out, func(a, b core.Profile) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) UpsertProfile(_ context.Context, p core.Profile) error {
	if p.ID == "" {
		return core.ErrEmptyProfile
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.profiles {
		if s.profiles[i].ID == p.ID {
			s.profiles[i] = p
			return nil
		}
	}
	s.profiles = append(s.profiles, p)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0)
	for _, tx := range s.txs {
		if tx.ProfileID != f.ProfileID {
			continue
		}
		if f.Year != 0 && tx.Year() != f.Year {
			continue
		}
		if f.Month != 0 && tx.Month() != f.Month {
			continue
		}
		out = append(out, tx)
	}
	slices.SortFunc(out, func(a, b core.Transaction) int {
		if c := a.Date.Compare(b.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.txIndex(id); i >= 0 {
		return s.txs[i], nil
	}
	return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
}

func (s *Store) DistinctValues(_ context.Context, profileID string, field ledger.Field) ([]ledger.ValueCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int)
	for _, tx := range s.txs {
		if tx.ProfileID != profileID {
			continue
		}
		if v := field.Value(tx); v != "" {
			counts[v]++
		}
	}
	out := make([]ledger.ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ledger.ValueCount{Value: v, Count: n})
	}
	slices.SortFunc(out, func(a, b ledger.ValueCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return out, nil
}

func (s *Store) GetUpload(_ context.Context, batchID string) (core.Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.uploads[batchID]
	if !ok {
		return core.Upload{}, fmt.Errorf("upload %s: %w", batchID, core.ErrNotFound)
	}
	return u, nil
}

func (s *Store) InsertBatch(_ context.Context, upload core.Upload, txs []core.Transaction) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.uploads[upload.BatchID]; exists {
		return nil, fmt.Errorf("upload %s: %w", upload.BatchID, core.ErrConflict)
	}
	now := s.now()
	if upload.UploadedAt.IsZero() {
		upload.UploadedAt = now
	}
	upload.TransactionCount = len(txs)
	s.uploads[upload.BatchID] = upload

	stored := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		s.nextTxID++
		tx.ID = s.nextTxID
		tx.UploadBatchID = upload.BatchID
		tx.CreatedAt = now
		s.txs = append(s.txs, tx)
		stored = append(stored, tx)
	}
	return stored, nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.txIndex(tx.ID)
	if i < 0 {
		return fmt.Errorf("transaction %d: %w", tx.ID, core.ErrNotFound)
	}
	s.txs[i] = tx
	return nil
}

func (s *Store) ReplaceField(_ context.Context, r ledger.BulkReplace) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i, tx := range s.txs {
		if tx.ProfileID != r.ProfileID || r.Field.Value(tx) != r.From {
			continue
		}
		if r.Year != 0 && tx.Year() != r.Year {
			continue
		}
		s.txs[i] = r.Field.Set(tx, r.To)
		n++
	}
	return n, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.txIndex(id)
	if i < 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	s.txs = slices.Delete(s.txs, i, i+1)
	return nil
}

func (s *Store) DeleteTransactions(_ context.Context, ids []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.txs)
	s.txs = slices.DeleteFunc(s.txs, func(tx core.Transaction) bool {
		return slices.Contains(ids, tx.ID)
	})
	return int64(before - len(s.txs)), nil
}

func (s *Store) DeleteBatch(_ context.Context, batchID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.uploads[batchID]; !ok {
		return 0, fmt.Errorf("upload %s: %w", batchID, core.ErrNotFound)
	}
	delete(s.uploads, batchID)
	before := len(s.txs)
	s.txs = slices.DeleteFunc(s.txs, func(tx core.Transaction) bool {
		return tx.UploadBatchID == batchID
	})
	return int64(before - len(s.txs)), nil
}

func (s *Store) ListBudgetLines(_ context.Context, profileID string, year int) ([]core.BudgetLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.BudgetLine, 0)
	for _, bl := range s.budgets {
		if bl.ProfileID == profileID && bl.Year == year {
			out = append(out, bl)
		}
	}
	slices.SortFunc(out, func(a, b core.BudgetLine) int {
		if c := cmp.Compare(a.Group, b.Group); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (s *Store) GetBudgetLine(_ context.Context, id int64) (core.BudgetLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.budgetIndex(id); i >= 0 {
		return s.budgets[i], nil
	}
	return core.BudgetLine{}, fmt.Errorf("budget line %d: %w", id, core.ErrNotFound)
}

func (s *Store) CreateBudgetLine(_ context.Context, bl core.BudgetLine) (core.BudgetLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.budgetConflict(bl) {
		return core.BudgetLine{}, fmt.Errorf("budget line %q for %d: %w", bl.Name, bl.Year, core.ErrConflict)
	}
	s.nextBudgetID++
	bl.ID = s.nextBudgetID
	s.budgets = append(s.budgets, bl)
	return bl, nil
}

func (s *Store) UpdateBudgetLine(_ context.Context, bl core.BudgetLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.budgetIndex(bl.ID)
	if i < 0 {
		return fmt.Errorf("budget line %d: %w", bl.ID, core.ErrNotFound)
	}
	if s.budgetConflict(bl) {
		return fmt.Errorf("budget line %q for %d: %w", bl.Name, bl.Year, core.ErrConflict)
	}
	s.budgets[i] = bl
	return nil
}

func (s *Store) DeleteBudgetLine(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.budgetIndex(id)
	if i < 0 {
		return fmt.Errorf("budget line %d: %w", id, core.ErrNotFound)
	}
	s.budgets = slices.Delete(s.budgets, i, i+1)
	return nil
}

func (s *Store) UpsertReport(_ context.Context, r core.Report) (core.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := reportKey{r.ProfileID, r.Year, r.Month}
	if existing, ok := s.reports[key]; ok {
		r.ID = existing.ID
	} else {
		s.nextReportID++
		r.ID = s.nextReportID
	}
	r.CreatedAt = s.now()
	s.reports[key] = r
	return r, nil
}

func (s *Store) GetReport(_ context.Context, profileID string, year, month int) (core.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[reportKey{profileID, year, month}]
	if !ok {
		return core.Report{}, fmt.Errorf("report %s %d-%02d: %w", profileID, year, month, core.ErrNotFound)
	}
	return r, nil
}

func (s *Store) txIndex(id int64) int {
	return slices.IndexFunc(s.txs, func(tx core.Transaction) bool { return tx.ID == id })
}

func (s *Store) budgetIndex(id int64) int {
	return slices.IndexFunc(s.budgets, func(bl core.BudgetLine) bool { return bl.ID == id })
}

func (s *Store) budgetConflict(bl core.BudgetLine) bool {
	for _, other := range s.budgets {
		if other.ID != bl.ID && other.ProfileID == bl.ProfileID && other.Year == bl.Year && other.Name == bl.Name {
			return true
		}
	}
	return false
}
