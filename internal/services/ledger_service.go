package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
	applog "finanzas/internal/log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger change actions carried on published events.
const (
	ActionIngest  = "ingest"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionReplace = "replace"
	ActionBudget  = "budget"
)

const (
	defaultSource   = "Unknown"
	defaultCategory = "Uncategorized"
)

// EventPublisher announces ledger writes to other processes.
type EventPublisher interface {
	PublishLedgerChanged(ctx context.Context, profileID string, years []int, action string) error
}

type (
	IngestRequest struct {
		ProfileID string                   `json:"profileId"`
		Source    string                   `json:"source"`
		Filename  string                   `json:"filename"`
		Rows      []core.ParsedTransaction `json:"transactions"`
	}

	IngestResult struct {
		BatchID      string             `json:"batchId"`
		Count        int                `json:"count"`
		Transactions []core.Transaction `json:"transactions"`
	}

	// TransactionPatch lists the fields a user may edit after import.
	TransactionPatch struct {
		Description *string               `json:"description"`
		Amount      *decimal.Decimal      `json:"amount"`
		Type        *core.TransactionType `json:"type"`
		Category    *string               `json:"category"`
		BudgetGroup *core.BudgetGroup     `json:"budget_group"`
		BudgetLine  *string               `json:"budget_line"`
		Notes       *string               `json:"notes"`
	}

	BudgetLinePatch struct {
		Group         *core.BudgetGroup `json:"budget_group"`
		Name          *string           `json:"line_name"`
		MonthlyAmount *decimal.Decimal  `json:"monthly_amount"`
		AnnualAmount  *decimal.Decimal  `json:"annual_amount"`
		IsAnnual      *bool             `json:"is_annual"`
		Year          *int              `json:"year"`
	}
)

// LedgerService orchestrates ledger writes across the store and AMQP.
type LedgerService struct {
	store      ledger.Store
	events     EventPublisher
	newBatchID func() string
}

func NewLedgerService(store ledger.Store, events EventPublisher) *LedgerService {
	return &LedgerService{
		store:      store,
		events:     events,
		newBatchID: uuid.NewString,
	}
}

func (s *LedgerService) Profiles(ctx context.Context) ([]core.Profile, error) {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

func (s *LedgerService) Profile(ctx context.Context, id string) (core.Profile, error) {
	if strings.TrimSpace(id) == "" {
		return core.Profile{}, core.ErrEmptyProfile
	}
	return s.store.GetProfile(ctx, id)
}

func (s *LedgerService) Transactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	txs, err := s.store.ListTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Ingest stores parsed rows as one upload batch. Amounts are stored as
// magnitudes and missing labels get their defaults.
func (s *LedgerService) Ingest(ctx context.Context, req IngestRequest) (IngestResult, error) {
	if len(req.Rows) == 0 {
		return IngestResult{}, core.ErrEmptyBatch
	}
	profile, err := s.Profile(ctx, req.ProfileID)
	if err != nil {
		return IngestResult{}, err
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = defaultSource
	}

	txs := make([]core.Transaction, 0, len(req.Rows))
	for i, row := range req.Rows {
		tx, err := transactionFromParsed(profile.ID, source, row)
		if err != nil {
			return IngestResult{}, fmt.Errorf("row %d: %w", i+1, err)
		}
		txs = append(txs, tx)
	}

	upload := core.Upload{
		BatchID:   s.newBatchID(),
		ProfileID: profile.ID,
		Source:    source,
		Filename:  req.Filename,
	}
	stored, err := s.store.InsertBatch(ctx, upload, txs)
	if err != nil {
		return IngestResult{}, fmt.Errorf("insert batch: %w", err)
	}

	applog.NewStructuredLogger(applog.FromContext(ctx).With(applog.FieldBatchID, upload.BatchID)).
		LogLedgerWrite(ctx, profile.ID, ActionIngest, int64(len(stored)))
	s.publish(ctx, profile.ID, yearsOf(stored), ActionIngest)

	return IngestResult{BatchID: upload.BatchID, Count: len(stored), Transactions: stored}, nil
}

func transactionFromParsed(profileID, source string, row core.ParsedTransaction) (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	typ := row.Type
	if typ == "" {
		typ = core.TypeExpense
	}
	tx := core.Transaction{
		ProfileID:   profileID,
		Date:        date,
		Description: strings.TrimSpace(row.Description),
		Amount:      row.Amount.Abs(),
		Type:        typ,
		Source:      strings.TrimSpace(row.Source),
		Category:    strings.TrimSpace(row.Category),
		BudgetGroup: core.BudgetGroup(strings.TrimSpace(string(row.BudgetGroup))),
		BudgetLine:  strings.TrimSpace(row.BudgetLine),
		Notes:       strings.TrimSpace(row.Notes),
	}
	if tx.Source == "" {
		tx.Source = source
	}
	if tx.Category == "" {
		tx.Category = defaultCategory
	}
	return tx, tx.Validate()
}

// PatchTransaction applies the non-nil fields of p.
func (s *LedgerService) PatchTransaction(ctx context.Context, id int64, p TransactionPatch) (core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	prevYear := tx.Year()

	if p.Description != nil {
		tx.Description = strings.TrimSpace(*p.Description)
	}
	if p.Amount != nil {
		tx.Amount = p.Amount.Abs()
	}
	if p.Type != nil {
		t, err := core.ParseTransactionType(string(*p.Type))
		if err != nil {
			return core.Transaction{}, err
		}
		tx.Type = t
	}
	if p.Category != nil {
		tx.Category = strings.TrimSpace(*p.Category)
	}
	if p.BudgetGroup != nil {
		tx.BudgetGroup = core.BudgetGroup(strings.TrimSpace(string(*p.BudgetGroup)))
	}
	if p.BudgetLine != nil {
		tx.BudgetLine = strings.TrimSpace(*p.BudgetLine)
	}
	if p.Notes != nil {
		tx.Notes = *p.Notes
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.publish(ctx, tx.ProfileID, uniqueYears(prevYear, tx.Year()), ActionUpdate)
	return tx, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.publish(ctx, tx.ProfileID, []int{tx.Year()}, ActionDelete)
	return nil
}

// DeleteTransactions removes every listed id that exists and reports how
// many were removed.
func (s *LedgerService) DeleteTransactions(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	affected := make(map[string][]int)
	for _, id := range ids {
		tx, err := s.store.GetTransaction(ctx, id)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, err
		}
		affected[tx.ProfileID] = append(affected[tx.ProfileID], tx.Year())
	}

	n, err := s.store.DeleteTransactions(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", err)
	}
	for profileID, years := range affected {
		s.publish(ctx, profileID, uniqueYears(years...), ActionDelete)
	}
	return n, nil
}

// DeleteBatch removes an upload and every transaction it created.
func (s *LedgerService) DeleteBatch(ctx context.Context, batchID string) (int64, error) {
	if strings.TrimSpace(batchID) == "" {
		return 0, fmt.Errorf("%w: empty batch id", core.ErrNotFound)
	}
	upload, err := s.store.GetUpload(ctx, batchID)
	if err != nil {
		return 0, err
	}
	rows, err := s.store.ListTransactions(ctx, core.TransactionFilter{ProfileID: upload.ProfileID})
	if err != nil {
		return 0, fmt.Errorf("list batch transactions: %w", err)
	}
	var years []int
	for _, tx := range rows {
		if tx.UploadBatchID == batchID {
			years = append(years, tx.Year())
		}
	}

	n, err := s.store.DeleteBatch(ctx, batchID)
	if err != nil {
		return 0, err
	}
	applog.NewStructuredLogger(applog.FromContext(ctx).With(applog.FieldBatchID, batchID)).
		LogLedgerWrite(ctx, upload.ProfileID, ActionDelete, n)
	s.publish(ctx, upload.ProfileID, uniqueYears(years...), ActionDelete)
	return n, nil
}

// BulkReplace rewrites one field value across a profile's transactions.
func (s *LedgerService) BulkReplace(ctx context.Context, r ledger.BulkReplace) (int64, error) {
	if _, err := s.Profile(ctx, r.ProfileID); err != nil {
		return 0, err
	}
	field, err := ledger.ParseField(string(r.Field))
	if err != nil {
		return 0, err
	}
	r.Field = field
	if r.Field == ledger.FieldType {
		if _, err := core.ParseTransactionType(r.To); err != nil {
			return 0, err
		}
	}
	if r.Year != 0 {
		if err := core.ValidateYear(r.Year); err != nil {
			return 0, err
		}
	}

	// Collected before the write: afterwards the rows no longer match From.
	rows, err := s.store.ListTransactions(ctx, core.TransactionFilter{ProfileID: r.ProfileID, Year: r.Year})
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}
	var years []int
	for _, tx := range rows {
		if r.Field.Value(tx) == r.From {
			years = append(years, tx.Year())
		}
	}

	n, err := s.store.ReplaceField(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("replace %s: %w", r.Field, err)
	}
	slog.InfoContext(ctx, "Bulk replace applied",
		"profile_id", r.ProfileID,
		"field", r.Field,
		"from", r.From,
		"to", r.To,
		"affected", n)
	if n > 0 {
		s.publish(ctx, r.ProfileID, uniqueYears(years...), ActionReplace)
	}
	return n, nil
}

func (s *LedgerService) DistinctValues(ctx context.Context, profileID, field string) ([]ledger.ValueCount, error) {
	f, err := ledger.ParseField(field)
	if err != nil {
		return nil, err
	}
	if _, err := s.Profile(ctx, profileID); err != nil {
		return nil, err
	}
	return s.store.DistinctValues(ctx, profileID, f)
}

// Duplicates reports likely duplicate rows for a profile, optionally
// within one year.
func (s *LedgerService) Duplicates(ctx context.Context, profileID string, year int) (DuplicateReport, error) {
	if _, err := s.Profile(ctx, profileID); err != nil {
		return DuplicateReport{}, err
	}
	txs, err := s.Transactions(ctx, core.TransactionFilter{ProfileID: profileID, Year: year})
	if err != nil {
		return DuplicateReport{}, err
	}
	return FindDuplicates(txs), nil
}

func (s *LedgerService) BudgetLines(ctx context.Context, profileID string, year int) ([]core.BudgetLine, error) {
	if err := core.ValidateYear(year); err != nil {
		return nil, err
	}
	if _, err := s.Profile(ctx, profileID); err != nil {
		return nil, err
	}
	lines, err := s.store.ListBudgetLines(ctx, profileID, year)
	if err != nil {
		return nil, fmt.Errorf("list budget lines: %w", err)
	}
	return lines, nil
}

func (s *LedgerService) CreateBudgetLine(ctx context.Context, bl core.BudgetLine) (core.BudgetLine, error) {
	bl.Name = strings.TrimSpace(bl.Name)
	bl = bl.Normalize()
	if err := bl.Validate(); err != nil {
		return core.BudgetLine{}, err
	}
	if _, err := s.Profile(ctx, bl.ProfileID); err != nil {
		return core.BudgetLine{}, err
	}
	created, err := s.store.CreateBudgetLine(ctx, bl)
	if err != nil {
		return core.BudgetLine{}, fmt.Errorf("create budget line: %w", err)
	}
	s.publish(ctx, created.ProfileID, []int{created.Year}, ActionBudget)
	return created, nil
}

// PatchBudgetLine applies the non-nil fields of p. Changing one amount
// re-derives the other unless both are given.
func (s *LedgerService) PatchBudgetLine(ctx context.Context, id int64, p BudgetLinePatch) (core.BudgetLine, error) {
	bl, err := s.store.GetBudgetLine(ctx, id)
	if err != nil {
		return core.BudgetLine{}, err
	}
	prevYear := bl.Year

	if p.Group != nil {
		g, err := core.ParseBudgetGroup(string(*p.Group))
		if err != nil {
			return core.BudgetLine{}, err
		}
		bl.Group = g
	}
	if p.Name != nil {
		bl.Name = strings.TrimSpace(*p.Name)
	}
	if p.IsAnnual != nil {
		bl.IsAnnual = *p.IsAnnual
	}
	if p.Year != nil {
		bl.Year = *p.Year
	}
	switch {
	case p.MonthlyAmount != nil && p.AnnualAmount != nil:
		bl.MonthlyAmount, bl.AnnualAmount = *p.MonthlyAmount, *p.AnnualAmount
	case p.MonthlyAmount != nil:
		bl.MonthlyAmount = *p.MonthlyAmount
		bl.AnnualAmount = bl.MonthlyAmount.Mul(decimal.NewFromInt(12))
	case p.AnnualAmount != nil:
		bl.AnnualAmount = *p.AnnualAmount
		if bl.IsAnnual {
			bl.MonthlyAmount = decimal.Zero
		}
	}
	bl = bl.Normalize()
	if err := bl.Validate(); err != nil {
		return core.BudgetLine{}, err
	}

	if err := s.store.UpdateBudgetLine(ctx, bl); err != nil {
		return core.BudgetLine{}, fmt.Errorf("update budget line: %w", err)
	}
	s.publish(ctx, bl.ProfileID, uniqueYears(prevYear, bl.Year), ActionBudget)
	return bl, nil
}

func (s *LedgerService) DeleteBudgetLine(ctx context.Context, id int64) error {
	bl, err := s.store.GetBudgetLine(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteBudgetLine(ctx, id); err != nil {
		return fmt.Errorf("delete budget line: %w", err)
	}
	s.publish(ctx, bl.ProfileID, []int{bl.Year}, ActionBudget)
	return nil
}

// publish never fails the write: the ledger is already committed.
func (s *LedgerService) publish(ctx context.Context, profileID string, years []int, action string) {
	if s.events == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping ledger event")
		return
	}
	if err := s.events.PublishLedgerChanged(ctx, profileID, years, action); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger changed message",
			"profile_id", profileID,
			"action", action,
			"error", err)
	}
}

// Close closes the store.
func (s *LedgerService) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close ledger store: %w", err)
	}
	return nil
}

func yearsOf(txs []core.Transaction) []int {
	years := make([]int, 0, 1)
	for _, tx := range txs {
		years = append(years, tx.Year())
	}
	return uniqueYears(years...)
}

func uniqueYears(years ...int) []int {
	out := slices.Clone(years)
	slices.Sort(out)
	return slices.Compact(out)
}
