// Package ledger declares the storage ports the services depend on.
package ledger

import (
	"context"
	"fmt"
	"strings"

	"finanzas/internal/core"
)

// Field names a transaction column that can be listed or bulk-replaced.
type Field string

const (
	FieldSource      Field = "source"
	FieldCategory    Field = "category"
	FieldBudgetGroup Field = "budget_group"
	FieldBudgetLine  Field = "budget_line"
	FieldType        Field = "type"
)

func ParseField(s string) (Field, error) {
	switch f := Field(strings.TrimSpace(s)); f {
	case FieldSource, FieldCategory, FieldBudgetGroup, FieldBudgetLine, FieldType:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrInvalidField, s)
	}
}

// Value reads the field from tx.
func (f Field) Value(tx core.Transaction) string {
	switch f {
	case FieldSource:
		return tx.Source
	case FieldCategory:
		return tx.Category
	case FieldBudgetGroup:
		return string(tx.BudgetGroup)
	case FieldBudgetLine:
		return tx.BudgetLine
	case FieldType:
		return string(tx.Type)
	default:
		return ""
	}
}

// Set returns tx with the field replaced by v.
func (f Field) Set(tx core.Transaction, v string) core.Transaction {
	switch f {
	case FieldSource:
		tx.Source = v
	case FieldCategory:
		tx.Category = v
	case FieldBudgetGroup:
		tx.BudgetGroup = core.BudgetGroup(v)
	case FieldBudgetLine:
		tx.BudgetLine = v
	case FieldType:
		tx.Type = core.TransactionType(v)
	}
	return tx
}

type (
	// BulkReplace rewrites every From value of Field to To for a profile,
	// optionally limited to one year.
	BulkReplace struct {
		ProfileID string `json:"profileId"`
		Field     Field  `json:"field"`
		From      string `json:"from"`
		To        string `json:"to"`
		Year      int    `json:"year,omitempty"`
	}

	ValueCount struct {
		Value string `json:"value"`
		Count int    `json:"count"`
	}
)

// Ports for storage adapters.
type (
	ProfileStore interface {
		// GetProfile returns core.ErrProfileNotFound for unknown ids.
		GetProfile(ctx context.Context, id string) (core.Profile, error)
		ListProfiles(ctx context.Context) ([]core.Profile, error)
		UpsertProfile(ctx context.Context, p core.Profile) error
	}

	TransactionReader interface {
		// ListTransactions returns rows ordered by date then id.
		ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
		GetUpload(ctx context.Context, batchID string) (core.Upload, error)
		// DistinctValues counts non-empty values of field, most frequent first.
		DistinctValues(ctx context.Context, profileID string, field Field) ([]ValueCount, error)
	}

	TransactionWriter interface {
		// InsertBatch stores the upload record and its transactions atomically.
		InsertBatch(ctx context.Context, upload core.Upload, txs []core.Transaction) ([]core.Transaction, error)
		UpdateTransaction(ctx context.Context, tx core.Transaction) error
		ReplaceField(ctx context.Context, r BulkReplace) (int64, error)
		DeleteTransaction(ctx context.Context, id int64) error
		DeleteTransactions(ctx context.Context, ids []int64) (int64, error)
		// DeleteBatch removes an upload and every transaction it created.
		DeleteBatch(ctx context.Context, batchID string) (int64, error)
	}

	BudgetStore interface {
		// ListBudgetLines returns lines ordered by group then name.
		ListBudgetLines(ctx context.Context, profileID string, year int) ([]core.BudgetLine, error)
		GetBudgetLine(ctx context.Context, id int64) (core.BudgetLine, error)
		// CreateBudgetLine returns core.ErrConflict when (profile, name, year) exists.
		CreateBudgetLine(ctx context.Context, bl core.BudgetLine) (core.BudgetLine, error)
		UpdateBudgetLine(ctx context.Context, bl core.BudgetLine) error
		DeleteBudgetLine(ctx context.Context, id int64) error
	}

	ReportStore interface {
		UpsertReport(ctx context.Context, r core.Report) (core.Report, error)
		GetReport(ctx context.Context, profileID string, year, month int) (core.Report, error)
	}

	// Store is everything a backend provides.
	Store interface {
		ProfileStore
		TransactionReader
		TransactionWriter
		BudgetStore
		ReportStore
		Close() error
	}
)
