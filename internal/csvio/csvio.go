// Package csvio reads and writes categorised ledger rows as CSV.
//
// The column set is the one the ledger stores, so an export can be edited
// in a spreadsheet and imported back as a new batch:
//
//	date,description,amount,type,source,category,budget_group,budget_line,notes
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"finanzas/internal/core"

	"github.com/gocarina/gocsv"
)

// Row maps one CSV line. Fields stay strings so that locale-formatted
// amounts ("1.234,56") and blank types survive unmarshalling and are
// validated with row numbers attached.
type Row struct {
	Date        string `csv:"date"`
	Description string `csv:"description"`
	Amount      string `csv:"amount"`
	Type        string `csv:"type"`
	Source      string `csv:"source"`
	Category    string `csv:"category"`
	BudgetGroup string `csv:"budget_group"`
	BudgetLine  string `csv:"budget_line"`
	Notes       string `csv:"notes"`
}

// Read parses comma-separated rows.
func Read(r io.Reader) ([]core.ParsedTransaction, error) {
	return ReadDelimited(r, ',')
}

// ReadDelimited parses rows separated by comma. Blank lines are skipped.
// Errors name the 1-based data row that failed.
func ReadDelimited(r io.Reader, comma rune) ([]core.ParsedTransaction, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	var rows []Row
	if err := gocsv.UnmarshalCSV(cr, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, core.ErrEmptyBatch
		}
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	out := make([]core.ParsedTransaction, 0, len(rows))
	for i, row := range rows {
		if row.blank() {
			continue
		}
		pt, err := row.Parsed()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, pt)
	}
	if len(out) == 0 {
		return nil, core.ErrEmptyBatch
	}

	slog.Debug("Read CSV rows", "count", len(out))
	return out, nil
}

func (r Row) blank() bool {
	return strings.TrimSpace(r.Date+r.Description+r.Amount) == ""
}

// Parsed validates the row's typed fields. The date is checked here even
// though ingest checks it again, so the error carries the CSV row number.
func (r Row) Parsed() (core.ParsedTransaction, error) {
	date := strings.TrimSpace(r.Date)
	if _, err := core.ParseDate(date); err != nil {
		return core.ParsedTransaction{}, err
	}
	amount, err := core.ParseAmount(r.Amount)
	if err != nil {
		return core.ParsedTransaction{}, fmt.Errorf("%w: %q", err, r.Amount)
	}

	var typ core.TransactionType
	if strings.TrimSpace(r.Type) != "" {
		if typ, err = core.ParseTransactionType(r.Type); err != nil {
			return core.ParsedTransaction{}, err
		}
	}

	return core.ParsedTransaction{
		Date:        date,
		Description: strings.TrimSpace(r.Description),
		Amount:      amount.Abs(),
		Type:        typ,
		Source:      strings.TrimSpace(r.Source),
		Category:    strings.TrimSpace(r.Category),
		BudgetGroup: core.BudgetGroup(strings.TrimSpace(r.BudgetGroup)),
		BudgetLine:  strings.TrimSpace(r.BudgetLine),
		Notes:       strings.TrimSpace(r.Notes),
	}, nil
}

// FromTransaction renders a stored transaction with a two-decimal amount.
func FromTransaction(tx core.Transaction) Row {
	return Row{
		Date:        tx.Date.String(),
		Description: tx.Description,
		Amount:      core.FormatAmount(tx.Amount),
		Type:        string(tx.Type),
		Source:      tx.Source,
		Category:    tx.Category,
		BudgetGroup: string(tx.BudgetGroup),
		BudgetLine:  tx.BudgetLine,
		Notes:       tx.Notes,
	}
}

// Write emits txs with a header row. An empty slice still writes the header.
func Write(w io.Writer, txs []core.Transaction) error {
	rows := make([]Row, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, FromTransaction(tx))
	}

	cw := csv.NewWriter(w)
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	slog.Debug("Wrote CSV rows", "count", len(rows))
	return nil
}
