package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/ledger"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// The ledger is single-writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure database: %w", err)
		}
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) GetProfile(ctx context.Context, id string) (core.Profile, error) {
	p, err := r.queries.GetProfile(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, fmt.Errorf("%w: %q", core.ErrProfileNotFound, id)
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return profileFromRow(p), nil
}

func (r *SQLiteRepository) ListProfiles(ctx context.Context) ([]core.Profile, error) {
	rows, err := r.queries.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	out := make([]core.Profile, 0, len(rows))
	for _, p := range rows {
		out = append(out, profileFromRow(p))
	}
	return out, nil
}

func (r *SQLiteRepository) UpsertProfile(ctx context.Context, p core.Profile) error {
	if p.ID == "" {
		return core.ErrEmptyProfile
	}
	err := r.queries.UpsertProfile(ctx, UpsertProfileParams{
		ID:          p.ID,
		Name:        p.Name,
		Description: nullString(p.Description),
	})
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, ListTransactionsParams{
		ProfileID: f.ProfileID,
		Year:      int64(f.Year),
		Month:     int64(f.Month),
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := transactionFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return transactionFromRow(row)
}

func (r *SQLiteRepository) DistinctValues(ctx context.Context, profileID string, field ledger.Field) ([]ledger.ValueCount, error) {
	rows, err := r.queries.DistinctValues(ctx, string(field), profileID)
	if err != nil {
		return nil, fmt.Errorf("distinct %s values: %w", field, err)
	}
	out := make([]ledger.ValueCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, ledger.ValueCount{Value: row.Value, Count: int(row.Count)})
	}
	return out, nil
}

func (r *SQLiteRepository) InsertBatch(ctx context.Context, upload core.Upload, txs []core.Transaction) ([]core.Transaction, error) {
	now := r.now()
	if upload.UploadedAt.IsZero() {
		upload.UploadedAt = now
	}

	var stored []core.Transaction
	err := r.inTx(ctx, func(q *Queries) error {
		err := q.CreateUpload(ctx, CreateUploadParams{
			ID:               upload.BatchID,
			ProfileID:        upload.ProfileID,
			Source:           upload.Source,
			Filename:         nullString(upload.Filename),
			UploadedAt:       upload.UploadedAt.Format(time.RFC3339),
			TransactionCount: int64(len(txs)),
		})
		if err != nil {
			return fmt.Errorf("create upload: %w", mapConstraint(err))
		}

		stored = make([]core.Transaction, 0, len(txs))
		for _, tx := range txs {
			row, err := q.CreateTransaction(ctx, CreateTransactionParams{
				ProfileID:     tx.ProfileID,
				Date:          tx.Date.String(),
				Description:   tx.Description,
				Amount:        tx.Amount.String(),
				Type:          string(tx.Type),
				Source:        tx.Source,
				Category:      nullString(tx.Category),
				BudgetGroup:   nullString(string(tx.BudgetGroup)),
				BudgetLine:    nullString(tx.BudgetLine),
				Notes:         nullString(tx.Notes),
				UploadBatchID: nullString(upload.BatchID),
				Month:         int64(tx.Month()),
				Year:          int64(tx.Year()),
				CreatedAt:     now.Format(time.RFC3339),
			})
			if err != nil {
				return fmt.Errorf("create transaction: %w", err)
			}
			out, err := transactionFromRow(row)
			if err != nil {
				return err
			}
			stored = append(stored, out)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Transaction batch saved to SQLite",
		"batch_id", upload.BatchID,
		"profile_id", upload.ProfileID,
		"count", len(stored))
	return stored, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	n, err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		ID:          tx.ID,
		Description: tx.Description,
		Amount:      tx.Amount.String(),
		Type:        string(tx.Type),
		Category:    nullString(tx.Category),
		BudgetGroup: nullString(string(tx.BudgetGroup)),
		BudgetLine:  nullString(tx.BudgetLine),
		Notes:       nullString(tx.Notes),
	})
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", tx.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ReplaceField(ctx context.Context, br ledger.BulkReplace) (int64, error) {
	n, err := r.queries.ReplaceField(ctx, ReplaceFieldParams{
		Column:    string(br.Field),
		ProfileID: br.ProfileID,
		From:      br.From,
		To:        br.To,
		Year:      int64(br.Year),
	})
	if err != nil {
		return 0, fmt.Errorf("replace %s: %w", br.Field, err)
	}
	return n, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransactions(ctx context.Context, ids []int64) (int64, error) {
	var total int64
	err := r.inTx(ctx, func(q *Queries) error {
		for _, id := range ids {
			n, err := q.DeleteTransaction(ctx, id)
			if err != nil {
				return fmt.Errorf("delete transaction %d: %w", id, err)
			}
			total += n
		}
		return nil
	})
	return total, err
}

func (r *SQLiteRepository) GetUpload(ctx context.Context, batchID string) (core.Upload, error) {
	row, err := r.queries.GetUpload(ctx, batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Upload{}, fmt.Errorf("upload %s: %w", batchID, core.ErrNotFound)
	}
	if err != nil {
		return core.Upload{}, fmt.Errorf("get upload: %w", err)
	}
	uploaded, _ := time.Parse(time.RFC3339, row.UploadedAt)
	return core.Upload{
		BatchID:          row.ID,
		ProfileID:        row.ProfileID,
		Source:           row.Source,
		Filename:         row.Filename.String,
		TransactionCount: int(row.TransactionCount),
		UploadedAt:       uploaded,
	}, nil
}

func (r *SQLiteRepository) DeleteBatch(ctx context.Context, batchID string) (int64, error) {
	var deleted int64
	err := r.inTx(ctx, func(q *Queries) error {
		n, err := q.DeleteTransactionsByBatch(ctx, batchID)
		if err != nil {
			return fmt.Errorf("delete batch transactions: %w", err)
		}
		uploads, err := q.DeleteUpload(ctx, batchID)
		if err != nil {
			return fmt.Errorf("delete upload: %w", err)
		}
		if uploads == 0 && n == 0 {
			return fmt.Errorf("upload %s: %w", batchID, core.ErrNotFound)
		}
		deleted = n
		return nil
	})
	return deleted, err
}

func (r *SQLiteRepository) ListBudgetLines(ctx context.Context, profileID string, year int) ([]core.BudgetLine, error) {
	rows, err := r.queries.ListBudgetLines(ctx, ListBudgetLinesParams{ProfileID: profileID, Year: int64(year)})
	if err != nil {
		return nil, fmt.Errorf("list budget lines: %w", err)
	}
	out := make([]core.BudgetLine, 0, len(rows))
	for _, row := range rows {
		bl, err := budgetLineFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, bl)
	}
	return out, nil
}

func (r *SQLiteRepository) GetBudgetLine(ctx context.Context, id int64) (core.BudgetLine, error) {
	row, err := r.queries.GetBudgetLine(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetLine{}, fmt.Errorf("budget line %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.BudgetLine{}, fmt.Errorf("get budget line: %w", err)
	}
	return budgetLineFromRow(row)
}

func (r *SQLiteRepository) CreateBudgetLine(ctx context.Context, bl core.BudgetLine) (core.BudgetLine, error) {
	row, err := r.queries.CreateBudgetLine(ctx, CreateBudgetLineParams{
		ProfileID:     bl.ProfileID,
		BudgetGroup:   string(bl.Group),
		LineName:      bl.Name,
		MonthlyAmount: bl.MonthlyAmount.String(),
		AnnualAmount:  bl.AnnualAmount.String(),
		IsAnnual:      boolToInt(bl.IsAnnual),
		Year:          int64(bl.Year),
	})
	if err != nil {
		return core.BudgetLine{}, fmt.Errorf("create budget line: %w", mapConstraint(err))
	}
	return budgetLineFromRow(row)
}

func (r *SQLiteRepository) UpdateBudgetLine(ctx context.Context, bl core.BudgetLine) error {
	n, err := r.queries.UpdateBudgetLine(ctx, UpdateBudgetLineParams{
		ID:            bl.ID,
		BudgetGroup:   string(bl.Group),
		LineName:      bl.Name,
		MonthlyAmount: bl.MonthlyAmount.String(),
		AnnualAmount:  bl.AnnualAmount.String(),
		IsAnnual:      boolToInt(bl.IsAnnual),
		Year:          int64(bl.Year),
	})
	if err != nil {
		return fmt.Errorf("update budget line: %w", mapConstraint(err))
	}
	if n == 0 {
		return fmt.Errorf("budget line %d: %w", bl.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteBudgetLine(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteBudgetLine(ctx, id)
	if err != nil {
		return fmt.Errorf("delete budget line: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("budget line %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) UpsertReport(ctx context.Context, rep core.Report) (core.Report, error) {
	row, err := r.queries.UpsertReport(ctx, UpsertReportParams{
		ProfileID:    rep.ProfileID,
		Month:        int64(rep.Month),
		Year:         int64(rep.Year),
		UserComments: nullString(rep.UserComments),
		ReportText:   rep.Text,
		CreatedAt:    r.now().Format(time.RFC3339),
	})
	if err != nil {
		return core.Report{}, fmt.Errorf("upsert report: %w", err)
	}
	return reportFromRow(row), nil
}

func (r *SQLiteRepository) GetReport(ctx context.Context, profileID string, year, month int) (core.Report, error) {
	row, err := r.queries.GetReport(ctx, profileID, int64(year), int64(month))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Report{}, fmt.Errorf("report %s %d-%02d: %w", profileID, year, month, core.ErrNotFound)
	}
	if err != nil {
		return core.Report{}, fmt.Errorf("get report: %w", err)
	}
	return reportFromRow(row), nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func profileFromRow(p Profile) core.Profile {
	return core.Profile{ID: p.ID, Name: p.Name, Description: p.Description.String}
}

func transactionFromRow(row Transaction) (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", row.ID, err)
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d amount %q: %w", row.ID, row.Amount, err)
	}
	created, _ := time.Parse(time.RFC3339, row.CreatedAt)
	return core.Transaction{
		ID:            row.ID,
		ProfileID:     row.ProfileID,
		Date:          date,
		Description:   row.Description,
		Amount:        amount,
		Type:          core.TransactionType(row.Type),
		Source:        row.Source,
		Category:      row.Category.String,
		BudgetGroup:   core.BudgetGroup(row.BudgetGroup.String),
		BudgetLine:    row.BudgetLine.String,
		Notes:         row.Notes.String,
		UploadBatchID: row.UploadBatchID.String,
		CreatedAt:     created,
	}, nil
}

func budgetLineFromRow(row BudgetLine) (core.BudgetLine, error) {
	monthly, err := decimal.NewFromString(row.MonthlyAmount)
	if err != nil {
		return core.BudgetLine{}, fmt.Errorf("budget line %d monthly amount: %w", row.ID, err)
	}
	annual, err := decimal.NewFromString(row.AnnualAmount)
	if err != nil {
		return core.BudgetLine{}, fmt.Errorf("budget line %d annual amount: %w", row.ID, err)
	}
	return core.BudgetLine{
		ID:            row.ID,
		ProfileID:     row.ProfileID,
		Group:         core.BudgetGroup(row.BudgetGroup),
		Name:          row.LineName,
		MonthlyAmount: monthly,
		AnnualAmount:  annual,
		IsAnnual:      row.IsAnnual != 0,
		Year:          int(row.Year),
	}, nil
}

func reportFromRow(row Report) core.Report {
	created, _ := time.Parse(time.RFC3339, row.CreatedAt)
	return core.Report{
		ID:           row.ID,
		ProfileID:    row.ProfileID,
		Month:        int(row.Month),
		Year:         int(row.Year),
		UserComments: row.UserComments.String,
		Text:         row.ReportText,
		CreatedAt:    created,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func mapConstraint(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", core.ErrConflict, err)
	}
	return err
}
