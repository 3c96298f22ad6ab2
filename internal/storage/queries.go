package storage

import (
	"context"
	"database/sql"
	"fmt"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Profiles

const upsertProfile = `
INSERT INTO profiles (id, name, description) VALUES (?1, ?2, ?3)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, description = excluded.description`

type UpsertProfileParams struct {
	ID          string
	Name        string
	Description sql.NullString
}

func (q *Queries) UpsertProfile(ctx context.Context, arg UpsertProfileParams) error {
	_, err := q.db.ExecContext(ctx, upsertProfile, arg.ID, arg.Name, arg.Description)
	return err
}

const getProfile = `SELECT id, name, description FROM profiles WHERE id = ?1`

func (q *Queries) GetProfile(ctx context.Context, id string) (Profile, error) {
	var p Profile
	err := q.db.QueryRowContext(ctx, getProfile, id).Scan(&p.ID, &p.Name, &p.Description)
	return p, err
}

const listProfiles = `SELECT id, name, description FROM profiles ORDER BY id`

func (q *Queries) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := q.db.QueryContext(ctx, listProfiles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// Uploads

const createUpload = `
INSERT INTO uploads (id, profile_id, source, filename, uploaded_at, transaction_count)
VALUES (?1, ?2, ?3, ?4, ?5, ?6)`

type CreateUploadParams struct {
	ID               string
	ProfileID        string
	Source           string
	Filename         sql.NullString
	UploadedAt       string
	TransactionCount int64
}

func (q *Queries) CreateUpload(ctx context.Context, arg CreateUploadParams) error {
	_, err := q.db.ExecContext(ctx, createUpload,
		arg.ID, arg.ProfileID, arg.Source, arg.Filename, arg.UploadedAt, arg.TransactionCount)
	return err
}

const getUpload = `
SELECT id, profile_id, source, filename, uploaded_at, transaction_count
FROM uploads WHERE id = ?1`

func (q *Queries) GetUpload(ctx context.Context, id string) (Upload, error) {
	var u Upload
	err := q.db.QueryRowContext(ctx, getUpload, id).Scan(
		&u.ID, &u.ProfileID, &u.Source, &u.Filename, &u.UploadedAt, &u.TransactionCount)
	return u, err
}

const deleteUpload = `DELETE FROM uploads WHERE id = ?1`

func (q *Queries) DeleteUpload(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteUpload, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Transactions

const transactionColumns = `id, profile_id, date, description, amount, type, source, category,
	budget_group, budget_line, notes, upload_batch_id, month, year, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (Transaction, error) {
	var t Transaction
	err := row.Scan(
		&t.ID, &t.ProfileID, &t.Date, &t.Description, &t.Amount, &t.Type, &t.Source, &t.Category,
		&t.BudgetGroup, &t.BudgetLine, &t.Notes, &t.UploadBatchID, &t.Month, &t.Year, &t.CreatedAt,
	)
	return t, err
}

const createTransaction = `
INSERT INTO transactions (profile_id, date, description, amount, type, source, category,
	budget_group, budget_line, notes, upload_batch_id, month, year, created_at)
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?10, ?11, ?12, ?13, ?14)
RETURNING ` + transactionColumns

type CreateTransactionParams struct {
	ProfileID     string
	Date          string
	Description   string
	Amount        string
	Type          string
	Source        string
	Category      sql.NullString
	BudgetGroup   sql.NullString
	BudgetLine    sql.NullString
	Notes         sql.NullString
	UploadBatchID sql.NullString
	Month         int64
	Year          int64
	CreatedAt     string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.ProfileID, arg.Date, arg.Description, arg.Amount, arg.Type, arg.Source, arg.Category,
		arg.BudgetGroup, arg.BudgetLine, arg.Notes, arg.UploadBatchID, arg.Month, arg.Year, arg.CreatedAt,
	)
	return scanTransaction(row)
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?1`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const listTransactions = `
SELECT ` + transactionColumns + ` FROM transactions
WHERE profile_id = ?1 AND (?2 = 0 OR year = ?2) AND (?3 = 0 OR month = ?3)
ORDER BY date ASC, id ASC`

type ListTransactionsParams struct {
	ProfileID string
	Year      int64
	Month     int64
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, arg.ProfileID, arg.Year, arg.Month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const updateTransaction = `
UPDATE transactions SET description = ?2, amount = ?3, type = ?4, category = ?5,
	budget_group = ?6, budget_line = ?7, notes = ?8
WHERE id = ?1`

type UpdateTransactionParams struct {
	ID          int64
	Description string
	Amount      string
	Type        string
	Category    sql.NullString
	BudgetGroup sql.NullString
	BudgetLine  sql.NullString
	Notes       sql.NullString
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		arg.ID, arg.Description, arg.Amount, arg.Type, arg.Category, arg.BudgetGroup, arg.BudgetLine, arg.Notes)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?1`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransactionsByBatch = `DELETE FROM transactions WHERE upload_batch_id = ?1`

func (q *Queries) DeleteTransactionsByBatch(ctx context.Context, batchID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransactionsByBatch, batchID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// transactionFieldColumns whitelists the columns that may be interpolated
// into the dynamic queries below.
var transactionFieldColumns = map[string]string{
	"source":       "source",
	"category":     "category",
	"budget_group": "budget_group",
	"budget_line":  "budget_line",
	"type":         "type",
}

type ReplaceFieldParams struct {
	Column    string
	ProfileID string
	From      string
	To        string
	Year      int64
}

func (q *Queries) ReplaceField(ctx context.Context, arg ReplaceFieldParams) (int64, error) {
	col, ok := transactionFieldColumns[arg.Column]
	if !ok {
		return 0, fmt.Errorf("unknown column %q", arg.Column)
	}
	query := fmt.Sprintf(`
UPDATE transactions SET %[1]s = ?1
WHERE profile_id = ?2 AND COALESCE(%[1]s, '') = ?3 AND (?4 = 0 OR year = ?4)`, col)
	res, err := q.db.ExecContext(ctx, query, arg.To, arg.ProfileID, arg.From, arg.Year)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type DistinctValueRow struct {
	Value string
	Count int64
}

func (q *Queries) DistinctValues(ctx context.Context, column, profileID string) ([]DistinctValueRow, error) {
	col, ok := transactionFieldColumns[column]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", column)
	}
	query := fmt.Sprintf(`
SELECT %[1]s, COUNT(*) AS n FROM transactions
WHERE profile_id = ?1 AND %[1]s IS NOT NULL AND %[1]s != ''
GROUP BY %[1]s ORDER BY n DESC, %[1]s ASC`, col)
	rows, err := q.db.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DistinctValueRow
	for rows.Next() {
		var r DistinctValueRow
		if err := rows.Scan(&r.Value, &r.Count); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// Budget lines

const budgetLineColumns = `id, profile_id, budget_group, line_name, monthly_amount, annual_amount, is_annual, year`

func scanBudgetLine(row interface{ Scan(...any) error }) (BudgetLine, error) {
	var b BudgetLine
	err := row.Scan(&b.ID, &b.ProfileID, &b.BudgetGroup, &b.LineName, &b.MonthlyAmount, &b.AnnualAmount, &b.IsAnnual, &b.Year)
	return b, err
}

const listBudgetLines = `
SELECT ` + budgetLineColumns + ` FROM budget_lines
WHERE profile_id = ?1 AND year = ?2
ORDER BY budget_group, line_name`

type ListBudgetLinesParams struct {
	ProfileID string
	Year      int64
}

func (q *Queries) ListBudgetLines(ctx context.Context, arg ListBudgetLinesParams) ([]BudgetLine, error) {
	rows, err := q.db.QueryContext(ctx, listBudgetLines, arg.ProfileID, arg.Year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BudgetLine
	for rows.Next() {
		b, err := scanBudgetLine(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

const getBudgetLine = `SELECT ` + budgetLineColumns + ` FROM budget_lines WHERE id = ?1`

func (q *Queries) GetBudgetLine(ctx context.Context, id int64) (BudgetLine, error) {
	return scanBudgetLine(q.db.QueryRowContext(ctx, getBudgetLine, id))
}

const createBudgetLine = `
INSERT INTO budget_lines (profile_id, budget_group, line_name, monthly_amount, annual_amount, is_annual, year)
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7)
RETURNING ` + budgetLineColumns

type CreateBudgetLineParams struct {
	ProfileID     string
	BudgetGroup   string
	LineName      string
	MonthlyAmount string
	AnnualAmount  string
	IsAnnual      int64
	Year          int64
}

func (q *Queries) CreateBudgetLine(ctx context.Context, arg CreateBudgetLineParams) (BudgetLine, error) {
	row := q.db.QueryRowContext(ctx, createBudgetLine,
		arg.ProfileID, arg.BudgetGroup, arg.LineName, arg.MonthlyAmount, arg.AnnualAmount, arg.IsAnnual, arg.Year)
	return scanBudgetLine(row)
}

const updateBudgetLine = `
UPDATE budget_lines SET budget_group = ?2, line_name = ?3, monthly_amount = ?4,
	annual_amount = ?5, is_annual = ?6, year = ?7
WHERE id = ?1`

type UpdateBudgetLineParams struct {
	ID            int64
	BudgetGroup   string
	LineName      string
	MonthlyAmount string
	AnnualAmount  string
	IsAnnual      int64
	Year          int64
}

func (q *Queries) UpdateBudgetLine(ctx context.Context, arg UpdateBudgetLineParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateBudgetLine,
		arg.ID, arg.BudgetGroup, arg.LineName, arg.MonthlyAmount, arg.AnnualAmount, arg.IsAnnual, arg.Year)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteBudgetLine = `DELETE FROM budget_lines WHERE id = ?1`

func (q *Queries) DeleteBudgetLine(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteBudgetLine, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Reports

const reportColumns = `id, profile_id, month, year, user_comments, report_text, created_at`

func scanReport(row interface{ Scan(...any) error }) (Report, error) {
	var r Report
	err := row.Scan(&r.ID, &r.ProfileID, &r.Month, &r.Year, &r.UserComments, &r.ReportText, &r.CreatedAt)
	return r, err
}

const upsertReport = `
INSERT INTO reports (profile_id, month, year, user_comments, report_text, created_at)
VALUES (?1, ?2, ?3, ?4, ?5, ?6)
ON CONFLICT(profile_id, month, year) DO UPDATE SET
	user_comments = excluded.user_comments,
	report_text = excluded.report_text,
	created_at = excluded.created_at
RETURNING ` + reportColumns

type UpsertReportParams struct {
	ProfileID    string
	Month        int64
	Year         int64
	UserComments sql.NullString
	ReportText   string
	CreatedAt    string
}

func (q *Queries) UpsertReport(ctx context.Context, arg UpsertReportParams) (Report, error) {
	row := q.db.QueryRowContext(ctx, upsertReport,
		arg.ProfileID, arg.Month, arg.Year, arg.UserComments, arg.ReportText, arg.CreatedAt)
	return scanReport(row)
}

const getReport = `SELECT ` + reportColumns + ` FROM reports WHERE profile_id = ?1 AND year = ?2 AND month = ?3`

func (q *Queries) GetReport(ctx context.Context, profileID string, year, month int64) (Report, error) {
	return scanReport(q.db.QueryRowContext(ctx, getReport, profileID, year, month))
}
