package storage

import "database/sql"

type Profile struct {
	ID          string
	Name        string
	Description sql.NullString
}

type Upload struct {
	ID               string
	ProfileID        string
	Source           string
	Filename         sql.NullString
	UploadedAt       string
	TransactionCount int64
}

type Transaction struct {
	ID            int64
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

type BudgetLine struct {
	ID            int64
	ProfileID     string
	BudgetGroup   string
	LineName      string
	MonthlyAmount string
	AnnualAmount  string
	IsAnnual      int64
	Year          int64
}

type Report struct {
	ID           int64
	ProfileID    string
	Month        int64
	Year         int64
	UserComments sql.NullString
	ReportText   string
	CreatedAt    string
}
