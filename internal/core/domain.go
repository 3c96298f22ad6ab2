package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the on-disk and wire format for calendar dates.
const DateLayout = "2006-01-02"

const (
	maxDescriptionLen = 500
	minYear           = 1900
	maxYear           = 9999
)

type (
	Date struct {
		time.Time
	}

	Profile struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}

	// Transaction is a single ledger entry. Amount is always a magnitude;
	// its effect on totals is decided by Type.
	Transaction struct {
		ID            int64           `json:"id"`
		ProfileID     string          `json:"profile_id"`
		Date          Date            `json:"date"`
		Description   string          `json:"description"`
		Amount        decimal.Decimal `json:"amount"`
		Type          TransactionType `json:"type"`
		Source        string          `json:"source"`
		Category      string          `json:"category,omitempty"`
		BudgetGroup   BudgetGroup     `json:"budget_group,omitempty"`
		BudgetLine    string          `json:"budget_line,omitempty"`
		Notes         string          `json:"notes,omitempty"`
		UploadBatchID string          `json:"upload_batch_id,omitempty"`
		CreatedAt     time.Time       `json:"created_at"`
	}

	// BudgetLine is a planning entry, unique per (profile, year, name).
	BudgetLine struct {
		ID            int64           `json:"id"`
		ProfileID     string          `json:"profile_id"`
		Group         BudgetGroup     `json:"budget_group"`
		Name          string          `json:"line_name"`
		MonthlyAmount decimal.Decimal `json:"monthly_amount"`
		AnnualAmount  decimal.Decimal `json:"annual_amount"`
		IsAnnual      bool            `json:"is_annual"`
		Year          int             `json:"year"`
	}

	// LineKey identifies a budget line inside one profile-year.
	LineKey struct {
		Group BudgetGroup
		Line  string
	}

	Upload struct {
		BatchID          string    `json:"id"`
		ProfileID        string    `json:"profile_id"`
		Source           string    `json:"source"`
		Filename         string    `json:"filename,omitempty"`
		TransactionCount int       `json:"transaction_count"`
		UploadedAt       time.Time `json:"uploaded_at"`
	}

	Report struct {
		ID           int64     `json:"id"`
		ProfileID    string    `json:"profile_id"`
		Month        int       `json:"month"`
		Year         int       `json:"year"`
		UserComments string    `json:"user_comments,omitempty"`
		Text         string    `json:"report_text"`
		CreatedAt    time.Time `json:"created_at"`
	}

	// ParsedTransaction is an ingest row before it is assigned to a profile
	// and batch.
	ParsedTransaction struct {
		Date        string          `json:"date"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Type        TransactionType `json:"type"`
		Source      string          `json:"source"`
		Category    string          `json:"category"`
		BudgetGroup BudgetGroup     `json:"budget_group"`
		BudgetLine  string          `json:"budget_line"`
		Notes       string          `json:"notes"`
	}

	TransactionFilter struct {
		ProfileID string
		Year      int // 0 means any year
		Month     int // 0 means any month
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysInMonth returns the calendar length of the given month.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func ValidateMonth(month int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	return nil
}

func ValidateYear(year int) error {
	if year < minYear || year > maxYear {
		return fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.ProfileID) == "" {
		return ErrEmptyProfile
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: max %d characters", ErrInvalidDescription, maxDescriptionLen)
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !t.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, t.Type)
	}
	return nil
}

// Year returns the calendar year the transaction is booked in.
func (t Transaction) Year() int { return t.Date.Year() }

// Month returns the calendar month the transaction is booked in.
func (t Transaction) Month() int { return t.Date.Month() }

// Contribution is the signed effect of t on spend: +amount for expenses,
// -amount for credits. ok is false for every other type.
func (t Transaction) Contribution() (amount decimal.Decimal, ok bool) {
	switch t.Type {
	case TypeExpense:
		return t.Amount.Abs(), true
	case TypeCredit:
		return t.Amount.Abs().Neg(), true
	default:
		return decimal.Zero, false
	}
}

func (b BudgetLine) Key() LineKey {
	return LineKey{Group: b.Group, Line: b.Name}
}

// MonthlyBudget is the effective monthly figure used for aggregation.
func (b BudgetLine) MonthlyBudget() decimal.Decimal {
	if b.IsAnnual {
		return b.AnnualAmount.Div(decimal.NewFromInt(12))
	}
	return b.MonthlyAmount
}

// AnnualBudget is annual_amount, or monthly_amount * 12 when annual is unset.
func (b BudgetLine) AnnualBudget() decimal.Decimal {
	if !b.AnnualAmount.IsZero() {
		return b.AnnualAmount
	}
	return b.MonthlyAmount.Mul(decimal.NewFromInt(12))
}

// Normalize fills whichever of the two amounts was left at zero from the
// authoritative one.
func (b BudgetLine) Normalize() BudgetLine {
	if b.IsAnnual {
		if b.MonthlyAmount.IsZero() {
			b.MonthlyAmount = b.AnnualAmount.Div(decimal.NewFromInt(12)).Round(2)
		}
		return b
	}
	if b.AnnualAmount.IsZero() {
		b.AnnualAmount = b.MonthlyAmount.Mul(decimal.NewFromInt(12))
	}
	return b
}

func (b BudgetLine) Validate() error {
	if strings.TrimSpace(b.ProfileID) == "" {
		return ErrEmptyProfile
	}
	if !b.Group.IsCanonical() {
		return fmt.Errorf("%w: %q", ErrInvalidGroup, b.Group)
	}
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyLineName
	}
	if b.MonthlyAmount.IsNegative() || b.AnnualAmount.IsNegative() {
		return ErrInvalidAmount
	}
	return ValidateYear(b.Year)
}

func (f TransactionFilter) Validate() error {
	if strings.TrimSpace(f.ProfileID) == "" {
		return ErrEmptyProfile
	}
	if f.Month != 0 {
		if err := ValidateMonth(f.Month); err != nil {
			return err
		}
		if f.Year == 0 {
			return errors.New("month filter requires a year")
		}
	}
	if f.Year != 0 {
		return ValidateYear(f.Year)
	}
	return nil
}
