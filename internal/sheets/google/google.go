package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"finanzas/internal/core"
	ports "finanzas/internal/sheets"
	"finanzas/internal/summary"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// Ensure interface conformance
var _ ports.YearlyExporter = (*Client)(nil)

// Options selects the spreadsheet and the credentials used to reach it.
// A service account wins: inline JSON first, then a credentials file. With
// neither set, a user token saved by finanzasctl sheets-auth is used when
// OAuthTokenFile is set, and GOOGLE_APPLICATION_CREDENTIALS otherwise.
type Options struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string

	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenFile  string
}

func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(opts.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(opts.ServiceAccountFile)
	tokenFile := strings.TrimSpace(opts.OAuthTokenFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" && tokenFile != "" {
		return newUserSheetsService(ctx, opts.OAuthClientJSON, opts.OAuthClientFile, tokenFile)
	}
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		var err error
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// newUserSheetsService authenticates as the user who ran sheets-auth. The
// token source refreshes the access token from the saved refresh token.
func newUserSheetsService(ctx context.Context, clientJSON, clientFile, tokenFile string) (*gsheet.Service, error) {
	raw, err := ReadClientJSON(clientJSON, clientFile)
	if err != nil {
		return nil, err
	}
	cfg, err := OAuthConfig(raw)
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(tokenFile)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Using OAuth user token", "path", tokenFile)
	service, err := gsheet.NewService(ctx, goption.WithTokenSource(cfg.TokenSource(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ExportYearly rewrites the profile-year tab with y.
func (c *Client) ExportYearly(ctx context.Context, y summary.Yearly) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	tab := TabName(y.Year, y.Profile)
	if err := c.ensureTab(ctx, tab); err != nil {
		return "", err
	}

	whole := quoteTab(tab)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, whole, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", tab, err)
	}

	values := YearlyValues(y)
	rng := fmt.Sprintf("%s!A1", whole)
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", tab, err)
	}

	ref := fmt.Sprintf("%s!A1:%s%d", whole, columnName(maxWidth(values)), len(values))
	slog.InfoContext(ctx, "Yearly summary exported to Google Sheets",
		"profile_id", y.Profile.ID,
		"year", y.Year,
		"range", ref)
	return ref, nil
}

func (c *Client) ensureTab(ctx context.Context, tab string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == tab {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", tab, err)
	}
	slog.InfoContext(ctx, "Created sheet tab", "tab", tab)
	return nil
}

// TabName returns "<year> <profile name>", falling back to the profile id.
func TabName(year int, p core.Profile) string {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = p.ID
	}
	return yearPrefixedName(name, year)
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

// YearlyValues lays y out as a values matrix: KPI block, a month table
// joining the trend with the per-group spend, group pacing, line burn and
// the category breakdown, separated by blank rows.
func YearlyValues(y summary.Yearly) [][]any {
	rows := [][]any{
		{"Profile", y.Profile.Name, "Year", y.Year},
		{},
		{"KPI", "Value"},
		{"Total income", money(y.KPIs.TotalIncome)},
		{"Total expenses", money(y.KPIs.TotalExpenses)},
		{"Net savings", money(y.KPIs.NetSavings)},
		{"Savings rate %", percent(y.KPIs.SavingsRate)},
		{"Months with data", y.KPIs.MonthsWithData},
		{},
	}

	header := []any{"Month", "Income", "Expenses"}
	for _, g := range core.BudgetGroups() {
		header = append(header, string(g))
	}
	rows = append(rows, header)
	for i, point := range y.MonthlyTrend {
		row := []any{point.Month, money(point.Income), money(point.Expenses)}
		if i < len(y.MonthlyByGroup) {
			for _, g := range core.BudgetGroups() {
				row = append(row, money(y.MonthlyByGroup[i].Spend[g]))
			}
		}
		rows = append(rows, row)
	}
	rows = append(rows, []any{})

	rows = append(rows, []any{"Group", "Annual budget", "Spent YTD", "% used", "Remaining", "Expected pace %", "Status"})
	for _, g := range y.BudgetGroupSummary {
		rows = append(rows, []any{
			string(g.Group), money(g.AnnualBudget), money(g.SpentYTD), percent(g.PercentUsed),
			money(g.RemainingBudget), percent(g.ExpectedPace), string(g.Status),
		})
	}
	rows = append(rows, []any{})

	rows = append(rows, []any{"Group", "Line", "Annual budget", "Spent YTD", "% used"})
	for _, l := range y.AnnualBudgetBurn {
		rows = append(rows, []any{
			string(l.Group), l.Line, money(l.AnnualBudget), money(l.SpentYTD), percent(l.PercentUsed),
		})
	}
	rows = append(rows, []any{})

	rows = append(rows, []any{"Category", "Total", "Count"})
	for _, c := range y.CategoryBreakdown {
		rows = append(rows, []any{c.Category, money(c.Total), c.Count})
	}
	return rows
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func percent(f float64) float64 {
	return decimal.NewFromFloat(f).Round(1).InexactFloat64()
}

func maxWidth(rows [][]any) int {
	w := 1
	for _, r := range rows {
		w = max(w, len(r))
	}
	return w
}

// columnName converts a 1-based column index to A1 letters.
func columnName(n int) string {
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}
