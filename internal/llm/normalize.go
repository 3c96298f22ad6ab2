package llm

import (
	"strings"

	"finanzas/internal/core"

	"github.com/shopspring/decimal"
)

// NoBudgetLine is what the model is told to use when no line matches.
const NoBudgetLine = "—"

// modelRow is one element of the array the model returns. Amount accepts
// both JSON numbers and numeric strings.
type modelRow struct {
	Date        string           `json:"date"`
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
	Type        string           `json:"type"`
	Source      string           `json:"source"`
	Category    string           `json:"category"`
	BudgetGroup string           `json:"budget_group"`
	BudgetLine  string           `json:"budget_line"`
	Notes       string           `json:"notes"`
}

func (r modelRow) normalize() core.ParsedTransaction {
	amount := decimal.Zero
	if r.Amount != nil {
		amount = r.Amount.Abs()
	}
	typ, err := core.ParseTransactionType(r.Type)
	if err != nil {
		typ = core.TypeExpense
	}
	return core.ParsedTransaction{
		Date:        strings.TrimSpace(r.Date),
		Description: orDefault(r.Description, "Unknown"),
		Amount:      amount,
		Type:        typ,
		Source:      orDefault(r.Source, "Unknown"),
		Category:    orDefault(r.Category, "Uncategorized"),
		BudgetGroup: core.BudgetGroup(orDefault(r.BudgetGroup, string(core.GroupGuiltFree))),
		BudgetLine:  orDefault(r.BudgetLine, NoBudgetLine),
		Notes:       strings.TrimSpace(r.Notes),
	}
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

// cleanModelJSON strips Markdown fences and any prose around the top-level
// JSON array.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
