package summary

import (
	"slices"

	"finanzas/internal/core"

	"github.com/shopspring/decimal"
)

// Uncategorized labels spend whose category is empty.
const Uncategorized = "Uncategorized"

type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// Actuals is the spend of one transaction window measured against a Plan.
type Actuals struct {
	groups     map[core.BudgetGroup]decimal.Decimal
	lines      map[core.LineKey]decimal.Decimal
	categories []CategoryTotal

	TotalIncome      decimal.Decimal
	TotalExpenses    decimal.Decimal
	TransactionCount int
}

// Accumulate folds txs into fresh actuals. Neither txs nor plan is
// modified.
//
// Only expense and credit transactions count as spend. Group actuals skip
// empty and pass-through groups; line actuals are kept only for lines the
// plan budgets. Categories are tallied regardless of budget grouping.
func Accumulate(txs []core.Transaction, plan Plan) Actuals {
	a := Actuals{
		groups:           make(map[core.BudgetGroup]decimal.Decimal),
		lines:            make(map[core.LineKey]decimal.Decimal),
		TransactionCount: len(txs),
	}
	cats := newCategoryTally()

	for _, tx := range txs {
		if tx.Type == core.TypeIncome {
			a.TotalIncome = a.TotalIncome.Add(tx.Amount.Abs())
			continue
		}
		amount, ok := tx.Contribution()
		if !ok {
			continue
		}
		a.TotalExpenses = a.TotalExpenses.Add(amount)
		cats.add(tx.Category, amount)

		if !tx.BudgetGroup.Tracked() {
			continue
		}
		a.groups[tx.BudgetGroup] = a.groups[tx.BudgetGroup].Add(amount)
		key := core.LineKey{Group: tx.BudgetGroup, Line: tx.BudgetLine}
		if plan.HasLine(key) {
			a.lines[key] = a.lines[key].Add(amount)
		}
	}

	a.categories = cats.totals
	return a
}

// GroupActual is the signed spend booked against g.
func (a Actuals) GroupActual(g core.BudgetGroup) decimal.Decimal {
	return a.groups[g]
}

// LineActual is the signed spend booked against a budgeted line.
func (a Actuals) LineActual(k core.LineKey) decimal.Decimal {
	return a.lines[k]
}

// CategoryBreakdown returns categories with a positive net total, largest
// first. Ties keep first-seen order.
func (a Actuals) CategoryBreakdown() []CategoryTotal {
	return breakdown(a.categories)
}

type categoryTally struct {
	index  map[string]int
	totals []CategoryTotal
}

func newCategoryTally() *categoryTally {
	return &categoryTally{index: make(map[string]int)}
}

func (c *categoryTally) add(category string, amount decimal.Decimal) {
	if category == "" {
		category = Uncategorized
	}
	i, ok := c.index[category]
	if !ok {
		i = len(c.totals)
		c.index[category] = i
		c.totals = append(c.totals, CategoryTotal{Category: category})
	}
	c.totals[i].Total = c.totals[i].Total.Add(amount)
	c.totals[i].Count++
}

func breakdown(totals []CategoryTotal) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(totals))
	for _, ct := range totals {
		if ct.Total.IsPositive() {
			out = append(out, ct)
		}
	}
	slices.SortStableFunc(out, func(x, y CategoryTotal) int {
		return y.Total.Cmp(x.Total)
	})
	return out
}
