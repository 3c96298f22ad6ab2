// Package summary turns a profile's ledger and budget lines into the
// monthly and yearly dashboard aggregates.
//
// Everything here is pure: callers fetch rows, resolve the period they
// want, and pass plain values in. Nothing reads the clock or the store.
package summary

import (
	"finanzas/internal/core"

	"github.com/shopspring/decimal"
)

// Plan is the resolved monthly budget of one profile-year.
//
// Groups and Lines keep the order in which budget lines were first seen.
// A repeated (group, line) key keeps its first position and the last
// line's amount.
type Plan struct {
	groups    []core.BudgetGroup
	groupSums map[core.BudgetGroup]decimal.Decimal
	lines     []core.LineKey
	lineSums  map[core.LineKey]decimal.Decimal
}

// ResolveBudget normalizes budget lines into per-group and per-line
// monthly figures. An empty input yields an empty plan.
func ResolveBudget(lines []core.BudgetLine) Plan {
	p := Plan{
		groupSums: make(map[core.BudgetGroup]decimal.Decimal, len(lines)),
		lineSums:  make(map[core.LineKey]decimal.Decimal, len(lines)),
	}
	for _, bl := range lines {
		monthly := bl.MonthlyBudget()

		if _, seen := p.groupSums[bl.Group]; !seen {
			p.groups = append(p.groups, bl.Group)
		}
		p.groupSums[bl.Group] = p.groupSums[bl.Group].Add(monthly)

		key := bl.Key()
		if _, seen := p.lineSums[key]; !seen {
			p.lines = append(p.lines, key)
		}
		p.lineSums[key] = monthly
	}
	return p
}

// Groups returns the budgeted groups in first-seen order.
func (p Plan) Groups() []core.BudgetGroup {
	return append([]core.BudgetGroup(nil), p.groups...)
}

// Lines returns the budgeted lines in first-seen order.
func (p Plan) Lines() []core.LineKey {
	return append([]core.LineKey(nil), p.lines...)
}

// GroupBudget is the monthly budget of g, zero when g has no lines.
func (p Plan) GroupBudget(g core.BudgetGroup) decimal.Decimal {
	return p.groupSums[g]
}

// LineBudget returns the monthly budget of k and whether k is budgeted.
func (p Plan) LineBudget(k core.LineKey) (decimal.Decimal, bool) {
	v, ok := p.lineSums[k]
	return v, ok
}

// HasLine reports whether k is a budgeted line.
func (p Plan) HasLine(k core.LineKey) bool {
	_, ok := p.lineSums[k]
	return ok
}
