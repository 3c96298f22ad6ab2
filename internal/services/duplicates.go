package services

import (
	"cmp"
	"slices"

	"finanzas/internal/core"

	"github.com/shopspring/decimal"
)

// DuplicateGroup is one set of rows sharing a key. Description is taken
// from the first row.
type DuplicateGroup struct {
	Key          string             `json:"key"`
	Date         core.Date          `json:"date"`
	Amount       decimal.Decimal    `json:"amount"`
	Description  string             `json:"description"`
	Transactions []core.Transaction `json:"transactions"`
}

type DuplicateReport struct {
	Groups          []DuplicateGroup `json:"groups"`
	TotalDuplicates int              `json:"totalDuplicates"`
}

// FindDuplicates groups transactions sharing a date and an amount rounded
// to cents. Only groups with two or more rows are returned, largest first.
// TotalDuplicates counts the rows that would go if one of each group stayed.
func FindDuplicates(txs []core.Transaction) DuplicateReport {
	index := make(map[string]int)
	var groups []DuplicateGroup
	for _, tx := range txs {
		amount := tx.Amount.Abs().Round(2)
		key := tx.Date.String() + "|" + amount.StringFixed(2)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DuplicateGroup{
				Key:         key,
				Date:        tx.Date,
				Amount:      amount,
				Description: tx.Description,
			})
		}
		groups[i].Transactions = append(groups[i].Transactions, tx)
	}

	report := DuplicateReport{Groups: make([]DuplicateGroup, 0)}
	for _, g := range groups {
		if len(g.Transactions) < 2 {
			continue
		}
		report.Groups = append(report.Groups, g)
		report.TotalDuplicates += len(g.Transactions) - 1
	}
	slices.SortStableFunc(report.Groups, func(a, b DuplicateGroup) int {
		return cmp.Compare(len(b.Transactions), len(a.Transactions))
	})
	return report
}
