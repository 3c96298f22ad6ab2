package core

import (
	"fmt"
	"strings"
)

// TransactionType is the closed set of ledger entry kinds.
type TransactionType string

const (
	TypeExpense  TransactionType = "expense"
	TypeIncome   TransactionType = "income"
	TypeTransfer TransactionType = "transfer"
	TypeInternal TransactionType = "internal"
	TypeCredit   TransactionType = "credit"
)

var transactionTypes = []TransactionType{TypeExpense, TypeIncome, TypeTransfer, TypeInternal, TypeCredit}

func TransactionTypes() []TransactionType {
	out := make([]TransactionType, len(transactionTypes))
	copy(out, transactionTypes)
	return out
}

func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

func (t TransactionType) IsValid() bool {
	for _, v := range transactionTypes {
		if t == v {
			return true
		}
	}
	return false
}

// BudgetGroup labels the budget taxonomy. Only the five canonical groups
// can own budget lines; transactions may also carry the pass-through
// labels or any free text coming from ingestion.
type BudgetGroup string

const (
	GroupFixedCosts   BudgetGroup = "Fixed Costs"
	GroupSavingsGoals BudgetGroup = "Savings Goals"
	GroupGuiltFree    BudgetGroup = "Guilt-Free"
	GroupInvestments  BudgetGroup = "Investments"
	GroupPreTax       BudgetGroup = "Pre-Tax"

	GroupIncome   BudgetGroup = "Income"
	GroupTransfer BudgetGroup = "Transfer"
	GroupInternal BudgetGroup = "Internal"
)

var budgetGroups = []BudgetGroup{GroupFixedCosts, GroupSavingsGoals, GroupGuiltFree, GroupInvestments, GroupPreTax}

// BudgetGroups returns the canonical groups in display order.
func BudgetGroups() []BudgetGroup {
	out := make([]BudgetGroup, len(budgetGroups))
	copy(out, budgetGroups)
	return out
}

func ParseBudgetGroup(s string) (BudgetGroup, error) {
	g := BudgetGroup(strings.TrimSpace(s))
	if !g.IsCanonical() {
		return "", fmt.Errorf("%w: %q", ErrInvalidGroup, s)
	}
	return g, nil
}

func (g BudgetGroup) IsCanonical() bool {
	for _, v := range budgetGroups {
		if g == v {
			return true
		}
	}
	return false
}

// IsPassThrough reports whether g marks money movements that never count
// as spend.
func (g BudgetGroup) IsPassThrough() bool {
	return g == GroupIncome || g == GroupTransfer || g == GroupInternal
}

// Tracked reports whether spend carrying this label counts towards
// group actuals.
func (g BudgetGroup) Tracked() bool {
	return g != "" && !g.IsPassThrough()
}
