package summary

import (
	"finanzas/internal/core"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type KPIs struct {
	TotalIncome      decimal.Decimal `json:"totalIncome"`
	TotalExpenses    decimal.Decimal `json:"totalExpenses"`
	NetSavings       decimal.Decimal `json:"netSavings"`
	SavingsRate      float64         `json:"savingsRate"`
	DailyAvgSpend    decimal.Decimal `json:"dailyAvgSpend"`
	TransactionCount int             `json:"transactionCount"`
}

type GroupComparison struct {
	Group  core.BudgetGroup `json:"group"`
	Budget decimal.Decimal  `json:"budget"`
	Actual decimal.Decimal  `json:"actual"`
	Delta  decimal.Decimal  `json:"delta"`
}

type LineComparison struct {
	Group  core.BudgetGroup `json:"group"`
	Line   string           `json:"line"`
	Budget decimal.Decimal  `json:"budget"`
	Actual decimal.Decimal  `json:"actual"`
	Delta  decimal.Decimal  `json:"delta"`
}

type BudgetComparison struct {
	Groups []GroupComparison `json:"groups"`
	Lines  []LineComparison  `json:"lines"`
}

type Monthly struct {
	Profile           core.Profile       `json:"profile"`
	Month             int                `json:"month"`
	Year              int                `json:"year"`
	KPIs              KPIs               `json:"kpis"`
	BudgetComparison  BudgetComparison   `json:"budgetComparison"`
	CategoryBreakdown []CategoryTotal    `json:"categoryBreakdown"`
	Transactions      []core.Transaction `json:"transactions"`
}

// MonthlyInput is one resolved (profile, year, month) with its rows.
// Transactions must already be limited to that month; budget lines to
// that year.
type MonthlyInput struct {
	Profile      core.Profile
	Year         int
	Month        int
	Transactions []core.Transaction
	BudgetLines  []core.BudgetLine
}

// BuildMonthly computes the dashboard for one month.
func BuildMonthly(in MonthlyInput) Monthly {
	plan := ResolveBudget(in.BudgetLines)
	act := Accumulate(in.Transactions, plan)

	net := act.TotalIncome.Sub(act.TotalExpenses)
	kpis := KPIs{
		TotalIncome:      act.TotalIncome,
		TotalExpenses:    act.TotalExpenses,
		NetSavings:       net,
		SavingsRate:      percentOf(net, act.TotalIncome),
		DailyAvgSpend:    dailyAverage(act.TotalExpenses, in.Year, in.Month),
		TransactionCount: act.TransactionCount,
	}

	cmp := BudgetComparison{
		Groups: make([]GroupComparison, 0, len(plan.groups)),
		Lines:  make([]LineComparison, 0, len(plan.lines)),
	}
	for _, g := range plan.groups {
		budget := plan.GroupBudget(g)
		actual := act.GroupActual(g)
		cmp.Groups = append(cmp.Groups, GroupComparison{
			Group:  g,
			Budget: budget,
			Actual: actual,
			Delta:  actual.Sub(budget),
		})
	}
	for _, k := range plan.lines {
		budget, _ := plan.LineBudget(k)
		actual := act.LineActual(k)
		cmp.Lines = append(cmp.Lines, LineComparison{
			Group:  k.Group,
			Line:   k.Line,
			Budget: budget,
			Actual: actual,
			Delta:  actual.Sub(budget),
		})
	}

	txs := in.Transactions
	if txs == nil {
		txs = []core.Transaction{}
	}
	return Monthly{
		Profile:           in.Profile,
		Month:             in.Month,
		Year:              in.Year,
		KPIs:              kpis,
		BudgetComparison:  cmp,
		CategoryBreakdown: act.CategoryBreakdown(),
		Transactions:      txs,
	}
}

// percentOf returns part/whole*100, or 0 when whole is not positive.
func percentOf(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	return part.Div(whole).Mul(hundred).InexactFloat64()
}

func dailyAverage(total decimal.Decimal, year, month int) decimal.Decimal {
	days := core.DaysInMonth(year, month)
	if days <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(days)))
}
