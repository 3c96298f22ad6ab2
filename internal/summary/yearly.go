package summary

import (
	"encoding/json"
	"strconv"

	"finanzas/internal/core"

	"github.com/shopspring/decimal"
)

type YearlyKPIs struct {
	TotalIncome    decimal.Decimal `json:"totalIncome"`
	TotalExpenses  decimal.Decimal `json:"totalExpenses"`
	NetSavings     decimal.Decimal `json:"netSavings"`
	SavingsRate    float64         `json:"savingsRate"`
	MonthsWithData int             `json:"monthsWithData"`
}

type TrendPoint struct {
	Month    int             `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

type LineBurn struct {
	Group        core.BudgetGroup `json:"group"`
	Line         string           `json:"line"`
	AnnualBudget decimal.Decimal  `json:"annualBudget"`
	SpentYTD     decimal.Decimal  `json:"spentYTD"`
	PercentUsed  float64          `json:"percentUsed"`
}

type GroupPace struct {
	Group           core.BudgetGroup `json:"group"`
	AnnualBudget    decimal.Decimal  `json:"annualBudget"`
	SpentYTD        decimal.Decimal  `json:"spentYTD"`
	PercentUsed     float64          `json:"percentUsed"`
	RemainingBudget decimal.Decimal  `json:"remainingBudget"`
	ExpectedPace    float64          `json:"expectedPace"`
	Status          PaceStatus       `json:"status"`
}

// GroupMonth is one month of spend split by canonical group.
type GroupMonth struct {
	Month int
	Spend map[core.BudgetGroup]decimal.Decimal
}

// MarshalJSON flattens the groups next to the month:
// {"month":1,"Fixed Costs":1000,...}.
func (g GroupMonth) MarshalJSON() ([]byte, error) {
	buf := []byte(`{"month":`)
	buf = strconv.AppendInt(buf, int64(g.Month), 10)
	for _, group := range core.BudgetGroups() {
		k, err := json.Marshal(string(group))
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(g.Spend[group])
		if err != nil {
			return nil, err
		}
		buf = append(buf, ',')
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	return append(buf, '}'), nil
}

type Yearly struct {
	Profile            core.Profile    `json:"profile"`
	Year               int             `json:"year"`
	KPIs               YearlyKPIs      `json:"kpis"`
	MonthlyTrend       []TrendPoint    `json:"monthlyTrend"`
	AnnualBudgetBurn   []LineBurn      `json:"annualBudgetBurn"`
	BudgetGroupSummary []GroupPace     `json:"budgetGroupSummary"`
	MonthlyByGroup     []GroupMonth    `json:"monthlyByGroup"`
	CategoryBreakdown  []CategoryTotal `json:"categoryBreakdown"`
}

// YearlyInput is one resolved (profile, year) with its rows. Transactions
// must already be limited to that year.
type YearlyInput struct {
	Profile      core.Profile
	Year         int
	Transactions []core.Transaction
	BudgetLines  []core.BudgetLine
	Pacing       Pacing
}

// BuildYearly computes the year-to-date dashboard.
func BuildYearly(in YearlyInput) Yearly {
	act := Accumulate(in.Transactions, Plan{})
	net := act.TotalIncome.Sub(act.TotalExpenses)

	burn := annualBurn(in.BudgetLines, in.Transactions)
	return Yearly{
		Profile: in.Profile,
		Year:    in.Year,
		KPIs: YearlyKPIs{
			TotalIncome:    act.TotalIncome,
			TotalExpenses:  act.TotalExpenses,
			NetSavings:     net,
			SavingsRate:    percentOf(net, act.TotalIncome),
			MonthsWithData: monthsWithData(in.Transactions),
		},
		MonthlyTrend:       monthlyTrend(in.Transactions),
		AnnualBudgetBurn:   burn,
		BudgetGroupSummary: groupPace(burn, in.Pacing.ExpectedPace(in.Year)),
		MonthlyByGroup:     monthlyByGroup(in.Transactions),
		CategoryBreakdown:  act.CategoryBreakdown(),
	}
}

func monthsWithData(txs []core.Transaction) int {
	seen := make(map[int]struct{}, 12)
	for _, tx := range txs {
		seen[tx.Month()] = struct{}{}
	}
	return len(seen)
}

// monthlyTrend always returns twelve points, January first.
func monthlyTrend(txs []core.Transaction) []TrendPoint {
	trend := make([]TrendPoint, 12)
	for i := range trend {
		trend[i] = TrendPoint{Month: i + 1, Income: decimal.Zero, Expenses: decimal.Zero}
	}
	for _, tx := range txs {
		i := tx.Month() - 1
		if i < 0 || i > 11 {
			continue
		}
		if tx.Type == core.TypeIncome {
			trend[i].Income = trend[i].Income.Add(tx.Amount.Abs())
			continue
		}
		if amount, ok := tx.Contribution(); ok {
			trend[i].Expenses = trend[i].Expenses.Add(amount)
		}
	}
	return trend
}

func annualBurn(lines []core.BudgetLine, txs []core.Transaction) []LineBurn {
	spent := make(map[core.LineKey]decimal.Decimal, len(lines))
	for _, tx := range txs {
		amount, ok := tx.Contribution()
		if !ok {
			continue
		}
		key := core.LineKey{Group: tx.BudgetGroup, Line: tx.BudgetLine}
		spent[key] = spent[key].Add(amount)
	}

	out := make([]LineBurn, 0, len(lines))
	for _, bl := range lines {
		budget := bl.AnnualBudget()
		s := spent[bl.Key()]
		out = append(out, LineBurn{
			Group:        bl.Group,
			Line:         bl.Name,
			AnnualBudget: budget,
			SpentYTD:     s,
			PercentUsed:  percentOf(s, budget),
		})
	}
	return out
}

func groupPace(burn []LineBurn, expectedPace float64) []GroupPace {
	var order []core.BudgetGroup
	sums := make(map[core.BudgetGroup]*GroupPace)
	for _, b := range burn {
		gp, ok := sums[b.Group]
		if !ok {
			gp = &GroupPace{Group: b.Group}
			sums[b.Group] = gp
			order = append(order, b.Group)
		}
		gp.AnnualBudget = gp.AnnualBudget.Add(b.AnnualBudget)
		gp.SpentYTD = gp.SpentYTD.Add(b.SpentYTD)
	}

	out := make([]GroupPace, 0, len(order))
	for _, g := range order {
		gp := *sums[g]
		gp.PercentUsed = percentOf(gp.SpentYTD, gp.AnnualBudget)
		gp.RemainingBudget = gp.AnnualBudget.Sub(gp.SpentYTD)
		gp.ExpectedPace = expectedPace
		gp.Status = Classify(gp.PercentUsed, expectedPace)
		out = append(out, gp)
	}
	return out
}

// monthlyByGroup is zero-filled for every canonical group and month.
// Spend tagged with any other label is left out.
func monthlyByGroup(txs []core.Transaction) []GroupMonth {
	out := make([]GroupMonth, 12)
	for i := range out {
		spend := make(map[core.BudgetGroup]decimal.Decimal, 5)
		for _, g := range core.BudgetGroups() {
			spend[g] = decimal.Zero
		}
		out[i] = GroupMonth{Month: i + 1, Spend: spend}
	}
	for _, tx := range txs {
		i := tx.Month() - 1
		if i < 0 || i > 11 || !tx.BudgetGroup.IsCanonical() {
			continue
		}
		if amount, ok := tx.Contribution(); ok {
			out[i].Spend[tx.BudgetGroup] = out[i].Spend[tx.BudgetGroup].Add(amount)
		}
	}
	return out
}
