package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"finanzas/internal/core"
	"finanzas/internal/summary"
)

func statementPrompt(req StatementRequest) string {
	name := req.Profile.Name
	if name == "" {
		name = req.Profile.ID
	}

	var budget strings.Builder
	for _, bl := range req.BudgetLines {
		fmt.Fprintf(&budget, "  - [%s] %s: %s€/month\n", bl.Group, bl.Name, core.FormatAmount(bl.MonthlyBudget()))
	}
	if budget.Len() == 0 {
		budget.WriteString("  (no budget lines defined)\n")
	}

	types := make([]string, 0, 5)
	for _, t := range core.TransactionTypes() {
		types = append(types, fmt.Sprintf("%q", t))
	}
	groups := make([]string, 0, 8)
	for _, g := range append(core.BudgetGroups(), core.GroupIncome, core.GroupTransfer, core.GroupInternal) {
		groups = append(groups, fmt.Sprintf("%q", g))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a personal finance assistant for %s. Parse this bank statement CSV and categorize every single transaction.\n\n", name)
	b.WriteString("The user's budget structure for reference:\n")
	b.WriteString(budget.String())
	b.WriteString("\nFor EACH transaction row in the CSV, return a JSON object with these exact fields:\n")
	b.WriteString("- date: string in YYYY-MM-DD format\n")
	b.WriteString("- description: cleaned merchant/payee name (remove excess codes, keep readable)\n")
	b.WriteString("- amount: positive number (always positive regardless of direction)\n")
	fmt.Fprintf(&b, "- type: one of %s\n", strings.Join(types, " | "))
	b.WriteString("- source: detected bank name (e.g. \"BBVA\", \"Revolut\", \"AMEX\")\n")
	b.WriteString("- category: descriptive category (e.g. \"Groceries\", \"Fuel\", \"Dining Out\", \"Subscriptions\", \"Salary\", \"Inter-account Transfer\")\n")
	fmt.Fprintf(&b, "- budget_group: one of %s\n", strings.Join(groups, " | "))
	fmt.Fprintf(&b, "- budget_line: matching line name from the budget structure above, or %q if no match\n", NoBudgetLine)
	b.WriteString("- notes: brief context about the transaction (1 sentence max)\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Transfers between the user's own accounts: type \"transfer\", budget_group \"Transfer\"\n")
	b.WriteString("- Internal savings movements: type \"internal\", budget_group \"Internal\"\n")
	b.WriteString("- Credits, refunds, cashback: type \"credit\"\n")
	b.WriteString("- Salary, freelance income, reimbursements received: type \"income\", budget_group \"Income\"\n")
	b.WriteString("- Skip header, metadata and summary rows; only include actual transactions\n")
	b.WriteString("- Parse dates regardless of format (DD/MM/YYYY, MM/DD/YY, YYYY-MM-DD)\n")
	b.WriteString("- Handle both comma and period decimal separators\n")
	b.WriteString("- If a description is in Spanish, keep the notes in Spanish too\n\n")
	b.WriteString("Return ONLY a valid JSON array. No markdown fences, no explanation text.\n\n")
	b.WriteString("CSV Content:\n")
	b.WriteString(req.CSV)
	return b.String()
}

// analysisPrompt embeds the monthly summary without its raw transaction
// list; the top categories carry enough detail.
func analysisPrompt(m summary.Monthly, comments string) (string, error) {
	m.Transactions = nil
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode monthly summary: %w", err)
	}

	name := m.Profile.Name
	if name == "" {
		name = m.Profile.ID
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a candid personal finance coach reviewing %s's spending for %02d/%d.\n\n", name, m.Month, m.Year)
	b.WriteString("Monthly summary (amounts in EUR, percentages already computed):\n")
	b.Write(data)
	b.WriteString("\n\n")
	if c := strings.TrimSpace(comments); c != "" {
		b.WriteString("Context from the user about this month:\n")
		b.WriteString(c)
		b.WriteString("\n\n")
	}
	b.WriteString("Write a short report in Markdown with these sections:\n")
	b.WriteString("1. Overview: income, spending, savings rate in two or three sentences.\n")
	b.WriteString("2. Budget groups: which groups ran over or under and by how much.\n")
	b.WriteString("3. Notable categories: the biggest or most surprising spend.\n")
	b.WriteString("4. Next month: at most three concrete suggestions.\n")
	b.WriteString("Use the numbers from the summary; do not invent transactions.\n")
	return b.String(), nil
}
