package csvio

import (
	"bytes"
	"strings"
	"testing"

	"finanzas/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	in := `date,description,amount,type,source,category,budget_group,budget_line,notes
2026-01-03,Alquiler,-1000.00,expense,BBVA,Rent,Fixed Costs,Rent / Mortgage,
2026-01-15, Cena ,"1.234,56",,AMEX,Dining Out,Guilt-Free,Guilt-Free Spending,cumpleaños
,,,,,,,,
2026-01-20,Devolución,20,Credit,AMEX,Dining Out,Guilt-Free,Guilt-Free Spending,
`
	rows, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "2026-01-03", rows[0].Date)
	assert.True(t, rows[0].Amount.Equal(decimal.NewFromInt(1000)), "amounts are magnitudes")
	assert.Equal(t, core.GroupFixedCosts, rows[0].BudgetGroup)

	assert.Equal(t, "Cena", rows[1].Description)
	assert.True(t, rows[1].Amount.Equal(decimal.RequireFromString("1234.56")))
	assert.Empty(t, rows[1].Type, "blank type is left to ingest defaults")
	assert.Equal(t, "cumpleaños", rows[1].Notes)

	assert.Equal(t, core.TypeCredit, rows[2].Type)
}

func TestReadDelimited(t *testing.T) {
	in := "date;description;amount\n2026-02-10;Seguro;720,00\n"
	rows, err := ReadDelimited(strings.NewReader(in), ';')
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Amount.Equal(decimal.NewFromInt(720)))
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr error
		wantMsg string
	}{
		{name: "empty input", in: "", wantErr: core.ErrEmptyBatch},
		{name: "header only", in: "date,description,amount\n", wantErr: core.ErrEmptyBatch},
		{name: "bad date", in: "date,description,amount\n2026-01-01,a,1\n03/01/2026,b,2\n", wantErr: core.ErrInvalidDate, wantMsg: "row 2"},
		{name: "bad amount", in: "date,description,amount\n2026-01-01,a,abc\n", wantErr: core.ErrInvalidAmount, wantMsg: "row 1"},
		{name: "bad type", in: "date,description,amount,type\n2026-01-01,a,1,refund\n", wantErr: core.ErrInvalidType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestWriteThenRead(t *testing.T) {
	txs := []core.Transaction{
		{
			Date: core.NewDate(2026, 1, 15), Description: "Cena, con amigos", Amount: decimal.RequireFromString("80.5"),
			Type: core.TypeExpense, Source: "AMEX", Category: "Dining Out",
			BudgetGroup: core.GroupGuiltFree, BudgetLine: "Guilt-Free Spending", Notes: `dijo "gracias"`,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, txs))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "date,description,amount,type,source,category,budget_group,budget_line,notes", lines[0])
	assert.Contains(t, lines[1], "80.50")

	rows, err := Read(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Cena, con amigos", rows[0].Description)
	assert.Equal(t, `dijo "gracias"`, rows[0].Notes)
	assert.Equal(t, core.TypeExpense, rows[0].Type)
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil))
	assert.True(t, strings.HasPrefix(buf.String(), "date,description,amount"))
}
