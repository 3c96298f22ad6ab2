package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a monetary string as written in bank exports.
//
// Both decimal separators are accepted. When a string carries both, the
// rightmost one is the decimal separator and the other is a thousands
// separator, so "1.234,56" and "1,234.56" both parse to 1234.56. Currency
// symbols and surrounding spaces are ignored. The sign is preserved; callers
// that store magnitudes take Abs.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("€", "", "$", "", "£", "", "EUR", "", " ", "", "\u00a0", "").Replace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders d with two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
