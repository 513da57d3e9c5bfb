package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatCurrency renders an amount as US dollars with two decimals and
// thousands separators (e.g. "$1,234.50", "-$5.00").
func FormatCurrency(amount decimal.Decimal) string {
	neg := amount.IsNegative()
	s := amount.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := "$" + b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}

// FormatDate renders a date as "Jan 2, 2006".
func FormatDate(d Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("Jan 2, 2006")
}
