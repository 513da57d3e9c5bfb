package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatCurrency(t *testing.T) {
	cases := map[string]string{
		"0":          "$0.00",
		"5":          "$5.00",
		"1234.5":     "$1,234.50",
		"1000000":    "$1,000,000.00",
		"999.999":    "$1,000.00",
		"-15.25":     "-$15.25",
		"123456.789": "$123,456.79",
	}
	for in, want := range cases {
		if got := FormatCurrency(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatCurrency(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate(NewDate(2026, 3, 9)); got != "Mar 9, 2026" {
		t.Fatalf("unexpected %q", got)
	}
	if got := FormatDate(Date{}); got != "" {
		t.Fatalf("expected empty for zero date, got %q", got)
	}
}
