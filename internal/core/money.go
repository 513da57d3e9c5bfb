// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user input
// into exact decimals. Amounts are never represented as binary floats inside
// the engine.
package core

import (
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits kept for stored amounts.
const AmountScale = 2

// MaxAmount is the largest amount a goal can hold: twelve integer digits at
// AmountScale, the NUMERIC(14,2) range of the Postgres column.
var MaxAmount = decimal.RequireFromString("999999999999.99")

// ValidateAmount checks that d fits the stored range and scale. Sign rules
// are left to the caller.
func ValidateAmount(d decimal.Decimal) error {
	if d.Abs().GreaterThan(MaxAmount) {
		return ErrAmountTooLarge
	}
	if !d.Equal(d.Round(AmountScale)) {
		return ErrAmountPrecision
	}
	return nil
}

// ParseAmount converts a decimal string to an amount rounded to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up on the third decimal place. Signs, exponents and anything but digits
// are rejected. Zero is accepted; callers decide whether zero is meaningful.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("-1")     -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	if parts[0] == "" {
		s = "0" + s
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(s, "."))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(AmountScale)
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ParseContribution parses a contribution amount, which must be strictly positive.
func ParseContribution(s string) (decimal.Decimal, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrNonPositiveFunds
	}
	return d, nil
}

// AmountFromFloat converts a float amount received from a loosely typed
// client, rejecting NaN and infinities.
func AmountFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, ErrInvalidAmount
	}
	d := decimal.NewFromFloat(f).Round(AmountScale)
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}
