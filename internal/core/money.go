// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing signed monetary amounts from
// user input into exact decimals.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxFractionDigits is the number of decimal places kept for amounts.
const MaxFractionDigits = 2

// ParseAmount converts user text into an exact decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, an
// optional leading sign and an optional leading "$". Values are rounded
// half-up to two decimal places. Zero is rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("-12,34") -> -12.34, nil
//	ParseAmount("$50")    -> 50, nil
//	ParseAmount("1.005")  -> 1.01, nil (rounds up)
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: "not a number"}
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ParseLimit converts user text into a budget limit, which must be positive.
func ParseLimit(s string) (decimal.Decimal, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "limit_amount", Reason: "not a number"}
	}
	if err := ValidateLimit(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimSpace(s[1:])
	} else if strings.HasPrefix(s, "+") {
		s = strings.TrimSpace(s[1:])
	}
	s = strings.TrimPrefix(s, "$")
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" || strings.ContainsAny(s, "eE+-") {
		return decimal.Zero, ErrValidation
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	d = d.Round(MaxFractionDigits)
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// FormatMoney renders an amount with two decimal places for display.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MaxFractionDigits)
}
