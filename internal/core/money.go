// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and rendering them in the supported display currencies.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// Currency selects how amounts are displayed. Amounts are never converted.
type Currency string

const (
	INR Currency = "INR"
	USD Currency = "USD"
)

// DefaultCurrency is used when no preference has been chosen.
const DefaultCurrency = INR

// ParseCurrency returns the matching currency, falling back to the default.
func ParseCurrency(s string) Currency {
	switch Currency(strings.ToUpper(strings.TrimSpace(s))) {
	case USD:
		return USD
	default:
		return INR
	}
}

// Symbol returns the display symbol for the currency.
func (c Currency) Symbol() string {
	if c == USD {
		return "$"
	}
	return "₹"
}

// Format renders m the way the dashboard shows amounts.
//
// INR uses Indian digit grouping with up to two fraction digits and
// trailing zeros trimmed: 150 -> "₹150", 123456.5 -> "₹1,23,456.5".
// USD uses two fixed decimals and no grouping: 1234.5 -> "$1234.50".
func (c Currency) Format(m Money) string {
	if c == USD {
		return c.Fixed(m)
	}
	sign, units, frac := splitCents(m.Cents)
	s := sign + c.Symbol() + groupIndian(strconv.FormatInt(units, 10))
	if frac == 0 {
		return s
	}
	fs := twoDigits(frac)
	fs = strings.TrimRight(fs, "0")
	return s + "." + fs
}

// Fixed renders m with the symbol and exactly two decimals, no grouping.
func (c Currency) Fixed(m Money) string {
	sign, units, frac := splitCents(m.Cents)
	return sign + c.Symbol() + strconv.FormatInt(units, 10) + "." + twoDigits(frac)
}

func splitCents(cents int64) (sign string, units, frac int64) {
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign, cents / 100, cents % 100
}

func twoDigits(v int64) string {
	if v < 10 {
		return "0" + strconv.FormatInt(v, 10)
	}
	return strconv.FormatInt(v, 10)
}

// groupIndian inserts separators after the last three digits and then
// every two digits: 1234567 -> 12,34,567.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}

// ParseAmount converts a decimal string to Money with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Negative values, explicit signs
// and malformed input are rejected; zero is a valid amount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234 cents
//	ParseAmount("12,345") -> 1235 cents
//	ParseAmount("0")      -> 0 cents
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" && fracPart == "" {
		return Money{}, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv >= maxSafeInt64 {
		return Money{}, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return Money{Cents: iv*100 + fracCents}, nil
}

// Decimal returns the amount as a plain decimal string ("12.50"), suitable
// for pre-filling a numeric form input.
func (m Money) Decimal() string {
	sign, units, frac := splitCents(m.Cents)
	return sign + strconv.FormatInt(units, 10) + "." + twoDigits(frac)
}

// Float returns the amount as a float64 for display purposes.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}
