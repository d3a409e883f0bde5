// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and reais representations.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts a dot (12.34) or comma (12,34) decimal separator and an optional
// "R$" prefix. When a comma is present, dots are read as thousands separators
// (R$ 1.234,56). Half-up rounding is applied on the third decimal place.
// Returns an error for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34")       -> 1234, nil
//	ParseDecimalToCents("12,34")       -> 1234, nil
//	ParseDecimalToCents("R$ 1.234,56") -> 123456, nil
//	ParseDecimalToCents("12.346")      -> 1235, nil (rounds up)
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	// Take first two fractional digits; then half-up rounding on third
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
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// MoneyFromFloat converts a decimal amount as sent by the remote API.
func MoneyFromFloat(v float64) Money {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Money{}
	}
	return Money{Cents: int64(math.Round(v * 100))}
}

// Reais returns the value as a float64 for wire formats and display.
// Use cents for calculations.
func (m Money) Reais() float64 {
	return float64(m.Cents) / 100.0
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// CommaDecimal renders the value the way the voucher endpoints expect it, e.g. "12,5".
func (m Money) CommaDecimal() string {
	return strings.Replace(strconv.FormatFloat(m.Reais(), 'f', -1, 64), ".", ",", 1)
}

func (m Money) String() string {
	return FormatBRL(m.Cents)
}

// FormatBRL formats cents as a Real currency string (e.g. "R$ 1.234,56").
func FormatBRL(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	s := "R$ " + b.String() + "," + leftPad2(cents%100)
	if neg {
		return "-" + s
	}
	return s
}

func leftPad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
