// Package core holds the scorecard domain: brand profiles, benchmarks,
// initiatives and the allocation ledger that keeps budget shares consistent.
//
// This file contains parsing helpers that turn user supplied amounts into
// numbers the ledger can clamp.
package core

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

var (
	groupedThousands = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)
	decimalComma     = regexp.MustCompile(`^\d*,\d{1,2}$`)
)

// ParseAmount converts a monetary or percentage string into a decimal.
//
// It accepts an optional leading sign and currency symbol, comma thousands
// groups (1,234,567) and a dot decimal separator. A single comma followed by
// one or two digits is read as a decimal comma (12,34). Negative values are
// returned as-is; clamping is the ledger's job.
//
// Examples:
//
//	ParseAmount("50000")      -> 50000
//	ParseAmount("$50,000")    -> 50000
//	ParseAmount("$50,000.50") -> 50000.5
//	ParseAmount("12,34")      -> 12.34
//	ParseAmount("-5")         -> -5
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		neg = s[0] == '-'
		s = s[1:]
	}
	s = strings.TrimLeft(s, "$€£ ")
	s = strings.ReplaceAll(s, "_", "")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Contains(s, ",") {
		whole, frac, hasDot := strings.Cut(s, ".")
		switch {
		case groupedThousands.MatchString(whole):
			s = strings.ReplaceAll(whole, ",", "")
			if hasDot {
				s += "." + frac
			}
		case !hasDot && decimalComma.MatchString(s):
			s = strings.Replace(s, ",", ".", 1)
		default:
			return decimal.Zero, ErrInvalidAmount
		}
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	if parts[0] == "" && (len(parts) == 1 || parts[1] == "") {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// ParseFloat is ParseAmount for callers that feed the float64 ledger directly.
func ParseFloat(s string) (float64, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

// RoundCents rounds v half away from zero to two decimal places.
func RoundCents(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
