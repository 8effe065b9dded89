// Package utils provides formatting and small helpers shared by the CLI and API.
package utils

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// NotAvailable is rendered for values that cannot be formatted.
const NotAvailable = "N/A"

// FormatCurrency formats an amount in US dollars with two decimals
// (e.g., 1234.5 → "$1,234.50", -1234.56 → "-$1,234.56").
func FormatCurrency(amount float64) string {
	if !finite(amount) {
		return NotAvailable
	}
	d := decimal.NewFromFloat(amount).Round(2)
	return signOf(d) + "$" + groupDecimal(d.Abs().StringFixed(2))
}

// FormatNumber formats a number with thousands separators and at most three
// fraction digits (e.g., 1234567 → "1,234,567", 1234.5678 → "1,234.568").
func FormatNumber(n float64) string {
	if !finite(n) {
		return NotAvailable
	}
	d := decimal.NewFromFloat(n).Round(3)
	return signOf(d) + groupDecimal(d.Abs().String())
}

// FormatPercentage formats a decimal fraction as a percentage with two
// decimals (e.g., 0.0525 → "5.25%").
func FormatPercentage(fraction float64) string {
	if !finite(fraction) {
		return NotAvailable
	}
	d := decimal.NewFromFloat(fraction).Shift(2).Round(2)
	return signOf(d) + groupDecimal(d.Abs().StringFixed(2)) + "%"
}

// FormatPct formats a value that is already a percentage with sign and suffix.
// e.g., 2.45 → "+2.45%", -1.23 → "-1.23%"
func FormatPct(pct float64) string {
	if !finite(pct) {
		return NotAvailable
	}
	if pct >= 0 {
		return fmt.Sprintf("+%.2f%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatCompact formats a dollar amount with a magnitude suffix.
// e.g., 1500000 → "$1.5M", 2.3e12 → "$2.3T"
func FormatCompact(amount float64) string {
	if !finite(amount) {
		return NotAvailable
	}
	prefix := sign(amount) + "$"
	abs := math.Abs(amount)

	switch {
	case abs >= 1e12:
		return prefix + trimDecimals(abs/1e12) + "T"
	case abs >= 1e9:
		return prefix + trimDecimals(abs/1e9) + "B"
	case abs >= 1e6:
		return prefix + trimDecimals(abs/1e6) + "M"
	case abs >= 1e3:
		return prefix + trimDecimals(abs/1e3) + "K"
	default:
		return fmt.Sprintf("%s%.2f", prefix, abs)
	}
}

// groupDecimal inserts thousands separators into the integer part of an
// unsigned decimal string.
func groupDecimal(s string) string {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	if len(intPart) > 3 {
		var b strings.Builder
		lead := len(intPart) % 3
		if lead > 0 {
			b.WriteString(intPart[:lead])
		}
		for i := lead; i < len(intPart); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(intPart[i : i+3])
		}
		intPart = b.String()
	}
	if hasFrac {
		return intPart + "." + frac
	}
	return intPart
}

// trimDecimals formats a number with up to 2 decimal places,
// removing trailing zeros.
func trimDecimals(n float64) string {
	s := fmt.Sprintf("%.2f", n)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}

func sign(v float64) string {
	if v < 0 {
		return "-"
	}
	return ""
}

func signOf(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-"
	}
	return ""
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
