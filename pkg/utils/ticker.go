package utils

import "strings"

// Common ticker aliases typed by users.
var tickerAliases = map[string]string{
	"GOOGLE":    "GOOGL",
	"ALPHABET":  "GOOGL",
	"FACEBOOK":  "META",
	"APPLE":     "AAPL",
	"MICROSOFT": "MSFT",
	"AMAZON":    "AMZN",
	"NVIDIA":    "NVDA",
	"TESLA":     "TSLA",
	"BERKSHIRE": "BRK-B",
}

// TreasuryYieldSymbol is the Yahoo Finance symbol for the 10-year US Treasury
// yield index, quoted in percent.
const TreasuryYieldSymbol = "^TNX"

// NormalizeTicker normalizes a user-input ticker to the canonical
// Yahoo Finance form. It handles aliases, uppercasing, whitespace and the
// "BRK.B" style class separator.
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))

	// Remove $ prefix if present (common in chat)
	ticker = strings.TrimPrefix(ticker, "$")

	if canonical, ok := tickerAliases[ticker]; ok {
		return canonical
	}

	// Share classes: Yahoo uses a dash (BRK-B), users type a dot (BRK.B).
	// Exchange suffixes such as ".L" or ".TO" are kept.
	if base, class, ok := strings.Cut(ticker, "."); ok && len(class) == 1 && len(base) > 1 && isShareClass(class) {
		return base + "-" + class
	}

	return ticker
}

// IsValidTicker reports whether s looks like a symbol Yahoo Finance accepts.
func IsValidTicker(s string) bool {
	s = NormalizeTicker(s)
	if s == "" || len(s) > 12 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.', r == '^', r == '=':
		default:
			return false
		}
	}
	return true
}

func isShareClass(c string) bool {
	return c == "A" || c == "B" || c == "C"
}
