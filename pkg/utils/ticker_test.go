package utils

import "testing"

func TestNormalizeTicker(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"aapl", "AAPL"},
		{"  msft  ", "MSFT"},
		{"$nvda", "NVDA"},
		{"google", "GOOGL"},
		{"Facebook", "META"},
		{"brk.b", "BRK-B"},
		{"BRK-B", "BRK-B"},
		{"vod.l", "VOD.L"},
		{"shop.to", "SHOP.TO"},
		{"^tnx", "^TNX"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := NormalizeTicker(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeTicker(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIsValidTicker(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"AAPL", true},
		{"brk.b", true},
		{"^TNX", true},
		{"", false},
		{"A B", false},
		{"DROP;TABLE", false},
		{"WAYTOOLONGTICKER", false},
	}
	for _, tt := range tests {
		if got := IsValidTicker(tt.input); got != tt.want {
			t.Errorf("IsValidTicker(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
