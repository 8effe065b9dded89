package valuation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDiscountRateCAPM(t *testing.T) {
	got, err := ResolveDiscountRate(0.04, 1.2, 6, 0)
	require.NoError(t, err)
	assert.Equal(t, 11.2, got)
}

func TestResolveDiscountRateRounding(t *testing.T) {
	tests := []struct {
		name     string
		riskFree float64
		beta     float64
		erp      float64
		want     float64
	}{
		{"zero beta is the risk-free rate", 0.0425, 0, 6, 4.25},
		{"fractional result", 0.04234, 1.11, 5.5, 10.34},
		{"negative beta", 0.05, -0.5, 6, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDiscountRate(tt.riskFree, tt.beta, tt.erp, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDiscountRateOverride(t *testing.T) {
	got, err := ResolveDiscountRate(0.04, 1.2, 6, 9.876)
	require.NoError(t, err)
	assert.Equal(t, 9.876, got, "override returned unchanged, not rounded")

	// the override wins even when CAPM inputs are unusable
	got, err = ResolveDiscountRate(math.NaN(), math.NaN(), 6, 8)
	require.NoError(t, err)
	assert.Equal(t, 8.0, got)
}

func TestResolveDiscountRateInvalid(t *testing.T) {
	_, err := ResolveDiscountRate(math.NaN(), 1, 6, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ResolveDiscountRate(0.04, math.Inf(1), 6, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ResolveDiscountRate(0.04, 1, 6, math.NaN())
	assert.ErrorIs(t, err, ErrInvalidInput)
}
