package valuation

import "github.com/seenimoa/fairvalue/pkg/utils"

// ResolveDiscountRate returns the discount rate in percent.
//
// A non-zero overridePct is a user-supplied rate and wins unchanged.
// Otherwise the CAPM cost of equity is used:
//
//	r = (riskFreeRate + beta × equityRiskPremiumPct/100) × 100
//
// rounded to two decimals. riskFreeRate is a decimal fraction (0.042 for 4.2%)
// and equityRiskPremiumPct a whole percentage (6 for 6%).
func ResolveDiscountRate(riskFreeRate, beta, equityRiskPremiumPct, overridePct float64) (float64, error) {
	if err := requireFinite(field("discount rate override", overridePct)); err != nil {
		return 0, err
	}
	if overridePct != 0 {
		return overridePct, nil
	}
	if err := requireFinite(
		field("risk-free rate", riskFreeRate),
		field("beta", beta),
		field("equity risk premium", equityRiskPremiumPct),
	); err != nil {
		return 0, err
	}

	erp := equityRiskPremiumPct / 100
	return utils.Round((riskFreeRate+beta*erp)*100, 2), nil
}
