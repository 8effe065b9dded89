// Package models defines the data structures shared between the data sources,
// the valuation engines and the API.
package models

import "time"

// FinancialSnapshot is the per-ticker financial record a valuation runs on.
// Monetary values are in the reporting currency, raw (not scaled).
type FinancialSnapshot struct {
	Ticker   string `json:"ticker,omitempty"`
	Name     string `json:"name,omitempty"`
	Currency string `json:"currency,omitempty"`

	Revenue            float64 `json:"revenue"`
	MarketCap          float64 `json:"marketCap"`
	FreeCashFlow       float64 `json:"fcf"`   // OCF + capex over the trailing 4 quarters, 0 when unknown
	CapitalExpenditure float64 `json:"capex"` // signed as reported (usually negative)

	// LeveredFreeCashFlow is FCFE (OCF + capex). Nil when the source had no
	// operating cash flow to derive it from.
	LeveredFreeCashFlow *float64 `json:"fcfe"`

	TotalDebt          float64 `json:"totalDebt"`
	CashAndEquivalents float64 `json:"totalCash"`
	SharesOutstanding  float64 `json:"sharesOutstanding"`
	Beta               float64 `json:"beta"`

	// RiskFreeRate is a decimal fraction (0.042 for 4.2%).
	RiskFreeRate float64 `json:"riskFreeRate"`

	FetchedAt time.Time `json:"fetchedAt,omitzero"`
}

// HasFCFE reports whether the levered free cash flow is known.
func (s FinancialSnapshot) HasFCFE() bool {
	return s.LeveredFreeCashFlow != nil
}

// Float returns a pointer to v. Handy for optional snapshot fields.
func Float(v float64) *float64 {
	return &v
}
