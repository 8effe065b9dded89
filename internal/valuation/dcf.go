package valuation

import (
	"fmt"
	"math"

	"github.com/seenimoa/fairvalue/pkg/models"
)

// DefaultExplicitYears is the length of the explicit FCFE forecast.
const DefaultExplicitYears = 5

// MaxExplicitYears bounds DCFAssumptions.Years.
const MaxExplicitYears = 50

// DCFAssumptions are the user inputs of the FCFE model. Rates are whole
// percentages (15 means 15%).
type DCFAssumptions struct {
	FCFGrowthRatePct      float64 `json:"growthRate"        mapstructure:"growth_rate"`
	DiscountRatePct       float64 `json:"discountRate"      mapstructure:"discount_rate"` // 0 derives the rate via CAPM
	TerminalGrowthRatePct float64 `json:"terminalGrowth"    mapstructure:"terminal_growth"`
	EquityRiskPremiumPct  float64 `json:"equityRiskPremium" mapstructure:"equity_risk_premium"`
	Years                 int     `json:"years,omitempty"   mapstructure:"years"` // 0 means DefaultExplicitYears
}

// DCFYear is one year of the explicit forecast.
type DCFYear struct {
	Year         int     `json:"year"`
	FCFE         float64 `json:"fcfe"`
	PresentValue float64 `json:"presentValue"`
}

// DCFResult is the output of Valuate. Values are unrounded.
type DCFResult struct {
	FairPricePerShare float64 `json:"fairPrice"`
	EnterpriseValue   float64 `json:"enterpriseValue"`
	EquityValue       float64 `json:"equityValue"`

	DiscountRatePct   float64   `json:"discountRate"`
	PVExplicit        float64   `json:"pvExplicit"`
	LastProjectedFCFE float64   `json:"lastProjectedFcfe"`
	TerminalValue     float64   `json:"terminalValue"`
	PVTerminal        float64   `json:"pvTerminal"`
	NetDebt           float64   `json:"netDebt"`
	Projections       []DCFYear `json:"projections"`
}

// Valuate computes the fair value per share with the FCFE method.
//
// Starting from the snapshot's levered free cash flow, FCFE grows at the
// assumed rate over the explicit years and each year is discounted at r.
// A Gordon-growth terminal value on the final year is discounted back and
// added, giving equity value; enterprise value adds net debt back.
//
// The discount rate is the assumption's override when set, otherwise CAPM on
// the snapshot's risk-free rate and beta (see ResolveDiscountRate).
func Valuate(snap models.FinancialSnapshot, a DCFAssumptions) (*DCFResult, error) {
	if !snap.HasFCFE() {
		return nil, invalidInput("levered free cash flow (FCFE) is missing")
	}
	fcfe0 := *snap.LeveredFreeCashFlow
	if err := requireFinite(
		field("fcfe", fcfe0),
		field("sharesOutstanding", snap.SharesOutstanding),
		field("totalDebt", snap.TotalDebt),
		field("cash", snap.CashAndEquivalents),
		field("growthRate", a.FCFGrowthRatePct),
		field("terminalGrowth", a.TerminalGrowthRatePct),
	); err != nil {
		return nil, err
	}
	if snap.SharesOutstanding <= 0 {
		return nil, invalidInput("shares outstanding must be positive, got %v", snap.SharesOutstanding)
	}

	years := a.Years
	if years == 0 {
		years = DefaultExplicitYears
	}
	if years < 0 || years > MaxExplicitYears {
		return nil, invalidInput("explicit forecast years must be between 1 and %d, got %d", MaxExplicitYears, a.Years)
	}

	ratePct, err := ResolveDiscountRate(snap.RiskFreeRate, snap.Beta, a.EquityRiskPremiumPct, a.DiscountRatePct)
	if err != nil {
		return nil, err
	}

	g := a.FCFGrowthRatePct / 100
	gt := a.TerminalGrowthRatePct / 100
	r := ratePct / 100

	if r <= gt {
		return nil, fmt.Errorf("%w: discount rate %.2f%% must be greater than terminal growth rate %.2f%%",
			ErrInvalidAssumptions, ratePct, a.TerminalGrowthRatePct)
	}

	res := &DCFResult{
		DiscountRatePct: ratePct,
		Projections:     make([]DCFYear, 0, years),
	}

	for t := 1; t <= years; t++ {
		fcfe := fcfe0 * math.Pow(1+g, float64(t))
		pv := fcfe / math.Pow(1+r, float64(t))
		res.PVExplicit += pv
		res.Projections = append(res.Projections, DCFYear{Year: t, FCFE: fcfe, PresentValue: pv})
		if t == years {
			res.LastProjectedFCFE = fcfe
		}
	}

	res.TerminalValue = res.LastProjectedFCFE * (1 + gt) / (r - gt)
	res.PVTerminal = res.TerminalValue / math.Pow(1+r, float64(years))
	res.EquityValue = res.PVExplicit + res.PVTerminal
	res.FairPricePerShare = res.EquityValue / snap.SharesOutstanding
	res.NetDebt = snap.TotalDebt - snap.CashAndEquivalents
	res.EnterpriseValue = res.EquityValue + res.NetDebt

	if err := requireFinite(
		field("present value of explicit FCFE", res.PVExplicit),
		field("terminal value", res.TerminalValue),
		field("equity value", res.EquityValue),
		field("fair price per share", res.FairPricePerShare),
		field("enterprise value", res.EnterpriseValue),
	); err != nil {
		return nil, err
	}

	return res, nil
}
