package valuation

import (
	"math"

	"github.com/seenimoa/fairvalue/pkg/utils"
)

// MaxHorizon is the longest projection Project accepts, in years.
const MaxHorizon = 100

// ProjectionBase is the observed baseline a projection starts from.
type ProjectionBase struct {
	Revenue   float64 `json:"revenue"`
	MarketCap float64 `json:"marketCap"`
}

// ScenarioValue is one scenario's market cap at a given year.
type ScenarioValue struct {
	Scenario  string  `json:"scenario"`
	MarketCap float64 `json:"marketCap"`
}

// YearPoint is one row of the projection timeline. Values follow the
// scenario set order.
type YearPoint struct {
	Year   int             `json:"year"`
	Values []ScenarioValue `json:"values"`
}

// Value returns the market cap of the named scenario at this year.
func (p YearPoint) Value(scenario string) (float64, bool) {
	for _, v := range p.Values {
		if v.Scenario == scenario {
			return v.MarketCap, true
		}
	}
	return 0, false
}

// ScenarioSummary is the end-of-horizon outcome of one scenario.
// CAGRPct is nil when the horizon is zero or the growth rate is undefined.
type ScenarioSummary struct {
	Name            string   `json:"name"`
	FutureMarketCap float64  `json:"futureMarketCap"`
	CAGRPct         *float64 `json:"cagrPct"`
}

// ProjectionResult is the output of Project.
type ProjectionResult struct {
	Horizon   int               `json:"horizon"`
	Timeline  []YearPoint       `json:"timeline"`
	Summaries []ScenarioSummary `json:"summaries"`
}

// Summary returns the summary of the named scenario.
func (r *ProjectionResult) Summary(name string) (ScenarioSummary, bool) {
	for _, s := range r.Summaries {
		if s.Name == name {
			return s, true
		}
	}
	return ScenarioSummary{}, false
}

// Project runs every scenario of the set over years 0..horizon.
//
// Year 0 always carries the observed market cap rather than the model output,
// so the series starts on real data. Later years hold the projected market
// cap (revenue compounded at the scenario growth, times FCF margin, times exit
// multiple) rounded to a whole currency unit. The CAGR from the observed
// market cap to the final projected value is reported for horizon > 0.
func Project(base ProjectionBase, scenarios *ScenarioSet, horizon int) (*ProjectionResult, error) {
	if err := requireFinite(field("revenue", base.Revenue), field("marketCap", base.MarketCap)); err != nil {
		return nil, err
	}
	if base.Revenue < 0 || base.MarketCap < 0 {
		return nil, invalidInput("revenue and market cap must not be negative")
	}
	if horizon < 0 || horizon > MaxHorizon {
		return nil, invalidInput("horizon must be between 0 and %d, got %d", MaxHorizon, horizon)
	}
	if horizon > 0 && base.MarketCap == 0 && scenarios.Len() > 0 {
		return nil, invalidInput("market cap must be positive to compute CAGR")
	}

	named := scenarios.Scenarios()
	result := &ProjectionResult{
		Horizon:   horizon,
		Timeline:  make([]YearPoint, 0, horizon+1),
		Summaries: make([]ScenarioSummary, 0, len(named)),
	}

	for year := 0; year <= horizon; year++ {
		point := YearPoint{Year: year, Values: make([]ScenarioValue, 0, len(named))}
		for _, sc := range named {
			v := base.MarketCap
			if year > 0 {
				v = math.Round(projectedMarketCap(base.Revenue, sc.ScenarioAssumptions, year))
				if err := requireFinite(field("projected market cap ("+sc.Name+")", v)); err != nil {
					return nil, err
				}
			}
			point.Values = append(point.Values, ScenarioValue{Scenario: sc.Name, MarketCap: v})
		}
		result.Timeline = append(result.Timeline, point)
	}

	for _, sc := range named {
		summary := ScenarioSummary{Name: sc.Name, FutureMarketCap: base.MarketCap}
		if horizon > 0 {
			future := projectedMarketCap(base.Revenue, sc.ScenarioAssumptions, horizon)
			summary.FutureMarketCap = math.Round(future)
			summary.CAGRPct = cagr(base.MarketCap, future, horizon)
		}
		result.Summaries = append(result.Summaries, summary)
	}

	return result, nil
}

// projectedMarketCap is revenue × (1+g)^year × margin × multiple.
func projectedMarketCap(revenue float64, a ScenarioAssumptions, year int) float64 {
	growth := a.AnnualRevenueGrowthPct / 100
	margin := a.FCFMarginPct / 100

	projectedRevenue := revenue * math.Pow(1+growth, float64(year))
	projectedFCF := projectedRevenue * margin
	return projectedFCF * a.ExitMultiple
}

// cagr returns the compound annual growth rate in percent, rounded to two
// decimals, or nil when it is undefined (a negative end value has no real
// n-th root).
func cagr(start, end float64, years int) *float64 {
	ratio := end / start
	if ratio < 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return nil
	}
	pct := utils.Round((math.Pow(ratio, 1/float64(years))-1)*100, 2)
	return &pct
}
