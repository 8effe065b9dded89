package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/seenimoa/fairvalue/internal/config"
	"github.com/seenimoa/fairvalue/pkg/models"
	"github.com/seenimoa/fairvalue/pkg/utils"
)

// quarters of cash-flow history summed into the trailing figures.
const trailingQuarters = 4

// quoteSummaryModules are the quoteSummary modules a snapshot is built from.
var quoteSummaryModules = []string{
	"price",
	"financialData",
	"defaultKeyStatistics",
	"summaryDetail",
	"cashflowStatementHistoryQuarterly",
}

// YFinance is a SnapshotSource and RiskFreeSource backed by Yahoo Finance.
type YFinance struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// NewYFinance creates a Yahoo Finance source from the data config.
func NewYFinance(cfg config.DataConfig) *YFinance {
	return &YFinance{
		baseURL: strings.TrimRight(cfg.YahooBaseURL, "/"),
		client:  newHTTPClient(cfg),
		limiter: newLimiter(cfg),
		now:     time.Now,
	}
}

// Name returns the data source name.
func (y *YFinance) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance API types ---

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// yfVal is Yahoo's {raw, fmt} number wrapper. Raw is nil when Yahoo sends {}.
type yfVal struct {
	Raw *float64 `json:"raw"`
}

func (v *yfVal) value() (float64, bool) {
	if v == nil || v.Raw == nil {
		return 0, false
	}
	return *v.Raw, true
}

func (v *yfVal) or(fallback float64) float64 {
	if f, ok := v.value(); ok {
		return f
	}
	return fallback
}

type yfSummaryResponse struct {
	QuoteSummary struct {
		Result []yfSummaryResult `json:"result"`
		Error  *yfError          `json:"error"`
	} `json:"quoteSummary"`
}

type yfSummaryResult struct {
	Price                *yfPrice          `json:"price"`
	FinancialData        *yfFinancialData  `json:"financialData"`
	DefaultKeyStatistics *yfKeyStatistics  `json:"defaultKeyStatistics"`
	SummaryDetail        *yfSummaryDetail  `json:"summaryDetail"`
	CashflowQuarterly    *yfCashflowModule `json:"cashflowStatementHistoryQuarterly"`
}

type yfPrice struct {
	Symbol             string `json:"symbol"`
	LongName           string `json:"longName"`
	ShortName          string `json:"shortName"`
	Currency           string `json:"currency"`
	QuoteType          string `json:"quoteType"`
	RegularMarketPrice *yfVal `json:"regularMarketPrice"`
	MarketCap          *yfVal `json:"marketCap"`
}

type yfFinancialData struct {
	CurrentPrice      *yfVal `json:"currentPrice"`
	TotalRevenue      *yfVal `json:"totalRevenue"`
	TotalDebt         *yfVal `json:"totalDebt"`
	TotalCash         *yfVal `json:"totalCash"`
	OperatingCashflow *yfVal `json:"operatingCashflow"`
}

type yfKeyStatistics struct {
	SharesOutstanding *yfVal `json:"sharesOutstanding"`
	Beta              *yfVal `json:"beta"`
}

type yfSummaryDetail struct {
	Beta *yfVal `json:"beta"`
}

type yfCashflowModule struct {
	Statements []yfCashflowStatement `json:"cashflowStatements"`
}

type yfCashflowStatement struct {
	OperatingCashflow   *yfVal `json:"totalCashFromOperatingActivities"`
	CapitalExpenditures *yfVal `json:"capitalExpenditures"`
}

type yfChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string   `json:"symbol"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				PreviousClose      *float64 `json:"previousClose"`
				ChartPreviousClose *float64 `json:"chartPreviousClose"`
			} `json:"meta"`
		} `json:"result"`
		Error *yfError `json:"error"`
	} `json:"chart"`
}

// --- Public methods ---

// GetSnapshot builds a FinancialSnapshot from the quoteSummary endpoint.
func (y *YFinance) GetSnapshot(ctx context.Context, ticker string) (*models.FinancialSnapshot, error) {
	symbol := utils.NormalizeTicker(ticker)
	if !utils.IsValidTicker(symbol) {
		return nil, fmt.Errorf("%w: %q", ErrTickerNotFound, ticker)
	}

	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s",
		y.baseURL, url.PathEscape(symbol), strings.Join(quoteSummaryModules, ","))
	data, err := getBytes(ctx, y.client, u, map[string]string{"Accept": "application/json"})
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
		}
		return nil, fmt.Errorf("yfinance quoteSummary %s: %w", symbol, err)
	}

	var resp yfSummaryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse yfinance quoteSummary: %w", err)
	}
	if e := resp.QuoteSummary.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
		}
		return nil, fmt.Errorf("yfinance API error: %s", e.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}

	r := resp.QuoteSummary.Result[0]
	if r.Price == nil || r.Price.QuoteType == "NONE" || coalesce(r.Price.LongName, r.Price.ShortName) == "" {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}

	snap := buildSnapshot(symbol, r)
	snap.FetchedAt = y.now().UTC()
	return snap, nil
}

// GetRiskFreeRate returns the 10-year Treasury yield from the ^TNX chart.
// ^TNX quotes the yield in percent, so 4.25 becomes 0.0425.
func (y *YFinance) GetRiskFreeRate(ctx context.Context) (float64, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=5d&interval=1d",
		y.baseURL, url.PathEscape(utils.TreasuryYieldSymbol))
	data, err := getBytes(ctx, y.client, u, map[string]string{"Accept": "application/json"})
	if err != nil {
		return 0, fmt.Errorf("yfinance chart %s: %w", utils.TreasuryYieldSymbol, err)
	}

	var resp yfChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, fmt.Errorf("parse yfinance chart: %w", err)
	}
	if resp.Chart.Error != nil {
		return 0, fmt.Errorf("yfinance API error: %s", resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return 0, fmt.Errorf("yfinance chart %s: %w", utils.TreasuryYieldSymbol, ErrNoData)
	}

	meta := resp.Chart.Result[0].Meta
	for _, v := range []*float64{meta.PreviousClose, meta.RegularMarketPrice, meta.ChartPreviousClose} {
		if v != nil && *v > 0 {
			return *v / 100, nil
		}
	}
	return 0, fmt.Errorf("yfinance chart %s: %w", utils.TreasuryYieldSymbol, ErrNoData)
}

// --- Helpers ---

// buildSnapshot maps a quoteSummary result onto a snapshot. Implied shares
// are market cap over price, falling back to the reported share count.
func buildSnapshot(symbol string, r yfSummaryResult) *models.FinancialSnapshot {
	snap := &models.FinancialSnapshot{
		Ticker:    symbol,
		Name:      coalesce(r.Price.LongName, r.Price.ShortName),
		Currency:  r.Price.Currency,
		MarketCap: r.Price.MarketCap.or(0),
	}

	price := r.Price.RegularMarketPrice.or(0)
	if fd := r.FinancialData; fd != nil {
		snap.Revenue = fd.TotalRevenue.or(0)
		snap.TotalDebt = fd.TotalDebt.or(0)
		snap.CashAndEquivalents = fd.TotalCash.or(0)
		if price <= 0 {
			price = fd.CurrentPrice.or(0)
		}
	}

	if ks := r.DefaultKeyStatistics; ks != nil {
		snap.Beta = ks.Beta.or(0)
		snap.SharesOutstanding = ks.SharesOutstanding.or(0)
	}
	if snap.Beta == 0 && r.SummaryDetail != nil {
		snap.Beta = r.SummaryDetail.Beta.or(0)
	}
	if snap.MarketCap > 0 && price > 0 {
		snap.SharesOutstanding = snap.MarketCap / price
	}

	ocf, capex := trailingCashflow(r)
	snap.CapitalExpenditure = capex
	if ocf != 0 {
		fcfe := ocf + capex
		snap.FreeCashFlow = fcfe
		snap.LeveredFreeCashFlow = models.Float(fcfe)
	}
	return snap
}

// trailingCashflow sums operating cash flow and capex over the most recent
// quarters. With no quarterly history it falls back to the TTM operating
// cash flow from financialData and reports no capex.
func trailingCashflow(r yfSummaryResult) (ocf, capex float64) {
	var statements []yfCashflowStatement
	if r.CashflowQuarterly != nil {
		statements = r.CashflowQuarterly.Statements
	}
	if len(statements) > trailingQuarters {
		statements = statements[:trailingQuarters]
	}
	for _, s := range statements {
		ocf += s.OperatingCashflow.or(0)
		capex += s.CapitalExpenditures.or(0)
	}
	if len(statements) == 0 && r.FinancialData != nil {
		ocf = r.FinancialData.OperatingCashflow.or(0)
	}
	return ocf, capex
}

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
