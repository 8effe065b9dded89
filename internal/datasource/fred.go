package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/seenimoa/fairvalue/internal/config"
)

// DefaultFREDSeries is the 10-year constant-maturity Treasury series.
const DefaultFREDSeries = "DGS10"

// FRED is a RiskFreeSource reading the latest observation of a FRED series.
type FRED struct {
	baseURL string
	apiKey  string
	series  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewFRED creates a FRED source from the data config.
func NewFRED(cfg config.DataConfig) *FRED {
	series := cfg.FREDSeries
	if series == "" {
		series = DefaultFREDSeries
	}
	return &FRED{
		baseURL: strings.TrimRight(cfg.FREDBaseURL, "/"),
		apiKey:  cfg.FREDAPIKey,
		series:  series,
		client:  newHTTPClient(cfg),
		limiter: newLimiter(cfg),
	}
}

// Name returns the data source name.
func (f *FRED) Name() string { return "FRED " + f.series }

type fredObservations struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// GetRiskFreeRate returns the most recent observation as a fraction.
// FRED marks holidays with "." which are skipped.
func (f *FRED) GetRiskFreeRate(ctx context.Context) (float64, error) {
	if f.apiKey == "" {
		return 0, fmt.Errorf("fred: no API key configured: %w", ErrNotSupported)
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	q := url.Values{}
	q.Set("series_id", f.series)
	q.Set("api_key", f.apiKey)
	q.Set("file_type", "json")
	q.Set("sort_order", "desc")
	q.Set("limit", "10")

	data, err := getBytes(ctx, f.client, f.baseURL+"/series/observations?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("fred %s: %w", f.series, err)
	}

	var resp fredObservations
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, fmt.Errorf("parse fred observations: %w", err)
	}
	for _, o := range resp.Observations {
		v, err := strconv.ParseFloat(strings.TrimSpace(o.Value), 64)
		if err != nil {
			continue
		}
		return v / 100, nil
	}
	return 0, fmt.Errorf("fred %s: %w", f.series, ErrNoData)
}
