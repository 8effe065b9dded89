package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/seenimoa/fairvalue/internal/config"
	"github.com/seenimoa/fairvalue/pkg/utils"
)

// Scoring relays a third-party valuation score for a ticker. The payload is
// returned as-is and never interpreted.
type Scoring struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewScoring creates a scoring client. An empty cfg.ScoringURL disables it.
func NewScoring(cfg config.DataConfig) *Scoring {
	return &Scoring{
		baseURL: strings.TrimRight(cfg.ScoringURL, "/"),
		client:  newHTTPClient(cfg),
		limiter: newLimiter(cfg),
	}
}

// Name returns the data source name.
func (s *Scoring) Name() string { return "Valuation score" }

// Enabled reports whether a scoring URL is configured.
func (s *Scoring) Enabled() bool { return s != nil && s.baseURL != "" }

// GetScore fetches {scoring_url}/{TICKER}.
func (s *Scoring) GetScore(ctx context.Context, ticker string) (json.RawMessage, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("valuation score: %w", ErrNotSupported)
	}
	symbol := utils.NormalizeTicker(ticker)
	if !utils.IsValidTicker(symbol) {
		return nil, fmt.Errorf("%w: %q", ErrTickerNotFound, ticker)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	data, err := getBytes(ctx, s.client, s.baseURL+"/"+url.PathEscape(symbol), map[string]string{"Accept": "application/json"})
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
		}
		return nil, fmt.Errorf("valuation score %s: %w", symbol, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("valuation score %s: response is not JSON", symbol)
	}
	return json.RawMessage(data), nil
}
