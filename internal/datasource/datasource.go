// Package datasource fetches the market data the valuation engines run on:
// per-ticker financial snapshots from Yahoo Finance and the risk-free rate
// from Yahoo (^TNX), FRED or treasury.gov.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/seenimoa/fairvalue/internal/config"
	"github.com/seenimoa/fairvalue/pkg/models"
)

// SnapshotSource supplies a FinancialSnapshot per ticker.
type SnapshotSource interface {
	// Name returns the human-readable name of this data source.
	Name() string

	// GetSnapshot returns the financial snapshot for ticker. RiskFreeRate is
	// left at zero; the Aggregator fills it in.
	GetSnapshot(ctx context.Context, ticker string) (*models.FinancialSnapshot, error)
}

// RiskFreeSource supplies the current risk-free rate as a decimal fraction
// (0.0425 for 4.25%).
type RiskFreeSource interface {
	Name() string
	GetRiskFreeRate(ctx context.Context) (float64, error)
}

// --- Sentinel errors ---

// ErrNotSupported is returned when a source is not configured for a request.
var ErrNotSupported = errors.New("operation not supported by this data source")

// ErrTickerNotFound is returned when a ticker cannot be resolved.
var ErrTickerNotFound = errors.New("ticker not found")

// ErrMissingField is returned when a snapshot lacks a field the DCF requires.
var ErrMissingField = errors.New("required field missing")

// ErrNoData is returned when a source answered but carried no usable value.
var ErrNoData = errors.New("no data in response")

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// --- Shared HTTP client helpers ---

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// DefaultTimeout bounds every upstream request when the config leaves it unset.
const DefaultTimeout = 30 * time.Second

// newHTTPClient returns a client honouring cfg.RequestTimeoutSec.
func newHTTPClient(cfg config.DataConfig) *http.Client {
	timeout := DefaultTimeout
	if cfg.RequestTimeoutSec > 0 {
		timeout = time.Duration(cfg.RequestTimeoutSec) * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// DefaultRateLimitPerSec applies when cfg.RateLimitPerSec is unset.
const DefaultRateLimitPerSec = 5

// newLimiter returns a token bucket allowing cfg.RateLimitPerSec requests per
// second with a burst of the same size.
func newLimiter(cfg config.DataConfig) *rate.Limiter {
	n := cfg.RateLimitPerSec
	if n <= 0 {
		n = DefaultRateLimitPerSec
	}
	return rate.NewLimiter(rate.Limit(n), n)
}

// doGet performs a GET request with the given URL and headers, returning the response body.
// The caller is responsible for closing the returned ReadCloser.
func doGet(ctx context.Context, client *http.Client, url string, headers map[string]string) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json, text/html, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTP GET %s: %w", url, err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, resp.StatusCode, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return resp.Body, resp.StatusCode, nil
}

// getBytes is doGet followed by a full read of the body.
func getBytes(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]byte, error) {
	body, _, err := doGet(ctx, client, url, headers)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}

// isStatus reports whether err is an *ErrHTTP with the given status code.
func isStatus(err error, code int) bool {
	var httpErr *ErrHTTP
	return errors.As(err, &httpErr) && httpErr.StatusCode == code
}
