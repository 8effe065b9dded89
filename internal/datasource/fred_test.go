package datasource

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seenimoa/fairvalue/internal/config"
)

func TestFREDGetRiskFreeRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fred/series/observations" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("series_id") != "DGS10" || q.Get("api_key") != "test-key" || q.Get("sort_order") != "desc" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		// Holidays come through as "." and must be skipped.
		w.Write([]byte(`{"observations":[
			{"date":"2026-01-01","value":"."},
			{"date":"2025-12-31","value":"4.18"},
			{"date":"2025-12-30","value":"4.20"}
		]}`))
	}))
	defer srv.Close()

	f := NewFRED(testConfig(srv))
	if f.Name() != "FRED DGS10" {
		t.Errorf("Name() = %q", f.Name())
	}
	rate, err := f.GetRiskFreeRate(context.Background())
	if err != nil {
		t.Fatalf("GetRiskFreeRate() error: %v", err)
	}
	if math.Abs(rate-0.0418) > 1e-12 {
		t.Errorf("rate = %v, want 0.0418", rate)
	}
}

func TestFREDNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"observations":[{"date":"2026-01-01","value":"."}]}`))
	}))
	defer srv.Close()

	_, err := NewFRED(testConfig(srv)).GetRiskFreeRate(context.Background())
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestFREDRequiresKey(t *testing.T) {
	f := NewFRED(config.DataConfig{FREDBaseURL: "http://127.0.0.1:1"})
	if f.Name() != "FRED "+DefaultFREDSeries {
		t.Errorf("Name() = %q", f.Name())
	}
	if _, err := f.GetRiskFreeRate(context.Background()); !errors.Is(err, ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported without a key, got %v", err)
	}
}
