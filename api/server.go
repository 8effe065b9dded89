// Package api provides the HTTP REST API server for FairValue.
//
// It exposes endpoints for ticker snapshots, the treasury yield, scenario
// projections, CAPM discount rates, DCF valuations and the third-party
// valuation score passthrough.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/seenimoa/fairvalue/internal/cache"
	"github.com/seenimoa/fairvalue/internal/config"
	"github.com/seenimoa/fairvalue/internal/datasource"
	"github.com/seenimoa/fairvalue/internal/logging"
	"github.com/seenimoa/fairvalue/internal/valuation"
	"github.com/seenimoa/fairvalue/pkg/models"
	"github.com/seenimoa/fairvalue/pkg/utils"
)

// Version is reported by /health. Overridden at build time.
var Version = "dev"

// ScoreSource relays the opaque third-party valuation score.
type ScoreSource interface {
	GetScore(ctx context.Context, ticker string) (json.RawMessage, error)
}

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	cfg    *config.Config
	logger zerolog.Logger
	agg    *datasource.Aggregator
	scores ScoreSource
	store  cache.Store // nil when the aggregator does its own caching
}

// pinger is implemented by stores backed by a remote service.
type pinger interface {
	Ping(ctx context.Context) error
}

// invalidator is implemented by snapshot sources that cache.
type invalidator interface {
	Invalidate(ctx context.Context, ticker string) error
}

// NewServer creates a server over an existing aggregator and score source.
func NewServer(cfg *config.Config, logger zerolog.Logger, agg *datasource.Aggregator, scores ScoreSource) *Server {
	srv := &Server{
		cfg:    cfg,
		logger: logger,
		agg:    agg,
		scores: scores,
	}
	srv.router = srv.buildRouter()
	return srv
}

// NewServerFromConfig wires the configured cache, market-data sources and
// score passthrough, and returns a ready server.
func NewServerFromConfig(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	store, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, err
	}
	agg, err := datasource.NewAggregatorFromConfig(cfg, store)
	if err != nil {
		return nil, err
	}
	srv := NewServer(cfg, logger, agg, datasource.NewScoring(cfg.Data))
	srv.store = store
	return srv, nil
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server and blocks until SIGINT or SIGTERM,
// then shuts down gracefully.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	bg, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	if mem, ok := s.store.(*cache.Memory); ok {
		go mem.RunCleanup(bg, cache.TTL(s.cfg.Cache))
	}
	if closer, ok := s.store.(io.Closer); ok {
		defer closer.Close()
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-done:
	}
	s.logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Market data
		r.Get("/stock/{ticker}", s.handleStock)
		r.Get("/treasury-yield", s.handleTreasuryYield)

		// Valuation engines
		r.Post("/projection", s.handleProjection)
		r.Post("/discount-rate", s.handleDiscountRate)
		r.Post("/dcf", s.handleDCF)

		// Third-party score
		r.Get("/valuation/{ticker}", s.handleValuationScore)

		// Configuration
		r.Get("/defaults", s.handleGetDefaults)
		r.Get("/config/secrets", s.handleGetSecrets)
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// YieldResponse is the data of GET /api/v1/treasury-yield.
type YieldResponse struct {
	Yield  float64 `json:"yield"` // decimal fraction
	Source string  `json:"source"`
}

// ProjectionRequest is the body for POST /api/v1/projection. Horizon and
// Scenarios fall back to the configured defaults when omitted. When Ticker is
// set and Revenue and MarketCap are both zero they are taken from the
// ticker's snapshot.
type ProjectionRequest struct {
	Ticker    string                 `json:"ticker,omitempty"`
	Revenue   float64                `json:"revenue"`
	MarketCap float64                `json:"marketCap"`
	Horizon   *int                   `json:"horizon,omitempty"`
	Scenarios *valuation.ScenarioSet `json:"scenarios,omitempty"`
}

// DiscountRateRequest is the body for POST /api/v1/discount-rate.
type DiscountRateRequest struct {
	RiskFreeRate      float64 `json:"riskFreeRate"` // decimal fraction
	Beta              float64 `json:"beta"`
	EquityRiskPremium float64 `json:"equityRiskPremium"` // percent
	Override          float64 `json:"override"`          // percent, 0 derives via CAPM
}

// DiscountRateResponse is the data of POST /api/v1/discount-rate.
type DiscountRateResponse struct {
	DiscountRatePct float64 `json:"discountRate"`
	Derived         bool    `json:"derived"` // true when computed via CAPM
}

// DCFRequest is the body for POST /api/v1/dcf. Exactly one of Ticker and
// Snapshot is expected; Ticker wins when both are set. Assumptions fall back
// to the configured defaults when omitted.
type DCFRequest struct {
	Ticker      string                    `json:"ticker,omitempty"`
	Snapshot    *models.FinancialSnapshot `json:"snapshot,omitempty"`
	Assumptions *valuation.DCFAssumptions `json:"assumptions,omitempty"`
}

// DCFResponse is the data of POST /api/v1/dcf.
type DCFResponse struct {
	Snapshot    models.FinancialSnapshot `json:"snapshot"`
	Assumptions valuation.DCFAssumptions `json:"assumptions"`
	Result      *valuation.DCFResult     `json:"result"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"status":  "ok",
		"version": Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}
	if p, ok := s.store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("cache ping failed")
			data["status"] = "degraded"
			data["cache"] = err.Error()
		} else {
			data["cache"] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	if r.URL.Query().Get("refresh") == "true" {
		if inv, ok := s.agg.Snapshots().(invalidator); ok {
			if err := inv.Invalidate(ctx, ticker); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("ticker", ticker).Msg("cache invalidate failed")
			}
		}
	}

	snap, err := s.agg.Snapshots().GetSnapshot(ctx, ticker)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    snap,
	})
}

func (s *Server) handleTreasuryYield(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	rate, source, err := resolveRiskFree(ctx, s.agg.RiskFree())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    YieldResponse{Yield: rate, Source: source},
	})
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	var req ProjectionRequest
	if err := decodeBody(r, &req); err != nil {
		s.badBody(w, r, err)
		return
	}

	horizon := s.cfg.Valuation.Horizon
	if req.Horizon != nil {
		horizon = *req.Horizon
	}

	scenarios := req.Scenarios
	if scenarios == nil {
		set, err := s.cfg.Valuation.ScenarioSet()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		scenarios = set
	}

	base := valuation.ProjectionBase{Revenue: req.Revenue, MarketCap: req.MarketCap}
	if req.Ticker != "" && base.Revenue == 0 && base.MarketCap == 0 {
		ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
		defer cancel()

		snap, err := s.agg.Snapshots().GetSnapshot(ctx, req.Ticker)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		base = valuation.ProjectionBase{Revenue: snap.Revenue, MarketCap: snap.MarketCap}
	}

	result, err := valuation.Project(base, scenarios, horizon)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    result,
	})
}

func (s *Server) handleDiscountRate(w http.ResponseWriter, r *http.Request) {
	var req DiscountRateRequest
	if err := decodeBody(r, &req); err != nil {
		s.badBody(w, r, err)
		return
	}

	rate, err := valuation.ResolveDiscountRate(req.RiskFreeRate, req.Beta, req.EquityRiskPremium, req.Override)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    DiscountRateResponse{DiscountRatePct: rate, Derived: req.Override == 0},
	})
}

func (s *Server) handleDCF(w http.ResponseWriter, r *http.Request) {
	var req DCFRequest
	if err := decodeBody(r, &req); err != nil {
		s.badBody(w, r, err)
		return
	}

	assumptions := s.cfg.Valuation.DCF
	if req.Assumptions != nil {
		assumptions = *req.Assumptions
	}

	var snap models.FinancialSnapshot
	switch {
	case req.Ticker != "":
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		fetched, err := s.agg.FetchDCFInputs(ctx, req.Ticker)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		snap = *fetched
	case req.Snapshot != nil:
		snap = *req.Snapshot
		if err := datasource.ValidateForDCF(snap); err != nil {
			s.fail(w, r, err)
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "ticker or snapshot is required")
		return
	}

	result, err := valuation.Valuate(snap, assumptions)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: DCFResponse{
			Snapshot:    snap,
			Assumptions: assumptions,
			Result:      result,
		},
	})
}

func (s *Server) handleValuationScore(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	score, err := s.scores.GetScore(ctx, ticker)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    score,
	})
}

// ============================================================
// Helpers
// ============================================================

// resolveRiskFree returns the rate and the name of the source that produced
// it, using the chain's own resolution when available.
func resolveRiskFree(ctx context.Context, src datasource.RiskFreeSource) (float64, string, error) {
	if chain, ok := src.(interface {
		Resolve(context.Context) (float64, string, error)
	}); ok {
		return chain.Resolve(ctx)
	}
	rate, err := src.GetRiskFreeRate(ctx)
	return rate, src.Name(), err
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, valuation.ErrInvalidInput),
		errors.Is(err, valuation.ErrInvalidAssumptions),
		errors.Is(err, datasource.ErrMissingField):
		return http.StatusUnprocessableEntity
	case errors.Is(err, datasource.ErrTickerNotFound):
		return http.StatusNotFound
	case errors.Is(err, datasource.ErrNotSupported):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// fail logs err on the request logger and writes the mapped error response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	evt := zerolog.Ctx(r.Context()).Debug()
	if status >= http.StatusInternalServerError {
		evt = zerolog.Ctx(r.Context()).Warn()
	}
	evt.Err(err).Int("status", status).Msg("request failed")
	writeError(w, status, err.Error())
}

// badBody reports a request body that failed to decode. Bodies that parsed but
// carried invalid values (such as duplicate scenario names) are 422s.
func (s *Server) badBody(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, valuation.ErrInvalidInput) {
		s.fail(w, r, err)
		return
	}
	writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeJSON encodes v before writing the header so an unencodable payload
// becomes a 500 envelope instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode JSON response")
		status = http.StatusInternalServerError
		body, _ = json.Marshal(APIResponse{Success: false, Error: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		log.Error().Err(err).Msg("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
