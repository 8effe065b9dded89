package datasource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/seenimoa/fairvalue/internal/config"
)

// Risk-free source names accepted in config.DataConfig.RiskFreeSources.
const (
	SourceYahoo    = "yahoo"
	SourceFRED     = "fred"
	SourceTreasury = "treasury"
)

// RiskFreeChain tries each source in order and returns the first rate found.
type RiskFreeChain struct {
	sources []RiskFreeSource
}

// NewRiskFreeChain creates a chain over sources, in priority order.
func NewRiskFreeChain(sources ...RiskFreeSource) *RiskFreeChain {
	return &RiskFreeChain{sources: sources}
}

// NewRiskFreeChainFromConfig builds the chain named by cfg.RiskFreeSources.
// yahoo may be shared with the snapshot source so both use one rate limiter;
// nil creates a fresh one.
func NewRiskFreeChainFromConfig(cfg config.DataConfig, yahoo *YFinance) (*RiskFreeChain, error) {
	var sources []RiskFreeSource
	for _, name := range cfg.RiskFreeSources {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case SourceYahoo:
			if yahoo == nil {
				yahoo = NewYFinance(cfg)
			}
			sources = append(sources, yahoo)
		case SourceFRED:
			sources = append(sources, NewFRED(cfg))
		case SourceTreasury:
			sources = append(sources, NewTreasury(cfg))
		default:
			return nil, fmt.Errorf("unknown risk-free source %q", name)
		}
	}
	return NewRiskFreeChain(sources...), nil
}

// Name lists the chained sources.
func (c *RiskFreeChain) Name() string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name()
	}
	return "chain(" + strings.Join(names, ", ") + ")"
}

// GetRiskFreeRate implements RiskFreeSource.
func (c *RiskFreeChain) GetRiskFreeRate(ctx context.Context) (float64, error) {
	rate, _, err := c.Resolve(ctx)
	return rate, err
}

// Resolve returns the first successful rate and the name of the source that
// produced it. When every source fails the errors are joined.
func (c *RiskFreeChain) Resolve(ctx context.Context) (float64, string, error) {
	if len(c.sources) == 0 {
		return 0, "", fmt.Errorf("risk-free rate: no sources configured: %w", ErrNotSupported)
	}

	log := zerolog.Ctx(ctx)
	var errs []error
	for _, src := range c.sources {
		rate, err := src.GetRiskFreeRate(ctx)
		if err == nil {
			return rate, src.Name(), nil
		}
		log.Debug().Err(err).Str("source", src.Name()).Msg("risk-free source failed")
		errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return 0, "", fmt.Errorf("risk-free rate: %w", errors.Join(errs...))
}
