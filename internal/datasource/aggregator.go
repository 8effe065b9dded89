package datasource

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/fairvalue/internal/cache"
	"github.com/seenimoa/fairvalue/internal/config"
	"github.com/seenimoa/fairvalue/pkg/models"
	"github.com/seenimoa/fairvalue/pkg/utils"
)

// Aggregator combines a snapshot source and a risk-free source into the full
// input set a DCF valuation needs.
type Aggregator struct {
	snapshots SnapshotSource
	riskFree  RiskFreeSource
}

// NewAggregator creates an aggregator over the given sources.
func NewAggregator(snapshots SnapshotSource, riskFree RiskFreeSource) *Aggregator {
	return &Aggregator{snapshots: snapshots, riskFree: riskFree}
}

// NewAggregatorFromConfig wires Yahoo snapshots behind store and the
// configured risk-free chain. A nil store disables snapshot caching.
func NewAggregatorFromConfig(cfg *config.Config, store cache.Store) (*Aggregator, error) {
	yahoo := NewYFinance(cfg.Data)
	chain, err := NewRiskFreeChainFromConfig(cfg.Data, yahoo)
	if err != nil {
		return nil, err
	}

	var snaps SnapshotSource = yahoo
	if store != nil {
		snaps = cache.NewCachedSnapshots(yahoo, store, cache.TTL(cfg.Cache))
	}
	return NewAggregator(snaps, chain), nil
}

// Snapshots returns the snapshot source for direct access.
func (a *Aggregator) Snapshots() SnapshotSource { return a.snapshots }

// RiskFree returns the risk-free source for direct access.
func (a *Aggregator) RiskFree() RiskFreeSource { return a.riskFree }

// FetchDCFInputs fetches the snapshot and the risk-free rate concurrently.
// Both must succeed. The returned snapshot carries the rate and has been
// checked with ValidateForDCF.
func (a *Aggregator) FetchDCFInputs(ctx context.Context, ticker string) (*models.FinancialSnapshot, error) {
	symbol := utils.NormalizeTicker(ticker)

	var (
		snap *models.FinancialSnapshot
		rate float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := a.snapshots.GetSnapshot(gctx, symbol)
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", symbol, err)
		}
		snap = s
		return nil
	})
	g.Go(func() error {
		r, err := a.riskFree.GetRiskFreeRate(gctx)
		if err != nil {
			return err
		}
		rate = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := *snap
	out.RiskFreeRate = rate
	if err := ValidateForDCF(out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateForDCF rejects snapshots missing the fields the DCF cannot do
// without: levered free cash flow and a positive share count.
func ValidateForDCF(snap models.FinancialSnapshot) error {
	if !snap.HasFCFE() {
		return fmt.Errorf("%w: %s has no levered free cash flow", ErrMissingField, tickerOr(snap))
	}
	if snap.SharesOutstanding <= 0 {
		return fmt.Errorf("%w: %s has no shares outstanding", ErrMissingField, tickerOr(snap))
	}
	return nil
}

func tickerOr(snap models.FinancialSnapshot) string {
	if snap.Ticker == "" {
		return "snapshot"
	}
	return snap.Ticker
}
