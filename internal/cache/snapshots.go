package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/fairvalue/pkg/models"
	"github.com/seenimoa/fairvalue/pkg/utils"
)

// SnapshotSource is the subset of a market-data source that CachedSnapshots
// decorates.
type SnapshotSource interface {
	Name() string
	GetSnapshot(ctx context.Context, ticker string) (*models.FinancialSnapshot, error)
}

// CachedSnapshots serves snapshots from a Store, falling through to the
// wrapped source on a miss. Store failures are logged and treated as misses.
type CachedSnapshots struct {
	src   SnapshotSource
	store Store
	ttl   time.Duration
}

// NewCachedSnapshots wraps src. A non-positive ttl selects DefaultTTL.
func NewCachedSnapshots(src SnapshotSource, store Store, ttl time.Duration) *CachedSnapshots {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedSnapshots{src: src, store: store, ttl: ttl}
}

// Name returns the wrapped source's name.
func (c *CachedSnapshots) Name() string { return c.src.Name() }

// GetSnapshot returns a cached snapshot when fresh, otherwise fetches and
// stores one. Failed fetches are not cached.
func (c *CachedSnapshots) GetSnapshot(ctx context.Context, ticker string) (*models.FinancialSnapshot, error) {
	key := snapshotKey(ticker)
	log := zerolog.Ctx(ctx)

	if data, ok, err := c.store.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	} else if ok {
		var snap models.FinancialSnapshot
		if err := json.Unmarshal(data, &snap); err == nil {
			log.Debug().Str("key", key).Msg("cache hit")
			return &snap, nil
		}
		log.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	}

	snap, err := c.src.GetSnapshot(ctx, ticker)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(snap)
	if err == nil {
		err = c.store.Set(ctx, key, data, c.ttl)
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return snap, nil
}

// Invalidate drops the cached snapshot for ticker.
func (c *CachedSnapshots) Invalidate(ctx context.Context, ticker string) error {
	return c.store.Delete(ctx, snapshotKey(ticker))
}

func snapshotKey(ticker string) string {
	return "snapshot:" + utils.NormalizeTicker(ticker)
}
