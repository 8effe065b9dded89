package cache

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/fairvalue/internal/config"
	"github.com/seenimoa/fairvalue/pkg/models"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)

	_, ok, err := m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	val := []byte("hello")
	require.NoError(t, m.Set(ctx, "k", val, 0))
	val[0] = 'j' // caller mutation must not leak into the store

	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", string(got))

	require.NoError(t, m.Delete(ctx, "k"))
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "short", []byte("a"), time.Second))
	require.NoError(t, m.Set(ctx, "long", []byte("b"), 0))

	now = now.Add(2 * time.Second)
	_, ok, _ := m.Get(ctx, "short")
	assert.False(t, ok, "short entry should have expired")
	_, ok, _ = m.Get(ctx, "long")
	assert.True(t, ok, "long entry uses the default TTL")

	assert.Equal(t, 2, m.Len())
	m.Cleanup()
	assert.Equal(t, 1, m.Len())
}

func TestMemoryRunCleanupSweepsUntilCancelled(t *testing.T) {
	m := NewMemory(time.Minute)
	require.NoError(t, m.Set(context.Background(), "stale", []byte("x"), time.Millisecond))
	require.Equal(t, 1, m.Len())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.RunCleanup(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunCleanup did not return after cancel")
	}
}

func TestNewSelectsBackend(t *testing.T) {
	s, err := New(config.CacheConfig{Backend: "memory", TTL: 10})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = New(config.CacheConfig{Backend: "redis", RedisAddr: "localhost:6379"})
	require.NoError(t, err)
	assert.IsType(t, &Redis{}, s)
	_ = s.(*Redis).Close()

	_, err = New(config.CacheConfig{Backend: "memcached"})
	assert.Error(t, err)
}

func TestTTL(t *testing.T) {
	assert.Equal(t, DefaultTTL, TTL(config.CacheConfig{}))
	assert.Equal(t, 90*time.Second, TTL(config.CacheConfig{TTL: 90}))
}

type fakeSource struct {
	calls atomic.Int32
	snap  *models.FinancialSnapshot
	err   error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) GetSnapshot(_ context.Context, ticker string) (*models.FinancialSnapshot, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	s := *f.snap
	s.Ticker = ticker
	return &s, nil
}

func TestCachedSnapshotsHitsStoreOnce(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{snap: &models.FinancialSnapshot{
		MarketCap:           1000,
		SharesOutstanding:   50,
		LeveredFreeCashFlow: models.Float(100),
	}}
	c := NewCachedSnapshots(src, NewMemory(time.Minute), 0)
	assert.Equal(t, "fake", c.Name())

	first, err := c.GetSnapshot(ctx, "aapl")
	require.NoError(t, err)
	second, err := c.GetSnapshot(ctx, "AAPL")
	require.NoError(t, err)

	assert.EqualValues(t, 1, src.calls.Load(), "second call should be served from cache")
	assert.Equal(t, first.MarketCap, second.MarketCap)
	require.NotNil(t, second.LeveredFreeCashFlow)
	assert.Equal(t, 100.0, *second.LeveredFreeCashFlow)

	require.NoError(t, c.Invalidate(ctx, "AAPL"))
	_, err = c.GetSnapshot(ctx, "AAPL")
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestCachedSnapshotsDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("upstream down")
	src := &fakeSource{err: boom}
	c := NewCachedSnapshots(src, NewMemory(time.Minute), time.Minute)

	_, err := c.GetSnapshot(ctx, "MSFT")
	assert.ErrorIs(t, err, boom)
	_, err = c.GetSnapshot(ctx, "MSFT")
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 2, src.calls.Load())
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("get failed")
}
func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("set failed")
}
func (brokenStore) Delete(context.Context, string) error { return nil }

func TestCachedSnapshotsSurvivesStoreFailure(t *testing.T) {
	src := &fakeSource{snap: &models.FinancialSnapshot{MarketCap: 5}}
	c := NewCachedSnapshots(src, brokenStore{}, time.Minute)

	snap, err := c.GetSnapshot(context.Background(), "IBM")
	require.NoError(t, err)
	assert.Equal(t, 5.0, snap.MarketCap)
}

func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("FAIRVALUE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("FAIRVALUE_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	r := NewRedis(RedisOptions{Addr: addr})
	defer r.Close()
	require.NoError(t, r.Ping(ctx))

	key := "test:" + time.Now().Format(time.RFC3339Nano)
	_, ok, err := r.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, key, []byte("v"), time.Minute))
	got, ok, err := r.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(got))

	require.NoError(t, r.Delete(ctx, key))
}
