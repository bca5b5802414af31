package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingGetter struct {
	calls int
	body  string
	err   error
}

func (g *countingGetter) Get(context.Context, string) ([]byte, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return []byte(g.body), nil
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("cache down")
}

func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("cache down")
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestCached_ServesRepeatFromCache(t *testing.T) {
	next := &countingGetter{body: "doc"}
	c := NewCached(next, NewMemoryCache(), time.Minute, quietLogger)

	for i := 0; i < 3; i++ {
		body, err := c.Get(context.Background(), "https://example.test/a")
		require.NoError(t, err)
		assert.Equal(t, "doc", string(body))
	}
	assert.Equal(t, 1, next.calls)

	_, err := c.Get(context.Background(), "https://example.test/b")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	next := &countingGetter{err: errors.New("boom")}
	cache := NewMemoryCache()
	c := NewCached(next, cache, time.Minute, quietLogger)

	_, err := c.Get(context.Background(), "u")
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())
}

func TestCached_CacheFailureFallsThrough(t *testing.T) {
	next := &countingGetter{body: "doc"}
	c := NewCached(next, brokenCache{}, 0, quietLogger)

	body, err := c.Get(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, "doc", string(body))
	assert.Equal(t, DefaultCacheTTL, c.ttl)
}

func TestMemoryCache_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryCache()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Hour))

	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(got))

	now = now.Add(time.Hour)
	_, ok, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestCacheKey_Stable(t *testing.T) {
	assert.Equal(t, CacheKey("a"), CacheKey("a"))
	assert.NotEqual(t, CacheKey("a"), CacheKey("b"))
	assert.Len(t, CacheKey("a"), len("fetch:")+64)
}
