package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sia-enrollment-engine/internal/models"
)

type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("redis: connection reset")
}
func (brokenCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("redis: connection reset")
}
func (brokenCache) Delete(ctx context.Context, keys ...string) error {
	return errors.New("redis: connection reset")
}

func TestProgressCacheRoundTrip(t *testing.T) {
	backend := newMemoryCache()
	cache := NewProgressCache(backend, nil, time.Minute, nil, true)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "s1")
	assert.False(t, ok)

	progress := newEnglishProgress("s1")
	progress.NivelActual = 3
	cache.Put(ctx, progress)
	assert.True(t, backend.has("english:progress:s1"))

	got, ok := cache.Get(ctx, "s1")
	require.True(t, ok)
	assert.Equal(t, 3, got.NivelActual)

	cache.Invalidate(ctx, "s1", "s2")
	assert.False(t, backend.has("english:progress:s1"))
}

func TestProgressCacheDiscardsMismatchedSnapshot(t *testing.T) {
	backend := newMemoryCache()
	cache := NewProgressCache(backend, nil, time.Minute, nil, true)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, progressCacheKey("s1"), &models.EnglishProgress{StudentID: "s9", NivelActual: 6}, time.Minute))

	_, ok := cache.Get(ctx, "s1")
	assert.False(t, ok)
	assert.False(t, backend.has(progressCacheKey("s1")))
}

func TestProgressCacheDegradesToMiss(t *testing.T) {
	metrics := NewMetricsService()
	cache := NewProgressCache(brokenCache{}, metrics, 0, nil, true)
	ctx := context.Background()

	cache.Put(ctx, newEnglishProgress("s1"))
	_, ok := cache.Get(ctx, "s1")
	assert.False(t, ok)
	cache.Invalidate(ctx, "s1")

	var disabled *ProgressCache
	assert.False(t, disabled.Enabled())
	_, ok = disabled.Get(ctx, "s1")
	assert.False(t, ok)
	assert.False(t, NewProgressCache(newMemoryCache(), nil, time.Minute, nil, false).Enabled())
}
