package cache_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/cropwise/internal/cache"
	"github.com/kiranshivaraju/cropwise/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis spins up a Redis container and returns a connected RedisCache + cleanup.
func setupRedis(t *testing.T) *cache.RedisCache {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	redisURL := "redis://" + host + ":" + port.Port()
	rc, err := cache.NewRedisCache(redisURL)
	require.NoError(t, err)

	t.Cleanup(func() { rc.Close() })
	return rc
}

// --- Ping ---

func TestPing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	err := rc.Ping(context.Background())
	assert.NoError(t, err)
}

// --- Set / Get roundtrip ---

func TestSetGet_Roundtrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()

	err := rc.Set(ctx, "test:key", []byte("hello"), 10*time.Second)
	require.NoError(t, err)

	val, found, err := rc.Get(ctx, "test:key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("hello"), val)
}

func TestGet_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)

	val, found, err := rc.Get(context.Background(), "nonexistent:key")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)
}

func TestSet_TTLExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()

	err := rc.Set(ctx, "expiry:key", []byte("temp"), 1*time.Second)
	require.NoError(t, err)

	// Immediately should exist
	_, found, err := rc.Get(ctx, "expiry:key")
	require.NoError(t, err)
	assert.True(t, found)

	// Wait for TTL to expire
	time.Sleep(1500 * time.Millisecond)

	_, found, err = rc.Get(ctx, "expiry:key")
	require.NoError(t, err)
	assert.False(t, found)
}

// --- IncrWithExpiry ---

func TestIncrWithExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()
	key := "ratelimit:test:" + uuid.NewString()[:8]

	val, err := rc.IncrWithExpiry(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), val)

	val, err = rc.IncrWithExpiry(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), val)

	val, err = rc.IncrWithExpiry(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(3), val)
}

func TestIncrWithExpiry_Expires(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()
	key := "ratelimit:expiry:" + uuid.NewString()[:8]

	_, err := rc.IncrWithExpiry(ctx, key, 1*time.Second)
	require.NoError(t, err)

	time.Sleep(1500 * time.Millisecond)

	// After expiry, should start from 1 again
	val, err := rc.IncrWithExpiry(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), val)
}

// --- Nop ---

func TestNop(t *testing.T) {
	ctx := context.Background()
	var c cache.Cache = cache.Nop{}

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	val, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)

	n, err := c.IncrWithExpiry(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, c.Ping(ctx))
}

// --- Cache Key Builders ---

func TestRateLimitKey(t *testing.T) {
	key := cache.RateLimitKey("203.0.113.7")
	assert.Equal(t, "ratelimit:203.0.113.7", key)
}

func TestPredictionKey_Deterministic(t *testing.T) {
	vec := models.FeatureVector{90, 40, 40, 25, 80, 6.5, 200}
	fp := "0123456789abcdef0123456789abcdef"

	k1 := cache.PredictionKey(fp, vec)
	k2 := cache.PredictionKey(fp, vec)
	assert.Equal(t, k1, k2)
	assert.True(t, strings.HasPrefix(k1, "predict:0123456789abcdef:"))
	assert.Len(t, strings.TrimPrefix(k1, "predict:0123456789abcdef:"), 32)
}

func TestPredictionKey_ScopedByVectorAndModel(t *testing.T) {
	vec := models.FeatureVector{90, 40, 40, 25, 80, 6.5, 200}
	swapped := models.FeatureVector{40, 90, 40, 25, 80, 6.5, 200}

	keys := map[string]bool{
		cache.PredictionKey("aaaa", vec):     true,
		cache.PredictionKey("bbbb", vec):     true,
		cache.PredictionKey("aaaa", swapped): true,
		cache.PredictionKey("", vec):         true,
	}
	assert.Len(t, keys, 4, "all keys should be unique")
	assert.Contains(t, cache.PredictionKey("", vec), "predict:unversioned:")
}
