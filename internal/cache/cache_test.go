package cache_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/jobtracker/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis spins up a Redis container and returns a connected RedisCache.
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

	rc, err := cache.NewRedisCache("redis://" + host + ":" + port.Port())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	return rc
}

func setupSQLite(t *testing.T) *cache.SQLiteCache {
	t.Helper()
	sc, err := cache.OpenSQLiteCache(context.Background(), filepath.Join(t.TempDir(), "nested", "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Close() })
	return sc
}

// backends runs fn against every Cache implementation available in this run.
func backends(t *testing.T, fn func(t *testing.T, c cache.Cache)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, setupSQLite(t)) })
	t.Run("redis", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping integration test")
		}
		fn(t, setupRedis(t))
	})
}

// --- Cache contract ---

func TestPing(t *testing.T) {
	backends(t, func(t *testing.T, c cache.Cache) {
		assert.NoError(t, c.Ping(context.Background()))
	})
}

func TestSetGet_Roundtrip(t *testing.T) {
	backends(t, func(t *testing.T, c cache.Cache) {
		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "test:key", []byte("hello"), 10*time.Second))

		val, found, err := c.Get(ctx, "test:key")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte("hello"), val)
	})
}

func TestSet_Overwrites(t *testing.T) {
	backends(t, func(t *testing.T, c cache.Cache) {
		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "over:key", []byte("first"), 0))
		require.NoError(t, c.Set(ctx, "over:key", []byte("second"), 0))

		val, found, err := c.Get(ctx, "over:key")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte("second"), val)
	})
}

func TestGet_Miss(t *testing.T) {
	backends(t, func(t *testing.T, c cache.Cache) {
		val, found, err := c.Get(context.Background(), "nonexistent:key")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, val)
	})
}

func TestSet_TTLExpiry(t *testing.T) {
	backends(t, func(t *testing.T, c cache.Cache) {
		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "ttl:key", []byte("expires"), 1*time.Second))

		time.Sleep(1500 * time.Millisecond)

		_, found, err := c.Get(ctx, "ttl:key")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestDelete(t *testing.T) {
	backends(t, func(t *testing.T, c cache.Cache) {
		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "del:key", []byte("value"), 0))
		require.NoError(t, c.Delete(ctx, "del:key"))

		_, found, err := c.Get(ctx, "del:key")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestDelete_NonExistent(t *testing.T) {
	backends(t, func(t *testing.T, c cache.Cache) {
		assert.NoError(t, c.Delete(context.Background(), "does:not:exist"))
	})
}

func TestSQLiteCache_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	first, err := cache.OpenSQLiteCache(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "persist", []byte("yes"), 0))
	require.NoError(t, first.Close())

	second, err := cache.OpenSQLiteCache(ctx, path)
	require.NoError(t, err)
	defer second.Close()

	val, found, err := second.Get(ctx, "persist")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("yes"), val)
}

// --- IncrWithExpiry ---

func TestIncrWithExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()
	key := "ratelimit:test:" + uuid.NewString()[:8]

	for want := int64(1); want <= 3; want++ {
		val, err := rc.IncrWithExpiry(ctx, key, 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, val)
	}
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

// --- Cache Key Builders ---

func TestJobsKey(t *testing.T) {
	assert.Equal(t, "jobs_cache:jobs", cache.JobsKey("jobs_cache"))
}

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "jobs_cache:session", cache.SessionKey("jobs_cache"))
}

func TestRateLimitKey(t *testing.T) {
	assert.Equal(t, "ratelimit:jt_abcd1234", cache.RateLimitKey("jt_abcd1234"))
}

func TestKeyBuilders_NonColliding(t *testing.T) {
	keys := map[string]bool{
		cache.JobsKey("ns"):      true,
		cache.SessionKey("ns"):   true,
		cache.RateLimitKey("ns"): true,
		cache.JobsKey("other"):   true,
	}
	assert.Len(t, keys, 4, "all keys should be unique")
}
