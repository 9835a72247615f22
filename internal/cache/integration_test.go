package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadimbarashkov/shortlink/internal/models"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupRedis(t testing.TB) *redis.Client {
	t.Helper()

	ctx := context.Background()

	redisCont, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("Failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := redisCont.Terminate(ctx); err != nil {
			t.Fatalf("Failed to terminate redis container: %v", err)
		}
	})

	endpoint, err := redisCont.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() {
		client.Close()
	})

	return client
}

func TestURLCache_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	client := setupRedis(t)
	c := NewURLCache(client, time.Minute, time.Minute)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "foreign:key", "keep", 0).Err())

	require.NoError(t, c.Set(ctx, "aZ3kT9", "https://example.com"))
	require.NoError(t, c.Set(ctx, "Qw12Er", "https://example.org"))

	url, err := c.Get(ctx, "aZ3kT9")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", url)

	ttl, err := client.TTL(ctx, "short:aZ3kT9").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	require.NoError(t, c.Delete(ctx, "aZ3kT9"))

	_, err = c.Get(ctx, "aZ3kT9")
	assert.ErrorIs(t, err, ErrCacheMiss)

	n, err := c.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = c.Get(ctx, "Qw12Er")
	assert.ErrorIs(t, err, ErrCacheMiss)

	foreign, err := client.Get(ctx, "foreign:key").Result()
	assert.False(t, errors.Is(err, redis.Nil))
	assert.Equal(t, "keep", foreign)
}

func TestURLCache_EntryExpiresAfterTTL(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	client := setupRedis(t)
	c := NewURLCache(client, time.Second, time.Second)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "aZ3kT9", "https://example.com"))
	require.NoError(t, c.SetTotals(ctx, &models.Totals{TotalURLs: 1}))

	// No Delete: the entry must still disappear on its own.
	url, err := c.Get(ctx, "aZ3kT9")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", url)

	time.Sleep(1500 * time.Millisecond)

	_, err = c.Get(ctx, "aZ3kT9")
	assert.ErrorIs(t, err, ErrCacheMiss)

	_, err = c.GetTotals(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
}
