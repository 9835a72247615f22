// Package cache mirrors short code mappings and service totals in Redis.
// Every write carries a TTL; the cache is soft state and may lag the store
// until entries expire.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/shortlink/internal/models"
)

const (
	urlKeyPrefix = "short:"
	totalsKey    = "stats:totals"
	scanCount    = 500
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

func urlKey(shortCode string) string {
	return urlKeyPrefix + shortCode
}

type URLCache struct {
	client   redis.Cmdable
	urlTTL   time.Duration
	statsTTL time.Duration
}

func NewURLCache(client redis.Cmdable, urlTTL, statsTTL time.Duration) *URLCache {
	return &URLCache{
		client:   client,
		urlTTL:   urlTTL,
		statsTTL: statsTTL,
	}
}

func (c *URLCache) Get(ctx context.Context, shortCode string) (string, error) {
	const op = "cache.URLCache.Get"

	url, err := c.client.Get(ctx, urlKey(shortCode)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%s: %w", op, ErrCacheMiss)
		}

		return "", fmt.Errorf("%s: failed to get cache entry: %w", op, err)
	}

	return url, nil
}

func (c *URLCache) Set(ctx context.Context, shortCode, originalURL string) error {
	const op = "cache.URLCache.Set"

	if err := c.client.Set(ctx, urlKey(shortCode), originalURL, c.urlTTL).Err(); err != nil {
		return fmt.Errorf("%s: failed to set cache entry: %w", op, err)
	}

	return nil
}

func (c *URLCache) Delete(ctx context.Context, shortCodes ...string) error {
	const op = "cache.URLCache.Delete"

	if len(shortCodes) == 0 {
		return nil
	}

	keys := make([]string, 0, len(shortCodes))
	for _, code := range shortCodes {
		keys = append(keys, urlKey(code))
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%s: failed to delete cache entries: %w", op, err)
	}

	return nil
}

// Flush removes every short code entry and the totals snapshot. Keys outside
// the cache namespace are left alone, so the Redis database can be shared.
func (c *URLCache) Flush(ctx context.Context) (int64, error) {
	const op = "cache.URLCache.Flush"

	var (
		cursor  uint64
		deleted int64
	)

	for {
		keys, next, err := c.client.Scan(ctx, cursor, urlKeyPrefix+"*", scanCount).Result()
		if err != nil {
			return deleted, fmt.Errorf("%s: failed to scan cache entries: %w", op, err)
		}

		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("%s: failed to delete cache entries: %w", op, err)
			}
			deleted += n
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	if err := c.client.Del(ctx, totalsKey).Err(); err != nil {
		return deleted, fmt.Errorf("%s: failed to delete totals snapshot: %w", op, err)
	}

	return deleted, nil
}

func (c *URLCache) GetTotals(ctx context.Context) (*models.Totals, error) {
	const op = "cache.URLCache.GetTotals"

	data, err := c.client.Get(ctx, totalsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, ErrCacheMiss)
		}

		return nil, fmt.Errorf("%s: failed to get totals snapshot: %w", op, err)
	}

	totals := new(models.Totals)
	if err := json.Unmarshal(data, totals); err != nil {
		return nil, fmt.Errorf("%s: failed to decode totals snapshot: %w", op, err)
	}

	return totals, nil
}

func (c *URLCache) SetTotals(ctx context.Context, totals *models.Totals) error {
	const op = "cache.URLCache.SetTotals"

	data, err := json.Marshal(totals)
	if err != nil {
		return fmt.Errorf("%s: failed to encode totals snapshot: %w", op, err)
	}

	if err := c.client.Set(ctx, totalsKey, data, c.statsTTL).Err(); err != nil {
		return fmt.Errorf("%s: failed to set totals snapshot: %w", op, err)
	}

	return nil
}
