package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Cleaner deletes mappings older than maxAge on a fixed interval.
type Cleaner struct {
	logger   *slog.Logger
	repo     URLRepository
	cache    URLCache
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewCleaner(logger *slog.Logger, repo URLRepository, cache URLCache, maxAge, interval time.Duration) *Cleaner {
	return &Cleaner{
		logger:   logger,
		repo:     repo,
		cache:    cache,
		maxAge:   maxAge,
		interval: interval,
		now:      time.Now,
	}
}

func (c *Cleaner) Enabled() bool {
	return c.maxAge > 0 && c.interval > 0
}

// Cleanup runs one pass and returns the number of removed mappings.
func (c *Cleaner) Cleanup(ctx context.Context) (int, error) {
	const op = "service.Cleaner.Cleanup"

	codes, err := c.repo.DeleteCreatedBefore(ctx, c.now().Add(-c.maxAge))
	if err != nil {
		return 0, fmt.Errorf("%s: failed to delete stale urls: %w: %w", op, ErrStorage, err)
	}

	if len(codes) > 0 {
		if err := c.cache.Delete(ctx, codes...); err != nil {
			c.logger.Warn("cache invalidation failed, entries will expire on ttl",
				slog.String("op", op),
				slog.Int("count", len(codes)),
				slog.Any("err", err),
			)
		}
	}

	return len(codes), nil
}

// Run repeats Cleanup until ctx is cancelled. Failed passes are logged and retried next tick.
func (c *Cleaner) Run(ctx context.Context) error {
	const op = "service.Cleaner.Run"

	if !c.Enabled() {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := c.Cleanup(ctx)
			if err != nil {
				c.logger.Error("stale url cleanup failed", slog.String("op", op), slog.Any("err", err))
				continue
			}
			if n > 0 {
				c.logger.Info("stale urls removed", slog.String("op", op), slog.Int("count", n))
			}
		}
	}
}
