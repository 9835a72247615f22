// Package redis opens go-redis clients and verifies connectivity.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

type Option func(*redis.Options)

func WithPassword(password string) Option {
	return func(o *redis.Options) {
		if password != "" {
			o.Password = password
		}
	}
}

func WithDB(db int) Option {
	return func(o *redis.Options) {
		o.DB = db
	}
}

func WithPoolSize(n int) Option {
	return func(o *redis.Options) {
		if n > 0 {
			o.PoolSize = n
		}
	}
}

func WithTimeouts(dial, read, write time.Duration) Option {
	return func(o *redis.Options) {
		if dial > 0 {
			o.DialTimeout = dial
		}
		if read > 0 {
			o.ReadTimeout = read
		}
		if write > 0 {
			o.WriteTimeout = write
		}
	}
}

// New builds a client from a redis:// URL when url is set, falling back to addr.
// Options are applied on top of whatever the URL carries.
func New(ctx context.Context, url, addr string, opts ...Option) (*redis.Client, error) {
	const op = "redis.New"

	o := &redis.Options{Addr: addr}

	if url != "" {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to parse redis url: %w", op, err)
		}
		o = parsed
	}

	for _, opt := range opts {
		opt(o)
	}

	client := redis.NewClient(o)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}

	return client, nil
}
