// Package postgres opens sqlx pools over the pgx stdlib driver and applies migrations.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const driverName = "pgx"

type options struct {
	connMaxIdleTime time.Duration
	connMaxLifetime time.Duration
	maxIdleConns    int
	maxOpenConns    int
}

func defaultOptions() options {
	return options{
		connMaxIdleTime: 5 * time.Minute,
		connMaxLifetime: 30 * time.Minute,
		maxIdleConns:    5,
		maxOpenConns:    25,
	}
}

type Option func(*options)

// Zero values are ignored by the With* options so unset config keeps the defaults.

func WithConnMaxIdleTime(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.connMaxIdleTime = d
		}
	}
}

func WithConnMaxLifetime(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.connMaxLifetime = d
		}
	}
}

func WithMaxIdleConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxIdleConns = n
		}
	}
}

func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxOpenConns = n
		}
	}
}

// New connects and pings the database before returning the pool.
func New(ctx context.Context, dsn string, opts ...Option) (*sqlx.DB, error) {
	const op = "postgres.New"

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	db.SetConnMaxIdleTime(o.connMaxIdleTime)
	db.SetConnMaxLifetime(o.connMaxLifetime)
	db.SetMaxIdleConns(o.maxIdleConns)
	db.SetMaxOpenConns(o.maxOpenConns)

	return db, nil
}
