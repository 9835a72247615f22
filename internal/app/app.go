package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/shortlink/internal/config"
	pgpool "github.com/vadimbarashkov/shortlink/pkg/postgres"
	"github.com/vadimbarashkov/shortlink/pkg/redis"
	"golang.org/x/sync/errgroup"
)

// Run wires the service together and serves until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, logger *httplog.Logger) error {
	const op = "app.Run"

	log := logger.Logger

	db, err := pgpool.New(
		ctx,
		cfg.Postgres.DSN(),
		pgpool.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		pgpool.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		pgpool.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		pgpool.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}
	defer db.Close()

	if err := pgpool.RunMigrations(cfg.MigrationsPath, cfg.Postgres.DSN(), log); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	rdb, err := redis.New(
		ctx,
		cfg.Redis.URL,
		cfg.Redis.Addr,
		redis.WithPassword(cfg.Redis.Password),
		redis.WithDB(cfg.Redis.DB),
		redis.WithPoolSize(cfg.Redis.PoolSize),
		redis.WithTimeouts(cfg.Redis.DialTimeout, cfg.Redis.ReadTimeout, cfg.Redis.WriteTimeout),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}
	defer rdb.Close()

	c := build(cfg, db, rdb, logger)
	c.pool.Start()

	l, err := net.Listen("tcp", cfg.HTTPServer.Addr())
	if err != nil {
		return fmt.Errorf("%s: failed to listen: %w", op, err)
	}

	return serve(ctx, cfg, c, l, log)
}

// serve runs the server on l alongside the background loops until ctx is
// cancelled, then drains in-flight requests and the worker pool. Request
// contexts are detached from ctx so a shutdown signal does not cancel them.
func serve(ctx context.Context, cfg *config.Config, c *components, l net.Listener, log *slog.Logger) error {
	const op = "app.serve"

	baseCtx := context.WithoutCancel(ctx)

	server := &http.Server{
		Handler:        c.router,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return baseCtx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		log.Info("starting server", slog.String("addr", l.Addr().String()), slog.String("env", cfg.Env))

		switch cfg.Env {
		case config.EnvProd:
			err = server.ServeTLS(l, cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.Serve(l)
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		return c.redirectLimiter.Run(ctx, cfg.RateLimit.SweepInterval, log)
	})

	g.Go(func() error {
		return c.shortenLimiter.Run(ctx, cfg.RateLimit.SweepInterval, log)
	})

	g.Go(func() error {
		return c.cleaner.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()

		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		// In-flight cache writes and click records drain after the last request.
		if err := c.pool.Shutdown(shutdownCtx); err != nil {
			log.Warn("background tasks abandoned", slog.Any("err", err), slog.Int64("dropped", c.pool.Dropped()))
		}

		return nil
	})

	return g.Wait()
}
