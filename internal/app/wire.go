package app

import (
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	myhttp "github.com/vadimbarashkov/shortlink/internal/api/http"
	"github.com/vadimbarashkov/shortlink/internal/cache"
	"github.com/vadimbarashkov/shortlink/internal/config"
	"github.com/vadimbarashkov/shortlink/internal/database/postgres"
	"github.com/vadimbarashkov/shortlink/internal/ratelimit"
	"github.com/vadimbarashkov/shortlink/internal/service"
	"github.com/vadimbarashkov/shortlink/internal/worker"
)

type components struct {
	router          http.Handler
	pool            *worker.Pool
	redirectLimiter *ratelimit.Limiter
	shortenLimiter  *ratelimit.Limiter
	cleaner         *service.Cleaner
}

// build assembles everything that sits between the connections and the
// listener. The pool is returned unstarted.
func build(cfg *config.Config, db *sqlx.DB, rdb goredis.Cmdable, logger *httplog.Logger) *components {
	log := logger.Logger

	urlRepo := postgres.NewURLRepository(db)
	clickRepo := postgres.NewClickRepository(db)
	urlCache := cache.NewURLCache(rdb, cfg.Cache.URLTTL, cfg.Cache.StatsTTL)

	pool := worker.NewPool(log, cfg.Worker.Workers, cfg.Worker.QueueSize, cfg.Worker.TaskTimeout)

	svcs := myhttp.Services{
		Shorten: service.NewShortenService(log, urlRepo, urlCache, pool, service.ShortenConfig{
			CodeLength:   cfg.ShortCode.Length,
			MaxRetries:   cfg.ShortCode.MaxRetries,
			MaxURLLength: cfg.MaxURLLength,
		}),
		Redirect: service.NewRedirectService(log, urlRepo, clickRepo, urlCache, pool),
		Stats:    service.NewStatsService(log, urlRepo, clickRepo, urlCache),
		Admin:    service.NewAdminService(log, urlRepo, urlCache),
	}

	redirectLimiter := ratelimit.New(
		"redirect",
		cfg.RateLimit.Redirect.RequestsPerSecond,
		cfg.RateLimit.Redirect.Burst,
		cfg.RateLimit.IdleTimeout,
	)
	shortenLimiter := ratelimit.New(
		"shorten",
		cfg.RateLimit.Shorten.RequestsPerSecond,
		cfg.RateLimit.Shorten.Burst,
		cfg.RateLimit.IdleTimeout,
	)

	router := myhttp.NewRouter(logger, svcs, myhttp.Options{
		BaseURL:          cfg.BaseURL,
		AdminCredentials: cfg.Admin.Credentials(),
		RedirectLimiter:  redirectLimiter.Middleware,
		ShortenLimiter:   shortenLimiter.Middleware,
	})

	return &components{
		router:          router,
		pool:            pool,
		redirectLimiter: redirectLimiter,
		shortenLimiter:  shortenLimiter,
		cleaner:         service.NewCleaner(log, urlRepo, urlCache, cfg.Cleanup.MaxAge, cfg.Cleanup.Interval),
	}
}
