package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vadimbarashkov/shortlink/internal/cache"
	"github.com/vadimbarashkov/shortlink/internal/codegen"
	"github.com/vadimbarashkov/shortlink/internal/database"
)

// RedirectService resolves short codes, cache first.
type RedirectService struct {
	logger     *slog.Logger
	repo       URLRepository
	clicks     ClickRepository
	cache      URLCache
	dispatcher Dispatcher
}

func NewRedirectService(
	logger *slog.Logger,
	repo URLRepository,
	clicks ClickRepository,
	cache URLCache,
	dispatcher Dispatcher,
) *RedirectService {
	return &RedirectService{
		logger:     logger,
		repo:       repo,
		clicks:     clicks,
		cache:      cache,
		dispatcher: dispatcher,
	}
}

// Resolve returns the url behind shortCode. Unknown codes fail with
// database.ErrURLNotFound and store outages with ErrStorage. A successful
// resolution records a click in the background.
func (s *RedirectService) Resolve(ctx context.Context, shortCode string) (string, error) {
	const op = "service.RedirectService.Resolve"

	if !codegen.IsValid(shortCode) {
		return "", fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	cached, err := s.cache.Get(ctx, shortCode)
	if err == nil {
		s.recordClick(shortCode)
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Debug("cache unavailable, falling back to store",
			slog.String("op", op),
			slog.String("short_code", shortCode),
			slog.Any("err", err),
		)
	}

	url, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, database.ErrURLNotFound) {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		return "", fmt.Errorf("%s: failed to resolve short code: %w: %w", op, ErrStorage, err)
	}

	s.dispatcher.Dispatch("cache.set", func(ctx context.Context) error {
		if err := s.cache.Set(ctx, url.ShortCode, url.OriginalURL); err != nil {
			s.logger.Debug("cache population failed", slog.String("short_code", url.ShortCode), slog.Any("err", err))
		}
		return nil
	})
	s.recordClick(shortCode)

	return url.OriginalURL, nil
}

func (s *RedirectService) recordClick(shortCode string) {
	s.dispatcher.Dispatch("click.record", func(ctx context.Context) error {
		return s.clicks.Create(ctx, shortCode)
	})
}
