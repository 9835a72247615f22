package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/vadimbarashkov/shortlink/internal/codegen"
	"github.com/vadimbarashkov/shortlink/internal/database"
	"github.com/vadimbarashkov/shortlink/internal/models"
)

type ShortenConfig struct {
	CodeLength   int
	MaxRetries   int
	MaxURLLength int
}

// ShortenService turns urls into short codes. Repeated submissions of the
// same url return the existing code.
type ShortenService struct {
	logger     *slog.Logger
	repo       URLRepository
	cache      URLCache
	dispatcher Dispatcher
	cfg        ShortenConfig
	generate   func(length int) string
}

func NewShortenService(
	logger *slog.Logger,
	repo URLRepository,
	cache URLCache,
	dispatcher Dispatcher,
	cfg ShortenConfig,
) *ShortenService {
	return &ShortenService{
		logger:     logger,
		repo:       repo,
		cache:      cache,
		dispatcher: dispatcher,
		cfg:        cfg,
		generate:   codegen.Generate,
	}
}

// ValidateURL accepts absolute http and https urls with a host, no longer than maxLen bytes.
func ValidateURL(raw string, maxLen int) error {
	if raw == "" {
		return fmt.Errorf("%w: url is empty", ErrInvalidURL)
	}
	if len(raw) > maxLen {
		return fmt.Errorf("%w: url is longer than %d characters", ErrInvalidURL, maxLen)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidURL, err.Error())
	}
	if !u.IsAbs() {
		return fmt.Errorf("%w: url must be absolute", ErrInvalidURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q is not allowed", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url has no host", ErrInvalidURL)
	}

	return nil
}

// Shorten returns the mapping for originalURL and whether it was created by this call.
// Validation failures wrap ErrInvalidURL and are safe to show to clients.
func (s *ShortenService) Shorten(ctx context.Context, originalURL string) (*models.URL, bool, error) {
	const op = "service.ShortenService.Shorten"

	// Returned unwrapped: the message is shown to clients as is.
	if err := ValidateURL(originalURL, s.cfg.MaxURLLength); err != nil {
		return nil, false, err
	}

	existing, err := s.repo.GetByOriginalURL(ctx, originalURL)
	switch {
	case err == nil:
		s.populateCache(existing.ShortCode, existing.OriginalURL)
		return existing, false, nil
	case !errors.Is(err, database.ErrURLNotFound):
		return nil, false, fmt.Errorf("%s: failed to look up url: %w: %w", op, ErrStorage, err)
	}

	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		shortCode := s.generate(s.cfg.CodeLength)

		created, err := s.repo.Create(ctx, shortCode, originalURL)
		if err != nil {
			if errors.Is(err, database.ErrShortCodeExists) {
				s.logger.Warn("short code collision",
					slog.String("op", op),
					slog.String("short_code", shortCode),
					slog.Int("attempt", attempt),
				)
				continue
			}

			return nil, false, fmt.Errorf("%s: failed to store url: %w: %w", op, ErrStorage, err)
		}

		s.populateCache(created.ShortCode, created.OriginalURL)
		return created, true, nil
	}

	return nil, false, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

func (s *ShortenService) populateCache(shortCode, originalURL string) {
	s.dispatcher.Dispatch("cache.set", func(ctx context.Context) error {
		if err := s.cache.Set(ctx, shortCode, originalURL); err != nil {
			s.logger.Debug("cache population failed", slog.String("short_code", shortCode), slog.Any("err", err))
		}
		return nil
	})
}
