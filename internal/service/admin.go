package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vadimbarashkov/shortlink/internal/database"
	"github.com/vadimbarashkov/shortlink/internal/models"
)

// AdminService manages mappings in bulk. Deletions invalidate the cache
// synchronously; a failed invalidation is logged and the entry expires on its TTL.
type AdminService struct {
	logger *slog.Logger
	repo   URLRepository
	cache  URLCache
}

func NewAdminService(logger *slog.Logger, repo URLRepository, cache URLCache) *AdminService {
	return &AdminService{
		logger: logger,
		repo:   repo,
		cache:  cache,
	}
}

func (s *AdminService) List(ctx context.Context) ([]models.URL, error) {
	const op = "service.AdminService.List"

	urls, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list urls: %w: %w", op, ErrStorage, err)
	}

	return urls, nil
}

// Delete removes shortCode and returns the url it pointed to.
func (s *AdminService) Delete(ctx context.Context, shortCode string) (string, error) {
	const op = "service.AdminService.Delete"

	url, err := s.repo.Delete(ctx, shortCode)
	if err != nil {
		if errors.Is(err, database.ErrURLNotFound) {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		return "", fmt.Errorf("%s: failed to delete url: %w: %w", op, ErrStorage, err)
	}

	if err := s.cache.Delete(ctx, shortCode); err != nil {
		s.logger.Warn("cache invalidation failed, entry will expire on ttl",
			slog.String("op", op),
			slog.String("short_code", shortCode),
			slog.Any("err", err),
		)
	}

	return url, nil
}

// DeleteAll removes every mapping and flushes the cache namespace.
func (s *AdminService) DeleteAll(ctx context.Context) (int64, error) {
	const op = "service.AdminService.DeleteAll"

	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to delete urls: %w: %w", op, ErrStorage, err)
	}

	if _, err := s.cache.Flush(ctx); err != nil {
		s.logger.Warn("cache flush failed, entries will expire on ttl",
			slog.String("op", op),
			slog.Any("err", err),
		)
	}

	return n, nil
}
