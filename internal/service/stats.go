package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vadimbarashkov/shortlink/internal/cache"
	"github.com/vadimbarashkov/shortlink/internal/database"
	"github.com/vadimbarashkov/shortlink/internal/models"
)

type StatsService struct {
	logger *slog.Logger
	repo   URLRepository
	clicks ClickRepository
	cache  TotalsCache
}

func NewStatsService(logger *slog.Logger, repo URLRepository, clicks ClickRepository, cache TotalsCache) *StatsService {
	return &StatsService{
		logger: logger,
		repo:   repo,
		clicks: clicks,
		cache:  cache,
	}
}

// CodeStats returns the total and per-day clicks of shortCode.
func (s *StatsService) CodeStats(ctx context.Context, shortCode string) (*models.CodeStats, error) {
	const op = "service.StatsService.CodeStats"

	if _, err := s.repo.GetByShortCode(ctx, shortCode); err != nil {
		if errors.Is(err, database.ErrURLNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return nil, fmt.Errorf("%s: failed to get url: %w: %w", op, ErrStorage, err)
	}

	daily, err := s.clicks.DailyByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to aggregate clicks: %w: %w", op, ErrStorage, err)
	}

	stats := &models.CodeStats{
		ShortCode:   shortCode,
		DailyClicks: daily,
	}
	for _, d := range daily {
		stats.TotalClicks += d.Count
	}

	return stats, nil
}

// Totals serves the cached snapshot when present, otherwise counts and caches.
func (s *StatsService) Totals(ctx context.Context) (*models.Totals, error) {
	const op = "service.StatsService.Totals"

	totals, err := s.cache.GetTotals(ctx)
	if err == nil {
		return totals, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Debug("totals snapshot unavailable", slog.String("op", op), slog.Any("err", err))
	}

	totals, err = s.clicks.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to count: %w: %w", op, ErrStorage, err)
	}

	if err := s.cache.SetTotals(ctx, totals); err != nil {
		s.logger.Debug("totals snapshot not stored", slog.String("op", op), slog.Any("err", err))
	}

	return totals, nil
}
