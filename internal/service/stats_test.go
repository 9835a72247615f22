package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/shortlink/internal/cache"
	"github.com/vadimbarashkov/shortlink/internal/database"
	"github.com/vadimbarashkov/shortlink/internal/models"
)

func setupStatsService(t *testing.T) (*StatsService, *MockURLRepository, *MockClickRepository, *MockURLCache) {
	t.Helper()

	repo := new(MockURLRepository)
	clicks := new(MockClickRepository)
	c := new(MockURLCache)

	t.Cleanup(func() {
		repo.AssertExpectations(t)
		clicks.AssertExpectations(t)
		c.AssertExpectations(t)
	})

	return NewStatsService(discardLogger, repo, clicks, c), repo, clicks, c
}

func TestStatsService_CodeStats(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		svc, repo, clicks, _ := setupStatsService(t)

		repo.On("GetByShortCode", mock.Anything, "bogus1").Once().Return(nil, database.ErrURLNotFound)

		stats, err := svc.CodeStats(context.TODO(), "bogus1")

		assert.ErrorIs(t, err, database.ErrURLNotFound)
		assert.Nil(t, stats)
		clicks.AssertNotCalled(t, "DailyByShortCode", mock.Anything, mock.Anything)
	})

	t.Run("aggregation failure", func(t *testing.T) {
		svc, repo, clicks, _ := setupStatsService(t)

		repo.On("GetByShortCode", mock.Anything, "aZ3kT9").Once().Return(&models.URL{ShortCode: "aZ3kT9"}, nil)
		clicks.On("DailyByShortCode", mock.Anything, "aZ3kT9").Once().Return(nil, errUnknown)

		stats, err := svc.CodeStats(context.TODO(), "aZ3kT9")

		assert.ErrorIs(t, err, ErrStorage)
		assert.Nil(t, stats)
	})

	t.Run("success", func(t *testing.T) {
		svc, repo, clicks, _ := setupStatsService(t)

		daily := []models.DailyClicks{
			{Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Count: 4},
			{Date: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), Count: 3},
		}
		repo.On("GetByShortCode", mock.Anything, "aZ3kT9").Once().Return(&models.URL{ShortCode: "aZ3kT9"}, nil)
		clicks.On("DailyByShortCode", mock.Anything, "aZ3kT9").Once().Return(daily, nil)

		stats, err := svc.CodeStats(context.TODO(), "aZ3kT9")

		assert.NoError(t, err)
		assert.Equal(t, &models.CodeStats{
			ShortCode:   "aZ3kT9",
			TotalClicks: 7,
			DailyClicks: daily,
		}, stats)
	})
}

func TestStatsService_Totals(t *testing.T) {
	totals := &models.Totals{TotalURLs: 2, TotalClicks: 9}

	t.Run("cached snapshot", func(t *testing.T) {
		svc, _, clicks, c := setupStatsService(t)

		c.On("GetTotals", mock.Anything).Once().Return(totals, nil)

		got, err := svc.Totals(context.TODO())

		assert.NoError(t, err)
		assert.Equal(t, totals, got)
		clicks.AssertNotCalled(t, "Totals", mock.Anything)
	})

	t.Run("miss computes and caches", func(t *testing.T) {
		svc, _, clicks, c := setupStatsService(t)

		c.On("GetTotals", mock.Anything).Once().Return(nil, cache.ErrCacheMiss)
		clicks.On("Totals", mock.Anything).Once().Return(totals, nil)
		c.On("SetTotals", mock.Anything, totals).Once().Return(errUnknown)

		got, err := svc.Totals(context.TODO())

		assert.NoError(t, err)
		assert.Equal(t, totals, got)
	})

	t.Run("store failure", func(t *testing.T) {
		svc, _, clicks, c := setupStatsService(t)

		c.On("GetTotals", mock.Anything).Once().Return(nil, errUnknown)
		clicks.On("Totals", mock.Anything).Once().Return(nil, errUnknown)

		got, err := svc.Totals(context.TODO())

		assert.ErrorIs(t, err, ErrStorage)
		assert.Nil(t, got)
	})
}
