package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/shortlink/internal/models"
	"github.com/vadimbarashkov/shortlink/internal/worker"
)

var (
	errUnknown    = errors.New("unknown error")
	discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

type MockURLRepository struct {
	mock.Mock
}

func (r *MockURLRepository) Create(ctx context.Context, shortCode, originalURL string) (*models.URL, error) {
	args := r.Called(ctx, shortCode, originalURL)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	args := r.Called(ctx, shortCode)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) GetByOriginalURL(ctx context.Context, originalURL string) (*models.URL, error) {
	args := r.Called(ctx, originalURL)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) List(ctx context.Context) ([]models.URL, error) {
	args := r.Called(ctx)
	urls, _ := args.Get(0).([]models.URL)
	return urls, args.Error(1)
}

func (r *MockURLRepository) Delete(ctx context.Context, shortCode string) (string, error) {
	args := r.Called(ctx, shortCode)
	return args.String(0), args.Error(1)
}

func (r *MockURLRepository) DeleteAll(ctx context.Context) (int64, error) {
	args := r.Called(ctx)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

func (r *MockURLRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	args := r.Called(ctx, cutoff)
	codes, _ := args.Get(0).([]string)
	return codes, args.Error(1)
}

type MockClickRepository struct {
	mock.Mock
}

func (r *MockClickRepository) Create(ctx context.Context, shortCode string) error {
	args := r.Called(ctx, shortCode)
	return args.Error(0)
}

func (r *MockClickRepository) DailyByShortCode(ctx context.Context, shortCode string) ([]models.DailyClicks, error) {
	args := r.Called(ctx, shortCode)
	daily, _ := args.Get(0).([]models.DailyClicks)
	return daily, args.Error(1)
}

func (r *MockClickRepository) Totals(ctx context.Context) (*models.Totals, error) {
	args := r.Called(ctx)
	totals, _ := args.Get(0).(*models.Totals)
	return totals, args.Error(1)
}

type MockURLCache struct {
	mock.Mock
}

func (c *MockURLCache) Get(ctx context.Context, shortCode string) (string, error) {
	args := c.Called(ctx, shortCode)
	return args.String(0), args.Error(1)
}

func (c *MockURLCache) Set(ctx context.Context, shortCode, originalURL string) error {
	args := c.Called(ctx, shortCode, originalURL)
	return args.Error(0)
}

func (c *MockURLCache) Delete(ctx context.Context, shortCodes ...string) error {
	args := c.Called(ctx, shortCodes)
	return args.Error(0)
}

func (c *MockURLCache) Flush(ctx context.Context) (int64, error) {
	args := c.Called(ctx)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

func (c *MockURLCache) GetTotals(ctx context.Context) (*models.Totals, error) {
	args := c.Called(ctx)
	totals, _ := args.Get(0).(*models.Totals)
	return totals, args.Error(1)
}

func (c *MockURLCache) SetTotals(ctx context.Context, totals *models.Totals) error {
	args := c.Called(ctx, totals)
	return args.Error(0)
}

// inlineDispatcher runs tasks synchronously so effects can be asserted right after the call.
type inlineDispatcher struct {
	mu    sync.Mutex
	names []string
	errs  []error
}

func (d *inlineDispatcher) Dispatch(name string, task worker.Task) bool {
	err := task(context.Background())

	d.mu.Lock()
	defer d.mu.Unlock()
	d.names = append(d.names, name)
	d.errs = append(d.errs, err)

	return true
}

func (d *inlineDispatcher) Dispatched() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.names...)
}

// droppingDispatcher rejects every task, like a saturated pool.
type droppingDispatcher struct{}

func (droppingDispatcher) Dispatch(string, worker.Task) bool { return false }
