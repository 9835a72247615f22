package service

import (
	"context"
	"errors"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/models"
	"github.com/vadimbarashkov/shortlink/internal/worker"
)

var (
	// ErrInvalidURL is returned when a url cannot be shortened. The wrapping
	// error message carries the reason.
	ErrInvalidURL = errors.New("invalid url")
	// ErrMaxRetriesExceeded is returned when the maximum number of retries for generating a short code is exceeded.
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")
	// ErrStorage is returned when the durable store fails. It is distinct
	// from database.ErrURLNotFound so callers can tell outages from misses.
	ErrStorage = errors.New("storage failure")
)

// URLRepository is the durable store of short code mappings.
type URLRepository interface {
	// Create inserts a mapping, failing with database.ErrShortCodeExists on a taken code.
	Create(ctx context.Context, shortCode, originalURL string) (*models.URL, error)

	// GetByShortCode fails with database.ErrURLNotFound when the code is unknown.
	GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error)

	// GetByOriginalURL fails with database.ErrURLNotFound when the url was never shortened.
	GetByOriginalURL(ctx context.Context, originalURL string) (*models.URL, error)

	List(ctx context.Context) ([]models.URL, error)

	// Delete returns the url the removed code pointed to.
	Delete(ctx context.Context, shortCode string) (string, error)

	DeleteAll(ctx context.Context) (int64, error)

	// DeleteCreatedBefore returns the codes it removed.
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

// ClickRepository is the append-only click log.
type ClickRepository interface {
	Create(ctx context.Context, shortCode string) error
	DailyByShortCode(ctx context.Context, shortCode string) ([]models.DailyClicks, error)
	Totals(ctx context.Context) (*models.Totals, error)
}

// URLCache mirrors mappings with a TTL. Misses are reported as cache.ErrCacheMiss.
type URLCache interface {
	Get(ctx context.Context, shortCode string) (string, error)
	Set(ctx context.Context, shortCode, originalURL string) error
	Delete(ctx context.Context, shortCodes ...string) error
	Flush(ctx context.Context) (int64, error)
}

// TotalsCache holds a short-lived snapshot of service-wide counts.
type TotalsCache interface {
	GetTotals(ctx context.Context) (*models.Totals, error)
	SetTotals(ctx context.Context, totals *models.Totals) error
}

// Dispatcher runs fire-and-forget work. Dispatch must not block; a rejected
// task is simply lost.
type Dispatcher interface {
	Dispatch(name string, task worker.Task) bool
}
