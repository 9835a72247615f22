package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/internal/database"
	"github.com/vadimbarashkov/shortlink/internal/models"
)

type urlRecord struct {
	ShortCode   string    `db:"short_code"`
	OriginalURL string    `db:"original_url"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r *urlRecord) ToURL() *models.URL {
	return &models.URL{
		ShortCode:   r.ShortCode,
		OriginalURL: r.OriginalURL,
		CreatedAt:   r.CreatedAt,
	}
}

// URLRepository stores short code mappings in the urls table.
type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{
		db: db,
	}
}

// Create inserts a new mapping. A taken short code yields database.ErrShortCodeExists
// and leaves the table untouched.
func (r *URLRepository) Create(ctx context.Context, shortCode, originalURL string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.Create"

	rec := new(urlRecord)
	query := `INSERT INTO urls(short_code, original_url)
		VALUES ($1, $2)
		RETURNING short_code, original_url, created_at`

	err := r.db.GetContext(ctx, rec, query, shortCode, originalURL)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to create url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByShortCode"

	rec := new(urlRecord)
	query := `SELECT short_code, original_url, created_at
		FROM urls
		WHERE short_code = $1`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// GetByOriginalURL returns the oldest mapping for an exact url match.
func (r *URLRepository) GetByOriginalURL(ctx context.Context, originalURL string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByOriginalURL"

	rec := new(urlRecord)
	query := `SELECT short_code, original_url, created_at
		FROM urls
		WHERE original_url = $1
		ORDER BY created_at
		LIMIT 1`

	err := r.db.GetContext(ctx, rec, query, originalURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// List returns every mapping, oldest first. It is intentionally unpaginated.
func (r *URLRepository) List(ctx context.Context) ([]models.URL, error) {
	const op = "database.postgres.URLRepository.List"

	var recs []urlRecord
	query := `SELECT short_code, original_url, created_at
		FROM urls
		ORDER BY created_at, short_code`

	if err := r.db.SelectContext(ctx, &recs, query); err != nil {
		return nil, fmt.Errorf("%s: failed to list url records: %w", op, err)
	}

	urls := make([]models.URL, 0, len(recs))
	for i := range recs {
		urls = append(urls, *recs[i].ToURL())
	}

	return urls, nil
}

// Delete removes a mapping together with its clicks and returns the url it pointed to.
func (r *URLRepository) Delete(ctx context.Context, shortCode string) (string, error) {
	const op = "database.postgres.URLRepository.Delete"

	var originalURL string
	query := `DELETE FROM urls
		WHERE short_code = $1
		RETURNING original_url`

	err := r.db.GetContext(ctx, &originalURL, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return "", fmt.Errorf("%s: failed to delete url record: %w", op, err)
	}

	return originalURL, nil
}

func (r *URLRepository) DeleteAll(ctx context.Context) (int64, error) {
	const op = "database.postgres.URLRepository.DeleteAll"

	res, err := r.db.ExecContext(ctx, `DELETE FROM urls`)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to delete url records: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}

	return n, nil
}

// DeleteCreatedBefore removes mappings older than cutoff and returns their short codes.
func (r *URLRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	const op = "database.postgres.URLRepository.DeleteCreatedBefore"

	var codes []string
	query := `DELETE FROM urls
		WHERE created_at < $1
		RETURNING short_code`

	if err := r.db.SelectContext(ctx, &codes, query, cutoff); err != nil {
		return nil, fmt.Errorf("%s: failed to delete stale url records: %w", op, err)
	}

	return codes, nil
}
