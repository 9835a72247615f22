package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/internal/database"
	"github.com/vadimbarashkov/shortlink/internal/models"
)

type dailyClicksRecord struct {
	Day   time.Time `db:"day"`
	Count int64     `db:"count"`
}

type totalsRecord struct {
	TotalURLs   int64 `db:"total_urls"`
	TotalClicks int64 `db:"total_clicks"`
}

// ClickRepository appends click events and aggregates them.
type ClickRepository struct {
	db *sqlx.DB
}

func NewClickRepository(db *sqlx.DB) *ClickRepository {
	return &ClickRepository{
		db: db,
	}
}

// Create records one click. A mapping deleted in the meantime yields database.ErrURLNotFound.
func (r *ClickRepository) Create(ctx context.Context, shortCode string) error {
	const op = "database.postgres.ClickRepository.Create"

	query := `INSERT INTO clicks(short_code) VALUES ($1)`

	if _, err := r.db.ExecContext(ctx, query, shortCode); err != nil {
		if isForeignKeyViolationError(err) {
			return fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return fmt.Errorf("%s: failed to create click record: %w", op, err)
	}

	return nil
}

// DailyByShortCode returns click counts per UTC day, oldest day first.
func (r *ClickRepository) DailyByShortCode(ctx context.Context, shortCode string) ([]models.DailyClicks, error) {
	const op = "database.postgres.ClickRepository.DailyByShortCode"

	var recs []dailyClicksRecord
	query := `SELECT (clicked_at AT TIME ZONE 'UTC')::date AS day, COUNT(*) AS count
		FROM clicks
		WHERE short_code = $1
		GROUP BY day
		ORDER BY day`

	if err := r.db.SelectContext(ctx, &recs, query, shortCode); err != nil {
		return nil, fmt.Errorf("%s: failed to aggregate click records: %w", op, err)
	}

	daily := make([]models.DailyClicks, 0, len(recs))
	for _, rec := range recs {
		daily = append(daily, models.DailyClicks{
			Date:  rec.Day.UTC(),
			Count: rec.Count,
		})
	}

	return daily, nil
}

func (r *ClickRepository) Totals(ctx context.Context) (*models.Totals, error) {
	const op = "database.postgres.ClickRepository.Totals"

	rec := new(totalsRecord)
	query := `SELECT
		(SELECT COUNT(*) FROM urls) AS total_urls,
		(SELECT COUNT(*) FROM clicks) AS total_clicks`

	if err := r.db.GetContext(ctx, rec, query); err != nil {
		return nil, fmt.Errorf("%s: failed to count records: %w", op, err)
	}

	return &models.Totals{
		TotalURLs:   rec.TotalURLs,
		TotalClicks: rec.TotalClicks,
	}, nil
}
