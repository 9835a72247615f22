package models

import "time"

// URL is a mapping from a short code to the original URL it redirects to.
// Mappings are immutable once created.
type URL struct {
	// ShortCode is the primary key; a fixed-length string over [0-9a-zA-Z].
	ShortCode string
	// OriginalURL is an absolute http or https URL.
	OriginalURL string
	CreatedAt   time.Time
}

// Click is a single successful resolution of a short code.
type Click struct {
	ShortCode string
	ClickedAt time.Time
}

// DailyClicks is the number of clicks registered on one UTC calendar day.
type DailyClicks struct {
	Date  time.Time
	Count int64
}

// CodeStats aggregates the clicks of a single short code.
type CodeStats struct {
	ShortCode   string
	TotalClicks int64
	DailyClicks []DailyClicks
}

// Totals is a service-wide snapshot of stored mappings and clicks.
type Totals struct {
	TotalURLs   int64 `json:"total_urls"`
	TotalClicks int64 `json:"total_clicks"`
}
