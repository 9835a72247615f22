package database

import "errors"

var (
	// ErrShortCodeExists is returned when an insert hits the primary key
	// on short_code. Callers are expected to retry with a fresh code.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrURLNotFound is returned when no mapping exists for a short code
	// or url, including when a click references a mapping deleted meanwhile.
	ErrURLNotFound = errors.New("url not found")
)
