// Package codegen produces random short codes.
package codegen

import (
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the set of symbols a short code is drawn from.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// MaxLength bounds what IsValid accepts, independently of the configured
// generation length, so codes survive a length change.
const MaxLength = 32

// reserved are the top-level route segments a code would be shadowed by.
var reserved = map[string]struct{}{
	"admin":   {},
	"ping":    {},
	"shorten": {},
	"stats":   {},
}

// IsReserved reports whether s collides with a fixed route.
func IsReserved(s string) bool {
	_, ok := reserved[s]
	return ok
}

// Generate returns length symbols drawn independently and uniformly from
// Alphabet using a cryptographic source, redrawing reserved words. It panics
// if length is not positive.
func Generate(length int) string {
	return generate(Alphabet, length)
}

func generate(alphabet string, length int) string {
	for {
		code := gonanoid.MustGenerate(alphabet, length)
		if !IsReserved(code) {
			return code
		}
	}
}

// IsValid reports whether s could have been produced by Generate.
func IsValid(s string) bool {
	if s == "" || len(s) > MaxLength || IsReserved(s) {
		return false
	}

	for _, r := range s {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}

	return true
}
