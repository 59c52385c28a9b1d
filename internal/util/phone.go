// Package util provides phone number canonicalization for conversation identity.
package util

import (
	"strings"

	"github.com/andressabgomes/centralflow-sub000/internal/models"
)

// Phone digit count bounds after stripping formatting (E.164 without plus).
const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

// CanonicalPhone normalizes a phone number to canonical international form:
// a leading plus followed by digits only. Punctuation, spaces and channel
// prefixes such as "whatsapp:" are stripped. The canonical form is the
// conversation identity key, so every entry point must use this.
func CanonicalPhone(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "whatsapp:")
	if s == "" {
		return "", models.ErrEmptyPhoneNumber
	}

	digits := DigitsOnly(s)
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return "", models.ErrInvalidPhoneNumber
	}
	return "+" + digits, nil
}

// DigitsOnly strips every non-digit character from s.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
