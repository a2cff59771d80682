// Package models defines the DevDox resources shown on the dashboard.
package models

import "strings"

const (
	// DefaultLimit is the page size used when none is given.
	DefaultLimit = 20
	// DefaultOffset is the starting offset used when none is given.
	DefaultOffset = 0
)

// Page selects a window of a list endpoint.
type Page struct {
	Limit  int
	Offset int
}

// DefaultPage returns limit 20, offset 0.
func DefaultPage() Page {
	return Page{Limit: DefaultLimit, Offset: DefaultOffset}
}

// Normalize replaces out-of-range values with the defaults.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Offset < 0 {
		p.Offset = DefaultOffset
	}
	return p
}

const (
	maskVisible = 4
	maskRune    = '*'
)

// MaskToken keeps the first and last four characters of a secret and replaces
// the rest with asterisks. Secrets of eight characters or fewer are fully masked.
func MaskToken(token string) string {
	runes := []rune(token)
	n := len(runes)
	if n <= 2*maskVisible {
		return strings.Repeat(string(maskRune), n)
	}

	var b strings.Builder
	b.Grow(n)
	b.WriteString(string(runes[:maskVisible]))
	b.WriteString(strings.Repeat(string(maskRune), n-2*maskVisible))
	b.WriteString(string(runes[n-maskVisible:]))
	return b.String()
}
