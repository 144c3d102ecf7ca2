package core

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText returns s trimmed and in NFC canonical form. Applied to
// user-entered text (finding content, task titles, tags) before storage so
// equal-looking strings compare equal.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// NormalizeTag lowercases and normalizes a tag.
func NormalizeTag(s string) string {
	return strings.ToLower(NormalizeText(s))
}
