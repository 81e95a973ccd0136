// Package textsearch normalises free text for case-insensitive matching in SQL.
package textsearch

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Key returns the comparison form of s: trimmed, NFC-composed and Unicode case-folded.
// SQLite's LIKE only folds ASCII, so stored keys and query terms both go through Key.
func Key(s string) string {
	composed := norm.NFC.String(strings.TrimSpace(s))
	// Casers keep state between calls and are not safe for concurrent use.
	return cases.Fold().String(composed)
}
