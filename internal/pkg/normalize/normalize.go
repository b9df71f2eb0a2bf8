// Package normalize canonicalizes student-supplied identifiers so that
// equivalent identifiers collide regardless of input formatting.
package normalize

import (
	"strings"
	"unicode"
)

// ExternalID trims leading and trailing whitespace, removes all interior
// whitespace and uppercases the identifier. Empty input is returned unchanged.
// The same transform must be applied on every write and every comparison path.
func ExternalID(raw string) string {
	if raw == "" {
		return raw
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
