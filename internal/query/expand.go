package query

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ExpandAliases returns the entity name plus an accent-stripped variant when
// it differs, followed by any extra aliases treated the same way. Order is
// preserved and duplicates (case-insensitive) are removed. The site backfill
// adapter queries once per alias.
func ExpandAliases(entity string, extraAliases []string) []string {
	var base []string
	if a := strings.TrimSpace(entity); a != "" {
		base = append(base, a)
		if n := stripAccents(a); !strings.EqualFold(n, a) {
			base = append(base, n)
		}
	}

	for _, alias := range extraAliases {
		a := strings.TrimSpace(alias)
		if a == "" {
			continue
		}
		base = append(base, a)
		if n := stripAccents(a); !strings.EqualFold(n, a) {
			base = append(base, n)
		}
	}

	seen := make(map[string]bool)
	out := make([]string, 0, len(base))
	for _, a := range base {
		k := strings.ToLower(a)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, a)
	}
	return out
}

func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
