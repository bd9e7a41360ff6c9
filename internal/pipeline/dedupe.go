package pipeline

import (
	"strings"

	"github.com/bbxlabs/mirador/internal/feed"
)

// Dedupe canonicalizes and collapses candidates to one entry per canonical
// URL. First seen wins, so an item collected by a precise tier is never
// overwritten by a later duplicate from a broader one. Candidates with an
// empty title or URL after canonicalization are dropped. Pure and
// order-preserving.
func Dedupe(items []feed.Candidate) []feed.Candidate {
	seen := make(map[string]bool, len(items))
	out := make([]feed.Candidate, 0, len(items))

	for _, it := range items {
		title := strings.TrimSpace(it.Title)
		link := feed.CanonicalLink(it.URL)
		if title == "" || link == "" {
			continue
		}
		if seen[link] {
			continue
		}
		seen[link] = true
		it.Title = title
		it.URL = link
		out = append(out, it)
	}

	return out
}
