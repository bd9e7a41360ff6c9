package pipeline

import (
	"sort"
	"strings"

	"github.com/bbxlabs/mirador/internal/feed"
)

// Score is the deterministic relevance score for one candidate. Entity
// mentions dominate locality mentions: the tracked entity is the subject of
// monitoring, locality only a qualifier.
//
//	entity token in title  +5, else in snippet +3
//	locality hint in title +2, else in snippet +1
//
// Recency carries no score; it only breaks ties in the sort.
func Score(c feed.Candidate, entityTokens, localityHints []string) float64 {
	title := strings.ToLower(c.Title)
	snippet := strings.ToLower(c.Snippet)

	var s float64
	if anyContains(title, entityTokens) {
		s += 5
	} else if anyContains(snippet, entityTokens) {
		s += 3
	}
	if anyContains(title, localityHints) {
		s += 2
	} else if anyContains(snippet, localityHints) {
		s += 1
	}
	return s
}

// Rank sorts candidates stably by descending score. On equal scores, items
// with a known publish timestamp sort before undated ones, newest first.
func Rank(items []feed.Candidate, entityTokens, localityHints []string) []feed.Candidate {
	type scored struct {
		c feed.Candidate
		s float64
	}
	ranked := make([]scored, len(items))
	for i, it := range items {
		ranked[i] = scored{c: it, s: Score(it, entityTokens, localityHints)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].s != ranked[j].s {
			return ranked[i].s > ranked[j].s
		}
		ti, tj := ranked[i].c.PublishedAt, ranked[j].c.PublishedAt
		switch {
		case ti != nil && tj != nil:
			return ti.After(*tj)
		case ti != nil:
			return true
		default:
			return false
		}
	})

	out := make([]feed.Candidate, len(ranked))
	for i, r := range ranked {
		out[i] = r.c
	}
	return out
}

func anyContains(text string, needles []string) bool {
	for _, n := range needles {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" && strings.Contains(text, n) {
			return true
		}
	}
	return false
}
