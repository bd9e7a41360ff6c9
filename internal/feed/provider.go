// Package feed implements the stateless provider adapters that turn one
// search string into a normalized candidate list, one adapter per open feed
// source.
package feed

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// Candidate is an unvalidated, possibly duplicate feed entry prior to
// normalization and persistence.
type Candidate struct {
	Title       string
	URL         string
	PublishedAt *time.Time
	Source      string
	Snippet     string
}

// Query is a single provider request.
type Query struct {
	Text       string
	Language   string
	Country    string
	Since      time.Time
	MaxResults int
}

// Provider fetches candidates for one query string. Implementations never
// panic past their boundary: network, parse and timeout failures come back
// as an error value and the caller treats them as zero candidates.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]Candidate, error)
}

// CanonicalLink strips the aggregator redirect wrapper: when the link's host
// is the aggregator's own redirect host, the real destination sits in its
// "url" query parameter. Any other link passes through trimmed.
func CanonicalLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	if strings.HasSuffix(u.Hostname(), "news.google.com") {
		if dest := u.Query().Get("url"); dest != "" {
			return dest
		}
	}
	return link
}

// sourceFromLink derives a display source from the link's host.
func sourceFromLink(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
