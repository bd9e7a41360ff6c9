package feed

import (
	"context"
	"net/url"
	"strings"
)

// GoogleNews queries the Google News search feed.
type GoogleNews struct {
	fetcher *Fetcher
}

func NewGoogleNews(f *Fetcher) *GoogleNews {
	return &GoogleNews{fetcher: f}
}

func (p *GoogleNews) Name() string { return "google-news" }

func (p *GoogleNews) Fetch(ctx context.Context, q Query) ([]Candidate, error) {
	parsed, err := p.fetcher.FetchFeed(ctx, buildGoogleNewsURL(q.Text, q.Language, q.Country))
	if err != nil {
		return nil, err
	}
	return entriesToCandidates(parsed, q), nil
}

// buildGoogleNewsURL builds the search feed URL. Simple queries are wrapped
// in quotes to protect the actor name; queries that already carry operators
// (quotes, OR, site:, parens) are passed through untouched.
func buildGoogleNewsURL(query, lang, country string) string {
	q := strings.TrimSpace(query)
	if !hasQueryOperators(q) {
		q = `"` + q + `"`
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("hl", lang)
	params.Set("gl", country)
	params.Set("ceid", country+":"+lang)
	return "https://news.google.com/rss/search?" + params.Encode()
}

func hasQueryOperators(q string) bool {
	for _, op := range []string{`"`, " OR ", "site:", "(", ")"} {
		if strings.Contains(q, op) {
			return true
		}
	}
	return false
}
