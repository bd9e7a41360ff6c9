package feed

import (
	"context"
	"net/url"
	"strings"
)

// BingNews queries the Bing News search feed. Bing ignores the language and
// country hints but is a useful second opinion for recall.
type BingNews struct {
	fetcher *Fetcher
}

func NewBingNews(f *Fetcher) *BingNews {
	return &BingNews{fetcher: f}
}

func (p *BingNews) Name() string { return "bing-news" }

func (p *BingNews) Fetch(ctx context.Context, q Query) ([]Candidate, error) {
	params := url.Values{}
	params.Set("q", strings.TrimSpace(q.Text))
	params.Set("format", "rss")

	parsed, err := p.fetcher.FetchFeed(ctx, "https://www.bing.com/news/search?"+params.Encode())
	if err != nil {
		return nil, err
	}
	return entriesToCandidates(parsed, q), nil
}
