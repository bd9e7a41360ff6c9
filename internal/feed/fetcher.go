package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/bbxlabs/mirador/internal/cache"
	"github.com/bbxlabs/mirador/internal/metrics"
	"github.com/bbxlabs/mirador/internal/retry"
)

// Some feed endpoints serve bots an empty or degraded response, so fetches
// present ordinary browser headers.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127 Safari/537.36"

// Fetcher downloads and parses one RSS URL, with an optional response cache
// so that repeating a query inside the cache window does not hit the
// provider again.
type Fetcher struct {
	client   *http.Client
	cache    *cache.Cache[*gofeed.Feed]
	cacheTTL time.Duration
	retryCfg retry.Config
}

// NewFetcher builds a fetcher with the given per-request timeout. The cache
// may be nil to disable response caching.
func NewFetcher(timeout time.Duration, c *cache.Cache[*gofeed.Feed], cacheTTL time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		cache:    c,
		cacheTTL: cacheTTL,
		retryCfg: retry.Config{MaxAttempts: 1},
	}
}

// SetRetry enables retrying failed fetches with a linear backoff.
func (f *Fetcher) SetRetry(attempts int, delay time.Duration) {
	if attempts < 1 {
		attempts = 1
	}
	f.retryCfg = retry.Config{MaxAttempts: attempts, Delay: delay, Backoff: true}
}

// FetchFeed retrieves and parses the feed at rawURL.
func (f *Fetcher) FetchFeed(ctx context.Context, rawURL string) (*gofeed.Feed, error) {
	if f.cache != nil {
		if v, ok := f.cache.Get(rawURL); ok {
			return v, nil
		}
	}

	var parsed *gofeed.Feed
	err := retry.WithRetry(ctx, f.retryCfg, func() error {
		var fetchErr error
		parsed, fetchErr = f.fetchOnce(ctx, rawURL)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	if f.cache != nil && f.cacheTTL > 0 {
		f.cache.Set(rawURL, parsed, f.cacheTTL)
	}
	return parsed, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, */*;q=0.8")
	req.Header.Set("Cache-Control", "no-cache")

	metrics.Global.IncrementProviderFetches()

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.Global.IncrementProviderErrors()
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.Global.IncrementProviderErrors()
		return nil, fmt.Errorf("fetch feed: status %d", resp.StatusCode)
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		metrics.Global.IncrementProviderErrors()
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return parsed, nil
}

// entriesToCandidates converts parsed feed items, applying the since cutoff
// and the per-query result cap. Items without a publish timestamp are kept:
// they cannot be proven stale.
func entriesToCandidates(parsed *gofeed.Feed, q Query) []Candidate {
	out := make([]Candidate, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if q.MaxResults > 0 && len(out) >= q.MaxResults {
			break
		}
		if item.PublishedParsed != nil && !q.Since.IsZero() && item.PublishedParsed.Before(q.Since) {
			continue
		}
		title := strings.TrimSpace(item.Title)
		link := CanonicalLink(item.Link)
		if title == "" || link == "" {
			continue
		}
		out = append(out, Candidate{
			Title:       title,
			URL:         link,
			PublishedAt: item.PublishedParsed,
			Source:      sourceFromLink(link),
			Snippet:     strings.TrimSpace(item.Description),
		})
	}
	return out
}
