package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbxlabs/mirador/internal/cache"
)

const rssTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>test feed</title>
%s
</channel></rss>`

func rssItem(title, link, pubDate string) string {
	s := "<item><title>" + title + "</title><link>" + link + "</link>"
	if pubDate != "" {
		s += "<pubDate>" + pubDate + "</pubDate>"
	}
	return s + "<description>desc</description></item>"
}

func TestFetchFeedParsesAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		fmt.Fprintf(w, rssTemplate, rssItem("Nota uno", "https://example.com/1", time.Now().Format(time.RFC1123Z)))
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, cache.New[*gofeed.Feed](), time.Minute)

	for i := 0; i < 3; i++ {
		parsed, err := f.FetchFeed(context.Background(), srv.URL)
		require.NoError(t, err)
		require.Len(t, parsed.Items, 1)
		assert.Equal(t, "Nota uno", parsed.Items[0].Title)
	}
	assert.Equal(t, int32(1), hits.Load(), "repeat fetches inside the TTL must hit the cache")
}

func TestFetchFeedErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, nil, 0)
	_, err := f.FetchFeed(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestFetchFeedRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprintf(w, rssTemplate, rssItem("Nota", "https://example.com/1", ""))
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, nil, 0)
	f.SetRetry(2, time.Millisecond)

	parsed, err := f.FetchFeed(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, parsed.Items, 1)
	assert.Equal(t, int32(2), hits.Load())
}

func TestEntriesToCandidatesSinceFilter(t *testing.T) {
	now := time.Now()
	items := rssItem("Reciente", "https://example.com/new", now.Format(time.RFC1123Z)) +
		rssItem("Vieja", "https://example.com/old", now.AddDate(0, 0, -30).Format(time.RFC1123Z)) +
		rssItem("Sin fecha", "https://example.com/undated", "") +
		rssItem("", "https://example.com/untitled", now.Format(time.RFC1123Z))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, rssTemplate, items)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, nil, 0)
	parsed, err := f.FetchFeed(context.Background(), srv.URL)
	require.NoError(t, err)

	got := entriesToCandidates(parsed, Query{Since: now.AddDate(0, 0, -14)})
	require.Len(t, got, 2)
	assert.Equal(t, "Reciente", got[0].Title)
	// Undated items cannot be proven stale, so they stay.
	assert.Equal(t, "Sin fecha", got[1].Title)
	assert.Equal(t, "example.com", got[0].Source)
}

func TestEntriesToCandidatesMaxResults(t *testing.T) {
	var items string
	for i := 0; i < 10; i++ {
		items += rssItem(fmt.Sprintf("Nota %d", i), fmt.Sprintf("https://example.com/%d", i), "")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, rssTemplate, items)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, nil, 0)
	parsed, err := f.FetchFeed(context.Background(), srv.URL)
	require.NoError(t, err)

	got := entriesToCandidates(parsed, Query{MaxResults: 3})
	assert.Len(t, got, 3)
}
