package pipeline

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbxlabs/mirador/internal/feed"
)

func TestDedupeFirstSeenWins(t *testing.T) {
	items := []feed.Candidate{
		{Title: "Primera versión", URL: "https://example.com/nota"},
		{Title: "Versión duplicada", URL: "https://example.com/nota"},
		{Title: "Otra nota", URL: "https://example.com/otra"},
	}
	got := Dedupe(items)
	require.Len(t, got, 2)
	assert.Equal(t, "Primera versión", got[0].Title)
	assert.Equal(t, "Otra nota", got[1].Title)
}

func TestDedupeCollapsesRedirectWrappers(t *testing.T) {
	wrapped := "https://news.google.com/rss/articles/x?url=" + url.QueryEscape("https://example.com/nota")
	items := []feed.Candidate{
		{Title: "Directa", URL: "https://example.com/nota"},
		{Title: "Envuelta", URL: wrapped},
	}
	got := Dedupe(items)
	require.Len(t, got, 1)
	assert.Equal(t, "Directa", got[0].Title)
	assert.Equal(t, "https://example.com/nota", got[0].URL)
}

func TestDedupeDropsEmpty(t *testing.T) {
	items := []feed.Candidate{
		{Title: "  ", URL: "https://example.com/a"},
		{Title: "Sin enlace", URL: "   "},
		{Title: "Válida", URL: "https://example.com/b"},
	}
	got := Dedupe(items)
	require.Len(t, got, 1)
	assert.Equal(t, "Válida", got[0].Title)
}
