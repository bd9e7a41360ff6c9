package feed

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalLinkUnwrapsAggregatorRedirect(t *testing.T) {
	wrapped := "https://news.google.com/rss/articles/abc?url=" + url.QueryEscape("https://milenio.com/politica/nota-1") + "&oc=5"
	assert.Equal(t, "https://milenio.com/politica/nota-1", CanonicalLink(wrapped))
}

func TestCanonicalLinkPassThrough(t *testing.T) {
	assert.Equal(t, "https://milenio.com/nota", CanonicalLink("  https://milenio.com/nota "))
	assert.Equal(t, "", CanonicalLink("   "))

	// A redirect host without a destination parameter stays as-is.
	noDest := "https://news.google.com/rss/articles/abc"
	assert.Equal(t, noDest, CanonicalLink(noDest))
}

func TestSourceFromLink(t *testing.T) {
	assert.Equal(t, "milenio.com", sourceFromLink("https://www.milenio.com/politica/nota"))
	assert.Equal(t, "", sourceFromLink("not a url"))
}

func TestBuildGoogleNewsURLProtectsSimpleQueries(t *testing.T) {
	raw := buildGoogleNewsURL("Ana López Reynosa", "es-419", "MX")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, `"Ana López Reynosa"`, u.Query().Get("q"))
	assert.Equal(t, "es-419", u.Query().Get("hl"))
	assert.Equal(t, "MX", u.Query().Get("gl"))
	assert.Equal(t, "MX:es-419", u.Query().Get("ceid"))
}

func TestBuildGoogleNewsURLKeepsOperatorQueries(t *testing.T) {
	for _, q := range []string{
		`"Ana López" site:milenio.com`,
		`Ana López ("Reynosa" OR "Matamoros")`,
		`"Ana López"`,
	} {
		raw := buildGoogleNewsURL(q, "es-419", "MX")
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, q, u.Query().Get("q"), "operator query must pass through untouched")
	}
}
