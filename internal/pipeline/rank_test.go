package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bbxlabs/mirador/internal/feed"
)

var (
	entityTokens = []string{"ana lópez"}
	localities   = []string{"Reynosa"}
)

func TestScoreEntityDominatesLocality(t *testing.T) {
	entityInTitle := feed.Candidate{Title: "Ana López presenta informe"}
	localityInTitle := feed.Candidate{Title: "Obras públicas en Reynosa"}
	both := feed.Candidate{Title: "Ana López recorre Reynosa"}
	entityInSnippet := feed.Candidate{Title: "Informe municipal", Snippet: "La alcaldesa Ana López presentó..."}

	assert.Equal(t, 5.0, Score(entityInTitle, entityTokens, localities))
	assert.Equal(t, 2.0, Score(localityInTitle, entityTokens, localities))
	assert.Equal(t, 7.0, Score(both, entityTokens, localities))
	assert.Equal(t, 3.0, Score(entityInSnippet, entityTokens, localities))

	assert.Greater(t,
		Score(entityInTitle, entityTokens, localities),
		Score(localityInTitle, entityTokens, localities),
		"an entity mention must outrank a locality-only mention")
}

func TestRankOrdersByScoreThenRecency(t *testing.T) {
	old := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	items := []feed.Candidate{
		{Title: "Obras en Reynosa", URL: "https://example.com/1"},
		{Title: "Ana López recorre Reynosa", URL: "https://example.com/2", PublishedAt: &old},
		{Title: "Ana López en Reynosa otra vez", URL: "https://example.com/3", PublishedAt: &recent},
		{Title: "Ana López sin fecha en Reynosa", URL: "https://example.com/4"},
	}

	got := Rank(items, entityTokens, localities)

	// Equal scores: newest dated first, undated last.
	assert.Equal(t, "https://example.com/3", got[0].URL)
	assert.Equal(t, "https://example.com/2", got[1].URL)
	assert.Equal(t, "https://example.com/4", got[2].URL)
	assert.Equal(t, "https://example.com/1", got[3].URL)
}

func TestRankIsDeterministic(t *testing.T) {
	items := []feed.Candidate{
		{Title: "Ana López A", URL: "https://example.com/a"},
		{Title: "Ana López B", URL: "https://example.com/b"},
		{Title: "Ana López C", URL: "https://example.com/c"},
	}
	first := Rank(items, entityTokens, nil)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Rank(items, entityTokens, nil))
	}
	// Stable sort keeps input order among full ties.
	assert.Equal(t, "https://example.com/a", first[0].URL)
}
