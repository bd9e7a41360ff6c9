package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoostAliases(t *testing.T) {
	got := boostAliases([]string{"Ana López", " "}, []string{"Reynosa", "Matamoros"})
	assert.Equal(t, []string{`"Ana López" ("Reynosa" OR "Matamoros")`}, got)

	got = boostAliases([]string{"Ana López"}, nil)
	assert.Equal(t, []string{`"Ana López"`}, got)
}

func TestLoadSites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sites:\n  - milenio.com\n  - proceso.com.mx\n"), 0o644))

	sites, err := LoadSites(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"milenio.com", "proceso.com.mx"}, sites)

	_, err = LoadSites(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSiteBackfillCapsSweep(t *testing.T) {
	var mu sync.Mutex
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.Query().Get("q"))
		mu.Unlock()
		fmt.Fprintf(w, rssTemplate, rssItem("Nota", "https://example.com/n", ""))
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, nil, 0)
	bf := NewSiteBackfill(f, []string{"uno.mx", "dos.mx", "tres.mx", "cuatro.mx", "cinco.mx", "seis.mx", "siete.mx"})
	bf.buildURL = func(text, _, _ string) string {
		params := url.Values{}
		params.Set("q", text)
		return srv.URL + "?" + params.Encode()
	}

	// Eight aliases, seven sites: the sweep must stop at 5 x 6.
	aliases := []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8"}
	got := bf.FetchAll(context.Background(), aliases, []string{"Reynosa"}, Query{Language: "es-419", Country: "MX"})

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, queries, maxBackfillAliases*maxBackfillSites)
	assert.Len(t, got, maxBackfillAliases*maxBackfillSites)
	for _, q := range queries {
		assert.Contains(t, q, "site:")
		assert.Contains(t, q, `"Reynosa"`)
	}
}
