package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<html><body>
<h1>Ana López inaugura nuevo hospital</h1>
<article>
<p>La presidenta municipal encabezó este lunes la inauguración del nuevo hospital general, una obra esperada por años en la zona norte de la ciudad.</p>
<p>Durante el evento, vecinos y personal médico reconocieron el avance en infraestructura de salud para las familias de la región.</p>
<p>Suscríbete a nuestro newsletter para más noticias.</p>
<p>El proyecto requirió una inversión conjunta de los tres niveles de gobierno y contempla servicios de urgencias las veinticuatro horas.</p>
</article>
</body></html>`

func TestExtractPullsArticleBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	e := New(5 * time.Second)
	art, err := e.Extract(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Ana López inaugura nuevo hospital", art.Title)
	assert.Contains(t, art.Content, "inauguración del nuevo hospital")
	assert.NotContains(t, art.Content, "Suscríbete", "boilerplate lines must be filtered")
}

func TestExtractErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	e := New(5 * time.Second)
	_, err := e.Extract(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestSelectorsFor(t *testing.T) {
	sels := selectorsFor("https://www.milenio.com/politica/nota")
	require.NotEmpty(t, sels)
	assert.Equal(t, ".nd-content-body p", sels[0], "known outlets use their own selectors first")

	assert.Equal(t, genericSelectors, selectorsFor("https://desconocido.mx/nota"))
}

func TestCapLengthKeepsWholeParagraphs(t *testing.T) {
	long := strings.Repeat("palabra ", 150) // ~1200 bytes per paragraph
	content := long + "\n\n" + long + "\n\n" + long

	capped := capLength(content)
	assert.LessOrEqual(t, len(capped), maxContentBytes)
	assert.Equal(t, long, capped, "only full paragraphs under the cap survive")
}

func TestIsJunk(t *testing.T) {
	assert.True(t, isJunk("Síguenos en redes sociales"))
	assert.True(t, isJunk("Te puede interesar: otra nota"))
	assert.False(t, isJunk("La alcaldesa presentó su informe anual"))
}
