// Package scraper fetches an article page and extracts its body text, used
// to give the analysis collaborator more than the RSS snippet. Extraction is
// best effort; a failure degrades back to the snippet.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ArticleContent is the extracted article text.
type ArticleContent struct {
	Title   string
	Content string
	URL     string
}

const maxContentBytes = 1800

// Selector hints for outlets that bury the body under their own markup;
// everything else falls through to the generic selectors.
var siteSelectors = map[string][]string{
	"milenio.com":        {".nd-content-body p", "article p"},
	"eluniversal.com.mx": {".field-name-body p", "article p"},
	"proceso.com.mx":     {".entry-content p", "article p"},
	"elmanana.com.mx":    {".article-body p", "article p"},
}

var genericSelectors = []string{
	"article p",
	".article-body p",
	".entry-content p",
	".post-content p",
	".content p",
	"main p",
	"p",
}

var junkIndicators = []string{
	"cookie", "suscríbete", "suscripción", "publicidad", "newsletter",
	"síguenos", "lee también", "te puede interesar", "derechos reservados",
	"comparte esta nota",
}

type Extractor struct {
	client *http.Client
}

func New(timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Extractor{client: &http.Client{Timeout: timeout}}
}

// Extract downloads the page at rawURL and pulls out the article body.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*ArticleContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127 Safari/537.36")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("load page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	content := extractParagraphs(doc, selectorsFor(rawURL))
	if content == "" {
		return nil, fmt.Errorf("no extractable content")
	}

	return &ArticleContent{
		Title:   strings.TrimSpace(doc.Find("h1").First().Text()),
		Content: content,
		URL:     rawURL,
	}, nil
}

func selectorsFor(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return genericSelectors
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for domain, sels := range siteSelectors {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return append(append([]string{}, sels...), genericSelectors...)
		}
	}
	return genericSelectors
}

func extractParagraphs(doc *goquery.Document, selectors []string) string {
	var best []string

	for _, selector := range selectors {
		var paragraphs []string
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) < 20 || isJunk(text) {
				return
			}
			paragraphs = append(paragraphs, text)
		})
		// Three paragraphs is enough to call it the article body.
		if len(paragraphs) >= 3 {
			best = paragraphs
			break
		}
		if len(paragraphs) > len(best) {
			best = paragraphs
		}
	}

	return capLength(strings.Join(best, "\n\n"))
}

func isJunk(line string) bool {
	lower := strings.ToLower(line)
	for _, indicator := range junkIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// capLength limits the extracted body, keeping whole paragraphs.
func capLength(content string) string {
	if len(content) <= maxContentBytes {
		return content
	}

	paragraphs := strings.Split(content, "\n\n")
	var selected []string
	total := 0
	for _, p := range paragraphs {
		if total+len(p) > maxContentBytes {
			break
		}
		selected = append(selected, p)
		total += len(p) + 2
	}
	if len(selected) == 0 {
		return content[:maxContentBytes]
	}
	return strings.Join(selected, "\n\n")
}
