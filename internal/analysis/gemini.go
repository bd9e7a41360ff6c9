// Package analysis wraps the Gemini API as the sentiment/summary
// collaborator. Callers treat it as an opaque function: text in, structured
// judgment out, and degrade gracefully when it fails.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/bbxlabs/mirador/internal/metrics"
	"github.com/bbxlabs/mirador/internal/model"
	"github.com/bbxlabs/mirador/internal/ratelimit"
)

const maxPromptRunes = 6000

type Client struct {
	client    *genai.Client
	modelName string
	limiter   *ratelimit.AnalysisLimiter
}

// Judgment is the structured verdict for one item.
type Judgment struct {
	SentimentScore float64  `json:"sentiment_score"`
	SentimentLabel string   `json:"sentiment_label"`
	Topics         []string `json:"topics"`
	Summary        string   `json:"summary"`
	Stance         string   `json:"stance"`
}

// AnalyzedItem pairs an item's metadata with its judgment for the aggregate
// synthesis call.
type AnalyzedItem struct {
	Title    string
	Source   string
	Judgment Judgment
}

func NewClient(ctx context.Context, apiKey, modelName string, limiter *ratelimit.AnalysisLimiter) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: client, modelName: modelName, limiter: limiter}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Analyze judges one mention of the tracked entity from its title and
// snippet.
func (c *Client) Analyze(ctx context.Context, title, snippet, entity string) (*Judgment, error) {
	if err := c.limiter.Acquire(); err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`Eres un analista de noticias en español. Analiza esta nota sobre el actor político de interés y responde SOLO con JSON válido, sin texto adicional.

Actor de interés: %s

Título: %s
Resumen: %s

Formato de respuesta:
{
  "sentiment_score": <número entre -1 y 1>,
  "sentiment_label": "<positive|neutral|negative|mixed>",
  "topics": ["<3 a 8 temas>"],
  "summary": "<resumen en 2-3 frases>",
  "stance": "<favorable|neutral|critica|incierta>"
}`, entity, sanitize(title), sanitizeOr(snippet, "(sin resumen)"))

	raw, err := c.generate(ctx, prompt)
	if err != nil {
		metrics.Global.IncrementAnalysisFailures()
		return nil, err
	}

	j, err := parseJudgment(raw)
	if err != nil {
		metrics.Global.IncrementAnalysisFailures()
		return nil, err
	}
	return j, nil
}

// Aggregate synthesizes the overall perspective across the analyzed items of
// one run.
func (c *Client) Aggregate(ctx context.Context, entity string, items []AnalyzedItem) (*model.AggregateInsight, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no analyzed items to aggregate")
	}
	if err := c.limiter.Acquire(); err != nil {
		return nil, err
	}

	var b strings.Builder
	for i, it := range items {
		fmt.Fprintf(&b, "%d. [%s, %s, %.2f] %s — %s\n",
			i+1, it.Source, it.Judgment.Stance, it.Judgment.SentimentScore, it.Title, it.Judgment.Summary)
	}

	prompt := fmt.Sprintf(`Eres un analista de medios. A partir de estas notas analizadas sobre "%s", sintetiza la percepción global. Responde SOLO con JSON válido.

Notas:
%s
Formato de respuesta:
{
  "overall_sentiment": <número entre -1 y 1>,
  "stance_distribution": {"favorable": <n>, "neutral": <n>, "critica": <n>, "incierta": <n>},
  "top_topics": ["<hasta 8 temas>"],
  "key_takeaways": ["<3 a 5 conclusiones>"],
  "narrative_summary": "<síntesis en un párrafo>"
}`, entity, truncateRunes(b.String(), maxPromptRunes))

	raw, err := c.generate(ctx, prompt)
	if err != nil {
		metrics.Global.IncrementAnalysisFailures()
		return nil, err
	}

	agg, err := parseAggregate(raw)
	if err != nil {
		metrics.Global.IncrementAnalysisFailures()
		return nil, err
	}
	return agg, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	metrics.Global.IncrementAnalysisCalls()

	m := c.client.GenerativeModel(c.modelName)
	m.ResponseMIMEType = "application/json"

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response part type %T", resp.Candidates[0].Content.Parts[0])
	}
	return string(text), nil
}

// sanitize collapses whitespace and caps prompt size the same way for every
// call.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
	return truncateRunes(s, maxPromptRunes)
}

func sanitizeOr(s, fallback string) string {
	if out := sanitize(s); out != "" {
		return out
	}
	return fallback
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
