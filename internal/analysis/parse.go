package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bbxlabs/mirador/internal/model"
)

// parseJudgment decodes the model's JSON verdict. Models occasionally wrap
// JSON in a markdown fence even when asked not to, so fences are stripped
// first.
func parseJudgment(raw string) (*Judgment, error) {
	var j Judgment
	if err := json.Unmarshal([]byte(stripFences(raw)), &j); err != nil {
		return nil, fmt.Errorf("could not parse analysis response: %w", err)
	}
	if j.SentimentLabel == "" {
		j.SentimentLabel = labelForScore(j.SentimentScore)
	}
	if j.Summary == "" && len(j.Topics) == 0 {
		return nil, fmt.Errorf("analysis response missing summary and topics")
	}
	return &j, nil
}

func parseAggregate(raw string) (*model.AggregateInsight, error) {
	var agg model.AggregateInsight
	if err := json.Unmarshal([]byte(stripFences(raw)), &agg); err != nil {
		return nil, fmt.Errorf("could not parse aggregate response: %w", err)
	}
	if agg.NarrativeSummary == "" && len(agg.KeyTakeaways) == 0 {
		return nil, fmt.Errorf("aggregate response missing narrative and takeaways")
	}
	return &agg, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func labelForScore(score float64) string {
	switch {
	case score > 0.15:
		return "positive"
	case score < -0.15:
		return "negative"
	default:
		return "neutral"
	}
}
