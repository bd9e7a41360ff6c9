package scheduler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/bbxlabs/mirador/internal/analysis"
	"github.com/bbxlabs/mirador/internal/logger"
	"github.com/bbxlabs/mirador/internal/metrics"
	"github.com/bbxlabs/mirador/internal/model"
	"github.com/bbxlabs/mirador/internal/pipeline"
	"github.com/bbxlabs/mirador/internal/ratelimit"
)

// RunAlertNow executes one alert immediately: every stored query runs
// through the cascade, results persist under the alert's campaign, and a
// run notification records the outcome. A failing query skips to the next
// one rather than aborting the run.
func (s *Scheduler) RunAlertNow(ctx context.Context, alertID string) error {
	alert, err := s.store.GetAlert(ctx, alertID)
	if err != nil {
		return fmt.Errorf("load alert: %w", err)
	}

	queries, err := s.store.ListAlertQueries(ctx, alert.ID)
	if err != nil {
		return fmt.Errorf("load alert queries: %w", err)
	}
	if len(queries) == 0 {
		logger.Warn("alert has no queries", "alert", alert.ID)
		return nil
	}

	discovered := 0
	for _, q := range queries {
		n, err := s.runAlertQuery(ctx, alert, q)
		if err != nil {
			logger.Error("alert query failed", "alert", alert.ID, "query", q.ID, "error", err)
			continue
		}
		discovered += n
	}

	notification := model.AlertRunNotification{
		ID:              uuid.NewString(),
		AlertID:         alert.ID,
		ItemsDiscovered: discovered,
	}

	if alert.Analyze && s.analyzer != nil && alert.CampaignID != nil {
		if c, err := s.store.GetCampaign(ctx, *alert.CampaignID); err != nil {
			logger.Error("could not load alert campaign for analysis", "alert", alert.ID, "error", err)
		} else if analyzed := s.analyzeItems(ctx, c); len(analyzed) > 0 {
			agg, err := s.analyzer.Aggregate(ctx, c.EntityQuery, analyzed)
			if err != nil {
				logger.Error("aggregate analysis failed", "alert", alert.ID, "error", err)
			} else {
				notification.Aggregate = agg
			}
		}
	}

	if err := s.store.InsertNotification(ctx, notification); err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	metrics.Global.IncrementAlertRuns()
	logger.Info("alert run complete", "alert", alert.ID, "discovered", discovered, "analyzed", notification.Aggregate != nil)

	if s.notifier != nil && s.notifier.Enabled() {
		if err := s.notifier.SendAlertSummary(alert.Name, notification); err != nil {
			logger.Error("could not push alert summary", "alert", alert.ID, "error", err)
		}
	}
	return nil
}

// runAlertQuery runs one stored query through the cascade and reports how
// many new items it produced.
func (s *Scheduler) runAlertQuery(ctx context.Context, alert *model.Alert, q model.AlertQuery) (int, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.opts.RunBudget)
	defer cancel()

	result := s.runner.Run(runCtx, pipeline.Request{
		Entity:            q.QueryText,
		LocalityHints:     q.LocalityHints,
		Language:          q.Language,
		Country:           q.Country,
		TargetResultCount: q.TargetResultCount,
		LookbackDays:      q.LookbackDays,
	})

	// Without a campaign to persist under, the run only counts what it
	// found.
	if alert.CampaignID == nil {
		return len(result.Candidates), nil
	}

	summary, err := s.gate.Ingest(runCtx, *alert.CampaignID, result.Candidates)
	if err != nil {
		return 0, fmt.Errorf("ingest: %w", err)
	}
	return summary.Inserted, nil
}

// analyzePending clears as much of the campaign's pending backlog as the
// per-run analysis cap allows.
func (s *Scheduler) analyzePending(ctx context.Context, c *model.Campaign) {
	if analyzed := s.analyzeItems(ctx, c); len(analyzed) > 0 {
		logger.Info("pending items analyzed", "campaign", c.ID, "count", len(analyzed))
	}
}

// analyzeItems judges pending items one by one: each gets an optional
// article-text enrichment, a model verdict, a stored analysis row, and a
// status transition. One bad item never stops the pass; an exhausted daily
// budget does, leaving the rest pending for tomorrow.
func (s *Scheduler) analyzeItems(ctx context.Context, c *model.Campaign) []analysis.AnalyzedItem {
	items, err := s.store.ListPendingItems(ctx, c.ID, s.opts.MaxAnalysisPerRun)
	if err != nil {
		logger.Error("could not list pending items", "campaign", c.ID, "error", err)
		return nil
	}

	var analyzed []analysis.AnalyzedItem
	for _, it := range items {
		if ctx.Err() != nil {
			break
		}

		snippet := ""
		if s.extractor != nil {
			if art, err := s.extractor.Extract(ctx, it.URL); err == nil {
				snippet = art.Content
			} else {
				logger.Debug("article extraction failed", "url", it.URL, "error", err)
			}
		}

		j, err := s.analyzer.Analyze(ctx, it.Title, snippet, c.EntityQuery)
		if errors.Is(err, ratelimit.ErrBudgetExhausted) {
			logger.Warn("analysis budget exhausted, leaving remaining items pending", "campaign", c.ID)
			break
		}
		if err != nil {
			logger.Error("item analysis failed", "item", it.ID, "error", err)
			s.markItem(ctx, it.ID, model.StatusError)
			continue
		}

		rec := model.Analysis{
			ID:             uuid.NewString(),
			ItemID:         it.ID,
			SentimentScore: j.SentimentScore,
			SentimentLabel: j.SentimentLabel,
			Topics:         j.Topics,
			Summary:        j.Summary,
			Stance:         j.Stance,
		}
		if err := s.store.InsertAnalysis(ctx, rec); err != nil {
			logger.Error("could not store analysis", "item", it.ID, "error", err)
			s.markItem(ctx, it.ID, model.StatusError)
			continue
		}
		s.markItem(ctx, it.ID, model.StatusProcessed)

		analyzed = append(analyzed, analysis.AnalyzedItem{
			Title:    it.Title,
			Source:   hostOf(it.URL),
			Judgment: *j,
		})
	}
	return analyzed
}

func (s *Scheduler) markItem(ctx context.Context, itemID string, status model.ItemStatus) {
	if err := s.store.UpdateItemStatus(ctx, itemID, status); err != nil {
		logger.Error("could not update item status", "item", itemID, "error", err)
	}
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "desconocido"
	}
	return strings.TrimPrefix(u.Host, "www.")
}
