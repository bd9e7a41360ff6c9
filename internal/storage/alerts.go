package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bbxlabs/mirador/internal/logger"
	"github.com/bbxlabs/mirador/internal/model"
)

// GetAlert loads one alert by id.
func (s *Store) GetAlert(ctx context.Context, id string) (*model.Alert, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, campaign_id, name, cron_expr, timezone, analyze_on_run, active, created_at
		FROM alerts WHERE id = $1`, id)

	var a model.Alert
	if err := row.Scan(&a.ID, &a.OwnerID, &a.CampaignID, &a.Name, &a.CronExpr, &a.Timezone, &a.Analyze, &a.Active, &a.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	return &a, nil
}

// ListActiveAlerts returns every alert that should hold a cron registration.
func (s *Store) ListActiveAlerts(ctx context.Context) ([]model.Alert, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner_id, campaign_id, name, cron_expr, timezone, analyze_on_run, active, created_at
		FROM alerts WHERE active ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []model.Alert
	for rows.Next() {
		var a model.Alert
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.CampaignID, &a.Name, &a.CronExpr, &a.Timezone, &a.Analyze, &a.Active, &a.CreatedAt); err != nil {
			logger.Warn("skipping unreadable alert row", "error", err)
			continue
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListAlertQueries returns the queries owned by an alert.
func (s *Store) ListAlertQueries(ctx context.Context, alertID string) ([]model.AlertQuery, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, alert_id, query_text, country, language, lookback_days, target_result_count, locality_hints
		FROM alert_queries WHERE alert_id = $1 ORDER BY id`, alertID)
	if err != nil {
		return nil, fmt.Errorf("list alert queries: %w", err)
	}
	defer rows.Close()

	var out []model.AlertQuery
	for rows.Next() {
		var q model.AlertQuery
		if err := rows.Scan(&q.ID, &q.AlertID, &q.QueryText, &q.Country, &q.Language, &q.LookbackDays, &q.TargetResultCount, &q.LocalityHints); err != nil {
			return nil, fmt.Errorf("scan alert query: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// InsertNotification appends one run notification. The aggregate payload is
// stored as JSONB; nil stays NULL.
func (s *Store) InsertNotification(ctx context.Context, n model.AlertRunNotification) error {
	var aggregate []byte
	if n.Aggregate != nil {
		b, err := json.Marshal(n.Aggregate)
		if err != nil {
			return fmt.Errorf("marshal aggregate: %w", err)
		}
		aggregate = b
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO alert_notifications (id, alert_id, items_discovered, aggregate)
		VALUES ($1, $2, $3, $4)`,
		n.ID, n.AlertID, n.ItemsDiscovered, aggregate,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// InsertAnalysis stores one item judgment.
func (s *Store) InsertAnalysis(ctx context.Context, a model.Analysis) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO analyses (id, item_id, sentiment_score, sentiment_label, topics, summary, stance)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.ItemID, a.SentimentScore, a.SentimentLabel, a.Topics, a.Summary, a.Stance,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// UpdateItemStatus applies the Pending -> Processed|Error transition.
func (s *Store) UpdateItemStatus(ctx context.Context, itemID string, status model.ItemStatus) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE ingested_items SET status = $2 WHERE id = $1`,
		itemID, string(status),
	)
	if err != nil {
		return fmt.Errorf("update item status: %w", err)
	}
	return nil
}

// ListPendingItems returns up to limit pending items for a campaign, oldest
// first.
func (s *Store) ListPendingItems(ctx context.Context, campaignID string, limit int) ([]model.IngestedItem, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, campaign_id, title, url, published_at, status, created_at
		FROM ingested_items
		WHERE campaign_id = $1 AND status = $2
		ORDER BY created_at
		LIMIT $3`, campaignID, string(model.StatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("list pending items: %w", err)
	}
	defer rows.Close()

	var out []model.IngestedItem
	for rows.Next() {
		var it model.IngestedItem
		var status string
		if err := rows.Scan(&it.ID, &it.CampaignID, &it.Title, &it.URL, &it.PublishedAt, &status, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.Status = model.ItemStatus(status)
		out = append(out, it)
	}
	return out, rows.Err()
}
