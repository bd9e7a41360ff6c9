// Package storage is the pgx-backed persistence layer: campaigns and their
// quota state, ingested items, alerts and run notifications.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bbxlabs/mirador/internal/ingest"
	"github.com/bbxlabs/mirador/internal/logger"
	"github.com/bbxlabs/mirador/internal/model"
)

type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool, verifies the connection and initializes the schema.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	logger.Info("postgres connected")
	return s, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Ready(ctx context.Context) error {
	var one int
	return s.pool.QueryRow(ctx, "select 1").Scan(&one)
}

// initSchema creates the necessary tables if they don't exist.
func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS campaigns (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		entity_query TEXT NOT NULL,
		locality_hints TEXT[] NOT NULL DEFAULT '{}',
		extra_keywords TEXT[] NOT NULL DEFAULT '{}',
		language TEXT NOT NULL DEFAULT 'es-419',
		country TEXT NOT NULL DEFAULT 'MX',
		target_result_count INT NOT NULL DEFAULT 25,
		lookback_days INT NOT NULL DEFAULT 14,
		plan TEXT NOT NULL DEFAULT 'BASIC',
		auto_ingest_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		runs_today INT NOT NULL DEFAULT 0,
		last_run_at TIMESTAMPTZ,
		last_quota_reset TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS ingested_items (
		id TEXT PRIMARY KEY,
		campaign_id TEXT NOT NULL REFERENCES campaigns(id),
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		published_at TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'PENDING',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (campaign_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_items_campaign_status ON ingested_items(campaign_id, status);

	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		campaign_id TEXT REFERENCES campaigns(id),
		name TEXT NOT NULL,
		cron_expr TEXT NOT NULL,
		timezone TEXT NOT NULL DEFAULT 'UTC',
		analyze_on_run BOOLEAN NOT NULL DEFAULT FALSE,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS alert_queries (
		id TEXT PRIMARY KEY,
		alert_id TEXT NOT NULL REFERENCES alerts(id),
		query_text TEXT NOT NULL,
		country TEXT NOT NULL DEFAULT 'MX',
		language TEXT NOT NULL DEFAULT 'es-419',
		lookback_days INT NOT NULL DEFAULT 14,
		target_result_count INT NOT NULL DEFAULT 35,
		locality_hints TEXT[] NOT NULL DEFAULT '{}'
	);

	CREATE INDEX IF NOT EXISTS idx_alert_queries_alert ON alert_queries(alert_id);

	CREATE TABLE IF NOT EXISTS alert_notifications (
		id TEXT PRIMARY KEY,
		alert_id TEXT NOT NULL REFERENCES alerts(id),
		items_discovered INT NOT NULL DEFAULT 0,
		aggregate JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL REFERENCES ingested_items(id),
		sentiment_score DOUBLE PRECISION,
		sentiment_label TEXT,
		topics TEXT[] NOT NULL DEFAULT '{}',
		summary TEXT,
		stance TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Begin opens one transactional insert batch for the ingestion gate. The
// batch commits as a unit per campaign run.
func (s *Store) Begin(ctx context.Context) (ingest.Batch, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &insertBatch{tx: tx}, nil
}

type insertBatch struct {
	tx pgx.Tx
}

// withSavepoint runs fn inside a nested transaction. Postgres aborts the
// whole transaction after any failed statement, so without the savepoint a
// single bad row would poison every later statement in the batch and the
// final commit. Rolling back just the savepoint keeps the outer
// transaction usable.
func withSavepoint(ctx context.Context, tx pgx.Tx, fn func(pgx.Tx) error) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("open savepoint: %w", err)
	}
	if err := fn(sp); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}

func (b *insertBatch) FindExisting(ctx context.Context, campaignID, url string) (bool, error) {
	var exists bool
	err := withSavepoint(ctx, b.tx, func(sp pgx.Tx) error {
		return sp.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM ingested_items WHERE campaign_id = $1 AND url = $2)`,
			campaignID, url,
		).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("find existing: %w", err)
	}
	return exists, nil
}

func (b *insertBatch) InsertItem(ctx context.Context, item model.IngestedItem) error {
	// ON CONFLICT DO NOTHING guards the unique (campaign_id, url) pair
	// against concurrent runs of the same campaign.
	err := withSavepoint(ctx, b.tx, func(sp pgx.Tx) error {
		_, err := sp.Exec(ctx, `
			INSERT INTO ingested_items (id, campaign_id, title, url, published_at, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (campaign_id, url) DO NOTHING`,
			item.ID, item.CampaignID, item.Title, item.URL, item.PublishedAt, string(item.Status),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (b *insertBatch) Commit(ctx context.Context) error {
	return b.tx.Commit(ctx)
}

func (b *insertBatch) Rollback(ctx context.Context) error {
	return b.tx.Rollback(ctx)
}

// GetCampaign loads one campaign by id.
func (s *Store) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, entity_query, locality_hints, extra_keywords, language, country,
		       target_result_count, lookback_days, plan, auto_ingest_enabled,
		       runs_today, last_run_at, last_quota_reset, created_at
		FROM campaigns WHERE id = $1`, id)
	return scanCampaign(row)
}

// ListAutoIngestCampaigns returns every campaign the auto-ingestion tick
// should consider.
func (s *Store) ListAutoIngestCampaigns(ctx context.Context) ([]model.Campaign, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, entity_query, locality_hints, extra_keywords, language, country,
		       target_result_count, lookback_days, plan, auto_ingest_enabled,
		       runs_today, last_run_at, last_quota_reset, created_at
		FROM campaigns WHERE auto_ingest_enabled ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			logger.Warn("skipping unreadable campaign row", "error", err)
			continue
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// UpdateCampaignQuota persists the scheduler's quota counters for one
// campaign.
func (s *Store) UpdateCampaignQuota(ctx context.Context, id string, runsToday int, lastRunAt, lastQuotaReset *time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE campaigns
		SET runs_today = $2, last_run_at = $3, last_quota_reset = $4
		WHERE id = $1`,
		id, runsToday, lastRunAt, lastQuotaReset,
	)
	if err != nil {
		return fmt.Errorf("update campaign quota: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	var plan string
	err := row.Scan(
		&c.ID, &c.Name, &c.EntityQuery, &c.LocalityHints, &c.ExtraKeywords,
		&c.Language, &c.Country, &c.TargetResultCount, &c.LookbackDays,
		&plan, &c.AutoIngestEnabled, &c.RunsToday, &c.LastRunAt,
		&c.LastQuotaReset, &c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan campaign: %w", err)
	}
	c.Plan = model.PlanTier(plan)
	return &c, nil
}
