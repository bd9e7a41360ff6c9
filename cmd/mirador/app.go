package main

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/bbxlabs/mirador/internal/analysis"
	"github.com/bbxlabs/mirador/internal/cache"
	"github.com/bbxlabs/mirador/internal/config"
	"github.com/bbxlabs/mirador/internal/feed"
	"github.com/bbxlabs/mirador/internal/ingest"
	"github.com/bbxlabs/mirador/internal/logger"
	"github.com/bbxlabs/mirador/internal/notify"
	"github.com/bbxlabs/mirador/internal/pipeline"
	"github.com/bbxlabs/mirador/internal/ratelimit"
	"github.com/bbxlabs/mirador/internal/scheduler"
	"github.com/bbxlabs/mirador/internal/scraper"
	"github.com/bbxlabs/mirador/internal/storage"
)

// app owns every long-lived component and their shutdown order.
type app struct {
	cfg      *config.Config
	store    *storage.Store
	analyzer *analysis.Client
	sched    *scheduler.Scheduler
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	store, err := storage.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect storage: %w", err)
	}

	fetcher := feed.NewFetcher(cfg.FetchTimeout, cache.New[*gofeed.Feed](), cfg.FeedCacheTTL)
	fetcher.SetRetry(cfg.RetryAttempts, cfg.RetryDelay)
	providers := []feed.Provider{
		feed.NewGoogleNews(fetcher),
		feed.NewBingNews(fetcher),
	}

	sites, err := feed.LoadSites(cfg.SitesConfigPath)
	if err != nil {
		logger.Warn("could not load sites config, using defaults", "path", cfg.SitesConfigPath, "error", err)
	}
	backfill := feed.NewSiteBackfill(fetcher, sites)

	orchestrator := pipeline.NewOrchestrator(providers, backfill, cfg.TierParallelism, cfg.LookbackCeilingDays)
	gate := ingest.NewGate(store)

	var analyzer *analysis.Client
	if cfg.GeminiAPIKey != "" {
		limiter := ratelimit.NewAnalysisLimiter(cfg.MaxAnalysisPerDay)
		analyzer, err = analysis.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, limiter)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("gemini client: %w", err)
		}
	} else {
		logger.Warn("GEMINI_API_KEY not set, analysis disabled")
	}

	quotaLoc, err := time.LoadLocation(cfg.QuotaTimezone)
	if err != nil {
		// Load() already validated the timezone; this is unreachable in
		// normal operation.
		quotaLoc = time.UTC
	}

	var sa scheduler.Analyzer
	if analyzer != nil {
		sa = analyzer
	}
	sched := scheduler.New(
		store,
		orchestrator,
		gate,
		sa,
		scraper.New(cfg.FetchTimeout),
		notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID),
		scheduler.Options{
			TickInterval:      cfg.TickInterval,
			MinRunSpacing:     cfg.MinRunSpacing,
			RunBudget:         cfg.RunBudget,
			QuotaLocation:     quotaLoc,
			MaxAnalysisPerRun: cfg.MaxAnalysisPerRun,
		},
	)

	return &app{cfg: cfg, store: store, analyzer: analyzer, sched: sched}, nil
}

func (a *app) close() {
	if a.analyzer != nil {
		a.analyzer.Close()
	}
	a.store.Close()
}
