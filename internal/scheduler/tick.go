package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/bbxlabs/mirador/internal/logger"
	"github.com/bbxlabs/mirador/internal/metrics"
	"github.com/bbxlabs/mirador/internal/model"
	"github.com/bbxlabs/mirador/internal/pipeline"
)

// CampaignTick sweeps every auto-ingest campaign once, running those whose
// quota and spacing allow it. Failures are isolated per campaign.
func (s *Scheduler) CampaignTick(ctx context.Context) {
	campaigns, err := s.store.ListAutoIngestCampaigns(ctx)
	if err != nil {
		logger.Error("could not list campaigns for tick", "error", err)
		metrics.Global.SetError(fmt.Sprintf("campaign tick: %v", err))
		return
	}

	started := s.now()
	ran := 0
	for i := range campaigns {
		if ctx.Err() != nil {
			return
		}
		if s.tickCampaign(ctx, campaigns[i].ID) {
			ran++
		}
	}
	logger.Info("campaign tick done", "considered", len(campaigns), "ran", ran, "elapsed", s.now().Sub(started))
}

// tickCampaign decides and, when eligible, executes one campaign run. The
// per-campaign lock keeps overlapping ticks from double-spending quota.
func (s *Scheduler) tickCampaign(ctx context.Context, campaignID string) bool {
	lock := s.lockCampaign(campaignID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock so the quota decision sees the latest
	// counters, not the snapshot from the sweep listing.
	c, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		logger.Error("could not load campaign", "campaign", campaignID, "error", err)
		return false
	}

	now := s.now()
	reset := s.resetQuotaIfNewDay(c, now)

	if quota, bounded := c.Plan.DailyQuota(); bounded && c.RunsToday >= quota {
		logger.Debug("campaign at daily quota", "campaign", c.ID, "runs_today", c.RunsToday, "quota", quota)
		s.persistQuota(ctx, c, reset)
		return false
	}
	if c.LastRunAt != nil && now.Sub(*c.LastRunAt) < s.opts.MinRunSpacing {
		logger.Debug("campaign within minimum spacing", "campaign", c.ID, "last_run", *c.LastRunAt)
		s.persistQuota(ctx, c, reset)
		return false
	}

	if err := s.runCampaign(ctx, c); err != nil {
		logger.Error("campaign run failed", "campaign", c.ID, "error", err)
		metrics.Global.SetError(fmt.Sprintf("campaign %s: %v", c.ID, err))
		s.persistQuota(ctx, c, reset)
		return false
	}

	c.RunsToday++
	c.LastRunAt = &now
	s.persistQuota(ctx, c, true)
	return true
}

// resetQuotaIfNewDay zeroes the daily counter when the calendar date in the
// service's quota timezone has moved past the last reset. Returns whether
// counters changed.
func (s *Scheduler) resetQuotaIfNewDay(c *model.Campaign, now time.Time) bool {
	if c.LastQuotaReset != nil && sameDate(c.LastQuotaReset.In(s.opts.QuotaLocation), now.In(s.opts.QuotaLocation)) {
		return false
	}
	c.RunsToday = 0
	t := now
	c.LastQuotaReset = &t
	return true
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (s *Scheduler) persistQuota(ctx context.Context, c *model.Campaign, changed bool) {
	if !changed {
		return
	}
	if err := s.store.UpdateCampaignQuota(ctx, c.ID, c.RunsToday, c.LastRunAt, c.LastQuotaReset); err != nil {
		logger.Error("could not persist campaign quota", "campaign", c.ID, "error", err)
	}
}

// runCampaign executes one discovery run for a campaign under the run
// budget, persists the results, and analyzes any backlog of pending items.
func (s *Scheduler) runCampaign(ctx context.Context, c *model.Campaign) error {
	runCtx, cancel := context.WithTimeout(ctx, s.opts.RunBudget)
	defer cancel()

	started := s.now()
	result := s.runner.Run(runCtx, pipeline.Request{
		Entity:            c.EntityQuery,
		LocalityHints:     c.LocalityHints,
		ExtraKeywords:     c.ExtraKeywords,
		Language:          c.Language,
		Country:           c.Country,
		TargetResultCount: c.TargetResultCount,
		LookbackDays:      c.LookbackDays,
	})

	summary, err := s.gate.Ingest(runCtx, c.ID, result.Candidates)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	metrics.Global.IncrementCampaignRuns()
	metrics.Global.RecordRunDuration(s.now().Sub(started))
	metrics.Global.SetLastRun()
	logger.Info("campaign run complete",
		"campaign", c.ID,
		"tiers", result.TiersRun,
		"unique", result.UniqueSeen,
		"inserted", summary.Inserted,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)

	if s.analyzer != nil {
		s.analyzePending(runCtx, c)
	}
	return nil
}

// KickoffCampaignIngest runs one campaign immediately, bypassing quota and
// spacing checks. Used by the CLI and manual triggers.
func (s *Scheduler) KickoffCampaignIngest(ctx context.Context, campaignID string) error {
	lock := s.lockCampaign(campaignID)
	lock.Lock()
	defer lock.Unlock()

	c, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}
	if err := s.runCampaign(ctx, c); err != nil {
		return err
	}

	now := s.now()
	s.resetQuotaIfNewDay(c, now)
	c.RunsToday++
	c.LastRunAt = &now
	s.persistQuota(ctx, c, true)
	return nil
}
