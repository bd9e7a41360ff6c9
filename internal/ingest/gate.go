// Package ingest is the sole write path for discovered mentions. It inserts
// new items, skips already-known URLs and leaves every insert as Pending for
// the downstream analysis pass.
package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bbxlabs/mirador/internal/feed"
	"github.com/bbxlabs/mirador/internal/logger"
	"github.com/bbxlabs/mirador/internal/metrics"
	"github.com/bbxlabs/mirador/internal/model"
)

// Titles longer than this are truncated before persistence.
const maxTitleRunes = 512

// Batch is one transactional insert batch for a campaign run.
type Batch interface {
	FindExisting(ctx context.Context, campaignID, url string) (bool, error)
	InsertItem(ctx context.Context, item model.IngestedItem) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store opens insert batches.
type Store interface {
	Begin(ctx context.Context) (Batch, error)
}

// Summary accounts for one gate invocation.
type Summary struct {
	Inserted int
	Skipped  int
	Failed   int
}

type Gate struct {
	store Store
}

func NewGate(store Store) *Gate {
	return &Gate{store: store}
}

// Ingest persists the ranked candidate list for a campaign. Idempotent with
// respect to URL: an already-known (campaignID, url) pair is skipped. A
// per-item failure is logged and counted but never aborts the batch; only a
// storage-level failure opening or committing the batch does.
func (g *Gate) Ingest(ctx context.Context, campaignID string, candidates []feed.Candidate) (Summary, error) {
	var sum Summary
	if len(candidates) == 0 {
		return sum, nil
	}

	batch, err := g.store.Begin(ctx)
	if err != nil {
		return sum, fmt.Errorf("open insert batch: %w", err)
	}

	for _, c := range candidates {
		exists, err := batch.FindExisting(ctx, campaignID, c.URL)
		if err != nil {
			logger.Warn("existence check failed", "campaign", campaignID, "url", c.URL, "error", err)
			sum.Failed++
			continue
		}
		if exists {
			sum.Skipped++
			continue
		}

		item := model.IngestedItem{
			ID:          uuid.NewString(),
			CampaignID:  campaignID,
			Title:       truncateRunes(c.Title, maxTitleRunes),
			URL:         c.URL,
			PublishedAt: c.PublishedAt,
			Status:      model.StatusPending,
		}
		if err := batch.InsertItem(ctx, item); err != nil {
			logger.Warn("item insert failed", "campaign", campaignID, "url", c.URL, "error", err)
			sum.Failed++
			continue
		}
		sum.Inserted++
	}

	if err := batch.Commit(ctx); err != nil {
		_ = batch.Rollback(ctx)
		return sum, fmt.Errorf("commit insert batch: %w", err)
	}

	metrics.Global.AddItemsIngested(sum.Inserted)
	metrics.Global.AddInsertFailures(sum.Failed)
	return sum, nil
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
