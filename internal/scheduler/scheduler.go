// Package scheduler drives discovery on a recurring basis: a fixed-interval
// auto-ingestion tick bounded by plan quotas, and timezone-aware cron
// triggers for user-defined alerts.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bbxlabs/mirador/internal/analysis"
	"github.com/bbxlabs/mirador/internal/feed"
	"github.com/bbxlabs/mirador/internal/ingest"
	"github.com/bbxlabs/mirador/internal/logger"
	"github.com/bbxlabs/mirador/internal/model"
	"github.com/bbxlabs/mirador/internal/notify"
	"github.com/bbxlabs/mirador/internal/pipeline"
	"github.com/bbxlabs/mirador/internal/scraper"
)

// Store is the persistence surface the scheduler consumes.
type Store interface {
	GetCampaign(ctx context.Context, id string) (*model.Campaign, error)
	ListAutoIngestCampaigns(ctx context.Context) ([]model.Campaign, error)
	UpdateCampaignQuota(ctx context.Context, id string, runsToday int, lastRunAt, lastQuotaReset *time.Time) error

	GetAlert(ctx context.Context, id string) (*model.Alert, error)
	ListActiveAlerts(ctx context.Context) ([]model.Alert, error)
	ListAlertQueries(ctx context.Context, alertID string) ([]model.AlertQuery, error)
	InsertNotification(ctx context.Context, n model.AlertRunNotification) error

	InsertAnalysis(ctx context.Context, a model.Analysis) error
	UpdateItemStatus(ctx context.Context, itemID string, status model.ItemStatus) error
	ListPendingItems(ctx context.Context, campaignID string, limit int) ([]model.IngestedItem, error)
}

// Runner executes one retrieval cascade.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) pipeline.Result
}

// Ingestor persists a ranked candidate list.
type Ingestor interface {
	Ingest(ctx context.Context, campaignID string, candidates []feed.Candidate) (ingest.Summary, error)
}

// Analyzer is the optional analysis collaborator.
type Analyzer interface {
	Analyze(ctx context.Context, title, snippet, entity string) (*analysis.Judgment, error)
	Aggregate(ctx context.Context, entity string, items []analysis.AnalyzedItem) (*model.AggregateInsight, error)
}

// Options tune the scheduler; zero values get sensible defaults.
type Options struct {
	TickInterval      time.Duration
	MinRunSpacing     time.Duration
	RunBudget         time.Duration
	QuotaLocation     *time.Location
	MaxAnalysisPerRun int
}

type Scheduler struct {
	store     Store
	runner    Runner
	gate      Ingestor
	analyzer  Analyzer          // nil disables analysis
	extractor *scraper.Extractor // nil disables article enrichment
	notifier  *notify.Telegram  // nil or disabled skips pushes
	opts      Options

	cron    *cron.Cron
	jobs    map[string]cron.EntryID
	baseCtx context.Context // lifetime context; in-flight alert runs stop with it
	mu      sync.Mutex      // guards jobs and baseCtx

	campaignLocks sync.Map // campaignID -> *sync.Mutex

	now func() time.Time
}

func New(store Store, runner Runner, gate Ingestor, analyzer Analyzer, extractor *scraper.Extractor, notifier *notify.Telegram, opts Options) *Scheduler {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Hour
	}
	if opts.MinRunSpacing <= 0 {
		opts.MinRunSpacing = 4 * time.Hour
	}
	if opts.RunBudget <= 0 {
		opts.RunBudget = 2 * time.Minute
	}
	if opts.QuotaLocation == nil {
		opts.QuotaLocation = time.UTC
	}

	return &Scheduler{
		store:     store,
		runner:    runner,
		gate:      gate,
		analyzer:  analyzer,
		extractor: extractor,
		notifier:  notifier,
		opts:      opts,
		cron:      cron.New(),
		jobs:      make(map[string]cron.EntryID),
		baseCtx:   context.Background(),
		now:       time.Now,
	}
}

// Start registers all active alerts, starts the cron runner and the
// auto-ingestion ticker, and blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	alerts, err := s.store.ListActiveAlerts(ctx)
	if err != nil {
		return fmt.Errorf("load alerts: %w", err)
	}
	for _, a := range alerts {
		alert := a
		if err := s.ScheduleAlert(&alert); err != nil {
			logger.Error("could not schedule alert", "alert", alert.ID, "error", err)
		}
	}

	s.cron.Start()
	defer s.cron.Stop()

	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	logger.Info("scheduler started", "alerts", len(alerts), "tick_interval", s.opts.TickInterval)

	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopping")
			return nil
		case <-ticker.C:
			// Each tick runs asynchronously so a slow sweep never
			// delays the next timer check.
			go s.CampaignTick(ctx)
		}
	}
}

// ScheduleAlert registers or replaces the cron trigger for an alert.
// Malformed cron expressions and unknown timezones are rejected here, at
// registration time, leaving existing jobs untouched.
func (s *Scheduler) ScheduleAlert(alert *model.Alert) error {
	if !alert.Active {
		s.UnscheduleAlert(alert.ID)
		return nil
	}

	if _, err := time.LoadLocation(alert.Timezone); err != nil {
		return fmt.Errorf("alert %s: unknown timezone %q: %w", alert.ID, alert.Timezone, err)
	}
	sched, err := cron.ParseStandard(fmt.Sprintf("CRON_TZ=%s %s", alert.Timezone, alert.CronExpr))
	if err != nil {
		return fmt.Errorf("alert %s: invalid cron expression %q: %w", alert.ID, alert.CronExpr, err)
	}

	alertID := alert.ID
	job := cron.FuncJob(func() {
		// Each query inside the run carries its own budget; the run as a
		// whole is bounded by query count, the analysis cap and the
		// scheduler's lifetime context.
		if err := s.RunAlertNow(s.jobContext(), alertID); err != nil {
			logger.Error("alert run failed", "alert", alertID, "error", err)
		}
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-registration replaces the existing trigger under the same
	// identity instead of adding a duplicate job.
	if old, ok := s.jobs[alert.ID]; ok {
		s.cron.Remove(old)
	}
	s.jobs[alert.ID] = s.cron.Schedule(sched, job)

	logger.Info("alert scheduled", "alert", alert.ID, "cron", alert.CronExpr, "timezone", alert.Timezone)
	return nil
}

// UnscheduleAlert removes an alert's trigger if it has one.
func (s *Scheduler) UnscheduleAlert(alertID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.jobs[alertID]; ok {
		s.cron.Remove(id)
		delete(s.jobs, alertID)
	}
}

// ScheduledAlerts reports the alert ids currently holding a trigger.
func (s *Scheduler) ScheduledAlerts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		out = append(out, id)
	}
	return out
}

func (s *Scheduler) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseCtx
}

func (s *Scheduler) lockCampaign(id string) *sync.Mutex {
	actual, _ := s.campaignLocks.LoadOrStore(id, &sync.Mutex{})
	return actual.(*sync.Mutex)
}
