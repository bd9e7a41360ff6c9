// Package model holds the domain types shared across packages.
package model

import "time"

// PlanTier bounds how many auto-ingestion runs a campaign gets per day.
type PlanTier string

const (
	PlanBasic     PlanTier = "BASIC"
	PlanPro       PlanTier = "PRO"
	PlanUnlimited PlanTier = "UNLIMITED"
)

// DailyQuota returns the per-day run allowance and whether it is bounded.
// Unknown tiers fall back to the most restrictive plan.
func (p PlanTier) DailyQuota() (int, bool) {
	switch p {
	case PlanPro:
		return 3, true
	case PlanUnlimited:
		return 0, false
	default:
		return 1, true
	}
}

// ItemStatus tracks an ingested item through downstream processing.
type ItemStatus string

const (
	StatusPending   ItemStatus = "PENDING"
	StatusProcessed ItemStatus = "PROCESSED"
	StatusError     ItemStatus = "ERROR"
)

// Campaign is a monitored subject plus its retrieval settings and quota
// counters.
type Campaign struct {
	ID                string
	Name              string
	EntityQuery       string
	LocalityHints     []string
	ExtraKeywords     []string
	Language          string
	Country           string
	TargetResultCount int
	LookbackDays      int
	Plan              PlanTier
	AutoIngestEnabled bool

	RunsToday      int
	LastRunAt      *time.Time
	LastQuotaReset *time.Time

	CreatedAt time.Time
}

// IngestedItem is one persisted mention.
type IngestedItem struct {
	ID          string
	CampaignID  string
	Title       string
	URL         string
	PublishedAt *time.Time
	Status      ItemStatus
	CreatedAt   time.Time
}

// Alert is a cron-triggered discovery run over one or more stored queries.
type Alert struct {
	ID         string
	OwnerID    string
	CampaignID *string // items persist under this campaign when set
	Name       string
	CronExpr   string
	Timezone   string
	Analyze    bool
	Active     bool
	CreatedAt  time.Time
}

// AlertQuery is one retrieval request owned by an alert.
type AlertQuery struct {
	ID                string
	AlertID           string
	QueryText         string
	Country           string
	Language          string
	LookbackDays      int
	TargetResultCount int
	LocalityHints     []string
}

// AlertRunNotification records the outcome of one alert run.
type AlertRunNotification struct {
	ID              string
	AlertID         string
	ItemsDiscovered int
	Aggregate       *AggregateInsight
	CreatedAt       time.Time
}

// Analysis is the stored judgment for one item.
type Analysis struct {
	ID             string
	ItemID         string
	SentimentScore float64
	SentimentLabel string
	Topics         []string
	Summary        string
	Stance         string
	CreatedAt      time.Time
}

// AggregateInsight summarizes a batch of analyzed items.
type AggregateInsight struct {
	OverallSentiment   float64        `json:"overall_sentiment"`
	StanceDistribution map[string]int `json:"stance_distribution"`
	TopTopics          []string       `json:"top_topics"`
	KeyTakeaways       []string       `json:"key_takeaways"`
	NarrativeSummary   string         `json:"narrative_summary"`
}
