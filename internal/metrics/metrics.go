package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	ProviderFetches    int64
	ProviderErrors     int64
	CandidatesSeen     int64
	DuplicatesFiltered int64
	ItemsIngested      int64
	InsertFailures     int64
	AnalysisCalls      int64
	AnalysisFailures   int64
	AlertRuns          int64
	CampaignRuns       int64

	// Timings
	LastRunDuration    time.Duration
	TotalRunDuration   time.Duration
	AverageRunDuration time.Duration
	RunCount           int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) IncrementProviderFetches() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProviderFetches++
}

func (m *Metrics) IncrementProviderErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProviderErrors++
}

func (m *Metrics) AddCandidatesSeen(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CandidatesSeen += int64(n)
}

func (m *Metrics) AddDuplicatesFiltered(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered += int64(n)
}

func (m *Metrics) AddItemsIngested(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsIngested += int64(n)
}

func (m *Metrics) AddInsertFailures(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertFailures += int64(n)
}

func (m *Metrics) IncrementAnalysisCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AnalysisCalls++
}

func (m *Metrics) IncrementAnalysisFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AnalysisFailures++
}

func (m *Metrics) IncrementAlertRuns() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AlertRuns++
}

func (m *Metrics) IncrementCampaignRuns() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CampaignRuns++
}

func (m *Metrics) RecordRunDuration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastRunDuration = duration
	m.TotalRunDuration += duration
	m.RunCount++

	if m.RunCount > 0 {
		m.AverageRunDuration = m.TotalRunDuration / time.Duration(m.RunCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"provider_fetches":        m.ProviderFetches,
		"provider_errors":         m.ProviderErrors,
		"candidates_seen":         m.CandidatesSeen,
		"duplicates_filtered":     m.DuplicatesFiltered,
		"items_ingested":          m.ItemsIngested,
		"insert_failures":         m.InsertFailures,
		"analysis_calls":          m.AnalysisCalls,
		"analysis_failures":       m.AnalysisFailures,
		"alert_runs":              m.AlertRuns,
		"campaign_runs":           m.CampaignRuns,
		"last_run_duration_ms":    m.LastRunDuration.Milliseconds(),
		"average_run_duration_ms": m.AverageRunDuration.Milliseconds(),
		"last_run_time":           m.LastRunTime.Format(time.RFC3339),
		"last_error_time":         m.LastErrorTime.Format(time.RFC3339),
		"last_error":              m.LastError,
		"is_healthy":              m.IsHealthy,
	}
}
