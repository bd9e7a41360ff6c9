// Package pipeline runs the retrieval cascade: query variants against the
// feed providers across escalating relaxation tiers, then dedup and
// relevance ranking over everything collected.
package pipeline

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bbxlabs/mirador/internal/feed"
	"github.com/bbxlabs/mirador/internal/logger"
	"github.com/bbxlabs/mirador/internal/metrics"
	"github.com/bbxlabs/mirador/internal/query"
)

const (
	maxVariantsPerTier = 6
	perQueryResults    = 35
)

// Request describes one discovery run for a tracked entity.
type Request struct {
	Entity            string
	LocalityHints     []string
	ExtraKeywords     []string
	Language          string
	Country           string
	TargetResultCount int
	LookbackDays      int
}

// Result is the ranked outcome of a cascade run.
type Result struct {
	Candidates []feed.Candidate // ranked, truncated to TargetResultCount
	UniqueSeen int              // unique candidates before truncation
	TiersRun   []string
}

// Backfiller is the site-scoped sweep the cascade escalates to as tier C.
type Backfiller interface {
	FetchAll(ctx context.Context, aliases, localities []string, q feed.Query) []feed.Candidate
}

// Orchestrator escalates through retrieval tiers until the target unique
// count is reached or the tiers are exhausted. Cheap, precise tiers run
// first; broad and expensive ones only on a persisting deficit.
type Orchestrator struct {
	providers       []feed.Provider
	backfill        Backfiller
	parallelism     int
	lookbackCeiling int // days
	now             func() time.Time
}

func NewOrchestrator(providers []feed.Provider, backfill Backfiller, parallelism, lookbackCeilingDays int) *Orchestrator {
	if parallelism < 1 {
		parallelism = 1
	}
	if lookbackCeilingDays < 1 {
		lookbackCeilingDays = 90
	}
	return &Orchestrator{
		providers:       providers,
		backfill:        backfill,
		parallelism:     parallelism,
		lookbackCeiling: lookbackCeilingDays,
		now:             time.Now,
	}
}

// Run executes the cascade. The caller bounds the run with a context
// deadline; when it expires the orchestrator abandons remaining tiers and
// returns whatever was collected so far. Collected items are never
// discarded between tiers.
func (o *Orchestrator) Run(ctx context.Context, req Request) Result {
	target := req.TargetResultCount
	if target < 1 {
		target = 1
	}
	lookback := req.LookbackDays
	if lookback < 1 {
		lookback = 14
	}

	variants := query.BuildVariants(req.Entity, req.LocalityHints, req.ExtraKeywords)
	tokens := query.Tokens(variants)
	aliases := query.ExpandAliases(req.Entity, req.ExtraKeywords)

	tierA := selectVariants(variants, true)
	tierB := selectVariants(variants, false)
	since := o.now().AddDate(0, 0, -lookback)

	var all []feed.Candidate
	var tiersRun []string

	runTier := func(name string, fn func() []feed.Candidate) bool {
		if ctx.Err() != nil {
			logger.Warn("run budget exhausted, abandoning remaining tiers", "tier", name)
			return false
		}
		got := fn()
		all = append(all, got...)
		tiersRun = append(tiersRun, name)
		logger.Debug("tier complete", "tier", name, "collected", len(got), "unique_total", len(Dedupe(all)))
		return true
	}

	// Tier A: locality-boosted variants.
	if len(tierA) > 0 {
		runTier("A", func() []feed.Candidate {
			return o.fetchVariants(ctx, tierA, req, since)
		})
	}

	// Tier B: national fallback, no locality qualifiers.
	if len(Dedupe(all)) < target {
		runTier("B", func() []feed.Candidate {
			return o.fetchVariants(ctx, tierB, req, since)
		})
	}

	// Tier C: site-scoped backfill over the known local media.
	if len(Dedupe(all)) < target && o.backfill != nil {
		runTier("C", func() []feed.Candidate {
			return o.backfill.FetchAll(ctx, aliases, req.LocalityHints, feed.Query{
				Language: req.Language,
				Country:  req.Country,
				Since:    since,
			})
		})
	}

	// Tier D: double the lookback window once, capped, and retry A and B.
	if len(Dedupe(all)) < target {
		widened := lookback * 2
		if widened > o.lookbackCeiling {
			widened = o.lookbackCeiling
		}
		if widened > lookback {
			wideSince := o.now().AddDate(0, 0, -widened)
			runTier("D", func() []feed.Candidate {
				got := o.fetchVariants(ctx, tierA, req, wideSince)
				if ctx.Err() == nil {
					got = append(got, o.fetchVariants(ctx, tierB, req, wideSince)...)
				}
				return got
			})
		}
	}

	unique := Dedupe(all)
	metrics.Global.AddCandidatesSeen(len(all))
	metrics.Global.AddDuplicatesFiltered(len(all) - len(unique))

	ranked := Rank(unique, tokens, req.LocalityHints)
	if len(ranked) > target {
		ranked = ranked[:target]
	}

	return Result{Candidates: ranked, UniqueSeen: len(unique), TiersRun: tiersRun}
}

// fetchVariants runs every (variant, provider) pair of a tier with bounded
// parallelism. Each fetch carries its own timeout through the fetcher's
// HTTP client, so a hung provider cannot stall the rest of the tier.
// Provider errors are logged and contribute zero candidates.
func (o *Orchestrator) fetchVariants(ctx context.Context, variants []query.Variant, req Request, since time.Time) []feed.Candidate {
	var mu sync.Mutex
	var out []feed.Candidate

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)

	for _, v := range variants {
		for _, p := range o.providers {
			variant, provider := v, p
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				items, err := provider.Fetch(gctx, feed.Query{
					Text:       variant.Text,
					Language:   req.Language,
					Country:    req.Country,
					Since:      since,
					MaxResults: perQueryResults,
				})
				if err != nil {
					logger.Debug("provider fetch failed", "provider", provider.Name(), "query", variant.Text, "error", err)
					return nil
				}
				mu.Lock()
				out = append(out, items...)
				mu.Unlock()
				return nil
			})
		}
	}

	_ = g.Wait()
	return out
}

// selectVariants picks a tier's variants. The broad forms (the bare name,
// or name+locality for the local tier) are the recall anchors and always
// run. Qualified variants fill the remaining slots, sampled evenly across
// the bucket so role, party and keyword qualifiers all get queried instead
// of the cap stopping at the first role keywords.
func selectVariants(variants []query.Variant, withLocality bool) []query.Variant {
	var broad, qualified []query.Variant
	for _, v := range variants {
		if v.HasLocality != withLocality {
			continue
		}
		if v.Qualified {
			qualified = append(qualified, v)
		} else {
			broad = append(broad, v)
		}
	}

	if len(broad) >= maxVariantsPerTier {
		return broad[:maxVariantsPerTier]
	}

	out := broad
	slots := maxVariantsPerTier - len(out)
	step := len(qualified) / slots
	if step < 1 {
		step = 1
	}
	for i := 0; i < len(qualified) && slots > 0; i += step {
		out = append(out, qualified[i])
		slots--
	}
	return out
}
