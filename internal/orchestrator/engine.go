// Package orchestrator runs the outreach control loop: aging leads through
// the lifecycle, discovering new ones, and dispatching drafts for review.
//
// The loop is deliberately single-threaded. One cycle runs the passes in a
// fixed order, then sleeps. A panic inside a cycle is recovered and logged so
// a single bad lead can never take the daemon down.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"outreach_backend/internal/draft"
	"outreach_backend/internal/enrich"
	"outreach_backend/internal/review"
	"outreach_backend/internal/scrape"
	"outreach_backend/internal/store"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

// DraftGenerator is the generation collaborator contract.
type DraftGenerator interface {
	Generate(ctx context.Context, lead store.Lead, kind draft.Kind) (draft.Draft, error)
}

// SearchQuery is one discovery query, e.g. "barber shops" in "Wuse".
type SearchQuery struct {
	BusinessType string
	Location     string
}

const defaultLocation = "Abuja"

// ParseQuery splits a configured query string of the form
// "<business type> in <location>". Without an " in " separator the whole
// string is the business type and the location falls back to the default.
func ParseQuery(raw string) SearchQuery {
	if idx := strings.LastIndex(raw, " in "); idx > 0 {
		return SearchQuery{
			BusinessType: strings.TrimSpace(raw[:idx]),
			Location:     strings.TrimSpace(raw[idx+len(" in "):]),
		}
	}
	return SearchQuery{BusinessType: strings.TrimSpace(raw), Location: defaultLocation}
}

// Engine owns the control loop and its collaborators.
type Engine struct {
	leads     store.LeadStore
	scraper   scrape.Scraper
	enricher  enrich.Enricher
	drafts    DraftGenerator
	deliverer review.Deliverer
	log       *logger.Logger

	cycleInterval time.Duration
	noReplyAfter  time.Duration
	followUpAfter time.Duration
	followUpMax   int

	dispatchCap      int
	backlogThreshold int

	searchQueries  []SearchQuery
	maxResults     int
	interLeadDelay time.Duration

	manualQueries chan SearchQuery

	now   func() time.Time
	cycle int64
}

func NewEngine(
	lifecycle config.LifecycleConfig,
	dispatch config.DispatchConfig,
	discovery config.DiscoveryConfig,
	leads store.LeadStore,
	scraper scrape.Scraper,
	enricher enrich.Enricher,
	drafts DraftGenerator,
	deliverer review.Deliverer,
	log *logger.Logger,
) *Engine {
	queries := make([]SearchQuery, 0, len(discovery.GetSearchQueries()))
	for _, raw := range discovery.GetSearchQueries() {
		queries = append(queries, ParseQuery(raw))
	}

	return &Engine{
		leads:            leads,
		scraper:          scraper,
		enricher:         enricher,
		drafts:           drafts,
		deliverer:        deliverer,
		log:              log,
		cycleInterval:    lifecycle.GetCycleInterval(),
		noReplyAfter:     lifecycle.GetNoReplyAfter(),
		followUpAfter:    lifecycle.GetFollowUpAfter(),
		followUpMax:      lifecycle.GetFollowUpMax(),
		dispatchCap:      dispatch.GetDispatchDailyCap(),
		backlogThreshold: dispatch.GetBacklogThreshold(),
		searchQueries:    queries,
		maxResults:       discovery.GetScrapeMaxResults(),
		interLeadDelay:   discovery.GetInterLeadDelay(),
		manualQueries:    make(chan SearchQuery, 16),
		now:              time.Now,
	}
}

// EnqueueQuery schedules an extra discovery query for the next cycle. It is
// called from the HTTP trigger endpoint and never blocks.
func (e *Engine) EnqueueQuery(q SearchQuery) error {
	select {
	case e.manualQueries <- q:
		return nil
	default:
		return fmt.Errorf("discovery queue is full")
	}
}

// Run executes cycles until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	for {
		e.cycle++
		e.log.CycleStart(e.cycle)

		aged, discovered, dispatched := e.runCycle(ctx)
		e.log.CycleEnd(e.cycle, aged, discovered, dispatched)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.cycleInterval):
		}
	}
}

func (e *Engine) runCycle(ctx context.Context) (aged, discovered, dispatched int) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("cycle_panic", "cycle", e.cycle, "panic", fmt.Sprintf("%v", r))
		}
	}()

	aged = e.agingPass(ctx)
	discovered = e.discoveryPass(ctx)
	dispatched = e.dispatchPass(ctx)
	return aged, discovered, dispatched
}

// pace sleeps the inter-lead delay, respecting cancellation. The scraper
// target tolerates bursts poorly, so discovery spreads its work out.
func (e *Engine) pace(ctx context.Context) {
	if e.interLeadDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(e.interLeadDelay):
	}
}
