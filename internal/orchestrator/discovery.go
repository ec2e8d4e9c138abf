package orchestrator

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"outreach_backend/internal/channel"
	"outreach_backend/internal/draft"
	"outreach_backend/internal/scrape"
	"outreach_backend/internal/store"
	"outreach_backend/platform/phone"
)

// discoveryPass scrapes the configured queries plus any manually triggered
// ones, dedupes by source URL, enriches, and drafts. When the pipeline
// already holds enough undelivered work the whole pass is skipped; manual
// queries stay buffered for a later cycle.
func (e *Engine) discoveryPass(ctx context.Context) int {
	backlog, err := e.leads.CountBacklog(ctx)
	if err != nil {
		e.log.DatabaseError("count backlog", err)
		return 0
	}
	if backlog >= e.backlogThreshold {
		e.log.Info("discovery_skipped", "backlog", backlog, "threshold", e.backlogThreshold)
		return 0
	}

	queries := append([]SearchQuery{}, e.searchQueries...)
	queries = append(queries, e.drainManualQueries()...)

	drafted := 0
	for _, q := range queries {
		raw, err := e.scraper.Scrape(ctx, q.BusinessType, q.Location, e.maxResults)
		if err != nil {
			e.log.Warn("scrape query failed", "business_type", q.BusinessType, "location", q.Location, "error", err)
			continue
		}
		for _, r := range raw {
			if ctx.Err() != nil {
				return drafted
			}
			if e.processListing(ctx, r) {
				drafted++
			}
			e.pace(ctx)
		}
	}
	return drafted
}

func (e *Engine) drainManualQueries() []SearchQuery {
	var queries []SearchQuery
	for {
		select {
		case q := <-e.manualQueries:
			queries = append(queries, q)
		default:
			return queries
		}
	}
}

// processListing runs one scraped listing through upsert, enrichment,
// channel decision and draft generation. It reports whether the lead ended
// the pass freshly drafted. Every failure is contained to the one lead.
func (e *Engine) processListing(ctx context.Context, raw scrape.RawLead) bool {
	sourceURL := strings.TrimSpace(raw.SourceURL)
	if sourceURL == "" {
		e.log.Debug("listing dropped, no source url", "name", raw.Name)
		return false
	}

	// Empty listing fields go in as nil so rediscovery never blanks data a
	// previous scrape or enrichment already filled in.
	lead, err := e.leads.UpsertBySourceURL(ctx, store.UpsertLeadParams{
		SourceURL:       sourceURL,
		BusinessName:    optStr(raw.Name),
		Category:        optStr(raw.Category),
		PhoneNumber:     optStr(raw.Phone),
		NormalizedPhone: optStr(phone.NormalizeE164(raw.Phone)),
		WebsiteURL:      optStr(raw.Website),
		Rating:          optStr(raw.Rating),
		ReviewCount:     optStr(raw.Reviews),
		PriorityScore:   store.IntPtr(priorityScore(raw)),
	})
	if err != nil {
		e.log.DatabaseError("upsert discovered lead", err)
		return false
	}

	// Rediscovery of a lead that already moved past the intake states only
	// refreshes its listing data.
	if lead.State != store.StateDiscovered && lead.State != store.StateEnriched {
		return false
	}

	log := e.log.WithLead(lead.ID.String(), lead.BusinessName)

	if lead.Email == "" && strings.TrimSpace(lead.WebsiteURL) != "" {
		emails, err := e.enricher.HarvestEmails(ctx, lead.WebsiteURL)
		if err != nil {
			log.Debug("enrichment failed", "website", lead.WebsiteURL, "error", err)
		} else if len(emails) > 0 {
			state := store.StateEnriched
			lead, err = e.leads.UpsertBySourceURL(ctx, store.UpsertLeadParams{
				SourceURL: lead.SourceURL,
				Email:     store.StringPtr(emails[0]),
				State:     &state,
			})
			if err != nil {
				e.log.DatabaseError("persist enrichment", err)
				return false
			}
			log.StateTransition(lead.ID.String(), string(store.StateDiscovered), string(store.StateEnriched))
		}
	}

	channels := usableChannels(lead)
	if len(channels) == 0 {
		log.Debug("no usable outreach channel", "website", lead.WebsiteURL, "phone", lead.PhoneNumber)
		return false
	}

	return e.draftLead(ctx, lead, channels)
}

// usableChannels narrows the channel decision to channels the lead actually
// has an address for. Email without a harvested address is unusable even
// when the decision logic would prefer it, and likewise WhatsApp without a
// normalizable phone.
func usableChannels(lead store.Lead) []channel.Channel {
	var usable []channel.Channel
	for _, ch := range channel.Decide(lead.WebsiteURL, lead.PhoneNumber) {
		switch ch {
		case channel.Email:
			if strings.TrimSpace(lead.Email) == "" {
				continue
			}
		case channel.WhatsApp:
			if strings.TrimSpace(lead.NormalizedPhone) == "" {
				continue
			}
		}
		usable = append(usable, ch)
	}
	return usable
}

// draftLead generates one draft per usable channel. The lead becomes DRAFTED
// only when every channel produced a draft; exhausted credentials park it in
// NEEDS_REVIEW, and transient errors leave it untouched for the next cycle.
func (e *Engine) draftLead(ctx context.Context, lead store.Lead, channels []channel.Channel) bool {
	params := store.UpsertLeadParams{SourceURL: lead.SourceURL}

	for _, ch := range channels {
		var kind draft.Kind
		switch ch {
		case channel.Email:
			kind = draft.KindEmail
		case channel.WhatsApp:
			kind = draft.KindWhatsApp
		}

		generated, err := e.drafts.Generate(ctx, lead, kind)
		if err != nil {
			if errors.Is(err, draft.ErrNeedsReview) {
				e.parkForReview(ctx, lead)
				return false
			}
			e.log.Warn("draft generation failed", "lead_id", lead.ID.String(), "channel", string(ch), "error", err)
			return false
		}

		switch ch {
		case channel.Email:
			params.EmailSubject = store.StringPtr(generated.Subject)
			params.EmailDraft = store.StringPtr(generated.Body)
		case channel.WhatsApp:
			params.WhatsAppDraft = store.StringPtr(generated.Body)
		}
	}

	params.PrimaryChannel = store.StringPtr(string(channels[0]))
	params.State = store.StatePtr(store.StateDrafted)

	updated, err := e.leads.UpsertBySourceURL(ctx, params)
	if err != nil {
		e.log.DatabaseError("persist drafts", err)
		return false
	}
	e.log.StateTransition(updated.ID.String(), string(lead.State), string(store.StateDrafted))
	return true
}

func (e *Engine) parkForReview(ctx context.Context, lead store.Lead) {
	state := store.StateNeedsReview
	if _, err := e.leads.UpsertBySourceURL(ctx, store.UpsertLeadParams{
		SourceURL: lead.SourceURL,
		State:     &state,
	}); err != nil {
		e.log.DatabaseError("park lead for review", err)
		return
	}
	e.log.StateTransition(lead.ID.String(), string(lead.State), string(store.StateNeedsReview))
}

func optStr(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// priorityScore ranks a listing for the reviewer. Strong ratings and review
// volume raise it; a missing website raises it further because those
// businesses have the most to gain.
func priorityScore(raw scrape.RawLead) int {
	score := 0
	if rating, err := strconv.ParseFloat(strings.TrimSpace(raw.Rating), 64); err == nil {
		score += int(rating * 10)
	}
	if reviews, err := strconv.Atoi(strings.TrimSpace(raw.Reviews)); err == nil {
		if reviews > 50 {
			reviews = 50
		}
		score += reviews
	}
	if strings.TrimSpace(raw.Website) == "" {
		score += 25
	}
	return score
}
