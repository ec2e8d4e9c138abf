package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"outreach_backend/internal/draft"
	"outreach_backend/internal/scrape"
	"outreach_backend/internal/store"
	"outreach_backend/platform/logger"
)

// fakeStore is an in-memory LeadStore keyed by source URL.
type fakeStore struct {
	leads map[string]*store.Lead
	now   time.Time
}

func newFakeStore(now time.Time) *fakeStore {
	return &fakeStore{leads: map[string]*store.Lead{}, now: now}
}

func (f *fakeStore) add(lead store.Lead) store.Lead {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = f.now
	}
	lead.UpdatedAt = f.now
	copied := lead
	f.leads[lead.SourceURL] = &copied
	return copied
}

func (f *fakeStore) UpsertBySourceURL(_ context.Context, p store.UpsertLeadParams) (store.Lead, error) {
	existing, ok := f.leads[p.SourceURL]
	if !ok {
		lead := store.Lead{
			ID:        uuid.New(),
			SourceURL: p.SourceURL,
			State:     store.StateDiscovered,
			CreatedAt: f.now,
			UpdatedAt: f.now,
		}
		applyParams(&lead, p)
		f.leads[p.SourceURL] = &lead
		return lead, nil
	}
	applyParams(existing, p)
	existing.UpdatedAt = f.now
	return *existing, nil
}

// applyParams mirrors the repository's COALESCE semantics: any non-nil
// field overwrites, nil fields are untouched.
func applyParams(lead *store.Lead, p store.UpsertLeadParams) {
	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setStr(&lead.BusinessName, p.BusinessName)
	setStr(&lead.Category, p.Category)
	setStr(&lead.PhoneNumber, p.PhoneNumber)
	setStr(&lead.NormalizedPhone, p.NormalizedPhone)
	setStr(&lead.Email, p.Email)
	setStr(&lead.WebsiteURL, p.WebsiteURL)
	setStr(&lead.Rating, p.Rating)
	setStr(&lead.ReviewCount, p.ReviewCount)
	setStr(&lead.PrimaryChannel, p.PrimaryChannel)
	setStr(&lead.EmailSubject, p.EmailSubject)
	setStr(&lead.EmailDraft, p.EmailDraft)
	setStr(&lead.WhatsAppDraft, p.WhatsAppDraft)
	if p.PriorityScore != nil {
		lead.PriorityScore = *p.PriorityScore
	}
	if p.State != nil {
		lead.State = *p.State
	}
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (store.Lead, error) {
	for _, lead := range f.leads {
		if lead.ID == id {
			return *lead, nil
		}
	}
	return store.Lead{}, store.ErrNotFound
}

func (f *fakeStore) ListByState(_ context.Context, state store.State) ([]store.Lead, error) {
	var out []store.Lead
	for _, lead := range f.leads {
		if lead.State == state {
			out = append(out, *lead)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) ListDispatchable(_ context.Context, limit int) ([]store.Lead, error) {
	var out []store.Lead
	for _, lead := range f.leads {
		if lead.State == store.StateDrafted && !lead.IsQueued {
			out = append(out, *lead)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) CountQueuedSince(_ context.Context, since time.Time) (int, error) {
	count := 0
	for _, lead := range f.leads {
		if lead.QueuedAt != nil && !lead.QueuedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) CountSentSince(_ context.Context, since time.Time) (int, error) {
	count := 0
	for _, lead := range f.leads {
		if lead.SentAt != nil && !lead.SentAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) CountBacklog(_ context.Context) (int, error) {
	count := 0
	for _, lead := range f.leads {
		if lead.State == store.StateQueued || lead.State == store.StateDrafted {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) SaveAll(_ context.Context, leads []store.Lead) error {
	for _, lead := range leads {
		copied := lead
		f.leads[lead.SourceURL] = &copied
	}
	return nil
}

func (f *fakeStore) markState(id uuid.UUID, state store.State, stampSent, stampInteraction bool) (store.Lead, error) {
	for _, lead := range f.leads {
		if lead.ID != id {
			continue
		}
		if lead.State == state {
			return *lead, nil
		}
		lead.State = state
		if stampSent {
			now := f.now
			lead.SentAt = &now
		}
		if stampInteraction {
			now := f.now
			lead.LastInteractionAt = &now
		}
		return *lead, nil
	}
	return store.Lead{}, store.ErrNotFound
}

func (f *fakeStore) MarkSent(_ context.Context, id uuid.UUID) (store.Lead, error) {
	return f.markState(id, store.StateSent, true, true)
}

func (f *fakeStore) MarkReplied(_ context.Context, id uuid.UUID) (store.Lead, error) {
	return f.markState(id, store.StateReplied, false, true)
}

func (f *fakeStore) MarkClosed(_ context.Context, id uuid.UUID) (store.Lead, error) {
	return f.markState(id, store.StateClosed, false, false)
}

func (f *fakeStore) StateCounts(_ context.Context) (map[store.State]int, error) {
	counts := map[store.State]int{}
	for _, lead := range f.leads {
		counts[lead.State]++
	}
	return counts, nil
}

func (f *fakeStore) mustGet(sourceURL string) store.Lead {
	lead, ok := f.leads[sourceURL]
	if !ok {
		panic(fmt.Sprintf("no lead for %s", sourceURL))
	}
	return *lead
}

type fakeGenerator struct {
	drafts map[draft.Kind]draft.Draft
	err    error
	calls  []draft.Kind
}

func (g *fakeGenerator) Generate(_ context.Context, _ store.Lead, kind draft.Kind) (draft.Draft, error) {
	g.calls = append(g.calls, kind)
	if g.err != nil {
		return draft.Draft{}, g.err
	}
	if d, ok := g.drafts[kind]; ok {
		return d, nil
	}
	return draft.Draft{Subject: "Quick question", Body: "generated body"}, nil
}

type fakeDeliverer struct {
	delivered []uuid.UUID
	failFor   map[uuid.UUID]bool
}

func (d *fakeDeliverer) Deliver(_ context.Context, lead store.Lead) error {
	if d.failFor[lead.ID] {
		return fmt.Errorf("telegram unavailable")
	}
	d.delivered = append(d.delivered, lead.ID)
	return nil
}

type fakeScraper struct {
	results map[string][]scrape.RawLead
	queries []SearchQuery
}

func (s *fakeScraper) Scrape(_ context.Context, businessType, location string, _ int) ([]scrape.RawLead, error) {
	s.queries = append(s.queries, SearchQuery{BusinessType: businessType, Location: location})
	return s.results[businessType], nil
}

type fakeEnricher struct {
	emails map[string][]string
}

func (e *fakeEnricher) HarvestEmails(_ context.Context, websiteURL string) ([]string, error) {
	return e.emails[websiteURL], nil
}

func newTestEngine(st store.LeadStore, gen DraftGenerator, del *fakeDeliverer, sc *fakeScraper, en *fakeEnricher, now time.Time) *Engine {
	if del == nil {
		del = &fakeDeliverer{}
	}
	if sc == nil {
		sc = &fakeScraper{}
	}
	if en == nil {
		en = &fakeEnricher{emails: map[string][]string{}}
	}
	return &Engine{
		leads:            st,
		scraper:          sc,
		enricher:         en,
		drafts:           gen,
		deliverer:        del,
		log:              logger.New("development"),
		cycleInterval:    10 * time.Minute,
		noReplyAfter:     48 * time.Hour,
		followUpAfter:    120 * time.Hour,
		followUpMax:      2,
		dispatchCap:      15,
		backlogThreshold: 30,
		maxResults:       10,
		manualQueries:    make(chan SearchQuery, 16),
		now:              func() time.Time { return now },
	}
}

func timePtr(t time.Time) *time.Time { return &t }
