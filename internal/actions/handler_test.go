package actions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"outreach_backend/internal/orchestrator"
	"outreach_backend/internal/store"
	"outreach_backend/platform/logger"
)

type stubStore struct {
	store.LeadStore

	leads     map[uuid.UUID]*store.Lead
	sentCalls int
}

func newStubStore(leads ...store.Lead) *stubStore {
	s := &stubStore{leads: map[uuid.UUID]*store.Lead{}}
	for _, lead := range leads {
		copied := lead
		s.leads[lead.ID] = &copied
	}
	return s
}

func (s *stubStore) MarkSent(_ context.Context, id uuid.UUID) (store.Lead, error) {
	s.sentCalls++
	lead, ok := s.leads[id]
	if !ok {
		return store.Lead{}, store.ErrNotFound
	}
	if lead.State != store.StateSent {
		lead.State = store.StateSent
		now := time.Now()
		lead.SentAt = &now
	}
	return *lead, nil
}

func (s *stubStore) MarkReplied(_ context.Context, id uuid.UUID) (store.Lead, error) {
	lead, ok := s.leads[id]
	if !ok {
		return store.Lead{}, store.ErrNotFound
	}
	lead.State = store.StateReplied
	return *lead, nil
}

func (s *stubStore) MarkClosed(_ context.Context, id uuid.UUID) (store.Lead, error) {
	lead, ok := s.leads[id]
	if !ok {
		return store.Lead{}, store.ErrNotFound
	}
	lead.State = store.StateClosed
	return *lead, nil
}

func (s *stubStore) StateCounts(context.Context) (map[store.State]int, error) {
	counts := map[store.State]int{}
	for _, lead := range s.leads {
		counts[lead.State]++
	}
	return counts, nil
}

func (s *stubStore) CountQueuedSince(context.Context, time.Time) (int, error) { return 3, nil }
func (s *stubStore) CountSentSince(context.Context, time.Time) (int, error)   { return 2, nil }
func (s *stubStore) CountBacklog(context.Context) (int, error)                { return 7, nil }

type stubTrigger struct {
	queries []orchestrator.SearchQuery
	err     error
}

func (t *stubTrigger) EnqueueQuery(q orchestrator.SearchQuery) error {
	if t.err != nil {
		return t.err
	}
	t.queries = append(t.queries, q)
	return nil
}

func newTestRouter(st store.LeadStore, trigger DiscoveryTrigger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewModule(st, trigger, logger.New("development")).RegisterRoutes(r)
	return r
}

func TestMarkSentTransitionsLead(t *testing.T) {
	lead := store.Lead{ID: uuid.New(), State: store.StateQueued}
	st := newStubStore(lead)
	r := newTestRouter(st, &stubTrigger{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/action/sent/"+lead.ID.String(), nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["state"] != string(store.StateSent) {
		t.Fatalf("expected SENT state in response, got %v", body["state"])
	}
}

func TestMarkSentIsIdempotent(t *testing.T) {
	lead := store.Lead{ID: uuid.New(), State: store.StateQueued}
	st := newStubStore(lead)
	r := newTestRouter(st, &stubTrigger{})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/action/sent/"+lead.ID.String(), nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("call %d: expected 200, got %d", i+1, w.Code)
		}
	}

	if st.leads[lead.ID].State != store.StateSent {
		t.Fatalf("expected SENT after double tap, got %s", st.leads[lead.ID].State)
	}
}

func TestActionRejectsBadID(t *testing.T) {
	r := newTestRouter(newStubStore(), &stubTrigger{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/action/replied/not-a-uuid", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestActionUnknownLeadIs404(t *testing.T) {
	r := newTestRouter(newStubStore(), &stubTrigger{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/action/closed/"+uuid.NewString(), nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestStatsReportsPipelineCounts(t *testing.T) {
	st := newStubStore(
		store.Lead{ID: uuid.New(), State: store.StateDrafted},
		store.Lead{ID: uuid.New(), State: store.StateDrafted},
		store.Lead{ID: uuid.New(), State: store.StateWaiting},
	)
	r := newTestRouter(st, &stubTrigger{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		QueuedToday int            `json:"queued_today"`
		SentToday   int            `json:"sent_today"`
		Backlog     int            `json:"backlog"`
		States      map[string]int `json:"states"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.QueuedToday != 3 || body.SentToday != 2 || body.Backlog != 7 {
		t.Fatalf("unexpected counters: %+v", body)
	}
	if body.States["DRAFTED"] != 2 || body.States["WAITING"] != 1 {
		t.Fatalf("unexpected state counts: %v", body.States)
	}
}

func TestTriggerScrapeQueuesQuery(t *testing.T) {
	trigger := &stubTrigger{}
	r := newTestRouter(newStubStore(), trigger)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/scrape",
		strings.NewReader(`{"business_type":"barber shops","location":"Wuse"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if len(trigger.queries) != 1 || trigger.queries[0].Location != "Wuse" {
		t.Fatalf("expected query queued, got %v", trigger.queries)
	}
}

func TestTriggerScrapeValidatesBody(t *testing.T) {
	trigger := &stubTrigger{}
	r := newTestRouter(newStubStore(), trigger)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader(`{"location":"Wuse"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(trigger.queries) != 0 {
		t.Fatalf("invalid request must not queue a query")
	}
}
