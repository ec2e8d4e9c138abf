package orchestrator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"outreach_backend/internal/store"
)

func addDrafted(st *fakeStore, i int, createdAt time.Time) store.Lead {
	return st.add(store.Lead{
		SourceURL:     fmt.Sprintf("https://maps.example/drafted-%d", i),
		BusinessName:  fmt.Sprintf("Biz %d", i),
		State:         store.StateDrafted,
		WhatsAppDraft: "hello there",
		CreatedAt:     createdAt,
	})
}

func TestDispatchRespectsDailyBudget(t *testing.T) {
	st := newFakeStore(baseTime)
	for i := 0; i < 20; i++ {
		addDrafted(st, i, baseTime.Add(time.Duration(i)*time.Minute))
	}
	// Ten leads already queued earlier today eat into the cap of fifteen.
	for i := 0; i < 10; i++ {
		st.add(store.Lead{
			SourceURL: fmt.Sprintf("https://maps.example/queued-%d", i),
			State:     store.StateQueued,
			IsQueued:  true,
			QueuedAt:  timePtr(baseTime.Add(-2 * time.Hour)),
		})
	}

	del := &fakeDeliverer{}
	e := newTestEngine(st, &fakeGenerator{}, del, nil, nil, baseTime)

	if queued := e.dispatchPass(context.Background()); queued != 5 {
		t.Fatalf("expected 5 dispatched, got %d", queued)
	}
	if len(del.delivered) != 5 {
		t.Fatalf("expected 5 deliveries, got %d", len(del.delivered))
	}
}

func TestDispatchIgnoresYesterdaysQueue(t *testing.T) {
	st := newFakeStore(baseTime)
	for i := 0; i < 20; i++ {
		addDrafted(st, i, baseTime.Add(time.Duration(i)*time.Minute))
	}
	for i := 0; i < 10; i++ {
		st.add(store.Lead{
			SourceURL: fmt.Sprintf("https://maps.example/old-%d", i),
			State:     store.StateQueued,
			IsQueued:  true,
			QueuedAt:  timePtr(baseTime.Add(-30 * time.Hour)),
		})
	}

	e := newTestEngine(st, &fakeGenerator{}, &fakeDeliverer{}, nil, nil, baseTime)
	if queued := e.dispatchPass(context.Background()); queued != 15 {
		t.Fatalf("yesterday's sends must not count against today, got %d", queued)
	}
}

func TestDispatchOldestFirst(t *testing.T) {
	st := newFakeStore(baseTime)
	newer := addDrafted(st, 1, baseTime.Add(-1*time.Hour))
	oldest := addDrafted(st, 2, baseTime.Add(-72*time.Hour))
	_ = newer

	del := &fakeDeliverer{}
	e := newTestEngine(st, &fakeGenerator{}, del, nil, nil, baseTime)
	e.dispatchCap = 1

	if queued := e.dispatchPass(context.Background()); queued != 1 {
		t.Fatalf("expected 1 dispatched, got %d", queued)
	}
	if del.delivered[0] != oldest.ID {
		t.Fatalf("expected oldest lead dispatched first")
	}
}

func TestDispatchFailureLeavesLeadDrafted(t *testing.T) {
	st := newFakeStore(baseTime)
	failing := addDrafted(st, 1, baseTime.Add(-2*time.Hour))
	working := addDrafted(st, 2, baseTime.Add(-1*time.Hour))

	del := &fakeDeliverer{failFor: map[uuid.UUID]bool{failing.ID: true}}
	e := newTestEngine(st, &fakeGenerator{}, del, nil, nil, baseTime)

	if queued := e.dispatchPass(context.Background()); queued != 1 {
		t.Fatalf("expected 1 dispatched, got %d", queued)
	}

	got := st.mustGet(failing.SourceURL)
	if got.State != store.StateDrafted || got.IsQueued || got.QueuedAt != nil {
		t.Fatalf("failed delivery must leave lead DRAFTED and unqueued, got state=%s is_queued=%v", got.State, got.IsQueued)
	}

	sent := st.mustGet(working.SourceURL)
	if sent.State != store.StateQueued || !sent.IsQueued || sent.QueuedAt == nil {
		t.Fatalf("delivered lead must be QUEUED with queue stamp, got state=%s", sent.State)
	}
}
