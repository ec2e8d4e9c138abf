package orchestrator

import (
	"context"
	"time"

	"outreach_backend/internal/store"
)

// dispatchPass pushes drafted leads to the review channel within the daily
// cap. The budget counts everything queued since UTC midnight, so restarts
// mid-day never grant extra sends. Delivery failures leave the lead DRAFTED
// and it is retried, oldest first, on the next cycle.
func (e *Engine) dispatchPass(ctx context.Context) int {
	dayStart := utcDayStart(e.now())

	used, err := e.leads.CountQueuedSince(ctx, dayStart)
	if err != nil {
		e.log.DatabaseError("count queued today", err)
		return 0
	}

	budget := e.dispatchCap - used
	if budget <= 0 {
		e.log.DispatchResult(0, 0)
		return 0
	}

	leads, err := e.leads.ListDispatchable(ctx, budget)
	if err != nil {
		e.log.DatabaseError("list dispatchable leads", err)
		return 0
	}

	queued := 0
	var changed []store.Lead
	for i, lead := range leads {
		if i > 0 {
			e.pace(ctx)
		}
		if err := e.deliverer.Deliver(ctx, lead); err != nil {
			e.log.Warn("review delivery failed", "lead_id", lead.ID.String(), "error", err)
			continue
		}

		queuedAt := e.now()
		lead.IsQueued = true
		lead.QueuedAt = &queuedAt
		lead.State = store.StateQueued
		changed = append(changed, lead)
		queued++

		e.log.StateTransition(lead.ID.String(), string(store.StateDrafted), string(store.StateQueued))
	}

	if len(changed) > 0 {
		if err := e.leads.SaveAll(ctx, changed); err != nil {
			e.log.DatabaseError("commit dispatch pass", err)
			return 0
		}
	}

	e.log.DispatchResult(queued, budget)
	return queued
}

func utcDayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
