package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"outreach_backend/internal/draft"
	"outreach_backend/internal/store"
)

// agingRule advances leads out of one lifecycle state. Rules run in a fixed
// order each cycle; a lead advances at most one state per cycle because the
// pass reads each state's membership from the store before any change is
// committed.
type agingRule struct {
	from     store.State
	eligible func(lead store.Lead, now time.Time) bool
	apply    func(ctx context.Context, lead *store.Lead, now time.Time) bool
}

func (e *Engine) agingRules() []agingRule {
	return []agingRule{
		{
			// A lead marked sent starts its waiting clock immediately.
			from:     store.StateSent,
			eligible: func(store.Lead, time.Time) bool { return true },
			apply: func(_ context.Context, lead *store.Lead, _ time.Time) bool {
				lead.State = store.StateWaiting
				return true
			},
		},
		{
			from: store.StateWaiting,
			eligible: func(lead store.Lead, now time.Time) bool {
				return now.Sub(e.agingAnchor(lead)) >= e.noReplyAfter
			},
			apply: func(_ context.Context, lead *store.Lead, _ time.Time) bool {
				lead.State = store.StateNoReply
				return true
			},
		},
		{
			from: store.StateNoReply,
			eligible: func(lead store.Lead, now time.Time) bool {
				return now.Sub(e.agingAnchor(lead)) >= e.followUpAfter &&
					lead.FollowUpCount < e.followUpMax
			},
			apply: func(_ context.Context, lead *store.Lead, _ time.Time) bool {
				lead.State = store.StateFollowUpEligible
				return true
			},
		},
		{
			from:     store.StateFollowUpEligible,
			eligible: func(store.Lead, time.Time) bool { return true },
			apply:    e.applyFollowUp,
		},
	}
}

// agingAnchor is the instant aging countdowns measure from: the last
// recorded interaction, falling back to the send time and finally the last
// update so leads with incomplete stamps still age out instead of sticking
// forever.
func (e *Engine) agingAnchor(lead store.Lead) time.Time {
	if lead.LastInteractionAt != nil {
		return *lead.LastInteractionAt
	}
	if lead.SentAt != nil {
		return *lead.SentAt
	}
	return lead.UpdatedAt
}

// agingPass applies every rule once and commits all resulting transitions in
// a single transaction. A failure to read one state's membership skips that
// rule for the cycle, never the whole pass.
func (e *Engine) agingPass(ctx context.Context) int {
	now := e.now()
	var changed []store.Lead

	for _, rule := range e.agingRules() {
		leads, err := e.leads.ListByState(ctx, rule.from)
		if err != nil {
			e.log.DatabaseError("list leads for aging", err)
			continue
		}
		for _, lead := range leads {
			if !rule.eligible(lead, now) {
				continue
			}
			from := lead.State
			if !rule.apply(ctx, &lead, now) {
				continue
			}
			e.log.StateTransition(lead.ID.String(), string(from), string(lead.State))
			changed = append(changed, lead)
		}
	}

	if len(changed) == 0 {
		return 0
	}
	if err := e.leads.SaveAll(ctx, changed); err != nil {
		e.log.DatabaseError("commit aging pass", err)
		return 0
	}
	return len(changed)
}

// applyFollowUp regenerates one draft per channel the lead has an address
// for and puts the lead back at the front of the pipeline. Email and chat
// follow-ups are generated separately because only the chat copy is length
// capped. Exhausted generation credentials park the lead for human review
// instead of retrying forever.
func (e *Engine) applyFollowUp(ctx context.Context, lead *store.Lead, _ time.Time) bool {
	regenerated := false

	if strings.TrimSpace(lead.Email) != "" {
		followUp, err := e.drafts.Generate(ctx, *lead, draft.KindFollowUpEmail)
		if err != nil {
			return e.followUpFailure(lead, err)
		}
		lead.EmailDraft = followUp.Body
		if strings.TrimSpace(followUp.Subject) != "" {
			lead.EmailSubject = followUp.Subject
		}
		regenerated = true
	}

	if strings.TrimSpace(lead.NormalizedPhone) != "" {
		followUp, err := e.drafts.Generate(ctx, *lead, draft.KindFollowUpWhatsApp)
		if err != nil {
			return e.followUpFailure(lead, err)
		}
		lead.WhatsAppDraft = followUp.Body
		regenerated = true
	}

	// A lead with no address on either channel cannot be followed up
	// automatically; hand it to a human rather than spinning on it.
	if !regenerated {
		lead.State = store.StateNeedsReview
		return true
	}

	lead.FollowUpCount++
	lead.IsQueued = false
	lead.QueuedAt = nil
	lead.State = store.StateDrafted
	return true
}

func (e *Engine) followUpFailure(lead *store.Lead, err error) bool {
	if errors.Is(err, draft.ErrNeedsReview) {
		lead.State = store.StateNeedsReview
		return true
	}
	e.log.Warn("follow-up generation failed", "lead_id", lead.ID.String(), "error", err)
	return false
}
