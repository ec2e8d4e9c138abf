package store

import (
	"time"

	"github.com/google/uuid"
)

// State is a lead's position in the outreach lifecycle.
type State string

const (
	StateDiscovered       State = "DISCOVERED"
	StateEnriched         State = "ENRICHED"
	StateDrafted          State = "DRAFTED"
	StateQueued           State = "QUEUED"
	StateSent             State = "SENT"
	StateWaiting          State = "WAITING"
	StateNoReply          State = "NO_REPLY"
	StateFollowUpEligible State = "FOLLOW_UP_ELIGIBLE"
	StateReplied          State = "REPLIED"
	StateClosed           State = "CLOSED"
	StateNeedsReview      State = "NEEDS_REVIEW"
)

// IsTerminal reports whether no automatic transition may leave the state.
// NEEDS_REVIEW counts as terminal until a human resolves it manually.
func (s State) IsTerminal() bool {
	switch s {
	case StateReplied, StateClosed, StateNeedsReview:
		return true
	}
	return false
}

// Lead is one discovered business tracked through the outreach lifecycle.
// It is keyed by SourceURL (the listing URL) and never deleted.
type Lead struct {
	ID              uuid.UUID
	SourceURL       string
	BusinessName    string
	Category        string
	PhoneNumber     string
	NormalizedPhone string
	Email           string
	WebsiteURL      string
	Rating          string
	ReviewCount     string
	PriorityScore   int

	PrimaryChannel string
	EmailSubject   string
	EmailDraft     string
	WhatsAppDraft  string

	State             State
	IsQueued          bool
	QueuedAt          *time.Time
	SentAt            *time.Time
	LastInteractionAt *time.Time
	FollowUpCount     int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpsertLeadParams is a partial lead record keyed by SourceURL. Nil fields
// are left untouched on an existing row; non-nil fields overwrite.
type UpsertLeadParams struct {
	SourceURL       string
	BusinessName    *string
	Category        *string
	PhoneNumber     *string
	NormalizedPhone *string
	Email           *string
	WebsiteURL      *string
	Rating          *string
	ReviewCount     *string
	PriorityScore   *int
	PrimaryChannel  *string
	EmailSubject    *string
	EmailDraft      *string
	WhatsAppDraft   *string
	State           *State
}

// StringPtr is a convenience for building UpsertLeadParams.
func StringPtr(s string) *string { return &s }

// IntPtr is a convenience for building UpsertLeadParams.
func IntPtr(i int) *int { return &i }

// StatePtr is a convenience for building UpsertLeadParams.
func StatePtr(s State) *State { return &s }
