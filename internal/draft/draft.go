// Package draft produces outreach message drafts through a generative text
// provider, with multi-credential rotation, per-credential daily quotas and
// a shared per-minute throttle.
package draft

import "errors"

// Kind selects the prompt strategy for a generation request.
type Kind string

const (
	KindEmail            Kind = "EMAIL"
	KindWhatsApp         Kind = "WHATSAPP"
	KindFollowUpEmail    Kind = "FOLLOW_UP_EMAIL"
	KindFollowUpWhatsApp Kind = "FOLLOW_UP_WHATSAPP"
)

// IsChat reports whether the kind targets the short-message channel and is
// therefore subject to the chat length ceiling.
func (k Kind) IsChat() bool {
	return k == KindWhatsApp || k == KindFollowUpWhatsApp
}

// Draft is a generated message pending human approval. Subject is only set
// for email drafts.
type Draft struct {
	Subject string
	Body    string
}

// ErrNeedsReview signals that every eligible credential was exhausted or
// failed and no draft was produced. Callers must surface the lead for human
// review instead of substituting a generic template.
var ErrNeedsReview = errors.New("draft generation exhausted all credentials")

// maxChatChars is the length ceiling for chat-channel drafts. Longer content
// is truncated with an ellipsis marker rather than rejected.
const maxChatChars = 180
