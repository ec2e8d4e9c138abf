// Package channel decides which outreach channels apply to a lead.
// The decision is deterministic and does no I/O.
package channel

import (
	"strings"

	"outreach_backend/platform/phone"
)

// Channel is an outreach medium.
type Channel string

const (
	Email    Channel = "EMAIL"
	WhatsApp Channel = "WHATSAPP"
)

// Links that look like a website but are not a business's own web presence.
var nonWebsiteMarkers = []string{
	"/aclk",
	"googleadservices",
	"google.com/maps",
}

// Decide returns the applicable channels in priority order.
//
// A real website qualifies the lead for EMAIL, listed first since it is the
// lower-disruption channel. WHATSAPP requires a phone that normalizes to a
// mobile line; fixed lines cannot receive chat messages. A lead with
// neither gets no channel and is never drafted.
func Decide(websiteURL, phoneNumber string) []Channel {
	var channels []Channel
	if hasRealWebsite(websiteURL) {
		channels = append(channels, Email)
	}
	if phone.IsWhatsAppCapable(phoneNumber) {
		channels = append(channels, WhatsApp)
	}
	return channels
}

func hasRealWebsite(websiteURL string) bool {
	website := strings.ToLower(strings.TrimSpace(websiteURL))
	if website == "" {
		return false
	}

	for _, marker := range nonWebsiteMarkers {
		if strings.Contains(website, marker) {
			return false
		}
	}

	return true
}
