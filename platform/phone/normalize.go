// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "NG"

// NormalizeE164 formats a phone number to E.164. If parsing fails or the
// number is invalid, it returns an empty string so callers can treat the
// lead as having no usable phone.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" || strings.EqualFold(trimmed, "N/A") {
		return ""
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return ""
	}

	if !phonenumbers.IsValidNumber(number) {
		return ""
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// IsWhatsAppCapable reports whether a number normalizes to a valid mobile
// line. Fixed lines cannot receive WhatsApp messages.
func IsWhatsAppCapable(input string) bool {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" || strings.EqualFold(trimmed, "N/A") {
		return false
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return false
	}
	if !phonenumbers.IsValidNumber(number) {
		return false
	}

	switch phonenumbers.GetNumberType(number) {
	case phonenumbers.MOBILE, phonenumbers.FIXED_LINE_OR_MOBILE:
		return true
	default:
		return false
	}
}
