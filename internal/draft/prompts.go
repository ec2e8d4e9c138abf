package draft

import (
	"fmt"
	"strings"

	"outreach_backend/internal/store"
)

// Sender identity baked into every prompt.
const (
	companyName        = "Anchor Digitals"
	senderName         = "Peter"
	companyDescription = "a tech company specializing in digital solutions for local Nigerian businesses"
	defaultCity        = "Abuja"
)

func buildPrompt(kind Kind, lead store.Lead) string {
	switch kind {
	case KindEmail:
		return buildEmailPrompt(lead)
	case KindWhatsApp:
		return buildWhatsAppPrompt(lead)
	case KindFollowUpEmail:
		return buildFollowUpEmailPrompt(lead)
	case KindFollowUpWhatsApp:
		return buildFollowUpWhatsAppPrompt(lead)
	}
	return ""
}

func buildEmailPrompt(lead store.Lead) string {
	name := businessName(lead)
	category := businessCategory(lead)
	hasWebsite := strings.TrimSpace(lead.WebsiteURL) != ""

	var context strings.Builder
	if hasWebsite {
		fmt.Fprintf(&context, "I noticed you have a website at %s", lead.WebsiteURL)
	} else {
		context.WriteString("I noticed you don't currently have a website")
	}
	if rating := usableRating(lead); rating != "" {
		fmt.Fprintf(&context, " and I saw your %s-star rating on Google", rating)
	}
	context.WriteString(".")

	return fmt.Sprintf(`You are %s from %s, %s.

You are writing a VERY DIRECT and ACTIONABLE outreach email to a %s business in %s, Nigeria.

Business Details:
- Name: %s
- Location: %s
- Category: %s
- Has Website: %s

Research Context:
%s

Your Task:
1. Analyze this business type (%s) and identify its most likely bottleneck (e.g., manual appointment tracking, poor online presence, or competition density in %s).
2. Write a punchy, high-conversion email (MAX 150 words) that:
   - Skips the "I hope you are well" fluff.
   - Identifies a specific gap based on your analysis.
   - Offers a specific result local to %s (e.g. "filling chairs" for salons, "securing bookings" for clinics).
   - Clear Call to Action: Ask for a brief chat or mention you'll be in the area.
   - Tone: Confident, Abuja-local, and professional.

Rules:
- NO passive language.
- Use active language ("I saw", "We solve", "Let's chat").
- Reference their %s location.
- Do not speak pidgin, be strictly professional.

Return ONLY valid JSON:
{
  "subject": "Quick question for %s",
  "message": "email body here"
}
`, senderName, companyName, companyDescription,
		category, defaultCity,
		name, defaultCity, category, yesNo(hasWebsite),
		context.String(),
		category, defaultCity, defaultCity, defaultCity,
		name)
}

func buildWhatsAppPrompt(lead store.Lead) string {
	name := businessName(lead)
	category := businessCategory(lead)
	hasWebsite := strings.TrimSpace(lead.WebsiteURL) != ""

	ratingNote := ""
	if rating := usableRating(lead); rating != "" {
		ratingNote = fmt.Sprintf(" with a %s rating", rating)
	}

	verb := "don't have"
	if hasWebsite {
		verb = "have"
	}

	return fmt.Sprintf(`You are %s from %s, %s.

You are writing a DIRECT WhatsApp message to %s, a %s in %s.

Research Context:
- They %s a website
- Found on Google Maps%s

Your Task:
1. Identify a quick pain point relevant to a %s in %s.
2. Write a brief, high-impact WhatsApp message (MAX 180 characters) that:
   - "Abuja Local" opener: "Hi! %s from %s here in %s."
   - The Hook: Direct mention of a gap or their Maps presence.
   - The Value: "We help local %ss automate their appointments/lead flow."
   - The CTA: "Can we chat for 2 mins?"

Rules:
- NO fluff. NO links.
- Use Nigerian English nuances (Abuja local).
- Under 180 chars.
- Do not speak pidgin, be strictly professional.

Return ONLY valid JSON:
{
  "message": "whatsapp message here"
}
`, senderName, companyName, companyDescription,
		name, category, defaultCity,
		verb, ratingNote,
		category, defaultCity,
		senderName, companyName, defaultCity,
		category)
}

func buildFollowUpEmailPrompt(lead store.Lead) string {
	name := businessName(lead)
	category := businessCategory(lead)

	return fmt.Sprintf(`You are %s from %s, %s.

You are writing a RESPECTFUL FOLLOW-UP (Nudge) email to %s, a %s in %s.
You emailed them a few days ago regarding digital solutions/automation but haven't heard back.

Your Task:
1. Write a brief, non-intrusive nudge email (MAX 80 words).
2. Tone: Helpful, low-pressure, Abuja-local.
3. Hook: "Just circling back" or "Checking if you saw my last email."
4. Call to Action: "Is this something you'd be open to discussing briefly?"

Rules:
- NO guilt-tripping.
- Keep it extremely short.

Return ONLY valid JSON:
{
  "subject": "Quick follow up",
  "message": "follow-up email body here"
}
`, senderName, companyName, companyDescription,
		name, category, defaultCity)
}

func buildFollowUpWhatsAppPrompt(lead store.Lead) string {
	name := businessName(lead)
	category := businessCategory(lead)

	return fmt.Sprintf(`You are %s from %s, %s.

You are writing a RESPECTFUL FOLLOW-UP (Nudge) WhatsApp message to %s, a %s in %s.
You messaged them a few days ago regarding digital solutions/automation but haven't heard back.

Your Task:
1. Write a brief, non-intrusive nudge (MAX 140 characters).
2. Tone: Helpful, low-pressure, Abuja-local.
3. Hook: "Just circling back" or "Checking if you saw my last message."
4. Call to Action: "Open to a quick chat?"

Rules:
- NO guilt-tripping.
- Keep it under 140 characters.

Return ONLY valid JSON:
{
  "message": "follow-up message here"
}
`, senderName, companyName, companyDescription,
		name, category, defaultCity)
}

func businessName(lead store.Lead) string {
	if strings.TrimSpace(lead.BusinessName) == "" {
		return "your business"
	}
	return lead.BusinessName
}

func businessCategory(lead store.Lead) string {
	if strings.TrimSpace(lead.Category) == "" {
		return "business"
	}
	return lead.Category
}

func usableRating(lead store.Lead) string {
	rating := strings.TrimSpace(lead.Rating)
	if rating == "" || rating == "0" {
		return ""
	}
	return rating
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
