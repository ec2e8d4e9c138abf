// Package review delivers draft cards to the human approval channel.
//
// Each drafted lead becomes one card per channel draft, pushed to a Telegram
// chat with one-tap action buttons. Approval and reply tracking flow back
// through the action endpoints; nothing is ever sent to a lead automatically.
package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"outreach_backend/internal/store"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

// Deliverer is the dispatch collaborator contract.
type Deliverer interface {
	Deliver(ctx context.Context, lead store.Lead) error
}

// Client pushes review cards through the Telegram Bot API.
type Client struct {
	token         string
	chatID        string
	actionBaseURL string
	enabled       bool
	http          *http.Client
	log           *logger.Logger
}

func NewClient(cfg config.ReviewChannelConfig, log *logger.Logger) *Client {
	return &Client{
		token:         cfg.GetTelegramBotToken(),
		chatID:        cfg.GetTelegramChatID(),
		actionBaseURL: strings.TrimRight(cfg.GetActionBaseURL(), "/"),
		enabled:       cfg.IsReviewChannelEnabled(),
		http:          &http.Client{Timeout: 30 * time.Second},
		log:           log,
	}
}

// Deliver sends one card per draft the lead carries. The lead only counts as
// dispatched when every card went through; a partial delivery is an error so
// the dispatcher retries the whole lead next cycle.
func (c *Client) Deliver(ctx context.Context, lead store.Lead) error {
	if !c.enabled {
		return fmt.Errorf("review channel is not configured")
	}

	delivered := 0
	if strings.TrimSpace(lead.EmailDraft) != "" {
		if err := c.sendCard(ctx, c.emailCard(lead), c.emailKeyboard(lead)); err != nil {
			return fmt.Errorf("deliver email card: %w", err)
		}
		delivered++
	}
	if strings.TrimSpace(lead.WhatsAppDraft) != "" {
		if err := c.sendCard(ctx, c.whatsappCard(lead), c.whatsappKeyboard(lead)); err != nil {
			return fmt.Errorf("deliver whatsapp card: %w", err)
		}
		delivered++
	}

	if delivered == 0 {
		return fmt.Errorf("lead %s has no drafts to deliver", lead.ID)
	}
	return nil
}

func (c *Client) emailCard(lead store.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📧 *EMAIL DRAFT*\n\n")
	fmt.Fprintf(&b, "*Business:* %s\n", Escape(lead.BusinessName))
	if lead.Category != "" {
		fmt.Fprintf(&b, "*Category:* %s\n", Escape(lead.Category))
	}
	if lead.Rating != "" && lead.Rating != "0" {
		fmt.Fprintf(&b, "*Rating:* %s ⭐ \\(%s reviews\\)\n", Escape(lead.Rating), Escape(lead.ReviewCount))
	}
	if lead.PriorityScore > 0 {
		fmt.Fprintf(&b, "*Priority:* %d\n", lead.PriorityScore)
	}
	fmt.Fprintf(&b, "*To:* %s\n", Escape(lead.Email))
	if lead.FollowUpCount > 0 {
		fmt.Fprintf(&b, "*Follow\\-up:* \\#%d\n", lead.FollowUpCount)
	}
	fmt.Fprintf(&b, "\n*Subject:* %s\n\n", Escape(lead.EmailSubject))
	fmt.Fprintf(&b, "```\n%s\n```", EscapeCode(lead.EmailDraft))
	return b.String()
}

func (c *Client) whatsappCard(lead store.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💬 *WHATSAPP DRAFT*\n\n")
	fmt.Fprintf(&b, "*Business:* %s\n", Escape(lead.BusinessName))
	if lead.Category != "" {
		fmt.Fprintf(&b, "*Category:* %s\n", Escape(lead.Category))
	}
	if lead.PriorityScore > 0 {
		fmt.Fprintf(&b, "*Priority:* %d\n", lead.PriorityScore)
	}
	fmt.Fprintf(&b, "*To:* %s\n", Escape(lead.NormalizedPhone))
	if lead.FollowUpCount > 0 {
		fmt.Fprintf(&b, "*Follow\\-up:* \\#%d\n", lead.FollowUpCount)
	}
	fmt.Fprintf(&b, "\n```\n%s\n```", EscapeCode(lead.WhatsAppDraft))
	return b.String()
}

type inlineButton struct {
	Text         string `json:"text"`
	URL          string `json:"url,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`
}

func (c *Client) emailKeyboard(lead store.Lead) [][]inlineButton {
	mailto := fmt.Sprintf("mailto:%s?subject=%s&body=%s",
		lead.Email,
		url.QueryEscape(lead.EmailSubject),
		url.QueryEscape(lead.EmailDraft))
	return [][]inlineButton{
		{{Text: "✉️ Open Email", URL: mailto}},
		c.actionRow(lead),
	}
}

func (c *Client) whatsappKeyboard(lead store.Lead) [][]inlineButton {
	wa := fmt.Sprintf("https://wa.me/%s?text=%s",
		strings.TrimPrefix(lead.NormalizedPhone, "+"),
		url.QueryEscape(lead.WhatsAppDraft))
	return [][]inlineButton{
		{{Text: "💬 Open WhatsApp", URL: wa}},
		c.actionRow(lead),
	}
}

func (c *Client) actionRow(lead store.Lead) []inlineButton {
	if c.actionBaseURL != "" {
		return []inlineButton{
			{Text: "✅ Sent", URL: fmt.Sprintf("%s/action/sent/%s", c.actionBaseURL, lead.ID)},
			{Text: "💚 Replied", URL: fmt.Sprintf("%s/action/replied/%s", c.actionBaseURL, lead.ID)},
		}
	}
	return []inlineButton{
		{Text: "✅ Sent", CallbackData: fmt.Sprintf("sent:%s", lead.ID)},
		{Text: "💚 Replied", CallbackData: fmt.Sprintf("replied:%s", lead.ID)},
	}
}

type sendMessageRequest struct {
	ChatID      string `json:"chat_id"`
	Text        string `json:"text"`
	ParseMode   string `json:"parse_mode"`
	ReplyMarkup struct {
		InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
	} `json:"reply_markup"`
}

func (c *Client) sendCard(ctx context.Context, text string, keyboard [][]inlineButton) error {
	payload := sendMessageRequest{
		ChatID:    c.chatID,
		Text:      text,
		ParseMode: "MarkdownV2",
	}
	payload.ReplyMarkup.InlineKeyboard = keyboard

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}

// markdownV2Specials are the characters Telegram requires escaped in
// MarkdownV2 text outside code blocks.
const markdownV2Specials = "_*[]()~`>#+-=|{}.!"

// Escape backslash-escapes MarkdownV2 special characters in plain text.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(markdownV2Specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// EscapeCode escapes only backslash and backtick, the two characters that
// are special inside a MarkdownV2 code block.
func EscapeCode(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "`", "\\`")
}
