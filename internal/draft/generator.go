package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"outreach_backend/internal/store"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

// Generator wraps the generative provider with credential failover.
//
// Credentials are tried in fixed priority order. Each credential has an
// independent daily quota tracked in the usage store and keyed by UTC date;
// one rate limiter is shared across all credentials so the aggregate
// per-minute limit of the upstream provider is respected regardless of
// which credential a call lands on.
type Generator struct {
	credentials []string
	dailyQuota  int
	retryPause  time.Duration
	limiter     *rate.Limiter
	completer   Completer
	usage       store.UsageStore
	log         *logger.Logger
	now         func() time.Time
}

func NewGenerator(cfg config.GenerationConfig, completer Completer, usage store.UsageStore, log *logger.Logger) *Generator {
	perMinute := cfg.GetGenCallsPerMinute()
	return &Generator{
		credentials: cfg.GetGeminiAPIKeys(),
		dailyQuota:  cfg.GetGenDailyQuotaPerKey(),
		retryPause:  cfg.GetGenRetryPause(),
		limiter:     rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1),
		completer:   completer,
		usage:       usage,
		log:         log,
		now:         time.Now,
	}
}

// Generate produces a draft for the lead, or ErrNeedsReview when every
// eligible credential is exhausted or failed. A credential that fails is
// never retried within the same call; the generator moves on after a short
// pause.
func (g *Generator) Generate(ctx context.Context, lead store.Lead, kind Kind) (Draft, error) {
	prompt := buildPrompt(kind, lead)
	if prompt == "" {
		return Draft{}, fmt.Errorf("unsupported draft kind %q", kind)
	}

	day := g.now().UTC().Format("2006-01-02")
	usage, err := g.usage.GetDailyUsage(ctx, day)
	if err != nil {
		return Draft{}, fmt.Errorf("read generation usage: %w", err)
	}

	for credential, apiKey := range g.credentials {
		if usage[credential] >= g.dailyQuota {
			continue
		}

		// Pace globally before the call crosses the provider boundary.
		if err := g.limiter.Wait(ctx); err != nil {
			return Draft{}, err
		}

		raw, err := g.completer.Complete(ctx, apiKey, prompt)
		if err != nil {
			g.log.GenerationFailure(string(kind), credential, err)
			if err := g.pause(ctx); err != nil {
				return Draft{}, err
			}
			continue
		}

		parsed, err := parseDraft(raw, kind)
		if err != nil {
			// A malformed response counts as a provider failure and rotates
			// to the next credential.
			g.log.GenerationFailure(string(kind), credential, err)
			if err := g.pause(ctx); err != nil {
				return Draft{}, err
			}
			continue
		}

		if err := g.usage.IncrementUsage(ctx, credential, day); err != nil {
			g.log.DatabaseError("increment generation usage", err)
		}

		if kind.IsChat() {
			parsed.Body = truncateChat(parsed.Body)
		}

		return parsed, nil
	}

	return Draft{}, ErrNeedsReview
}

func (g *Generator) pause(ctx context.Context) error {
	if g.retryPause <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(g.retryPause):
		return nil
	}
}

type providerResponse struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func parseDraft(raw string, kind Kind) (Draft, error) {
	text := stripCodeFences(raw)

	var resp providerResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return Draft{}, fmt.Errorf("malformed provider response: %w", err)
	}

	if strings.TrimSpace(resp.Message) == "" {
		return Draft{}, fmt.Errorf("provider response missing message")
	}
	if kind == KindEmail && strings.TrimSpace(resp.Subject) == "" {
		return Draft{}, fmt.Errorf("provider response missing email subject")
	}

	return Draft{Subject: resp.Subject, Body: resp.Message}, nil
}

// stripCodeFences removes a surrounding markdown code block the provider
// sometimes wraps JSON in.
func stripCodeFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return text
	}
	lines = lines[1:]
	if strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func truncateChat(body string) string {
	runes := []rune(body)
	if len(runes) <= maxChatChars {
		return body
	}
	return string(runes[:maxChatChars-3]) + "..."
}
