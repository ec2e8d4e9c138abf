package draft

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Completer issues one completion request against the generative provider
// using the given credential. The failover generator owns rotation and
// quota; the completer is a thin transport.
type Completer interface {
	Complete(ctx context.Context, apiKey, prompt string) (string, error)
}

// GeminiCompleter calls the Gemini API. A client is created per call because
// each attempt may carry a different credential.
type GeminiCompleter struct {
	model   string
	timeout time.Duration
}

func NewGeminiCompleter(model string, timeout time.Duration) *GeminiCompleter {
	if model == "" {
		model = "gemini-2.5-flash-lite"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiCompleter{model: model, timeout: timeout}
}

func (g *GeminiCompleter) Complete(ctx context.Context, apiKey, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("gemini client init: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned empty response")
	}

	return text, nil
}
