// Package scrape provides the HTTP client for the headless scraper service.
// The scraper itself (browser automation, selectors, stealth) lives in a
// separate service; the core only consumes its listing output.
package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

// RawLead is one listing as returned by the scraper service.
type RawLead struct {
	Name      string `json:"name"`
	Category  string `json:"category"`
	Phone     string `json:"phone"`
	Website   string `json:"website"`
	Rating    string `json:"rating"`
	Reviews   string `json:"reviews"`
	SourceURL string `json:"source_url"`
}

// Scraper is the discovery collaborator contract the orchestrator depends on.
type Scraper interface {
	Scrape(ctx context.Context, businessType, location string, maxResults int) ([]RawLead, error)
}

type scrapeRequest struct {
	BusinessType string `json:"business_type"`
	Location     string `json:"location"`
	MaxResults   int    `json:"max_results"`
}

type scrapeResponse struct {
	Results []RawLead `json:"results"`
}

// Client calls the scraper service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

func NewClient(cfg config.DiscoveryConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.GetScraperURL(), "/"),
		http:    &http.Client{Timeout: 120 * time.Second},
		log:     log,
	}
}

// Scrape runs one listing query. The service may return fewer results than
// requested; an upstream failure is returned to the caller, which skips the
// query for the cycle.
func (c *Client) Scrape(ctx context.Context, businessType, location string, maxResults int) ([]RawLead, error) {
	body, err := json.Marshal(scrapeRequest{
		BusinessType: businessType,
		Location:     location,
		MaxResults:   maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal scrape request: %w", err)
	}

	url := fmt.Sprintf("%s/scrape", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scraper request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("scraper service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var payload scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode scraper payload: %w", err)
	}

	c.log.Debug("scrape query complete", "business_type", businessType, "location", location, "results", len(payload.Results))
	return payload.Results, nil
}
