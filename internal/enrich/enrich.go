// Package enrich harvests contact emails from a lead's public website.
package enrich

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"

	"outreach_backend/platform/logger"
)

// Enricher is the contact-harvesting collaborator contract.
type Enricher interface {
	HarvestEmails(ctx context.Context, websiteURL string) ([]string, error)
}

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// Domains and suffixes that show up in page source but are never a business
// contact address (tracking SDKs, placeholders, asset filenames).
var forbiddenFragments = []string{
	"sentry.io",
	"example.com",
	"google.com",
	"wixpress.com",
	".png",
	".jpg",
	".jpeg",
	".gif",
}

// contactHints mark anchor hrefs worth following from the landing page.
var contactHints = []string{"contact", "about", "reach", "impressum"}

const maxFollowLinks = 3

// Harvester fetches a site's landing page plus a handful of likely contact
// pages and extracts every plausible email address.
type Harvester struct {
	http *http.Client
	log  *logger.Logger
}

func NewHarvester(log *logger.Logger) *Harvester {
	return &Harvester{
		http: &http.Client{Timeout: 15 * time.Second},
		log:  log,
	}
}

// HarvestEmails returns the deduplicated addresses found on the site, or an
// empty slice when nothing usable turns up. Fetch failures on follow-up pages
// are tolerated; only a failure on the landing page is an error.
func (h *Harvester) HarvestEmails(ctx context.Context, websiteURL string) ([]string, error) {
	base, err := url.Parse(strings.TrimSpace(websiteURL))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid website url %q", websiteURL)
	}

	landing, err := h.fetch(ctx, base.String())
	if err != nil {
		return nil, err
	}

	found := map[string]struct{}{}
	collectEmails(landing, found)

	for _, link := range ContactLinks(landing, base) {
		page, err := h.fetch(ctx, link)
		if err != nil {
			h.log.Debug("contact page fetch failed", "url", link, "error", err)
			continue
		}
		collectEmails(page, found)
	}

	emails := make([]string, 0, len(found))
	for email := range found {
		emails = append(emails, email)
	}
	sort.Strings(emails)
	return emails, nil
}

func (h *Harvester) fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; outreach-enricher/1.0)")

	resp, err := h.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func collectEmails(page string, into map[string]struct{}) {
	for _, email := range ExtractEmails(page) {
		into[email] = struct{}{}
	}
}

// ExtractEmails pulls every plausible address out of raw page source,
// lowercased, with tracking and placeholder domains filtered out.
func ExtractEmails(page string) []string {
	seen := map[string]struct{}{}
	var emails []string
	for _, match := range emailPattern.FindAllString(page, -1) {
		email := strings.ToLower(match)
		if isForbidden(email) {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		emails = append(emails, email)
	}
	return emails
}

func isForbidden(email string) bool {
	for _, fragment := range forbiddenFragments {
		if strings.Contains(email, fragment) {
			return true
		}
	}
	return false
}

// ContactLinks parses the landing page and returns up to three same-page
// anchors that look like contact or about pages, resolved against base.
func ContactLinks(page string, base *url.URL) []string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil
	}

	seen := map[string]struct{}{}
	var links []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(links) >= maxFollowLinks {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			if link, ok := resolveContactHref(n, base); ok {
				if _, dup := seen[link]; !dup {
					seen[link] = struct{}{}
					links = append(links, link)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links
}

func resolveContactHref(n *html.Node, base *url.URL) (string, bool) {
	var href string
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			href = strings.TrimSpace(attr.Val)
			break
		}
	}
	if href == "" || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") || strings.HasPrefix(href, "#") {
		return "", false
	}

	lower := strings.ToLower(href)
	matched := false
	for _, hint := range contactHints {
		if strings.Contains(lower, hint) {
			matched = true
			break
		}
	}
	if !matched {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Host != base.Host {
		return "", false
	}
	return resolved.String(), true
}
