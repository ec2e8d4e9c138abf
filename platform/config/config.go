// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the action API server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// GenerationConfig provides settings for the draft generation failover.
type GenerationConfig interface {
	GetGeminiAPIKeys() []string
	GetGeminiModel() string
	GetGenDailyQuotaPerKey() int
	GetGenCallsPerMinute() int
	GetGenRequestTimeout() time.Duration
	GetGenRetryPause() time.Duration
}

// DispatchConfig provides settings for the budgeted review dispatch.
type DispatchConfig interface {
	GetDispatchDailyCap() int
	GetBacklogThreshold() int
}

// LifecycleConfig provides settings for time-based lead aging.
type LifecycleConfig interface {
	GetCycleInterval() time.Duration
	GetNoReplyAfter() time.Duration
	GetFollowUpAfter() time.Duration
	GetFollowUpMax() int
}

// DiscoveryConfig provides settings for the scraping discovery pass.
type DiscoveryConfig interface {
	GetScraperURL() string
	GetScrapeMaxResults() int
	GetSearchQueries() []string
	GetInterLeadDelay() time.Duration
}

// ReviewChannelConfig provides settings for the Telegram review channel.
type ReviewChannelConfig interface {
	GetTelegramBotToken() string
	GetTelegramChatID() string
	GetActionBaseURL() string
	IsReviewChannelEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env              string
	HTTPAddr         string
	DatabaseURL      string
	CORSAllowAll     bool
	CORSOrigins      []string
	GeminiAPIKeys    []string
	GeminiModel      string
	GenDailyQuota    int
	GenCallsPerMin   int
	GenTimeout       time.Duration
	GenRetryPause    time.Duration
	DispatchDailyCap int
	BacklogThreshold int
	CycleInterval    time.Duration
	NoReplyAfter     time.Duration
	FollowUpAfter    time.Duration
	FollowUpMax      int
	ScraperURL       string
	ScrapeMaxResults int
	SearchQueries    []string
	InterLeadDelay   time.Duration
	TelegramBotToken string
	TelegramChatID   string
	ActionBaseURL    string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// GenerationConfig implementation
func (c *Config) GetGeminiAPIKeys() []string          { return c.GeminiAPIKeys }
func (c *Config) GetGeminiModel() string              { return c.GeminiModel }
func (c *Config) GetGenDailyQuotaPerKey() int         { return c.GenDailyQuota }
func (c *Config) GetGenCallsPerMinute() int           { return c.GenCallsPerMin }
func (c *Config) GetGenRequestTimeout() time.Duration { return c.GenTimeout }
func (c *Config) GetGenRetryPause() time.Duration     { return c.GenRetryPause }

// DispatchConfig implementation
func (c *Config) GetDispatchDailyCap() int { return c.DispatchDailyCap }
func (c *Config) GetBacklogThreshold() int { return c.BacklogThreshold }

// LifecycleConfig implementation
func (c *Config) GetCycleInterval() time.Duration { return c.CycleInterval }
func (c *Config) GetNoReplyAfter() time.Duration  { return c.NoReplyAfter }
func (c *Config) GetFollowUpAfter() time.Duration { return c.FollowUpAfter }
func (c *Config) GetFollowUpMax() int             { return c.FollowUpMax }

// DiscoveryConfig implementation
func (c *Config) GetScraperURL() string            { return c.ScraperURL }
func (c *Config) GetScrapeMaxResults() int         { return c.ScrapeMaxResults }
func (c *Config) GetSearchQueries() []string       { return c.SearchQueries }
func (c *Config) GetInterLeadDelay() time.Duration { return c.InterLeadDelay }

// ReviewChannelConfig implementation
func (c *Config) GetTelegramBotToken() string { return c.TelegramBotToken }
func (c *Config) GetTelegramChatID() string   { return c.TelegramChatID }
func (c *Config) GetActionBaseURL() string    { return c.ActionBaseURL }
func (c *Config) IsReviewChannelEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		CORSAllowAll:     corsAllowAll,
		CORSOrigins:      corsOrigins,
		GeminiAPIKeys:    splitCSV(getEnv("GEMINI_API_KEYS", "")),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash-lite"),
		GenDailyQuota:    mustInt(getEnv("GEN_DAILY_QUOTA_PER_KEY", "25")),
		GenCallsPerMin:   mustInt(getEnv("GEN_CALLS_PER_MINUTE", "15")),
		GenTimeout:       mustDuration(getEnv("GEN_REQUEST_TIMEOUT", "30s")),
		GenRetryPause:    mustDuration(getEnv("GEN_RETRY_PAUSE", "2s")),
		DispatchDailyCap: mustInt(getEnv("DISPATCH_DAILY_CAP", "15")),
		BacklogThreshold: mustInt(getEnv("BACKLOG_THRESHOLD", "30")),
		CycleInterval:    mustDuration(getEnv("CYCLE_INTERVAL", "10m")),
		NoReplyAfter:     mustDuration(getEnv("NO_REPLY_AFTER", "48h")),
		FollowUpAfter:    mustDuration(getEnv("FOLLOW_UP_AFTER", "120h")),
		FollowUpMax:      mustInt(getEnv("FOLLOW_UP_MAX", "2")),
		ScraperURL:       getEnv("SCRAPER_URL", "http://localhost:3100"),
		ScrapeMaxResults: mustInt(getEnv("SCRAPE_MAX_RESULTS", "10")),
		SearchQueries:    splitCSV(getEnv("SEARCH_QUERIES", "")),
		InterLeadDelay:   mustDuration(getEnv("INTER_LEAD_DELAY", "2s")),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		ActionBaseURL:    getEnv("ACTION_API_PUBLIC_URL", "http://localhost:8080"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if len(cfg.GeminiAPIKeys) == 0 {
		return nil, fmt.Errorf("GEMINI_API_KEYS is required (comma-separated, tried in priority order)")
	}
	if cfg.GenDailyQuota <= 0 || cfg.GenCallsPerMin <= 0 {
		return nil, fmt.Errorf("GEN_DAILY_QUOTA_PER_KEY and GEN_CALLS_PER_MINUTE must be positive")
	}
	if cfg.DispatchDailyCap <= 0 {
		return nil, fmt.Errorf("DISPATCH_DAILY_CAP must be positive")
	}
	if cfg.CycleInterval <= 0 {
		return nil, fmt.Errorf("CYCLE_INTERVAL must be a positive duration")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
