package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Collect    CollectConfig
	Crawl      CrawlConfig
	Retry      RetryConfig
	Browser    BrowserConfig
	Engine     EngineConfig
	Automation AutomationConfig
	LLM        LLMConfig
	Posting    PostingConfig
	Platforms  []PlatformConfig
	Report     ReportConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool // default: false
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting on the API.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 5
	Burst             int     // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// CollectConfig controls the content collection step.
type CollectConfig struct {
	// SourceChatID identifies the chat to collect the latest message from.
	SourceChatID string

	// Timeout is the deadline for one collection attempt.
	Timeout time.Duration // default: 60s
}

// CrawlConfig controls the bounded context crawl.
type CrawlConfig struct {
	// MaxDepth is the hard ceiling on BFS depth; seeds are depth 0.
	MaxDepth int // default: 2

	// MaxURLs is the global fetch budget across the whole crawl.
	MaxURLs int // default: 5

	// Workers bounds concurrent fetches within one depth level.
	Workers int // default: 5

	// FetchTimeout is the per-fetch deadline.
	FetchTimeout time.Duration // default: 15s

	// FetchRetries is the per-fetch retry count (0 = single attempt).
	FetchRetries int // default: 0

	// ContextMaxChars caps the extracted context per page.
	ContextMaxChars int // default: 4000

	// CacheTTL enables a cross-run page cache when > 0.
	CacheTTL time.Duration // default: 0 (disabled)
}

// RetryConfig holds the default retry policy for collection and posting.
type RetryConfig struct {
	MaxRetries int           // default: 3
	BaseDelay  time.Duration // default: 2s
}

// BrowserConfig controls the rod browser fetch engine.
type BrowserConfig struct {
	Enabled    bool   // default: false (HTTP engine only)
	Headless   bool   // default: true
	NoSandbox  bool   // default: false
	BrowserBin string // optional Chromium binary override
}

// EngineConfig controls the staged fetch-engine race.
type EngineConfig struct {
	// EscalationDelays is the staged start delay for each engine tier.
	EscalationDelays []time.Duration // default: [0s, 2s]

	// MemoryTTL is how long a per-domain engine preference is remembered.
	MemoryTTL time.Duration // default: 24h
}

// AutomationConfig points at the external device-automation service.
type AutomationConfig struct {
	BaseURL string // default: "http://127.0.0.1:9265"
	APIKey  string
}

// LLMConfig configures the content-adaptation client.
type LLMConfig struct {
	BaseURL string // default: "https://api.openai.com/v1"
	Model   string // default: "gpt-4o-mini"
	APIKey  string
	Timeout time.Duration // default: 20s
}

// PostingConfig controls the sequential destination loop.
type PostingConfig struct {
	// DelayBetween is the pause inserted between destinations to respect
	// external rate limits. Tests set it to zero.
	DelayBetween time.Duration // default: 2s
}

// PlatformConfig is the per-destination configuration.
type PlatformConfig struct {
	Name    string
	Enabled bool
	Timeout time.Duration // per execute attempt
}

// ReportConfig controls where run reports go.
type ReportConfig struct {
	SaveToFile    bool   // default: true
	OutputDir     string // default: "./output/results"
	WebhookURL    string
	WebhookSecret string
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("SYNDICATE_HOST", "0.0.0.0"),
			Port: envIntOr("SYNDICATE_PORT", 8080),
			Mode: envOr("SYNDICATE_MODE", "release"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("SYNDICATE_AUTH_ENABLED", false),
			APIKeys: envSliceOr("SYNDICATE_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SYNDICATE_RATE_RPS", 5.0),
			Burst:             envIntOr("SYNDICATE_RATE_BURST", 10),
		},
		Log: LogConfig{
			Level:  envOr("SYNDICATE_LOG_LEVEL", "info"),
			Format: envOr("SYNDICATE_LOG_FORMAT", "json"),
		},
		Collect: CollectConfig{
			SourceChatID: os.Getenv("SYNDICATE_SOURCE_CHAT"),
			Timeout:      envDurationOr("SYNDICATE_COLLECT_TIMEOUT", 60*time.Second),
		},
		Crawl: CrawlConfig{
			MaxDepth:        envIntOr("SYNDICATE_CRAWL_DEPTH", 2),
			MaxURLs:         envIntOr("SYNDICATE_CRAWL_MAX_URLS", 5),
			Workers:         envIntOr("SYNDICATE_CRAWL_WORKERS", 5),
			FetchTimeout:    envDurationOr("SYNDICATE_CRAWL_FETCH_TIMEOUT", 15*time.Second),
			FetchRetries:    envIntOr("SYNDICATE_CRAWL_FETCH_RETRIES", 0),
			ContextMaxChars: envIntOr("SYNDICATE_CRAWL_CONTEXT_CHARS", 4000),
			CacheTTL:        envDurationOr("SYNDICATE_CRAWL_CACHE_TTL", 0),
		},
		Retry: RetryConfig{
			MaxRetries: envIntOr("SYNDICATE_MAX_RETRIES", 3),
			BaseDelay:  envDurationOr("SYNDICATE_RETRY_DELAY", 2*time.Second),
		},
		Browser: BrowserConfig{
			Enabled:    envBoolOr("SYNDICATE_BROWSER_ENABLED", false),
			Headless:   envBoolOr("SYNDICATE_HEADLESS", true),
			NoSandbox:  envBoolOr("SYNDICATE_NO_SANDBOX", false),
			BrowserBin: os.Getenv("SYNDICATE_BROWSER_BIN"),
		},
		Engine: EngineConfig{
			EscalationDelays: envDurationSliceOr("SYNDICATE_ESCALATION_DELAYS", []time.Duration{0, 2 * time.Second}),
			MemoryTTL:        envDurationOr("SYNDICATE_ENGINE_MEMORY_TTL", 24*time.Hour),
		},
		Automation: AutomationConfig{
			BaseURL: envOr("SYNDICATE_AUTOMATION_URL", "http://127.0.0.1:9265"),
			APIKey:  os.Getenv("SYNDICATE_AUTOMATION_KEY"),
		},
		LLM: LLMConfig{
			BaseURL: envOr("SYNDICATE_LLM_URL", "https://api.openai.com/v1"),
			Model:   envOr("SYNDICATE_LLM_MODEL", "gpt-4o-mini"),
			APIKey:  envOr("SYNDICATE_LLM_KEY", os.Getenv("OPENAI_API_KEY")),
			Timeout: envDurationOr("SYNDICATE_LLM_TIMEOUT", 20*time.Second),
		},
		Posting: PostingConfig{
			DelayBetween: envDurationOr("SYNDICATE_POST_DELAY", 2*time.Second),
		},
		Platforms: []PlatformConfig{
			{Name: "twitter", Enabled: envBoolOr("TWITTER_ENABLED", true), Timeout: envDurationOr("TWITTER_TIMEOUT", 60*time.Second)},
			{Name: "threads", Enabled: envBoolOr("THREADS_ENABLED", false), Timeout: envDurationOr("THREADS_TIMEOUT", 60*time.Second)},
			{Name: "instagram", Enabled: envBoolOr("INSTAGRAM_ENABLED", false), Timeout: envDurationOr("INSTAGRAM_TIMEOUT", 60*time.Second)},
			{Name: "linkedin", Enabled: envBoolOr("LINKEDIN_ENABLED", false), Timeout: envDurationOr("LINKEDIN_TIMEOUT", 60*time.Second)},
		},
		Report: ReportConfig{
			SaveToFile:    envBoolOr("SYNDICATE_SAVE_RESULTS", true),
			OutputDir:     envOr("SYNDICATE_RESULTS_DIR", "./output/results"),
			WebhookURL:    os.Getenv("SYNDICATE_REPORT_WEBHOOK"),
			WebhookSecret: os.Getenv("SYNDICATE_REPORT_WEBHOOK_SECRET"),
		},
	}
}

// Validate checks the configuration before any external call is made.
// Invalid depth/timeout/retry values are fatal at startup.
func (c *Config) Validate() error {
	var problems []string

	if c.Collect.Timeout <= 0 {
		problems = append(problems, "collect timeout must be positive")
	}
	if c.Crawl.MaxDepth < 0 {
		problems = append(problems, "crawl depth must be >= 0")
	}
	if c.Crawl.MaxURLs <= 0 {
		problems = append(problems, "crawl URL budget must be positive")
	}
	if c.Crawl.Workers <= 0 {
		problems = append(problems, "crawl workers must be positive")
	}
	if c.Crawl.FetchTimeout <= 0 {
		problems = append(problems, "crawl fetch timeout must be positive")
	}
	if c.Crawl.FetchRetries < 0 {
		problems = append(problems, "crawl fetch retries must be >= 0")
	}
	if c.Retry.MaxRetries < 0 {
		problems = append(problems, "max retries must be >= 0")
	}
	if c.Retry.BaseDelay < 0 {
		problems = append(problems, "retry delay must be >= 0")
	}
	if c.Posting.DelayBetween < 0 {
		problems = append(problems, "post delay must be >= 0")
	}
	for _, p := range c.Platforms {
		if p.Enabled && p.Timeout <= 0 {
			problems = append(problems, fmt.Sprintf("%s timeout must be positive", p.Name))
		}
	}
	if c.LLM.Timeout <= 0 {
		problems = append(problems, "LLM timeout must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// EnabledPlatforms returns the enabled platform configs in configuration
// order.
func (c *Config) EnabledPlatforms() []PlatformConfig {
	out := make([]PlatformConfig, 0, len(c.Platforms))
	for _, p := range c.Platforms {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]time.Duration, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				if d, err := time.ParseDuration(trimmed); err == nil {
					result = append(result, d)
				}
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
