package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Storage   StorageConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls how automation sessions are acquired.
type BrowserConfig struct {
	// DefaultEngine is the backend used when a request does not name one.
	DefaultEngine string // default: "rod"

	// Engines lists the backends exposed to callers.
	// default: ["rod", "rod-stealth", "chromedp", "selenium", "static"]
	Engines []string

	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// DriverPath is the chromedriver binary used by the selenium engine.
	DriverPath string // default: "/usr/bin/chromedriver"

	// DriverPort is the local port the chromedriver service listens on.
	DriverPort int // default: 4444

	// DefaultProxy is the proxy URL for all browser traffic.
	DefaultProxy string

	// UserAgent overrides the browser user agent when non-empty.
	UserAgent string

	// BlockedResourceTypes lists resource types the rod engines block.
	// Images and stylesheets are left alone since they feed computed style.
	// default: ["Media"]
	BlockedResourceTypes []string

	// BlockAds drops requests to well-known ad and tracking domains.
	BlockAds bool // default: true

	// AllowFileURLs lets the static engine read file:// documents from the
	// local disk. Only the CLI turns it on; the HTTP server never does.
	AllowFileURLs bool // default: false
}

// ScraperConfig controls scraping behavior.
type ScraperConfig struct {
	// SettleDelay is the fixed wait after navigation.
	SettleDelay time.Duration // default: 5s

	// SettleTimeout bounds selector polling when a wait selector is used.
	SettleTimeout time.Duration // default: 15s

	// PollInterval is the selector polling interval.
	PollInterval time.Duration // default: 250ms

	// DefaultTimeout is the per-scrape timeout.
	DefaultTimeout time.Duration // default: 60s

	// MaxTimeout is the maximum allowed timeout from the client.
	MaxTimeout time.Duration // default: 300s

	// NavigationTimeout is the max time for navigation alone.
	NavigationTimeout time.Duration // default: 30s
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per API key.
	Burst int // default: 3
}

// CacheConfig controls the scrape result cache.
type CacheConfig struct {
	// TTL is how long results are kept at most.
	TTL time.Duration // default: 1h

	// CleanupInterval is how often expired results are purged.
	CleanupInterval time.Duration // default: 5m
}

// StorageConfig controls the optional S3 archive of exports.
type StorageConfig struct {
	Bucket    string
	Region    string // default: "us-east-1"
	KeyPrefix string // default: "stylegrab"
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Enabled reports whether a bucket is configured.
func (s StorageConfig) Enabled() bool { return s.Bucket != "" }

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"

	// NoColor disables ANSI colours in text output.
	NoColor bool // default: false
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is applied first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to read .env file", "error", err)
	}

	return &Config{
		Server: ServerConfig{
			Host: envOr("STYLEGRAB_HOST", "0.0.0.0"),
			Port: envIntOr("STYLEGRAB_PORT", 8080),
			Mode: envOr("STYLEGRAB_MODE", "release"),
		},
		Browser: BrowserConfig{
			DefaultEngine: envOr("STYLEGRAB_ENGINE", "rod"),
			Engines: envSliceOr("STYLEGRAB_ENGINES", []string{
				"rod", "rod-stealth", "chromedp", "selenium", "static",
			}),
			Headless:     envBoolOr("STYLEGRAB_HEADLESS", true),
			NoSandbox:    envBoolOr("STYLEGRAB_NO_SANDBOX", true),
			BrowserBin:   os.Getenv("STYLEGRAB_BROWSER_BIN"),
			DriverPath:   envOr("STYLEGRAB_DRIVER_PATH", "/usr/bin/chromedriver"),
			DriverPort:   envIntOr("STYLEGRAB_DRIVER_PORT", 4444),
			DefaultProxy: os.Getenv("STYLEGRAB_PROXY"),
			UserAgent:    os.Getenv("STYLEGRAB_USER_AGENT"),
			BlockedResourceTypes: envSliceOr("STYLEGRAB_BLOCKED_RESOURCES", []string{
				"Media",
			}),
			BlockAds: envBoolOr("STYLEGRAB_BLOCK_ADS", true),
		},
		Scraper: ScraperConfig{
			SettleDelay:       envDurationOr("STYLEGRAB_SETTLE_DELAY", 5*time.Second),
			SettleTimeout:     envDurationOr("STYLEGRAB_SETTLE_TIMEOUT", 15*time.Second),
			PollInterval:      envDurationOr("STYLEGRAB_POLL_INTERVAL", 250*time.Millisecond),
			DefaultTimeout:    envDurationOr("STYLEGRAB_DEFAULT_TIMEOUT", 60*time.Second),
			MaxTimeout:        envDurationOr("STYLEGRAB_MAX_TIMEOUT", 300*time.Second),
			NavigationTimeout: envDurationOr("STYLEGRAB_NAV_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("STYLEGRAB_AUTH_ENABLED", false),
			APIKeys: envSliceOr("STYLEGRAB_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("STYLEGRAB_RATE_RPS", 1.0),
			Burst:             envIntOr("STYLEGRAB_RATE_BURST", 3),
		},
		Cache: CacheConfig{
			TTL:             envDurationOr("STYLEGRAB_CACHE_TTL", time.Hour),
			CleanupInterval: envDurationOr("STYLEGRAB_CACHE_CLEANUP", 5*time.Minute),
		},
		Storage: StorageConfig{
			Bucket:    os.Getenv("STYLEGRAB_S3_BUCKET"),
			Region:    envOr("STYLEGRAB_S3_REGION", "us-east-1"),
			KeyPrefix: envOr("STYLEGRAB_S3_PREFIX", "stylegrab"),
			Endpoint:  os.Getenv("STYLEGRAB_S3_ENDPOINT"),
			AccessKey: os.Getenv("STYLEGRAB_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("STYLEGRAB_S3_SECRET_KEY"),
		},
		Log: LogConfig{
			Level:   envOr("STYLEGRAB_LOG_LEVEL", "info"),
			Format:  envOr("STYLEGRAB_LOG_FORMAT", "json"),
			NoColor: envBoolOr("NO_COLOR", false),
		},
	}
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
