package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Cache policies accepted by CACHE_POLICY.
const (
	CachePolicyUnbounded = "unbounded"
	CachePolicyLRU       = "lru"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Computation cache configuration.
	CachePolicy string
	CacheSize   int

	CircleSegments int

	// Event feed configuration. An empty FeedURL disables the statistics endpoint.
	// A non-empty FeedAppID switches the client to the CENC list query.
	FeedURL      string
	FeedEnabled  bool
	FeedTimeout  time.Duration
	FeedCacheTTL time.Duration
	FeedAppID    string
	FeedPageSize int

	// CORSAllowedOrigins lists origins allowed to call the API from a browser.
	CORSAllowedOrigins []string

	// HistoryFile is a JSON catalog of historical quakes for the on-this-day endpoint.
	HistoryFile string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	feedTimeout, err := parsePositiveDuration("FEED_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	feedCacheTTL, err := parsePositiveDuration("FEED_CACHE_TTL", "1h")
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	circleSegments, err := parsePositiveInt("CIRCLE_SEGMENTS", 70)
	if err != nil {
		return nil, err
	}

	feedPageSize, err := parsePositiveInt("FEED_PAGE_SIZE", 1100)
	if err != nil {
		return nil, err
	}

	feedURL := os.Getenv("FEED_URL")

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CachePolicy: sharedcfg.EnvOrDefault("CACHE_POLICY", CachePolicyUnbounded),
		CacheSize:   cacheSize,

		CircleSegments: circleSegments,

		FeedURL:      feedURL,
		FeedEnabled:  feedURL != "",
		FeedTimeout:  feedTimeout,
		FeedCacheTTL: feedCacheTTL,
		FeedAppID:    os.Getenv("FEED_APP_ID"),
		FeedPageSize: feedPageSize,

		CORSAllowedOrigins: parseList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),

		HistoryFile: os.Getenv("HISTORY_FILE"),
	}

	if cfg.CachePolicy != CachePolicyUnbounded && cfg.CachePolicy != CachePolicyLRU {
		return nil, fmt.Errorf("invalid CACHE_POLICY %q: must be %q or %q",
			cfg.CachePolicy, CachePolicyUnbounded, CachePolicyLRU)
	}
	if cfg.HTTPAddr == "" {
		return nil, errors.New("HTTP_ADDR is required")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return nil, errors.New("CORS_ALLOWED_ORIGINS must list at least one origin")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
