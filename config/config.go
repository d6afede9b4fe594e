package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"sjsage522/keypriceworker/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Redis configuration, publishing is disabled when RedisAddr is empty
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration, caching is disabled when MemcacheAddr is empty
	MemcacheAddr string

	// SQLite snapshot store, disabled when DBPath is empty
	DBPath string

	// Fetch configuration
	FetchMaxRetries int
	FetchRetryDelay time.Duration
	FetchTimeout    time.Duration
	RateLimitBlock  time.Duration
	// FetchRate is the request rate per second, zero disables pacing
	FetchRate float64

	// Worker configuration, zero means run once
	CrawlInterval time.Duration

	// Source URLs
	AllKeyShopSearchURL string
	GoclecdURL          string

	// Output
	OutputDir     string
	SelectorsPath string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "keyprices"),
		RedisStreamCount:     getEnvInt("REDIS_STREAM_COUNT", 1),
		RedisStreamMaxLength: getEnvInt("REDIS_STREAM_MAX_LENGTH", 10000),
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		DBPath:               getEnv("DB_PATH", ""),
		FetchMaxRetries:      getEnvInt("FETCH_MAX_RETRIES", 3),
		FetchRetryDelay:      time.Duration(getEnvInt("FETCH_RETRY_DELAY_MS", 1000)) * time.Millisecond,
		FetchTimeout:         time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 10)) * time.Second,
		RateLimitBlock:       time.Duration(getEnvInt("RATE_LIMIT_BLOCK_SECONDS", 500)) * time.Second,
		FetchRate:            getEnvFloat("FETCH_RATE_PER_SECOND", 2),
		CrawlInterval:        time.Duration(getEnvInt("CRAWL_INTERVAL_SECONDS", 0)) * time.Second,
		AllKeyShopSearchURL:  getEnv("ALLKEYSHOP_SEARCH_URL", "https://www.allkeyshop.com/blog/products/"),
		GoclecdURL:           getEnv("GOCLECD_URL", "https://www.goclecd.fr"),
		OutputDir:            getEnv("OUTPUT_DIR", "."),
		SelectorsPath:        getEnv("SELECTORS_PATH", ""),
		Environment:          getEnv("KEYPRICE_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for values the worker cannot run with
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"ALLKEYSHOP_SEARCH_URL": c.AllKeyShopSearchURL,
		"GOCLECD_URL":           c.GoclecdURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.NewConfiguration(fmt.Sprintf("%s must be an absolute URL, got %q", name, raw), err)
		}
	}

	if c.FetchMaxRetries < 1 {
		return errors.NewConfiguration("FETCH_MAX_RETRIES must be at least 1", nil)
	}
	if c.FetchTimeout <= 0 {
		return errors.NewConfiguration("FETCH_TIMEOUT_SECONDS must be positive", nil)
	}
	if c.FetchRate < 0 {
		return errors.NewConfiguration("FETCH_RATE_PER_SECOND must not be negative", nil)
	}
	if c.CrawlInterval < 0 {
		return errors.NewConfiguration("CRAWL_INTERVAL_SECONDS must not be negative", nil)
	}
	if c.RedisAddr != "" && c.RedisStreamCount < 1 {
		return errors.NewConfiguration("REDIS_STREAM_COUNT must be at least 1", nil)
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return errors.NewConfiguration("OUTPUT_DIR must not be empty", nil)
	}

	return nil
}

// IsProduction reports whether the worker runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return value
}
