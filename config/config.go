package config

import (
	"fmt"
	"strings"
	"time"
)

// Backoff modes accepted by Config.BackoffMode.
const (
	BackoffExponential = "exponential"
	BackoffFixed       = "fixed"
)

// Output formats accepted by Config.OutputFormat.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatDual = "dual"
)

// Config holds harvester configuration.
type Config struct {
	Parallelism       int
	PoolSize          int
	Timeout           time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
	RetryBackoffMax   time.Duration
	BackoffMode       string // exponential or fixed
	RequestsPerSecond float64
	ItemAttempts      int
	ItemRetryPause    time.Duration
	PageRetries       int
	Cooldown          time.Duration
	CacheSize         int
	MinPopularity     int
	MaxItems          int // 0 means no cap
	Dedupe            bool
	OutputDir         string
	OutputFormat      string // csv, json, or dual
	UserAgent         string
	Verbose           bool
	MetricsAddr       string
	Publish           bool
	GitHubRepo        string // owner/name
	GitHubBranch      string
	GitHubToken       string
}

// DefaultConfig returns conservative defaults for the list source.
func DefaultConfig() *Config {
	return &Config{
		Parallelism:       5,
		PoolSize:          10,
		Timeout:           10 * time.Second,
		MaxRetries:        3,
		RetryBackoff:      500 * time.Millisecond,
		RetryBackoffMax:   4 * time.Second,
		BackoffMode:       BackoffExponential,
		RequestsPerSecond: 0,
		ItemAttempts:      3,
		ItemRetryPause:    time.Second,
		PageRetries:       1,
		Cooldown:          time.Second,
		CacheSize:         4096,
		MinPopularity:     0,
		MaxItems:          0,
		Dedupe:            false,
		OutputDir:         "output",
		OutputFormat:      FormatJSON,
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		Verbose:           false,
		MetricsAddr:       "",
		Publish:           false,
		GitHubRepo:        "",
		GitHubBranch:      "",
	}
}

// Filtered reports whether the popularity/dedupe variant is active.
func (c *Config) Filtered() bool {
	return c.MinPopularity > 0 || c.Dedupe
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("pool size must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.BackoffMode != BackoffExponential && c.BackoffMode != BackoffFixed {
		return fmt.Errorf("backoff mode must be exponential or fixed")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}
	if c.ItemAttempts <= 0 {
		return fmt.Errorf("item attempts must be positive")
	}
	if c.ItemRetryPause < 0 {
		return fmt.Errorf("item retry pause cannot be negative")
	}
	if c.PageRetries < 0 {
		return fmt.Errorf("page retries cannot be negative")
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("cooldown cannot be negative")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size cannot be negative")
	}
	if c.MinPopularity < 0 {
		return fmt.Errorf("min popularity cannot be negative")
	}
	if c.MaxItems < 0 {
		return fmt.Errorf("max items cannot be negative")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output dir cannot be empty")
	}
	if c.OutputFormat != FormatCSV && c.OutputFormat != FormatJSON && c.OutputFormat != FormatDual {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Publish {
		owner, name, ok := strings.Cut(c.GitHubRepo, "/")
		if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
			return fmt.Errorf("github repo must be owner/name when publishing")
		}
		if c.GitHubToken == "" {
			return fmt.Errorf("github token is required when publishing")
		}
	}

	return nil
}
