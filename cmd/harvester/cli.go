package main

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-lists/config"
)

// Dependencies holds what every command needs at run time.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer

	// Transport replaces the HTTP transport of the list source client.
	Transport http.RoundTripper
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Globals Globals `embed:""`

	List   ListCmd   `cmd:"" help:"Harvest one list"`
	Batch  BatchCmd  `cmd:"" help:"Harvest every list in the catalogue"`
	Filter FilterCmd `cmd:"" help:"Harvest one list keeping popular, distinct items up to a cap"`
}

// Globals are flags shared by every command.
type Globals struct {
	Parallel        int           `default:"5" env:"HARVEST_PARALLEL" help:"Concurrent item extractions per page"`
	PoolSize        int           `default:"10" env:"HARVEST_POOL_SIZE" help:"Idle HTTP connections kept per host"`
	Timeout         time.Duration `default:"10s" env:"HARVEST_TIMEOUT" help:"Per-request timeout"`
	MaxRetries      int           `default:"3" env:"HARVEST_MAX_RETRIES" help:"Retries after the first attempt for transient failures"`
	RetryBackoff    time.Duration `default:"500ms" help:"Initial retry backoff"`
	RetryBackoffMax time.Duration `default:"4s" help:"Maximum retry backoff"`
	BackoffMode     string        `default:"exponential" enum:"exponential,fixed" help:"Retry backoff mode"`
	RPS             float64       `name:"rps" default:"0" env:"HARVEST_RPS" help:"Request rate limit, 0 disables"`
	ItemAttempts    int           `default:"3" help:"Attempts per item detail page"`
	ItemRetryPause  time.Duration `default:"1s" help:"Pause between item attempts"`
	PageRetries     int           `default:"1" help:"Retries for a list page that fails or lacks its item container"`
	Cooldown        time.Duration `default:"1s" env:"HARVEST_COOLDOWN" help:"Pause between list pages"`
	MaxItems        int           `default:"0" help:"Stop after this many records, 0 means no cap"`
	OutputDir       string        `short:"o" default:"output" env:"HARVEST_OUTPUT_DIR" help:"Directory for output files"`
	Format          string        `short:"f" default:"json" enum:"csv,json,dual" env:"HARVEST_FORMAT" help:"Output format: csv, json, or dual"`
	Verbose         bool          `short:"v" help:"Enable verbose logging"`
	MetricsAddr     string        `env:"HARVEST_METRICS_ADDR" help:"Prometheus metrics listen address (e.g. :9090)"`
	NoProgress      bool          `help:"Disable the progress bar"`
	Publish         bool          `env:"HARVEST_PUBLISH" help:"Publish artifacts to GitHub"`
	GitHubRepo      string        `name:"github-repo" env:"GITHUB_REPO" help:"Target repository as owner/name"`
	GitHubBranch    string        `name:"github-branch" env:"GITHUB_BRANCH" help:"Target branch, default branch when empty"`
	GitHubToken     string        `name:"github-token" env:"GITHUB_TOKEN" help:"GitHub access token"`
}

func (g *Globals) config() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Parallelism = g.Parallel
	cfg.PoolSize = g.PoolSize
	cfg.Timeout = g.Timeout
	cfg.MaxRetries = g.MaxRetries
	cfg.RetryBackoff = g.RetryBackoff
	cfg.RetryBackoffMax = g.RetryBackoffMax
	cfg.BackoffMode = g.BackoffMode
	cfg.RequestsPerSecond = g.RPS
	cfg.ItemAttempts = g.ItemAttempts
	cfg.ItemRetryPause = g.ItemRetryPause
	cfg.PageRetries = g.PageRetries
	cfg.Cooldown = g.Cooldown
	cfg.MaxItems = g.MaxItems
	cfg.OutputDir = g.OutputDir
	cfg.OutputFormat = strings.ToLower(g.Format)
	cfg.Verbose = g.Verbose
	cfg.MetricsAddr = g.MetricsAddr
	cfg.Publish = g.Publish
	cfg.GitHubRepo = g.GitHubRepo
	cfg.GitHubBranch = g.GitHubBranch
	cfg.GitHubToken = g.GitHubToken
	return cfg
}

// ListCmd is the "list" subcommand.
type ListCmd struct {
	URL string `arg:"" help:"List URL"`
}

// Run harvests one list.
func (c *ListCmd) Run(g *Globals, deps *Dependencies) error {
	_, err := deps.runHarvest(g.config(), []string{c.URL}, false)
	return err
}

// BatchCmd is the "batch" subcommand.
type BatchCmd struct {
	Expanded  bool   `short:"e" help:"Include the expanded lists"`
	Catalogue string `env:"HARVEST_CATALOGUE" help:"TOML catalogue replacing the built-in one"`
}

// Run harvests every catalogue list.
func (c *BatchCmd) Run(g *Globals, deps *Dependencies) error {
	cat, err := config.LoadCatalogue(c.Catalogue)
	if err != nil {
		return err
	}
	_, err = deps.runHarvest(g.config(), cat.URLs(c.Expanded), true)
	return err
}

// FilterCmd is the "filter" subcommand.
type FilterCmd struct {
	URL           string `arg:"" help:"List URL"`
	MinPopularity int    `default:"1000" help:"Minimum number of ratings an item needs"`
	Limit         int    `default:"100" help:"Maximum number of records"`
	Dedupe        bool   `default:"true" negatable:"" help:"Drop repeated title and year pairs"`
}

// Run harvests one list through the popularity and dedupe filters.
func (c *FilterCmd) Run(g *Globals, deps *Dependencies) error {
	cfg := g.config()
	cfg.MinPopularity = c.MinPopularity
	cfg.MaxItems = c.Limit
	cfg.Dedupe = c.Dedupe
	_, err := deps.runHarvest(cfg, []string{c.URL}, false)
	return err
}
