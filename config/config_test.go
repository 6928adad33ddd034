package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "negative parallelism",
			mutate: func(cfg *Config) {
				cfg.Parallelism = -1
			},
			wantErr: "parallelism",
		},
		{
			name: "zero pool size",
			mutate: func(cfg *Config) {
				cfg.PoolSize = 0
			},
			wantErr: "pool size",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "backoff above max",
			mutate: func(cfg *Config) {
				cfg.RetryBackoff = 10 * time.Second
				cfg.RetryBackoffMax = time.Second
			},
			wantErr: "cannot exceed",
		},
		{
			name: "unknown backoff mode",
			mutate: func(cfg *Config) {
				cfg.BackoffMode = "linear"
			},
			wantErr: "backoff mode",
		},
		{
			name: "zero item attempts",
			mutate: func(cfg *Config) {
				cfg.ItemAttempts = 0
			},
			wantErr: "item attempts",
		},
		{
			name: "negative cap",
			mutate: func(cfg *Config) {
				cfg.MaxItems = -3
			},
			wantErr: "max items",
		},
		{
			name: "bad format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
		{
			name: "publish without repo",
			mutate: func(cfg *Config) {
				cfg.Publish = true
				cfg.GitHubToken = "token"
			},
			wantErr: "owner/name",
		},
		{
			name: "publish without token",
			mutate: func(cfg *Config) {
				cfg.Publish = true
				cfg.GitHubRepo = "someone/lists"
			},
			wantErr: "token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.Filtered() {
		t.Fatalf("default config should not be filtered")
	}
}

func TestDefaultCatalogue(t *testing.T) {
	cat, err := LoadCatalogue("")
	if err != nil {
		t.Fatalf("load default catalogue: %v", err)
	}
	common := cat.URLs(false)
	all := cat.URLs(true)
	if len(common) == 0 {
		t.Fatalf("expected common lists")
	}
	if len(all) <= len(common) {
		t.Fatalf("expanded set (%d) should be larger than common set (%d)", len(all), len(common))
	}
	for i, u := range common {
		if all[i] != u {
			t.Fatalf("common lists should come first: %q != %q", all[i], u)
		}
	}
}

func TestParseCatalogue(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		want    int
	}{
		{
			name:  "group defaults to common",
			input: "[[list]]\nurl = \"https://example.test/u/list/a/\"\n",
			want:  1,
		},
		{
			name:    "invalid url",
			input:   "[[list]]\nurl = \"not a url\"\n",
			wantErr: true,
		},
		{
			name:    "unknown group",
			input:   "[[list]]\nurl = \"https://example.test/u/list/a/\"\ngroup = \"other\"\n",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "malformed toml",
			input:   "[[list]\nurl=",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, err := ParseCatalogue([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCatalogue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(cat.URLs(false)) != tt.want {
				t.Fatalf("urls = %d, want %d", len(cat.URLs(false)), tt.want)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing env file should be ignored, got %v", err)
	}

	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("HARVEST_TEST_TOKEN=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("HARVEST_TEST_TOKEN", "")
	os.Unsetenv("HARVEST_TEST_TOKEN")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load env file: %v", err)
	}
	if got := os.Getenv("HARVEST_TEST_TOKEN"); got != "from-file" {
		t.Fatalf("HARVEST_TEST_TOKEN = %q, want from-file", got)
	}
}
