// Package config loads application configuration from environment variables
// and an optional YAML repository list.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken  string
	Repositories []string
	DBPath       string
	LookbackDays int
	PerPage      int
	RequestDelay time.Duration
	MaxAttempts  int
	Workers      int
}

// fileConfig is the shape of the optional YAML file pointed at by
// PRSYNC_CONFIG. Environment variables in the file are expanded before
// parsing, so tokens can be referenced as ${VAR} without being committed.
type fileConfig struct {
	Repositories []string `yaml:"repositories"`
	Fetch        struct {
		LookbackDays int `yaml:"lookback_days"`
		PerPage      int `yaml:"per_page"`
		MaxAttempts  int `yaml:"max_attempts"`
		Workers      int `yaml:"workers"`
	} `yaml:"fetch"`
}

// Load reads configuration from environment variables and returns a validated
// Config. PRSYNC_GITHUB_TOKEN is required. Repositories come from PRSYNC_REPOS
// (comma-separated owner/name pairs) and/or the YAML file named by
// PRSYNC_CONFIG; at least one repository must be configured. Optional
// variables with defaults: PRSYNC_DB_PATH (prsync.db), PRSYNC_LOOKBACK_DAYS
// (0, full history), PRSYNC_PER_PAGE (100), PRSYNC_REQUEST_DELAY (0),
// PRSYNC_MAX_ATTEMPTS (3), PRSYNC_WORKERS (1). Environment variables override
// the file for the values both can set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:      "prsync.db",
		PerPage:     100,
		MaxAttempts: 3,
		Workers:     1,
	}

	if path, ok := os.LookupEnv("PRSYNC_CONFIG"); ok && path != "" {
		fc, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Repositories = append(cfg.Repositories, fc.Repositories...)
		if fc.Fetch.LookbackDays > 0 {
			cfg.LookbackDays = fc.Fetch.LookbackDays
		}
		if fc.Fetch.PerPage > 0 {
			cfg.PerPage = fc.Fetch.PerPage
		}
		if fc.Fetch.MaxAttempts > 0 {
			cfg.MaxAttempts = fc.Fetch.MaxAttempts
		}
		if fc.Fetch.Workers > 0 {
			cfg.Workers = fc.Fetch.Workers
		}
	}

	cfg.GitHubToken = os.Getenv("PRSYNC_GITHUB_TOKEN")
	if cfg.GitHubToken == "" {
		return nil, fmt.Errorf("PRSYNC_GITHUB_TOKEN is required")
	}

	if v, ok := os.LookupEnv("PRSYNC_REPOS"); ok && v != "" {
		for _, repo := range strings.Split(v, ",") {
			repo = strings.TrimSpace(repo)
			if repo != "" {
				cfg.Repositories = append(cfg.Repositories, repo)
			}
		}
	}
	cfg.Repositories = dedupe(cfg.Repositories)
	if len(cfg.Repositories) == 0 {
		return nil, fmt.Errorf("no repositories configured: set PRSYNC_REPOS or list them in the PRSYNC_CONFIG file")
	}
	for _, repo := range cfg.Repositories {
		if err := validateRepo(repo); err != nil {
			return nil, err
		}
	}

	if v, ok := os.LookupEnv("PRSYNC_DB_PATH"); ok && v != "" {
		cfg.DBPath = v
	}

	intVars := []struct {
		name string
		dst  *int
		min  int
	}{
		{"PRSYNC_LOOKBACK_DAYS", &cfg.LookbackDays, 0},
		{"PRSYNC_PER_PAGE", &cfg.PerPage, 1},
		{"PRSYNC_MAX_ATTEMPTS", &cfg.MaxAttempts, 1},
		{"PRSYNC_WORKERS", &cfg.Workers, 1},
	}
	for _, iv := range intVars {
		v, ok := os.LookupEnv(iv.name)
		if !ok || v == "" {
			continue
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s has invalid integer %q: %w", iv.name, v, err)
		}
		if parsed < iv.min {
			return nil, fmt.Errorf("%s must be at least %d, got %d", iv.name, iv.min, parsed)
		}
		*iv.dst = parsed
	}

	if v, ok := os.LookupEnv("PRSYNC_REQUEST_DELAY"); ok && v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("PRSYNC_REQUEST_DELAY has invalid duration %q: %w", v, err)
		}
		if parsed < 0 {
			return nil, fmt.Errorf("PRSYNC_REQUEST_DELAY must not be negative, got %s", parsed)
		}
		cfg.RequestDelay = parsed
	}

	return cfg, nil
}

func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var fc fileConfig
	if err := yaml.Unmarshal([]byte(expanded), &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &fc, nil
}

// validateRepo checks that a repository reference has the owner/name shape
// expected by the GitHub API.
func validateRepo(repo string) error {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("invalid repository %q: expected owner/name", repo)
	}
	return nil
}

func dedupe(repos []string) []string {
	seen := make(map[string]struct{}, len(repos))
	out := repos[:0]
	for _, repo := range repos {
		if _, ok := seen[repo]; ok {
			continue
		}
		seen[repo] = struct{}{}
		out = append(out, repo)
	}
	return out
}
