// Package config provides configuration management for the bench harvester.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Cache backends understood by the harvester.
const (
	CacheMemory   = "memory"
	CacheDir      = "dir"
	CacheGit      = "git"
	CacheS3       = "s3"
	CachePostgres = "postgres"
)

const (
	DefaultRepo        = "enso-org/enso"
	DefaultDateFormat  = "2006-01-02"
	DefaultCacheGitURL = "https://github.com/enso-org/engine-benchmark-results"
	DefaultConcurrency = 4
)

// Config holds the application configuration.
type Config struct {
	// GitHubToken is the API token for authenticating with GitHub.
	GitHubToken string

	// Repo is the owner/name of the repository whose workflow runs are harvested.
	Repo string
	// DateFormat is the Go time layout used for the `created` run filter.
	DateFormat string
	// ScratchDir receives downloaded artifact archives and their extracted contents.
	ScratchDir string
	// Concurrency bounds how many reports are fetched at once during a harvest.
	Concurrency int

	CacheBackend string
	CacheDir     string
	CacheGitURL  string

	S3Bucket    string
	S3Prefix    string
	S3Region    string
	S3AccessKey string
	S3SecretKey string

	PostgresDSN     string
	RedpandaBrokers []string
	MetricsAddr     string
}

// LoadFromEnv loads configuration from environment variables.
// A .env file in the working directory is read first when present.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN environment variable is required")
	}

	cfg := &Config{
		GitHubToken:  token,
		Repo:         getEnv("BENCH_REPO", DefaultRepo),
		DateFormat:   getEnv("BENCH_DATE_FORMAT", DefaultDateFormat),
		ScratchDir:   getEnv("BENCH_SCRATCH_DIR", filepath.Join(os.TempDir(), "bench-harvester")),
		CacheBackend: getEnv("BENCH_CACHE", CacheDir),
		CacheDir:     getEnv("BENCH_CACHE_DIR", ".bench-cache"),
		CacheGitURL:  getEnv("BENCH_CACHE_GIT_URL", DefaultCacheGitURL),
		S3Bucket:     os.Getenv("BENCH_S3_BUCKET"),
		S3Prefix:     getEnv("BENCH_S3_PREFIX", "cache/"),
		S3Region:     getEnv("BENCH_S3_REGION", "us-west-2"),
		S3AccessKey:  os.Getenv("BENCH_S3_ACCESS_KEY"),
		S3SecretKey:  os.Getenv("BENCH_S3_SECRET_KEY"),
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		MetricsAddr:  os.Getenv("BENCH_METRICS_ADDR"),
		Concurrency:  DefaultConcurrency,
	}

	if brokers := os.Getenv("REDPANDA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.RedpandaBrokers = append(cfg.RedpandaBrokers, b)
			}
		}
	}

	if v := os.Getenv("BENCH_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("BENCH_CONCURRENCY must be a positive integer, got %q", v)
		}
		cfg.Concurrency = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoadFromEnv loads configuration from environment variables and panics on error.
// This is useful for initialization in main() where configuration errors should be fatal.
func MustLoadFromEnv() *Config {
	cfg, err := LoadFromEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks that the selected cache backend has what it needs.
func (c *Config) Validate() error {
	if strings.Count(c.Repo, "/") != 1 {
		return fmt.Errorf("repository must be in owner/name form, got %q", c.Repo)
	}
	if c.DateFormat == "" {
		return fmt.Errorf("date format must not be empty")
	}

	switch c.CacheBackend {
	case CacheMemory, CacheDir, CacheGit:
	case CacheS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("BENCH_S3_BUCKET is required for the s3 cache")
		}
	case CachePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres cache")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}

	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
