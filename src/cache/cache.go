// Package cache stores JobReports keyed by run ID so that reports survive
// the expiry of their workflow artifacts.
package cache

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"bench-harvester/src/bench"
	"bench-harvester/src/config"
	"bench-harvester/src/logger"
)

// Backend is a report cache with a lifecycle. Sync publishes pending writes
// for backends that batch them (git); Close releases connections.
type Backend interface {
	bench.Cache

	Sync(ctx context.Context) error
	Close() error
}

// Open creates the backend selected by cfg.CacheBackend.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (Backend, error) {
	switch cfg.CacheBackend {
	case config.CacheMemory:
		return NewMemoryCache(), nil

	case config.CacheDir:
		fs := afero.NewOsFs()
		if err := fs.MkdirAll(cfg.CacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		return NewDirCache(fs, cfg.CacheDir, log), nil

	case config.CacheGit:
		return OpenGitCache(ctx, GitOptions{
			URL:   cfg.CacheGitURL,
			Path:  filepath.Join(cfg.CacheDir, "engine-benchmark-results"),
			Token: cfg.GitHubToken,
		}, log)

	case config.CacheS3:
		client, err := NewS3Client(ctx, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey)
		if err != nil {
			return nil, err
		}
		return NewS3Cache(client, cfg.S3Bucket, cfg.S3Prefix, log), nil

	case config.CachePostgres:
		return NewPostgresCache(ctx, cfg.PostgresDSN)

	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

// copyReport returns a deep copy so callers cannot mutate cached state.
func copyReport(r *bench.JobReport) *bench.JobReport {
	out := *r
	out.Scores = make(map[string]float64, len(r.Scores))
	for k, v := range r.Scores {
		out.Scores[k] = v
	}
	return &out
}
