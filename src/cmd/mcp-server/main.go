// Package main provides the MCP server entry point for the bench harvester.
// The server speaks the Model Context Protocol on stdin/stdout, so all
// logging is silenced.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"bench-harvester/src/bench"
	"bench-harvester/src/cache"
	"bench-harvester/src/config"
	"bench-harvester/src/githubactions"
	"bench-harvester/src/logger"
	"bench-harvester/src/mcp"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	log := logger.NewSilentLogger()

	fs := afero.NewOsFs()
	if err := fs.MkdirAll(cfg.ScratchDir, 0o755); err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}

	backend, err := cache.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backend.Close()

	client := githubactions.NewClient(cfg.GitHubToken)
	server := mcp.NewServer(mcp.Deps{
		Lister:     bench.NewLister(client, bench.ListerConfig{Repo: cfg.Repo, DateFormat: cfg.DateFormat}, log, nil),
		Fetcher:    bench.NewFetcher(client, backend, fs, cfg.Repo, log, nil),
		Runs:       client,
		Repo:       cfg.Repo,
		ScratchDir: cfg.ScratchDir,
		DateFormat: cfg.DateFormat,
	})

	if err := server.Run(); err != nil {
		return err
	}
	return backend.Sync(ctx)
}
