package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/afero"

	"bench-harvester/src/bench"
	"bench-harvester/src/cache"
	"bench-harvester/src/config"
	"bench-harvester/src/githubactions"
	"bench-harvester/src/harvest"
	"bench-harvester/src/logger"
	"bench-harvester/src/metrics"
	"bench-harvester/src/sink"
)

// app holds the components shared by all commands.
type app struct {
	cfg     *config.Config
	log     logger.Logger
	metrics *metrics.Metrics
	client  *githubactions.Client
	cache   cache.Backend
	lister  *bench.Lister
	fetcher *bench.Fetcher

	metricsServer *http.Server
}

func newApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	fs := afero.NewOsFs()
	if err := fs.MkdirAll(cfg.ScratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	backend, err := cache.Open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s cache: %w", cfg.CacheBackend, err)
	}
	log.Debug("Using %s cache", cfg.CacheBackend)

	m := metrics.New()
	client := githubactions.NewClient(cfg.GitHubToken)

	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: m,
		client:  client,
		cache:   backend,
		lister:  bench.NewLister(client, bench.ListerConfig{Repo: cfg.Repo, DateFormat: cfg.DateFormat}, log, m),
		fetcher: bench.NewFetcher(client, backend, fs, cfg.Repo, log, m),
	}

	if cfg.MetricsAddr != "" {
		a.serveMetrics(cfg.MetricsAddr)
	}
	return a, nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	a.metricsServer = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.log.Info("Serving metrics on %s/metrics", addr)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Metrics server failed: %v", err)
		}
	}()
}

func (a *app) harvester(publish bool) (*harvest.Harvester, func() error, error) {
	opts := harvest.Options{
		ScratchDir:  a.cfg.ScratchDir,
		Concurrency: a.cfg.Concurrency,
		Syncer:      a.cache,
	}
	closePublisher := func() error { return nil }

	if publish {
		if len(a.cfg.RedpandaBrokers) == 0 {
			return nil, nil, fmt.Errorf("--publish requires REDPANDA_BROKERS")
		}
		pub, err := sink.NewRedpandaPublisher(a.cfg.RedpandaBrokers)
		if err != nil {
			return nil, nil, err
		}
		opts.Publisher = pub
		closePublisher = pub.Close
	}

	return harvest.New(a.lister, a.fetcher, opts, a.log, a.metrics), closePublisher, nil
}

func (a *app) Close() error {
	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.metricsServer.Shutdown(ctx)
	}
	return a.cache.Close()
}
