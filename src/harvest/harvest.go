// Package harvest drives a full harvest: list the runs of a window, resolve
// each run's report and hand the results to the cache and the broker.
// It is used by both the CLI and the MCP server.
package harvest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"bench-harvester/src/bench"
	"bench-harvester/src/logger"
	"bench-harvester/src/metrics"
	"bench-harvester/src/sink"
)

// DefaultConcurrency bounds concurrent report lookups when Options leaves it unset.
const DefaultConcurrency = 4

// RunLister enumerates runs; satisfied by *bench.Lister.
type RunLister interface {
	ListRuns(ctx context.Context, q bench.RunQuery) ([]bench.JobRun, error)
}

// ReportFetcher resolves one run; satisfied by *bench.Fetcher.
type ReportFetcher interface {
	GetReport(ctx context.Context, run bench.JobRun, scratchDir string) (*bench.JobReport, error)
}

// Syncer flushes batched cache writes; satisfied by every cache.Backend.
type Syncer interface {
	Sync(ctx context.Context) error
}

// Options configures a Harvester. Publisher and Syncer are optional.
type Options struct {
	ScratchDir  string
	Concurrency int
	Publisher   sink.Publisher
	Syncer      Syncer
}

// Result holds the outcome of a harvest.
type Result struct {
	// Reports are ordered by head commit timestamp, oldest first.
	Reports []*bench.JobReport
	// Unresolved lists runs whose report could not be recovered.
	Unresolved []bench.JobRun
}

// Harvester combines a lister and a fetcher.
type Harvester struct {
	lister  RunLister
	fetcher ReportFetcher
	opts    Options
	logger  logger.Logger
	metrics *metrics.Metrics
}

// New creates a Harvester.
func New(lister RunLister, fetcher ReportFetcher, opts Options, log logger.Logger, m *metrics.Metrics) *Harvester {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Harvester{lister: lister, fetcher: fetcher, opts: opts, logger: log, metrics: m}
}

// Run harvests every successful run matching q. The first fetch error
// cancels the remaining lookups and is returned; absent reports are not
// errors and end up in Result.Unresolved.
func (h *Harvester) Run(ctx context.Context, q bench.RunQuery) (*Result, error) {
	runs, err := h.lister.ListRuns(ctx, q)
	if err != nil {
		return nil, err
	}
	h.logger.Info("Found %d successful runs, fetching reports", len(runs))

	reports, unresolved, err := h.Fetch(ctx, runs)
	if err != nil {
		return nil, err
	}

	if h.opts.Publisher != nil {
		for _, report := range reports {
			if err := sink.PublishReport(ctx, h.opts.Publisher, report); err != nil {
				return nil, err
			}
			h.metrics.Published()
		}
		h.logger.Info("Published %d reports to %s", len(reports), sink.ReportsTopic)
	}

	if h.opts.Syncer != nil {
		if err := h.opts.Syncer.Sync(ctx); err != nil {
			return nil, fmt.Errorf("failed to sync cache: %w", err)
		}
	}

	if len(unresolved) > 0 {
		h.logger.Warn("%d of %d runs have no recoverable report", len(unresolved), len(runs))
	}

	return &Result{Reports: reports, Unresolved: unresolved}, nil
}

// Fetch resolves the reports of runs with bounded concurrency. Reports are
// sorted by head commit timestamp; unresolved runs keep their input order.
func (h *Harvester) Fetch(ctx context.Context, runs []bench.JobRun) ([]*bench.JobReport, []bench.JobRun, error) {
	reports := make([]*bench.JobReport, len(runs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.opts.Concurrency)

	var mu sync.Mutex
	done := 0
	for i, run := range runs {
		g.Go(func() error {
			report, err := h.fetcher.GetReport(gctx, run, h.opts.ScratchDir)
			if err != nil {
				return fmt.Errorf("run %s: %w", run.ID, err)
			}
			reports[i] = report

			mu.Lock()
			done++
			h.logger.Debug("Resolved %d/%d runs", done, len(runs))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		found      []*bench.JobReport
		unresolved []bench.JobRun
	)
	for i, report := range reports {
		if report == nil {
			unresolved = append(unresolved, runs[i])
			continue
		}
		found = append(found, report)
	}

	SortByCommitTime(found)
	return found, unresolved, nil
}

// SortByCommitTime orders reports by head commit timestamp, then run ID.
func SortByCommitTime(reports []*bench.JobReport) {
	sort.SliceStable(reports, func(i, j int) bool {
		ti, tj := reports[i].Run.HeadCommit.Timestamp, reports[j].Run.HeadCommit.Timestamp
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return reports[i].Run.ID < reports[j].Run.ID
	})
}

// SortRunsByCommitTime orders runs by head commit timestamp, then run ID.
func SortRunsByCommitTime(runs []bench.JobRun) {
	sort.SliceStable(runs, func(i, j int) bool {
		ti, tj := runs[i].HeadCommit.Timestamp, runs[j].HeadCommit.Timestamp
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return runs[i].ID < runs[j].ID
	})
}
