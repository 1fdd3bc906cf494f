package bench

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"bench-harvester/src/githubactions"
	"bench-harvester/src/logger"
	"bench-harvester/src/metrics"
)

// DefaultPageSize is the number of runs requested per page.
const DefaultPageSize = 3

// ErrInvalidQuery is returned for an empty or inverted time window or a
// non-positive workflow ID.
var ErrInvalidQuery = errors.New("invalid run query")

// RunQuery selects successful runs of one workflow on one branch.
// Since and Until are inclusive.
type RunQuery struct {
	Since      time.Time
	Until      time.Time
	Branch     string
	WorkflowID int64
}

// ListerConfig carries the repository-level settings of a Lister.
type ListerConfig struct {
	Repo       string
	DateFormat string
	PageSize   int
}

// Lister enumerates successful workflow runs.
type Lister struct {
	api     API
	cfg     ListerConfig
	logger  logger.Logger
	metrics *metrics.Metrics
}

// NewLister creates a Lister. Zero PageSize and DateFormat take defaults.
func NewLister(api API, cfg ListerConfig, log logger.Logger, m *metrics.Metrics) *Lister {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.DateFormat == "" {
		cfg.DateFormat = "2006-01-02"
	}
	return &Lister{api: api, cfg: cfg, logger: log, metrics: m}
}

// ListRuns returns every successful run matching q. A probe request learns
// total_count, then all pages are fetched concurrently; the result order is
// unspecified. Any failed page fails the listing. Runs created after the
// probe may be missed.
func (l *Lister) ListRuns(ctx context.Context, q RunQuery) ([]JobRun, error) {
	if q.WorkflowID <= 0 {
		return nil, fmt.Errorf("%w: workflow ID must be positive, got %d", ErrInvalidQuery, q.WorkflowID)
	}
	if q.Until.Before(q.Since) {
		return nil, fmt.Errorf("%w: since %s is after until %s", ErrInvalidQuery,
			q.Since.Format(l.cfg.DateFormat), q.Until.Format(l.cfg.DateFormat))
	}

	l.logger.Info("Looking for all successful benchmark workflow runs from %s to %s for branch %s and workflow ID %d",
		q.Since.Format(l.cfg.DateFormat), q.Until.Format(l.cfg.DateFormat), q.Branch, q.WorkflowID)

	path := fmt.Sprintf("/actions/workflows/%d/runs", q.WorkflowID)
	baseQuery := url.Values{}
	baseQuery.Set("branch", q.Branch)
	baseQuery.Set("status", "success")
	baseQuery.Set("created", q.Since.Format(l.cfg.DateFormat)+".."+q.Until.Format(l.cfg.DateFormat))

	// Start with one result per page, just to learn the total count
	probe := cloneQuery(baseQuery)
	probe.Set("per_page", "1")

	var probed githubactions.WorkflowRunsResponse
	if err := invokeJSON(ctx, l.api, l.cfg.Repo, path, probe, &probed); err != nil {
		return nil, fmt.Errorf("failed to probe run count: %w", err)
	}

	totalCount := probed.TotalCount
	numPages := (totalCount + l.cfg.PageSize - 1) / l.cfg.PageSize
	l.logger.Debug("Total count of all runs: %d for workflow ID %d. Will process %d runs per page",
		totalCount, q.WorkflowID, l.cfg.PageSize)

	var (
		mu   sync.Mutex
		runs = make([]JobRun, 0, totalCount)
	)

	g, gctx := errgroup.WithContext(ctx)
	// Pages are indexed from 1
	for page := 1; page <= numPages; page++ {
		pageQuery := cloneQuery(baseQuery)
		pageQuery.Set("per_page", strconv.Itoa(l.cfg.PageSize))
		pageQuery.Set("page", strconv.Itoa(page))

		g.Go(func() error {
			var resp githubactions.WorkflowRunsResponse
			if err := invokeJSON(gctx, l.api, l.cfg.Repo, path, pageQuery, &resp); err != nil {
				return fmt.Errorf("failed to fetch page %s: %w", pageQuery.Get("page"), err)
			}

			parsed := make([]JobRun, 0, len(resp.WorkflowRuns))
			for _, wr := range resp.WorkflowRuns {
				parsed = append(parsed, RunFromWorkflow(wr))
			}

			mu.Lock()
			runs = append(runs, parsed...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.metrics.RunsListed(len(runs))
	return runs, nil
}

func cloneQuery(q url.Values) url.Values {
	out := make(url.Values, len(q)+2)
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	return out
}
