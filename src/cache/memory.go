package cache

import (
	"context"
	"sync"

	"bench-harvester/src/bench"
)

// MemoryCache is an in-memory Backend.
// Useful for testing and one-off listings.
type MemoryCache struct {
	mu      sync.RWMutex
	reports map[string]*bench.JobReport
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{reports: make(map[string]*bench.JobReport)}
}

// Fetch returns a copy of the report cached for runID.
func (c *MemoryCache) Fetch(ctx context.Context, runID string) (*bench.JobReport, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	report, ok := c.reports[runID]
	if !ok {
		return nil, bench.ErrCacheMiss
	}
	return copyReport(report), nil
}

// Put stores a copy of report.
func (c *MemoryCache) Put(ctx context.Context, runID string, report *bench.JobReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reports[runID] = copyReport(report)
	return nil
}

// Len returns the number of cached reports.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.reports)
}

func (c *MemoryCache) Sync(ctx context.Context) error { return nil }

// Close is a no-op for the memory cache.
func (c *MemoryCache) Close() error { return nil }
