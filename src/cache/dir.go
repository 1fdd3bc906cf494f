package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"bench-harvester/src/bench"
	"bench-harvester/src/logger"
)

// DirCache keeps one <runID>.json file per report in a directory.
type DirCache struct {
	mu     sync.Mutex
	fs     afero.Fs
	dir    string
	logger logger.Logger
}

// NewDirCache creates a cache rooted at dir on fs. The directory must exist.
func NewDirCache(fs afero.Fs, dir string, log logger.Logger) *DirCache {
	return &DirCache{fs: fs, dir: dir, logger: log}
}

func (c *DirCache) path(runID string) (string, error) {
	if runID == "" || strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return "", fmt.Errorf("invalid run ID %q", runID)
	}
	return filepath.Join(c.dir, runID+".json"), nil
}

// Fetch reads and decodes <runID>.json.
func (c *DirCache) Fetch(ctx context.Context, runID string) (*bench.JobReport, error) {
	path, err := c.path(runID)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(c.fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, bench.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached report: %w", err)
	}

	var report bench.JobReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode cached report %s: %w", path, err)
	}
	return &report, nil
}

// Put writes report through a temporary file so readers never observe a
// partial document.
func (c *DirCache) Put(ctx context.Context, runID string, report *bench.JobReport) error {
	path, err := c.path(runID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tmp := path + ".tmp"
	if err := afero.WriteFile(c.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cached report: %w", err)
	}
	if err := c.fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write cached report: %w", err)
	}

	c.logger.Debug("Cached report for run %s at %s", runID, path)
	return nil
}

// RunIDs lists the run IDs present in the cache.
func (c *DirCache) RunIDs() ([]string, error) {
	entries, err := afero.ReadDir(c.fs, c.dir)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	return ids, nil
}

func (c *DirCache) Sync(ctx context.Context) error { return nil }

func (c *DirCache) Close() error { return nil }
