package bench

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

// ErrCacheMiss is returned by Cache.Fetch when nothing is stored for a run.
var ErrCacheMiss = errors.New("report not cached")

// API is the subset of the GitHub client the harvester needs. Authentication
// and transport are the implementation's concern.
type API interface {
	Invoke(ctx context.Context, repo, path string, query url.Values) ([]byte, error)
}

// Cache is a durable store of reports keyed by run ID. Implementations must
// be safe for concurrent use.
type Cache interface {
	// Fetch returns the cached report or ErrCacheMiss.
	Fetch(ctx context.Context, runID string) (*JobReport, error)
	// Put stores report under runID, replacing any previous value.
	Put(ctx context.Context, runID string, report *JobReport) error
}

func invokeJSON(ctx context.Context, api API, repo, path string, query url.Values, v interface{}) error {
	body, err := api.Invoke(ctx, repo, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
