package bench

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"bench-harvester/src/githubactions"
)

// fakeAPI serves a canned set of runs, artifacts and archives keyed by the
// request path, with a small random delay to shake out ordering assumptions.
type fakeAPI struct {
	mu sync.Mutex

	runs      []githubactions.WorkflowRun
	artifacts map[string][]githubactions.Artifact
	archives  map[int64][]byte
	failPage  string

	calls   []string
	queries []url.Values
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		artifacts: make(map[string][]githubactions.Artifact),
		archives:  make(map[int64][]byte),
	}
}

func (f *fakeAPI) Invoke(ctx context.Context, repo, path string, query url.Values) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch {
	case strings.HasPrefix(path, "/actions/workflows/"):
		return f.listRuns(query)
	case strings.HasPrefix(path, "/actions/runs/") && strings.HasSuffix(path, "/artifacts"):
		runID := strings.TrimSuffix(strings.TrimPrefix(path, "/actions/runs/"), "/artifacts")
		arts := f.artifacts[runID]
		return json.Marshal(githubactions.ArtifactsResponse{TotalCount: len(arts), Artifacts: arts})
	case strings.HasPrefix(path, "/actions/artifacts/") && strings.HasSuffix(path, "/zip"):
		id, _ := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(path, "/actions/artifacts/"), "/zip"), 10, 64)
		if data, ok := f.archives[id]; ok {
			return data, nil
		}
	}
	return nil, &githubactions.APIError{StatusCode: 404, Body: `{"message":"Not Found"}`}
}

func (f *fakeAPI) listRuns(query url.Values) ([]byte, error) {
	perPage, _ := strconv.Atoi(query.Get("per_page"))
	page, _ := strconv.Atoi(query.Get("page"))
	if page == 0 {
		page = 1
	}
	if f.failPage != "" && query.Get("page") == f.failPage {
		return nil, &githubactions.APIError{StatusCode: 502, Body: "bad gateway"}
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start > len(f.runs) {
		start = len(f.runs)
	}
	if end > len(f.runs) {
		end = len(f.runs)
	}
	return json.Marshal(githubactions.WorkflowRunsResponse{
		TotalCount:   len(f.runs),
		WorkflowRuns: f.runs[start:end],
	})
}

func (f *fakeAPI) callsTo(suffix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasSuffix(c, suffix) {
			n++
		}
	}
	return n
}

// memCache is a minimal Cache for tests in this package.
type memCache struct {
	mu      sync.Mutex
	reports map[string]*JobReport
	puts    int
}

func newMemCache() *memCache {
	return &memCache{reports: make(map[string]*JobReport)}
}

func (c *memCache) Fetch(ctx context.Context, runID string) (*JobReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.reports[runID]; ok {
		return r, nil
	}
	return nil, ErrCacheMiss
}

func (c *memCache) Put(ctx context.Context, runID string, report *JobReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports[runID] = report
	c.puts++
	return nil
}

type failingCache struct{ err error }

func (c failingCache) Fetch(ctx context.Context, runID string) (*JobReport, error) {
	return nil, c.err
}

func (c failingCache) Put(ctx context.Context, runID string, report *JobReport) error {
	return c.err
}

// recordingLogger keeps warnings and errors so tests can assert on them.
type recordingLogger struct {
	mu       sync.Mutex
	warnings []string
	errors   []string
}

func (l *recordingLogger) Info(msg string, args ...interface{})  {}
func (l *recordingLogger) Debug(msg string, args ...interface{}) {}
func (l *recordingLogger) Warn(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, fmt.Sprintf(msg, args...))
}
func (l *recordingLogger) Error(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(msg, args...))
}

func makeRuns(n int) []githubactions.WorkflowRun {
	runs := make([]githubactions.WorkflowRun, n)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := range runs {
		runs[i] = githubactions.WorkflowRun{
			ID:           int64(1000 + i),
			RunAttempt:   1,
			Event:        "schedule",
			DisplayTitle: fmt.Sprintf("Benchmark run %d", i),
			HTMLURL:      fmt.Sprintf("https://github.com/enso-org/enso/actions/runs/%d", 1000+i),
			Status:       "completed",
			Conclusion:   "success",
			HeadCommit: githubactions.HeadCommit{
				ID:        fmt.Sprintf("%040d", i),
				Message:   "Commit message",
				Timestamp: base.Add(time.Duration(i) * time.Hour),
				Author:    githubactions.CommitAuthor{Name: "Jane Doe"},
			},
		}
	}
	return runs
}

// makeZip builds an in-memory archive from name -> content.
func makeZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}
