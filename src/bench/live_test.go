//go:build integration

package bench

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"

	"bench-harvester/src/githubactions"
	"bench-harvester/src/logger"
)

// TestLiveHarvest lists a week of engine benchmark runs on the real API and
// resolves the newest report. Requires GITHUB_TOKEN.
func TestLiveHarvest(t *testing.T) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		t.Skip("GITHUB_TOKEN not set, skipping integration test")
	}

	ctx := context.Background()
	client := githubactions.NewClient(token)
	log := logger.NewSilentLogger()

	until := time.Now().UTC()
	lister := NewLister(client, ListerConfig{Repo: "enso-org/enso"}, log, nil)
	runs, err := lister.ListRuns(ctx, RunQuery{
		Since:      until.AddDate(0, 0, -7),
		Until:      until,
		Branch:     "develop",
		WorkflowID: 29450898,
	})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) == 0 {
		t.Skip("no successful runs in the last week")
	}

	newest := runs[0]
	for _, r := range runs {
		if r.HeadCommit.Timestamp.After(newest.HeadCommit.Timestamp) {
			newest = r
		}
	}

	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/scratch", 0o755); err != nil {
		t.Fatal(err)
	}
	report, err := NewFetcher(client, newMemCache(), fs, "enso-org/enso", log, nil).GetReport(ctx, newest, "/scratch")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if report == nil {
		t.Skipf("run %s has no recoverable report", newest.ID)
	}
	if len(report.Scores) == 0 {
		t.Error("Expected scores, got none")
	}

	t.Logf("Run %s has %d benchmark scores", newest.ID, len(report.Scores))
}
