package bench

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"bench-harvester/src/githubactions"
)

// RunGetter looks up a single workflow run; satisfied by *githubactions.Client.
type RunGetter interface {
	GetWorkflowRun(ctx context.Context, repo, runID string) (*githubactions.WorkflowRun, error)
}

// ResolveRun turns a run ID or a workflow run URL into a JobRun. A URL must
// point into repo.
func ResolveRun(ctx context.Context, g RunGetter, repo, ref string) (JobRun, error) {
	ref = strings.TrimSpace(ref)

	runID := ref
	if _, err := strconv.ParseInt(ref, 10, 64); err != nil {
		owner, name, id, err := githubactions.ParseWorkflowRunURL(ref)
		if err != nil {
			return JobRun{}, err
		}
		if !strings.EqualFold(owner+"/"+name, repo) {
			return JobRun{}, fmt.Errorf("%w: run %s belongs to %s/%s, not %s", ErrInvalidQuery, id, owner, name, repo)
		}
		runID = id
	}

	run, err := g.GetWorkflowRun(ctx, repo, runID)
	if err != nil {
		return JobRun{}, err
	}
	return RunFromWorkflow(*run), nil
}
