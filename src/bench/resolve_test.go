package bench

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bench-harvester/src/githubactions"
)

type stubGetter struct {
	repo  string
	runID string
}

func (s *stubGetter) GetWorkflowRun(ctx context.Context, repo, runID string) (*githubactions.WorkflowRun, error) {
	s.repo, s.runID = repo, runID
	id, err := strconv.ParseInt(runID, 10, 64)
	if err != nil {
		return nil, err
	}
	return &githubactions.WorkflowRun{ID: id, Event: "push"}, nil
}

func TestResolveRun(t *testing.T) {
	tests := []struct {
		name   string
		ref    string
		wantID string
	}{
		{name: "plain id", ref: "7291836452", wantID: "7291836452"},
		{name: "padded id", ref: "  123 ", wantID: "123"},
		{name: "url", ref: "https://github.com/enso-org/enso/actions/runs/555", wantID: "555"},
		{name: "url with attempt", ref: "https://github.com/enso-org/enso/actions/runs/556/attempts/2", wantID: "556"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &stubGetter{}
			run, err := ResolveRun(context.Background(), g, "enso-org/enso", tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, run.ID)
			assert.Equal(t, "enso-org/enso", g.repo)
			assert.Equal(t, tt.wantID, g.runID)
		})
	}
}

func TestResolveRun_Rejects(t *testing.T) {
	g := &stubGetter{}

	_, err := ResolveRun(context.Background(), g, "enso-org/enso", "not a run")
	assert.True(t, errors.Is(err, githubactions.ErrInvalidURL), "got %v", err)

	_, err = ResolveRun(context.Background(), g, "enso-org/enso", "https://github.com/other/repo/actions/runs/1")
	assert.True(t, errors.Is(err, ErrInvalidQuery), "got %v", err)
	assert.Empty(t, g.runID)
}
