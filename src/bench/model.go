// Package bench lists successful benchmark workflow runs and turns their
// report artifacts into JobReports.
package bench

import (
	"strconv"
	"time"

	"bench-harvester/src/githubactions"
)

// Author of a head commit.
type Author struct {
	Name string `json:"name"`
}

// Commit is the head commit a benchmark run was triggered for.
type Commit struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Author    Author    `json:"author"`
}

// JobRun is one successful execution of the benchmark workflow.
type JobRun struct {
	ID           string `json:"id"`
	HTMLURL      string `json:"html_url"`
	RunAttempt   int    `json:"run_attempt"`
	Event        string `json:"event"`
	DisplayTitle string `json:"display_title"`
	HeadCommit   Commit `json:"head_commit"`
}

// JobReport maps benchmark labels to scores for one run. The JSON layout is
// shared by every cache backend and by published messages.
type JobReport struct {
	Scores map[string]float64 `json:"label_score_dict"`
	Run    JobRun             `json:"bench_run"`
}

// RunFromWorkflow converts the API representation of a run.
func RunFromWorkflow(run githubactions.WorkflowRun) JobRun {
	return JobRun{
		ID:           strconv.FormatInt(run.ID, 10),
		HTMLURL:      run.HTMLURL,
		RunAttempt:   run.RunAttempt,
		Event:        run.Event,
		DisplayTitle: run.DisplayTitle,
		HeadCommit: Commit{
			ID:        run.HeadCommit.ID,
			Message:   run.HeadCommit.Message,
			Timestamp: run.HeadCommit.Timestamp,
			Author:    Author{Name: run.HeadCommit.Author.Name},
		},
	}
}
