package main

import (
	"testing"
	"time"
)

func TestQueryFlags_Defaults(t *testing.T) {
	f := queryFlags{branch: DefaultBranch, workflow: DefaultWorkflowID}
	now := time.Date(2024, 6, 15, 13, 45, 0, 0, time.UTC)

	q, err := f.query("2006-01-02", now)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	wantUntil := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	if !q.Until.Equal(wantUntil) {
		t.Errorf("Until = %v, want %v", q.Until, wantUntil)
	}
	if !q.Since.Equal(wantUntil.AddDate(0, 0, -14)) {
		t.Errorf("Since = %v, want 14 days before until", q.Since)
	}
	if q.Branch != "develop" || q.WorkflowID != DefaultWorkflowID {
		t.Errorf("unexpected branch/workflow %q/%d", q.Branch, q.WorkflowID)
	}
}

func TestQueryFlags_Explicit(t *testing.T) {
	f := queryFlags{since: "2024-01-01", until: "2024-01-31", branch: "main", workflow: 42}

	q, err := f.query("2006-01-02", time.Now())
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if !q.Since.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Since = %v", q.Since)
	}
	if !q.Until.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Until = %v", q.Until)
	}
	if q.Branch != "main" || q.WorkflowID != 42 {
		t.Errorf("unexpected branch/workflow %q/%d", q.Branch, q.WorkflowID)
	}
}

func TestQueryFlags_InvalidDates(t *testing.T) {
	for _, f := range []queryFlags{
		{since: "01/01/2024"},
		{until: "yesterday"},
	} {
		if _, err := f.query("2006-01-02", time.Now()); err == nil {
			t.Errorf("expected error for %+v", f)
		}
	}
}
