package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"bench-harvester/src/bench"
	"bench-harvester/src/harvest"
)

const (
	maxTitleWidth = 48
	maxLabelWidth = 72
	timeLayout    = "2006-01-02 15:04"
)

// Renderer builds tables with one StyleConfig.
type Renderer struct {
	styles *StyleConfig
}

// New creates a Renderer. A nil config selects DefaultStyles.
func New(styles *StyleConfig) *Renderer {
	if styles == nil {
		styles = DefaultStyles()
	}
	return &Renderer{styles: styles}
}

func (r *Renderer) table(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.styles.BorderStyle()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.styles.HeaderStyle()
			}
			return r.styles.CellStyle()
		})
}

// Runs renders one row per run, ordered by head commit timestamp.
func (r *Renderer) Runs(runs []bench.JobRun) string {
	sorted := append([]bench.JobRun(nil), runs...)
	harvest.SortRunsByCommitTime(sorted)

	t := r.table("Run", "Attempt", "Event", "Commit", "Committed", "Author", "Title")
	for _, run := range sorted {
		t.Row(
			run.ID,
			strconv.Itoa(run.RunAttempt),
			run.Event,
			ShortSHA(run.HeadCommit.ID),
			run.HeadCommit.Timestamp.UTC().Format(timeLayout),
			run.HeadCommit.Author.Name,
			Truncate(FirstLine(run.DisplayTitle), maxTitleWidth),
		)
	}

	title := r.styles.HighlightStyle().Render(fmt.Sprintf("%d successful runs", len(runs)))
	return title + "\n" + t.String()
}

// Report renders the scores of one report, ordered by label.
func (r *Renderer) Report(report *bench.JobReport) string {
	labels := make([]string, 0, len(report.Scores))
	for label := range report.Scores {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	t := r.table("Benchmark", "Score")
	for _, label := range labels {
		t.Row(Truncate(label, maxLabelWidth), strconv.FormatFloat(report.Scores[label], 'f', -1, 64))
	}

	run := report.Run
	var b strings.Builder
	b.WriteString(r.styles.HighlightStyle().Render("Run " + run.ID))
	b.WriteString("\n")
	b.WriteString(r.styles.MutedStyle().Render(fmt.Sprintf("%s  %s by %s",
		ShortSHA(run.HeadCommit.ID),
		run.HeadCommit.Timestamp.UTC().Format(timeLayout),
		run.HeadCommit.Author.Name)))
	b.WriteString("\n")
	if run.HTMLURL != "" {
		b.WriteString(r.styles.MutedStyle().Render(run.HTMLURL))
		b.WriteString("\n")
	}
	b.WriteString(t.String())
	return b.String()
}

// Absent renders the message shown when a run has no recoverable report.
func (r *Renderer) Absent(run bench.JobRun) string {
	return r.styles.WarningStyle().Render(fmt.Sprintf(
		"Run %s has no recoverable benchmark report (no single artifact, or expired and not cached)", run.ID))
}

// Harvest renders a per-run summary of a harvest.
func (r *Renderer) Harvest(result *harvest.Result) string {
	t := r.table("Run", "Commit", "Committed", "Benchmarks")
	for _, report := range result.Reports {
		t.Row(
			report.Run.ID,
			ShortSHA(report.Run.HeadCommit.ID),
			report.Run.HeadCommit.Timestamp.UTC().Format(timeLayout),
			strconv.Itoa(len(report.Scores)),
		)
	}

	var b strings.Builder
	b.WriteString(r.styles.HighlightStyle().Render(fmt.Sprintf("%d reports harvested", len(result.Reports))))
	b.WriteString("\n")
	b.WriteString(t.String())
	if len(result.Unresolved) > 0 {
		ids := make([]string, len(result.Unresolved))
		for i, run := range result.Unresolved {
			ids[i] = run.ID
		}
		b.WriteString("\n")
		b.WriteString(r.styles.WarningStyle().Render(fmt.Sprintf("%d runs without a report: %s",
			len(ids), strings.Join(ids, ", "))))
	}
	return b.String()
}
