package bench

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bench-harvester/src/benchxml"
	"bench-harvester/src/githubactions"
	"bench-harvester/src/logger"
	"bench-harvester/src/metrics"
)

const (
	scratch    = "/scratch"
	reportXML  = `<cases><case><label>bench_a</label><scores><score>10.2</score></scores></case></cases>`
	artifactID = int64(555)
)

func testRun(id string) JobRun {
	return JobRun{ID: id, HTMLURL: "https://github.com/enso-org/enso/actions/runs/" + id, RunAttempt: 1}
}

func newTestFetcher(t *testing.T, api API, cache Cache, log logger.Logger) (*Fetcher, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(scratch, 0o755))
	return NewFetcher(api, cache, fs, "enso-org/enso", log, nil), fs
}

func TestGetReport_Downloads(t *testing.T) {
	api := newFakeAPI()
	api.artifacts["42"] = []githubactions.Artifact{{ID: artifactID, Name: "Runtime Benchmark Report"}}
	api.archives[artifactID] = makeZip(t, map[string]string{ReportFileName: reportXML})
	cache := newMemCache()

	f, fs := newTestFetcher(t, api, cache, logger.NewSilentLogger())
	report, err := f.GetReport(context.Background(), testRun("42"), scratch)
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, map[string]float64{"bench_a": 10.2}, report.Scores)
	assert.Equal(t, "42", report.Run.ID)
	assert.Same(t, report, cache.reports["42"])

	zipExists, _ := afero.Exists(fs, "/scratch/555.zip")
	assert.True(t, zipExists)
	reportExists, _ := afero.Exists(fs, "/scratch/555/"+ReportFileName)
	assert.True(t, reportExists)
}

func TestGetReport_CacheHitSkipsDownload(t *testing.T) {
	api := newFakeAPI()
	api.artifacts["42"] = []githubactions.Artifact{{ID: artifactID, Expired: true}}
	cached := &JobReport{Scores: map[string]float64{"x": 1.0}, Run: testRun("42")}
	cache := newMemCache()
	cache.reports["42"] = cached

	f, fs := newTestFetcher(t, api, cache, logger.NewSilentLogger())
	report, err := f.GetReport(context.Background(), testRun("42"), scratch)
	require.NoError(t, err)
	assert.Same(t, cached, report)

	assert.Equal(t, 0, api.callsTo("/zip"))
	entries, err := afero.ReadDir(fs, scratch)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 0, cache.puts)
}

func TestGetReport_NotExactlyOneArtifact(t *testing.T) {
	tests := []struct {
		name      string
		artifacts []githubactions.Artifact
	}{
		{name: "none"},
		{name: "two", artifacts: []githubactions.Artifact{{ID: 1}, {ID: 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			api.artifacts["7"] = tt.artifacts
			log := &recordingLogger{}

			f, _ := newTestFetcher(t, api, newMemCache(), log)
			report, err := f.GetReport(context.Background(), testRun("7"), scratch)
			require.NoError(t, err)
			assert.Nil(t, report)
			assert.Equal(t, 0, api.callsTo("/zip"))
			assert.Len(t, log.warnings, 1)
		})
	}
}

func TestGetReport_ExpiredNotCached(t *testing.T) {
	api := newFakeAPI()
	api.artifacts["42"] = []githubactions.Artifact{{ID: artifactID, Expired: true}}
	log := &recordingLogger{}

	f, _ := newTestFetcher(t, api, newMemCache(), log)
	report, err := f.GetReport(context.Background(), testRun("42"), scratch)
	require.NoError(t, err)
	assert.Nil(t, report)
	assert.Equal(t, 0, api.callsTo("/zip"))
	assert.Len(t, log.errors, 1)
}

func TestGetReport_Idempotent(t *testing.T) {
	api := newFakeAPI()
	api.artifacts["42"] = []githubactions.Artifact{{ID: artifactID}}
	api.archives[artifactID] = makeZip(t, map[string]string{ReportFileName: reportXML})
	cache := newMemCache()

	f, _ := newTestFetcher(t, api, cache, logger.NewSilentLogger())
	first, err := f.GetReport(context.Background(), testRun("42"), scratch)
	require.NoError(t, err)
	second, err := f.GetReport(context.Background(), testRun("42"), scratch)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, api.callsTo("/zip"))
	assert.Equal(t, 1, cache.puts)
}

func TestGetReport_ReplacesStaleExtraction(t *testing.T) {
	api := newFakeAPI()
	api.artifacts["42"] = []githubactions.Artifact{{ID: artifactID}}
	api.archives[artifactID] = makeZip(t, map[string]string{ReportFileName: reportXML})

	f, fs := newTestFetcher(t, api, newMemCache(), logger.NewSilentLogger())
	require.NoError(t, afero.WriteFile(fs, "/scratch/555/leftover.txt", []byte("old"), 0o644))

	_, err := f.GetReport(context.Background(), testRun("42"), scratch)
	require.NoError(t, err)

	leftover, _ := afero.Exists(fs, "/scratch/555/leftover.txt")
	assert.False(t, leftover)
}

func TestGetReport_ReportMissing(t *testing.T) {
	api := newFakeAPI()
	api.artifacts["42"] = []githubactions.Artifact{{ID: artifactID}}
	api.archives[artifactID] = makeZip(t, map[string]string{"other.txt": "nothing here"})
	cache := newMemCache()

	f, _ := newTestFetcher(t, api, cache, logger.NewSilentLogger())
	report, err := f.GetReport(context.Background(), testRun("42"), scratch)
	assert.True(t, errors.Is(err, ErrReportMissing), "got %v", err)
	assert.Nil(t, report)
	assert.Equal(t, 0, cache.puts)
}

func TestGetReport_MalformedReport(t *testing.T) {
	api := newFakeAPI()
	api.artifacts["42"] = []githubactions.Artifact{{ID: artifactID}}
	api.archives[artifactID] = makeZip(t, map[string]string{ReportFileName: "<cases><case><label>x</label></case></cases>"})

	f, _ := newTestFetcher(t, api, newMemCache(), logger.NewSilentLogger())
	_, err := f.GetReport(context.Background(), testRun("42"), scratch)
	assert.True(t, errors.Is(err, benchxml.ErrMalformedReport), "got %v", err)
}

func TestGetReport_UnsafeArchiveEntry(t *testing.T) {
	api := newFakeAPI()
	api.artifacts["42"] = []githubactions.Artifact{{ID: artifactID}}
	api.archives[artifactID] = makeZip(t, map[string]string{"../../etc/evil": "x"})

	f, fs := newTestFetcher(t, api, newMemCache(), logger.NewSilentLogger())
	_, err := f.GetReport(context.Background(), testRun("42"), scratch)
	assert.True(t, errors.Is(err, ErrUnsafeArchiveEntry), "got %v", err)

	escaped, _ := afero.Exists(fs, "/etc/evil")
	assert.False(t, escaped)
}

func TestGetReport_ScratchDirMissing(t *testing.T) {
	api := newFakeAPI()
	f := NewFetcher(api, newMemCache(), afero.NewMemMapFs(), "enso-org/enso", logger.NewSilentLogger(), nil)

	_, err := f.GetReport(context.Background(), testRun("42"), "/does/not/exist")
	assert.True(t, errors.Is(err, ErrScratchDir), "got %v", err)
	assert.Empty(t, api.calls)
}

func TestGetReport_CacheError(t *testing.T) {
	api := newFakeAPI()
	api.artifacts["42"] = []githubactions.Artifact{{ID: artifactID}}
	boom := errors.New("backend unavailable")

	f, _ := newTestFetcher(t, api, failingCache{err: boom}, logger.NewSilentLogger())
	_, err := f.GetReport(context.Background(), testRun("42"), scratch)
	assert.True(t, errors.Is(err, boom), "got %v", err)
	assert.Equal(t, 0, api.callsTo("/zip"))
}

func TestGetReport_RecordsOutcomes(t *testing.T) {
	api := newFakeAPI()
	api.artifacts["1"] = []githubactions.Artifact{{ID: 11}}
	api.archives[11] = makeZip(t, map[string]string{ReportFileName: reportXML})
	api.artifacts["2"] = []githubactions.Artifact{{ID: 22, Expired: true}}

	m := metrics.New()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(scratch, 0o755))
	f := NewFetcher(api, newMemCache(), fs, "enso-org/enso", logger.NewSilentLogger(), m)

	for _, id := range []string{"1", "1", "2", "3"} {
		_, err := f.GetReport(context.Background(), testRun(id), scratch)
		require.NoError(t, err)
	}

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	outcomes := map[string]float64{}
	for _, fam := range families {
		if fam.GetName() != "bench_harvester_reports_total" {
			continue
		}
		for _, metric := range fam.GetMetric() {
			outcomes[metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{
		metrics.OutcomeDownloaded: 1,
		metrics.OutcomeCached:     1,
		metrics.OutcomeExpired:    1,
		metrics.OutcomeNoArtifact: 1,
	}, outcomes)
}
