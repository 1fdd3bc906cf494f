package bench

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"bench-harvester/src/benchxml"
	"bench-harvester/src/githubactions"
	"bench-harvester/src/logger"
	"bench-harvester/src/metrics"
)

// ReportFileName is the report expected at the root of the extracted artifact.
const ReportFileName = "bench-report.xml"

var (
	ErrScratchDir         = errors.New("scratch directory does not exist or is not a directory")
	ErrReportMissing      = errors.New("benchmark report missing from artifact")
	ErrUnsafeArchiveEntry = errors.New("archive entry escapes extraction directory")
)

// Fetcher resolves the benchmark report of a run, from the cache when
// possible and from the run's artifact otherwise.
type Fetcher struct {
	api     API
	cache   Cache
	fs      afero.Fs
	parser  *benchxml.Parser
	repo    string
	logger  logger.Logger
	metrics *metrics.Metrics
}

// NewFetcher creates a Fetcher. Artifacts are written to fs.
func NewFetcher(api API, cache Cache, fs afero.Fs, repo string, log logger.Logger, m *metrics.Metrics) *Fetcher {
	return &Fetcher{
		api:     api,
		cache:   cache,
		fs:      fs,
		parser:  benchxml.NewParser(log),
		repo:    repo,
		logger:  log,
		metrics: m,
	}
}

// GetReport returns the report of run, or nil with a nil error when it
// cannot be recovered: the run does not carry exactly one artifact, or the
// artifact expired and the cache has nothing for the run. A cached report
// is returned without checking the artifact's expiry.
//
// Downloaded archives and their extracted contents stay under scratchDir.
func (f *Fetcher) GetReport(ctx context.Context, run JobRun, scratchDir string) (*JobReport, error) {
	if ok, err := afero.IsDir(f.fs, scratchDir); err != nil || !ok {
		return nil, fmt.Errorf("%w: %s", ErrScratchDir, scratchDir)
	}

	var listing githubactions.ArtifactsResponse
	if err := invokeJSON(ctx, f.api, f.repo, "/actions/runs/"+run.ID+"/artifacts", nil, &listing); err != nil {
		return nil, fmt.Errorf("failed to list artifacts for run %s: %w", run.ID, err)
	}

	if len(listing.Artifacts) != 1 {
		f.logger.Warn("Bench run %s does not contain exactly one artifact (found %d), but it is a successful run.",
			run.ID, len(listing.Artifacts))
		f.metrics.Report(metrics.OutcomeNoArtifact)
		return nil, nil
	}

	artifact := listing.Artifacts[0]
	artifactID := strconv.FormatInt(artifact.ID, 10)
	f.logger.Debug("Got artifact with ID %s, from bench run %s: created_at=%s, updated_at=%s, expires_at=%s, is_expired=%t",
		artifactID, run.ID, artifact.CreatedAt, artifact.UpdatedAt, artifact.ExpiresAt, artifact.Expired)

	cached, err := f.cache.Fetch(ctx, run.ID)
	switch {
	case err == nil:
		f.logger.Debug("Got job report from the cache for %s", run.ID)
		f.metrics.Report(metrics.OutcomeCached)
		return cached, nil
	case !errors.Is(err, ErrCacheMiss):
		return nil, fmt.Errorf("failed to query cache for run %s: %w", run.ID, err)
	}

	if artifact.Expired {
		f.logger.Error("Artifact %s from bench run %s is expired, and it is not in the remote cache", artifactID, run.ID)
		f.metrics.Report(metrics.OutcomeExpired)
		return nil, nil
	}

	reportPath, err := f.downloadArtifact(ctx, artifactID, scratchDir)
	if err != nil {
		return nil, err
	}

	scores, err := f.parser.ParseFile(f.fs, reportPath)
	if err != nil {
		return nil, err
	}

	report := &JobReport{Scores: scores, Run: run}
	if err := f.cache.Put(ctx, run.ID, report); err != nil {
		return nil, fmt.Errorf("failed to cache report for run %s: %w", run.ID, err)
	}

	f.metrics.Report(metrics.OutcomeDownloaded)
	return report, nil
}

// downloadArtifact stores the artifact zip as <scratch>/<id>.zip, extracts it
// into a fresh <scratch>/<id>/ and returns the path of the report inside.
func (f *Fetcher) downloadArtifact(ctx context.Context, artifactID, scratchDir string) (string, error) {
	data, err := f.api.Invoke(ctx, f.repo, "/actions/artifacts/"+artifactID+"/zip", nil)
	if err != nil {
		return "", fmt.Errorf("failed to download artifact %s: %w", artifactID, err)
	}
	f.metrics.Downloaded(len(data))

	zipPath := filepath.Join(scratchDir, artifactID+".zip")
	f.logger.Debug("Writing artifact ZIP content into %s", zipPath)
	if err := afero.WriteFile(f.fs, zipPath, data, 0o644); err != nil {
		return "", err
	}

	extractDir := filepath.Join(scratchDir, artifactID)
	if err := f.fs.RemoveAll(extractDir); err != nil {
		return "", err
	}
	if err := f.fs.Mkdir(extractDir, 0o755); err != nil {
		return "", err
	}

	f.logger.Debug("Extracting %s into %s", zipPath, extractDir)
	if err := extractZip(f.fs, zipPath, extractDir); err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", zipPath, err)
	}

	reportPath := filepath.Join(extractDir, ReportFileName)
	if ok, _ := afero.Exists(f.fs, reportPath); !ok {
		return "", fmt.Errorf("%w: %s", ErrReportMissing, reportPath)
	}
	return reportPath, nil
}

func extractZip(fs afero.Fs, zipPath, dest string) error {
	file, err := fs.Open(zipPath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	zr, err := zip.NewReader(file, info.Size())
	if errors.Is(err, zip.ErrInsecurePath) {
		return fmt.Errorf("%w: %v", ErrUnsafeArchiveEntry, err)
	}
	if err != nil {
		return err
	}

	root := filepath.Clean(dest) + string(os.PathSeparator)
	for _, entry := range zr.File {
		target := filepath.Join(dest, entry.Name)
		if !strings.HasPrefix(target+string(os.PathSeparator), root) {
			return fmt.Errorf("%w: %s", ErrUnsafeArchiveEntry, entry.Name)
		}

		if entry.FileInfo().IsDir() {
			if err := fs.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractEntry(fs, entry, target); err != nil {
			return err
		}
	}

	return nil
}

func extractEntry(fs afero.Fs, entry *zip.File, target string) error {
	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := fs.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
