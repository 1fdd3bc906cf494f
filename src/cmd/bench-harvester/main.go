// Package main provides the bench-harvester CLI: list successful benchmark
// runs and collect their reports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"bench-harvester/src/bench"
	"bench-harvester/src/config"
	"bench-harvester/src/githubactions"
	"bench-harvester/src/harvest"
	"bench-harvester/src/logger"
	"bench-harvester/src/render"
)

const (
	// DefaultWorkflowID is the engine benchmark workflow of enso-org/enso.
	DefaultWorkflowID = 29450898
	DefaultBranch     = "develop"
	defaultWindow     = 14 * 24 * time.Hour
)

var (
	appConfig *config.Config
	log       logger.Logger
	renderer  *render.Renderer

	verbose     bool
	noColor     bool
	metricsAddr string
)

// queryFlags are shared by the runs and harvest commands.
type queryFlags struct {
	since    string
	until    string
	branch   string
	workflow int64
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.since, "since", "", "first day of the window (default: 14 days before --until)")
	cmd.Flags().StringVar(&f.until, "until", "", "last day of the window (default: today)")
	cmd.Flags().StringVar(&f.branch, "branch", DefaultBranch, "branch the runs were triggered on")
	cmd.Flags().Int64Var(&f.workflow, "workflow", DefaultWorkflowID, "benchmark workflow ID")
}

// query builds a RunQuery, defaulting the window to the last two weeks.
func (f *queryFlags) query(dateFormat string, now time.Time) (bench.RunQuery, error) {
	until := now.UTC().Truncate(24 * time.Hour)
	if f.until != "" {
		t, err := time.Parse(dateFormat, f.until)
		if err != nil {
			return bench.RunQuery{}, fmt.Errorf("invalid --until %q: %w", f.until, err)
		}
		until = t
	}

	since := until.Add(-defaultWindow)
	if f.since != "" {
		t, err := time.Parse(dateFormat, f.since)
		if err != nil {
			return bench.RunQuery{}, fmt.Errorf("invalid --since %q: %w", f.since, err)
		}
		since = t
	}

	return bench.RunQuery{Since: since, Until: until, Branch: f.branch, WorkflowID: f.workflow}, nil
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "bench-harvester",
	Short: "Collect benchmark reports from GitHub Actions runs",
	Long: `bench-harvester lists successful runs of a benchmark workflow and
turns each run's bench-report.xml artifact into a label -> score mapping.

Reports are cached (BENCH_CACHE: memory, dir, git, s3 or postgres) so that
they outlive the expiry of the workflow artifacts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		appConfig, err = config.LoadFromEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
			os.Exit(1)
		}
		if metricsAddr != "" {
			appConfig.MetricsAddr = metricsAddr
		}

		log = logger.NewConsoleLoggerWithOptions(logger.Options{Verbose: verbose, NoColor: noColor})
		if noColor {
			renderer = render.New(render.PlainStyles())
		} else {
			renderer = render.New(nil)
		}
	},
}

var runsFlags queryFlags

// runsCmd lists successful runs
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List successful benchmark runs in a date window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := runsFlags.query(appConfig.DateFormat, time.Now())
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), appConfig, log)
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.lister.ListRuns(cmd.Context(), q)
		if err != nil {
			return err
		}
		fmt.Println(renderer.Runs(runs))
		return nil
	},
}

// reportCmd prints the report of one run
var reportCmd = &cobra.Command{
	Use:   "report [run-id|run-url]",
	Short: "Show the benchmark report of a single run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appConfig, log)
		if err != nil {
			return err
		}
		defer a.Close()

		run, err := bench.ResolveRun(cmd.Context(), a.client, appConfig.Repo, args[0])
		if err != nil {
			return err
		}

		report, err := a.fetcher.GetReport(cmd.Context(), run, appConfig.ScratchDir)
		if err != nil {
			return err
		}
		if report == nil {
			fmt.Println(renderer.Absent(run))
			return nil
		}

		if err := a.cache.Sync(cmd.Context()); err != nil {
			return err
		}
		fmt.Println(renderer.Report(report))
		return nil
	},
}

var (
	harvestFlags queryFlags
	harvestOut   string
	publish      bool
)

// harvestCmd collects every report in a window
var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Collect the reports of all successful runs in a date window",
	Long: `Collect the reports of all successful runs in a date window.

Reports are fetched concurrently (BENCH_CONCURRENCY), stored in the cache,
optionally published to Redpanda (--publish, REDPANDA_BROKERS) and written
as a JSON array (--out).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := harvestFlags.query(appConfig.DateFormat, time.Now())
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), appConfig, log)
		if err != nil {
			return err
		}
		defer a.Close()

		h, closePublisher, err := a.harvester(publish)
		if err != nil {
			return err
		}
		defer closePublisher()

		result, err := h.Run(cmd.Context(), q)
		if err != nil {
			return err
		}

		if harvestOut != "" {
			if err := harvest.ExportFile(afero.NewOsFs(), harvestOut, result.Reports); err != nil {
				return err
			}
			log.Info("Wrote %d reports to %s", len(result.Reports), harvestOut)
		}

		fmt.Println(renderer.Harvest(result))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	runsFlags.register(runsCmd)
	harvestFlags.register(harvestCmd)
	harvestCmd.Flags().StringVarP(&harvestOut, "out", "o", "", "write harvested reports to this JSON file")
	harvestCmd.Flags().BoolVar(&publish, "publish", false, "publish each report to Redpanda")

	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(harvestCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		msg := githubactions.WrapError(err).Error()
		fmt.Fprintln(os.Stderr, "Error: "+strings.TrimSpace(msg))
		stop()
		os.Exit(1)
	}
}
