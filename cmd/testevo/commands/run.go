// Package commands implements CLI command handlers for testevo.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/analyze"
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/doubles"
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/flaky"
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/funccov"
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/smells"
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/testtypes"
	"github.com/Sumatoshi-tech/testevo/pkg/cache"
	"github.com/Sumatoshi-tech/testevo/pkg/config"
	"github.com/Sumatoshi-tech/testevo/pkg/forge"
	"github.com/Sumatoshi-tech/testevo/pkg/gitlib"
	"github.com/Sumatoshi-tech/testevo/pkg/history"
	"github.com/Sumatoshi-tech/testevo/pkg/observability"
	"github.com/Sumatoshi-tech/testevo/pkg/render"
	"github.com/Sumatoshi-tech/testevo/pkg/report"
	"github.com/Sumatoshi-tech/testevo/pkg/timeseries"
	"github.com/Sumatoshi-tech/testevo/pkg/version"
)

// forgeStats bundles the data fetched from the forge API.
type forgeStats struct {
	prs    []forge.PullRequest
	issues int
}

type forgeFetcher func(ctx context.Context, ref forge.RepoRef, token string) (forgeStats, error)

type observabilityInitializer func(cfg observability.Config) (observability.Providers, error)

// ErrRepositoryLoad indicates a failure to open or clone the git repository.
var ErrRepositoryLoad = errors.New("failed to load repository")

const (
	runSpanName = "testevo.run"

	durationClassFast   = "fast"
	durationClassNormal = "normal"
	durationClassSlow   = "slow"

	durationClassFastLimit   = 10 * time.Second
	durationClassNormalLimit = time.Minute

	reportFilePerm = 0o600
)

// RunCommand holds configuration and dependencies for the run command.
type RunCommand struct {
	configPath string
	output     string
	yamlOut    bool
	monthly    bool
	branch     string
	htmlPath   string
	workers    int
	noForge    bool
	noCache    bool
	token      string
	silent     bool
	debug      bool

	forgeFn forgeFetcher
	obsInit observabilityInitializer
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return newRunCommandWithDeps(fetchForgeStats, observability.Init)
}

func newRunCommandWithDeps(forgeFn forgeFetcher, obsInit observabilityInitializer) *cobra.Command {
	rc := &RunCommand{
		forgeFn: forgeFn,
		obsInit: obsInit,
	}

	cmd := &cobra.Command{
		Use:   "run [target]",
		Short: "Scan a repository and report test evolution metrics",
		Long: "Scan a git repository's history, classify its Python files, run the " +
			"snapshot analyzers over HEAD and emit the aggregated metrics report.",
		Args: cobra.MaximumNArgs(1),
		RunE: rc.run,
	}

	cmd.Flags().StringVarP(&rc.configPath, "config", "c", "", "Config file path (default: ./testevo.yaml)")
	cmd.Flags().StringVarP(&rc.output, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&rc.yamlOut, "yaml", false, "Emit the report as YAML instead of JSON")
	cmd.Flags().BoolVarP(&rc.monthly, "monthly", "m", false, "Aggregate time series by month instead of year")
	cmd.Flags().StringVar(&rc.branch, "branch", "", "Branch to check out when cloning a remote repository")
	cmd.Flags().StringVar(&rc.htmlPath, "html", "", "Write an HTML chart page to this path")
	cmd.Flags().IntVar(&rc.workers, "workers", 0, "Number of parallel workers (0 = use config)")
	cmd.Flags().BoolVar(&rc.noForge, "no-forge", false, "Skip pull request and issue enrichment")
	cmd.Flags().BoolVar(&rc.noCache, "no-cache", false, "Bypass the scan cache")
	cmd.Flags().StringVar(&rc.token, "token", "", "Forge API token (overrides config)")
	cmd.Flags().BoolVar(&rc.silent, "silent", false, "Disable progress output")
	cmd.Flags().BoolVar(&rc.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (rc *RunCommand) run(cmd *cobra.Command, args []string) error {
	target := resolveTarget(args)
	silent := rc.isSilent(cmd)
	progressWriter := cmd.ErrOrStderr()

	rc.progressf(silent, progressWriter, "starting run target=%s", target)

	cfg, err := config.LoadConfig(rc.configPath)
	if err != nil {
		return err
	}

	rc.applyOverrides(cmd, cfg)

	providers, err := rc.obsInit(runObservabilityConfig(cfg, rc.logLevel(cmd, cfg)))
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil && providers.Logger != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	ctx := cmd.Context()

	var span trace.Span
	if providers.Tracer != nil {
		ctx, span = providers.Tracer.Start(ctx, runSpanName)
	}

	startedAt := time.Now()

	runErr := rc.execute(ctx, cmd, cfg, providers, target, silent)

	if span != nil {
		span.SetAttributes(
			attribute.Bool("error", runErr != nil),
			attribute.String("testevo.duration_class", durationClass(time.Since(startedAt))),
		)
		span.End()
	}

	if runErr != nil {
		return runErr
	}

	rc.progressf(silent, progressWriter, "run completed")

	return nil
}

func (rc *RunCommand) execute(
	ctx context.Context,
	cmd *cobra.Command,
	cfg *config.Config,
	providers observability.Providers,
	target string,
	silent bool,
) error {
	progressWriter := cmd.ErrOrStderr()

	logger := providers.Logger
	if logger == nil {
		logger = slog.Default()
	}

	granularity, err := timeseries.ParseGranularity(cfg.Scan.Granularity)
	if err != nil {
		return err
	}

	repo, cacheKey, cleanup, err := rc.openTarget(cfg, target, silent, progressWriter)
	if err != nil {
		return err
	}

	defer cleanup()
	defer repo.Free()

	scanner := history.NewScanner(repo, history.Options{
		Workers: cfg.Scan.Workers,
		Logger:  logger,
	})

	walk, err := rc.resolveWalk(ctx, scanner, repo, scanEnv{
		store:    rc.cacheStore(cfg, logger),
		metrics:  newScanMetrics(providers, logger),
		cacheKey: cacheKey,
		logger:   logger,
		silent:   silent,
		progress: progressWriter,
	})
	if err != nil {
		return err
	}

	rc.progressf(silent, progressWriter, "history walked: commits=%d", walk.TotalCommits)

	snapshot, err := scanner.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot head: %w", err)
	}

	summary, err := scanner.Summarize()
	if err != nil {
		return fmt.Errorf("summarize head: %w", err)
	}

	factory := analyze.NewFactory(defaultAnalyzers())

	analyses, err := factory.RunAnalyzers(ctx, snapshot, factory.Names())
	if err != nil {
		return fmt.Errorf("run analyzers: %w", err)
	}

	rc.progressf(silent, progressWriter, "analyzers finished: total=%d", len(analyses))

	prStats, totalPRs, totalIssues := rc.fetchForge(ctx, cfg, target, logger, silent, progressWriter)

	rep, err := report.Assemble(report.Inputs{
		Summary:     summary,
		Walk:        walk,
		Delay:       history.ComputeDelay(walk.FirstSeen),
		Analyses:    analyses,
		PRStats:     prStats,
		TotalPRs:    totalPRs,
		TotalIssues: totalIssues,
		Granularity: granularity,
	})
	if err != nil {
		return fmt.Errorf("assemble report: %w", err)
	}

	err = rc.emitReport(cmd, rep)
	if err != nil {
		return err
	}

	if rc.htmlPath != "" {
		err = writeHTMLReport(rc.htmlPath, rep)
		if err != nil {
			return err
		}

		rc.progressf(silent, progressWriter, "html page written to %s", rc.htmlPath)
	}

	if !silent {
		render.Summary(progressWriter, rep)
		printLanguages(scanner, progressWriter, logger)
	}

	return nil
}

// scanEnv carries the cache and metrics plumbing for one history walk.
type scanEnv struct {
	store    *cache.Cache
	metrics  *observability.ScanMetrics
	cacheKey string
	logger   *slog.Logger
	silent   bool
	progress io.Writer
}

// resolveWalk loads a cached walk result for the repository head or runs
// the walk and stores the outcome.
func (rc *RunCommand) resolveWalk(
	ctx context.Context,
	scanner *history.Scanner,
	repo *gitlib.Repository,
	env scanEnv,
) (*history.WalkResult, error) {
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}

	startedAt := time.Now()

	walk, cacheHit := loadCachedWalk(env.store, env.cacheKey, head.String(), env.logger)
	if cacheHit {
		rc.progressf(env.silent, env.progress, "scan cache hit head=%s", head)
	} else {
		walk, err = scanner.WalkHistory(ctx)
		if err != nil {
			return nil, fmt.Errorf("walk history: %w", err)
		}

		storeWalk(env.store, env.cacheKey, head.String(), walk, env.logger)
	}

	env.metrics.RecordScan(ctx, observability.ScanStats{
		Commits:  int64(walk.TotalCommits),
		Duration: time.Since(startedAt),
		CacheHit: cacheHit,
	})

	return walk, nil
}

// openTarget opens a local repository or clones a remote one into a
// temporary directory. The returned key identifies the repository in the
// scan cache across runs.
func (rc *RunCommand) openTarget(
	cfg *config.Config,
	target string,
	silent bool,
	progressWriter io.Writer,
) (*gitlib.Repository, string, func(), error) {
	if forge.IsRepoURL(target) {
		rc.progressf(silent, progressWriter, "cloning %s branch=%s", target, cfg.Scan.Branch)

		repo, cleanup, err := gitlib.CloneToTemp(target, cfg.Scan.Branch)
		if err != nil {
			return nil, "", nil, fmt.Errorf("%w: %s", ErrRepositoryLoad, target)
		}

		return repo, target, cleanup, nil
	}

	repo, err := gitlib.OpenRepository(target)
	if err != nil {
		return nil, "", nil, fmt.Errorf("%w: %s", ErrRepositoryLoad, target)
	}

	cacheKey := target

	abs, absErr := filepath.Abs(target)
	if absErr == nil {
		cacheKey = abs
	}

	return repo, cacheKey, func() {}, nil
}

// fetchForge enriches the report with pull request and issue data when the
// target is a forge URL. Failures degrade to a plain report.
func (rc *RunCommand) fetchForge(
	ctx context.Context,
	cfg *config.Config,
	target string,
	logger *slog.Logger,
	silent bool,
	progressWriter io.Writer,
) ([]history.CommitMeasurement, int, int) {
	if rc.noForge || !cfg.Forge.Enabled || !forge.IsRepoURL(target) {
		return nil, 0, 0
	}

	ref, err := forge.ParseRepoURL(target)
	if err != nil {
		logger.Warn("forge enrichment skipped", "target", target, "error", err)

		return nil, 0, 0
	}

	rc.progressf(silent, progressWriter, "fetching forge data repo=%s", ref)

	stats, err := rc.forgeFn(ctx, ref, rc.resolveToken(cfg))
	if err != nil {
		logger.Warn("forge enrichment failed", "repo", ref.String(), "error", err)

		return nil, 0, 0
	}

	return history.PullRequestStats(stats.prs), len(stats.prs), stats.issues
}

func (rc *RunCommand) emitReport(cmd *cobra.Command, rep *report.Report) error {
	var (
		data []byte
		err  error
	)

	if rc.yamlOut {
		data, err = rep.YAML()
	} else {
		data, err = rep.JSON()
	}

	if err != nil {
		return err
	}

	if rc.output == "" {
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}

		return nil
	}

	err = os.WriteFile(rc.output, data, reportFilePerm)
	if err != nil {
		return fmt.Errorf("write report %s: %w", rc.output, err)
	}

	return nil
}

// writeHTMLReport renders the report's chart page into a file.
func writeHTMLReport(path string, rep *report.Report) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create html output %s: %w", path, err)
	}

	renderErr := render.WriteHTML(file, rep)

	closeErr := file.Close()
	if renderErr != nil {
		return fmt.Errorf("render html: %w", renderErr)
	}

	if closeErr != nil {
		return fmt.Errorf("close html output %s: %w", path, closeErr)
	}

	return nil
}

func printLanguages(scanner *history.Scanner, w io.Writer, logger *slog.Logger) {
	counts, err := scanner.Languages()
	if err != nil {
		logger.Warn("language detection failed", "error", err)

		return
	}

	render.Languages(w, counts)

	if counts["Python"] == 0 {
		fmt.Fprintln(w, "warning: no Python files found at HEAD")
	}
}

func (rc *RunCommand) applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("workers") {
		cfg.Scan.Workers = rc.workers
	}

	if cmd.Flags().Changed("branch") {
		cfg.Scan.Branch = rc.branch
	}

	if rc.monthly {
		cfg.Scan.Granularity = timeseries.Monthly.String()
	}
}

func (rc *RunCommand) resolveToken(cfg *config.Config) string {
	if rc.token != "" {
		return rc.token
	}

	return cfg.Forge.Token
}

// cacheStore builds the scan cache unless disabled by flag or config.
func (rc *RunCommand) cacheStore(cfg *config.Config, logger *slog.Logger) *cache.Cache {
	if rc.noCache || !cfg.Cache.Enabled {
		return nil
	}

	size, err := cfg.Cache.Bytes()
	if err != nil {
		logger.Warn("scan cache disabled", "error", err)

		return nil
	}

	return cache.New(cfg.Cache.Directory, size)
}

func loadCachedWalk(store *cache.Cache, cacheKey, head string, logger *slog.Logger) (*history.WalkResult, bool) {
	if store == nil {
		return nil, false
	}

	walk, err := store.Load(cacheKey, head)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			logger.Warn("scan cache read failed", "error", err)
		}

		return nil, false
	}

	return walk, true
}

func storeWalk(store *cache.Cache, cacheKey, head string, walk *history.WalkResult, logger *slog.Logger) {
	if store == nil {
		return
	}

	err := store.Store(cacheKey, head, walk)
	if err != nil {
		logger.Warn("scan cache write failed", "error", err)
	}
}

func newScanMetrics(providers observability.Providers, logger *slog.Logger) *observability.ScanMetrics {
	if providers.Meter == nil {
		return nil
	}

	metrics, err := observability.NewScanMetrics(providers.Meter)
	if err != nil {
		logger.Warn("scan metrics unavailable", "error", err)

		return nil
	}

	return metrics
}

// defaultAnalyzers returns the full snapshot analyzer set.
func defaultAnalyzers() []analyze.Analyzer {
	return []analyze.Analyzer{
		testtypes.NewAnalyzer(),
		doubles.NewAnalyzer(),
		smells.NewAnalyzer(),
		flaky.NewAnalyzer(),
		funccov.NewAnalyzer(),
	}
}

// fetchForgeStats is the production forge fetcher backed by the API client.
func fetchForgeStats(ctx context.Context, ref forge.RepoRef, token string) (forgeStats, error) {
	client := forge.NewClient(token)

	prs, err := client.PullRequests(ctx, ref)
	if err != nil {
		return forgeStats{}, err
	}

	issues, err := client.IssueCount(ctx, ref)
	if err != nil {
		return forgeStats{}, err
	}

	return forgeStats{prs: prs, issues: issues}, nil
}

func runObservabilityConfig(cfg *config.Config, level slog.Level) observability.Config {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	obsCfg.OTLPInsecure = os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	obsCfg.Mode = observability.ModeCLI
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.Format == "json"

	return obsCfg
}

// logLevel resolves the effective log level from the config and the flags.
func (rc *RunCommand) logLevel(cmd *cobra.Command, cfg *config.Config) slog.Level {
	return flagLogLevel(cmd, parseLogLevel(cfg.Logging.Level), rc.debug)
}

// flagLogLevel folds the verbosity flags into a base level. The persistent
// --verbose and a command's own --debug both lower it to debug; --quiet
// wins over both and keeps errors only.
func flagLogLevel(cmd *cobra.Command, base slog.Level, debug bool) slog.Level {
	level := base

	if verbose, err := cmd.Flags().GetBool("verbose"); err == nil && verbose {
		level = slog.LevelDebug
	}

	if debug {
		level = slog.LevelDebug
	}

	if quiet, err := cmd.Flags().GetBool("quiet"); err == nil && quiet {
		level = slog.LevelError
	}

	return level
}

// parseLogLevel maps a config level name to a slog level, defaulting to info.
func parseLogLevel(name string) slog.Level {
	var level slog.Level

	err := level.UnmarshalText([]byte(name))
	if err != nil {
		return slog.LevelInfo
	}

	return level
}

func resolveTarget(args []string) string {
	if len(args) > 0 {
		return args[0]
	}

	return "."
}

func (rc *RunCommand) isSilent(cmd *cobra.Command) bool {
	if rc.silent {
		return true
	}

	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return false
	}

	return quiet
}

func (rc *RunCommand) progressf(silent bool, writer io.Writer, format string, args ...any) {
	if silent {
		return
	}

	_, _ = fmt.Fprintf(writer, "progress: "+format+"\n", args...)
}

func durationClass(d time.Duration) string {
	switch {
	case d < durationClassFastLimit:
		return durationClassFast
	case d < durationClassNormalLimit:
		return durationClassNormal
	default:
		return durationClassSlow
	}
}
