package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/a11yscan/internal/batch"
	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/crawler"
	"github.com/nao1215/a11yscan/internal/database"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/orchestrator"
	"github.com/nao1215/a11yscan/internal/quota"
	"github.com/nao1215/a11yscan/internal/report"
	"github.com/nao1215/a11yscan/internal/tor"
	"github.com/spf13/cobra"
)

// errAuditsRejected is returned when at least one audit of a run was rejected.
var errAuditsRejected = errors.New("some audits were rejected")

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit [url]...",
		Short: "Audit web pages for accessibility problems",
		Long: `Audit checks one or more web pages for accessibility problems.

Engines:
- wave: the WAVE online scanner, driven through its web interface
- axe:  axe-core injected into the page
- rgaa: the built-in RGAA rule engine
- all:  the three engines together, with common violations and consensus

Every audit is stored in the local history unless --no-save is given.
Addresses ending in .onion are audited through Tor automatically.

Examples:
  # Comparative audit of one page
  a11yscan audit https://www.example.com

  # Single engine, French summaries
  a11yscan audit --engine axe --lang fr https://www.example.com

  # Several pages, three at a time, Markdown report to a file
  a11yscan audit -b 3 -m -o report.md https://a.example https://b.example

  # Audit the home page and the pages it links to
  a11yscan audit --depth 1 --max-pages 10 https://www.example.com

  # Enforce the quota of the "free" plan from the configuration file
  a11yscan audit --plan free --engine rgaa https://www.example.com

Configuration file (.a11yscan) example:
  defaults:
    engine: all
  sites:
    www.example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      ignorePatterns:
        - "/logout*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runAuditCmd,
	}

	// Audit flags
	cmd.Flags().StringP("engine", "E", config.DefaultEngine,
		"Engine to run: wave, axe, rgaa or all")
	cmd.Flags().StringP("lang", "l", config.DefaultLanguage,
		"Language of the audit summaries (en, fr)")
	cmd.Flags().StringP("plan", "p", "",
		"Quota plan from the configuration file (default: no quota)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of pages audited concurrently")
	cmd.Flags().String("environment", config.DefaultEnvironment,
		"Browser environment: auto, sandbox or local")
	cmd.Flags().DurationP("timeout", "t", config.DefaultNavigationTimeout,
		"Page load timeout")
	cmd.Flags().Duration("engine-timeout", config.DefaultRunTimeout,
		"Maximum duration of one engine run, all steps included")
	cmd.Flags().Bool("no-save", false,
		"Do not store the audits in the history database")

	// Discovery flags
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Link levels followed from each URL to find more pages (0: audit the given URLs only)")
	cmd.Flags().IntP("max-pages", "P", config.DefaultMaxPages,
		"Maximum pages discovered from each URL")

	// Tor flags
	cmd.Flags().Bool("tor", false,
		"Route every audit through Tor")
	cmd.Flags().StringP("external-tor", "e", "",
		"Use external Tor proxy at specified address (e.g., 127.0.0.1:9150)")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .a11yscan in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// auditRun is a validated audit command invocation.
type auditRun struct {
	cfg *config.Config
	// engineSet and langSet report whether the flags were given explicitly,
	// in which case they win over the configuration file.
	engineSet bool
	langSet   bool
	verbose   bool
}

// runAuditCmd executes the audit command.
func runAuditCmd(cmd *cobra.Command, args []string) error {
	run, err := buildAuditRun(cmd, args)
	if err != nil {
		return err
	}
	if err := run.cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(run.verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, finishing running audits...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runAudit(ctx, run, logger)
}

// buildAuditRun creates the configuration from the environment, the
// configuration file and the command flags, in increasing priority.
func buildAuditRun(cmd *cobra.Command, args []string) (*auditRun, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	run := &auditRun{
		cfg:       cfg,
		engineSet: cmd.Flags().Changed("engine"),
		langSet:   cmd.Flags().Changed("lang"),
		verbose:   getVerboseFlag(cmd),
	}
	cfg.Verbose = run.verbose

	if cfg.Engine, err = cmd.Flags().GetString("engine"); err != nil {
		return nil, err
	}
	if cfg.Language, err = cmd.Flags().GetString("lang"); err != nil {
		return nil, err
	}
	if cfg.Plan, err = cmd.Flags().GetString("plan"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("environment") {
		if cfg.Environment, err = cmd.Flags().GetString("environment"); err != nil {
			return nil, err
		}
	}
	if cfg.NavigationTimeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.RunTimeout, err = cmd.Flags().GetDuration("engine-timeout"); err != nil {
		return nil, err
	}

	if cfg.CrawlDepth, err = cmd.Flags().GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = cmd.Flags().GetInt("max-pages"); err != nil {
		return nil, err
	}

	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave

	if cfg.UseTor, err = cmd.Flags().GetBool("tor"); err != nil {
		return nil, err
	}
	externalTor, err := cmd.Flags().GetString("external-tor")
	if err != nil {
		return nil, err
	}
	if externalTor != "" {
		cfg.UseTor = true
		cfg.UseExternalTor = true
		cfg.TorProxyAddress = externalTor
	}
	if cfg.TorStartupTimeout, err = cmd.Flags().GetDuration("tor-timeout"); err != nil {
		return nil, err
	}

	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}

	cfg.Targets = args
	return run, nil
}

// runAudit audits every target and writes one report per audit.
func runAudit(ctx context.Context, run *auditRun, logger *slog.Logger) error {
	cfg := run.cfg
	if len(cfg.Targets) == 0 {
		return config.ErrNoTarget
	}
	for _, target := range cfg.Targets {
		if _, err := orchestrator.ValidateURL(target); err != nil {
			return fmt.Errorf("invalid target %q: %w", target, err)
		}
		if err := tor.CheckTarget(target); err != nil {
			return fmt.Errorf("invalid target %q: %w", target, err)
		}
	}

	logger.Info("starting audit",
		"targets", len(cfg.Targets),
		"engine", cfg.Engine,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.AuditDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	var opts []orchestrator.Option
	if db != nil {
		opts = append(opts, orchestrator.WithResultSink(db))
	}
	if cfg.Plan != "" {
		ledger, err := newLedger(ctx, cfg, db, time.Now())
		if err != nil {
			return err
		}
		opts = append(opts, orchestrator.WithQuota(ledger))
	}

	stack, err := newAuditStack(ctx, cfg, needsTor(cfg), logger, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := stack.Close(); err != nil {
			logger.Error("failed to stop Tor", "error", err)
		}
	}()

	if cfg.CrawlDepth > 0 {
		cfg.Targets = discoverTargets(ctx, cfg, stack.httpClient, logger)
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	out, closeOut, err := openOutput(cfg.ReportFile)
	if err != nil {
		return err
	}
	defer closeOut()
	writer := newReportWriter(cfg, out, run.verbose)

	return auditTargets(ctx, stack.orch, buildRequests(run), cfg.BatchSize, writer, logger)
}

// auditTargets runs the requests through a batch processor and writes each
// response as soon as it completes.
func auditTargets(ctx context.Context, handler batch.Handler, reqs []model.Request, concurrency int, writer report.Writer, logger *slog.Logger) error {
	if len(reqs) > 1 {
		fmt.Fprintf(os.Stderr, "Auditing %d pages (concurrency: %d)...\n\n", len(reqs), concurrency)
	} else {
		fmt.Fprintf(os.Stderr, "Auditing %s...\n", reqs[0].URL)
	}
	start := time.Now()

	processor := batch.NewProcessor(handler,
		batch.WithLogger(logger),
		batch.WithConcurrency(concurrency),
	)

	var (
		mu      sync.Mutex
		results []batch.Result
	)
	err := processor.ProcessWithCallback(ctx, reqs, func(res batch.Result) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, res)

		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "[%d/%d] Audit rejected for %s: %v\n", len(results), len(reqs), res.Request.URL, res.Err)
			return
		}
		fmt.Fprintf(os.Stderr, "[%d/%d] Audit completed: %s (%s)\n",
			len(results), len(reqs), res.Request.URL, res.Elapsed.Round(time.Millisecond))
		if _, err := writer.Write(res.Response); err != nil {
			logger.Error("report failed", "url", res.Request.URL, "error", err)
		}
	})

	summary := batch.Summarize(results)
	fmt.Fprintf(os.Stderr, "\n%d audited, %d rejected in %s\n",
		summary.Succeeded, summary.Rejected, time.Since(start).Round(time.Millisecond))

	if err != nil {
		return err
	}
	if summary.Rejected > 0 {
		return fmt.Errorf("%w: %d of %d", errAuditsRejected, summary.Rejected, summary.Total)
	}
	return nil
}

// discoverTargets expands each target into the same-site pages reachable
// within the crawl depth. A target whose discovery fails is still audited.
// The result keeps the discovery order without duplicates.
func discoverTargets(ctx context.Context, cfg *config.Config, client *http.Client, logger *slog.Logger) []string {
	seen := make(map[string]bool)
	var targets []string
	add := func(u string) {
		if !seen[u] {
			seen[u] = true
			targets = append(targets, u)
		}
	}

	for _, target := range cfg.Targets {
		var site config.SiteConfig
		if u, err := url.Parse(target); err == nil {
			site = cfg.SiteConfigs.GetSiteConfig(u.Hostname())
		}
		spider := crawler.NewSpider(client,
			crawler.WithLogger(logger),
			crawler.WithMaxDepth(cfg.CrawlDepth),
			crawler.WithMaxPages(cfg.MaxPages),
			crawler.WithDelay(cfg.CrawlDelay),
			crawler.WithHeaders(site.RequestHeaders()),
			crawler.WithIgnorePatterns(site.IgnorePatterns),
			crawler.WithFollowPatterns(site.FollowPatterns),
		)

		pages, err := spider.Discover(ctx, target)
		if err != nil && len(pages) == 0 {
			logger.Warn("page discovery failed, auditing the URL alone", "url", target, "error", err)
			add(target)
			continue
		}
		fmt.Fprintf(os.Stderr, "Discovered %d pages from %s\n", len(pages), target)
		for _, p := range pages {
			add(p.URL)
		}
	}
	return targets
}

// buildRequests creates one request per target. Per-site engine and
// language settings apply unless the matching flag was given.
func buildRequests(run *auditRun) []model.Request {
	cfg := run.cfg
	reqs := make([]model.Request, 0, len(cfg.Targets))
	for _, target := range cfg.Targets {
		req := model.Request{URL: target, Engine: cfg.Engine, Language: cfg.Language}
		if u, err := url.Parse(target); err == nil {
			site := cfg.SiteConfigs.GetSiteConfig(u.Hostname())
			if !run.engineSet && site.Engine != "" {
				req.Engine = site.Engine
			}
			if !run.langSet && site.Language != "" {
				req.Language = site.Language
			}
		}
		reqs = append(reqs, req)
	}
	return reqs
}

// needsTor reports whether audits must go through Tor.
func needsTor(cfg *config.Config) bool {
	if cfg.UseTor {
		return true
	}
	for _, target := range cfg.Targets {
		if tor.RequiresTor(target) {
			return true
		}
	}
	return false
}

// newLedger creates the quota ledger of a CLI run. Usage is rebuilt from the
// engine runs stored in the history during the plan's current period.
func newLedger(ctx context.Context, cfg *config.Config, db *database.AuditDB, now time.Time) (*quota.Ledger, error) {
	if _, ok := cfg.SiteConfigs.GetPlan(cfg.Plan); !ok {
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownPlan, cfg.Plan)
	}
	checker := quota.NewChecker(cfg.SiteConfigs.Plans,
		quota.WithDefaultPlan(cfg.Plan),
		quota.WithClock(func() time.Time { return now }),
	)

	used := 0
	if db != nil {
		var err error
		used, err = db.EngineRunsSince(ctx, now.Add(-checker.PeriodFor(cfg.Plan)))
		if err != nil {
			return nil, err
		}
	}
	return quota.NewLedger(checker, &model.PlanUsageSnapshot{
		Plan:        cfg.Plan,
		AuditsUsed:  used,
		PeriodStart: now,
	}), nil
}

// openOutput returns the report destination: the named file, created with
// owner-only permissions, or stdout.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil //nolint:errcheck // best effort close after writes
}

// newReportWriter selects the report format.
func newReportWriter(cfg *config.Config, out io.Writer, verbose bool) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out, report.WithVerbose(verbose))
	}
}
