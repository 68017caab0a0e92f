package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/a11yscan/internal/database"
	"github.com/nao1215/a11yscan/internal/orchestrator"
	"github.com/nao1215/a11yscan/internal/quota"
	"github.com/nao1215/a11yscan/internal/server"
	"github.com/spf13/cobra"

	alog "github.com/nao1215/a11yscan/internal/log"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the audit API over HTTP",
		Long: `Serve starts an HTTP server exposing the audit orchestrator.

Endpoints:
  POST /api/audit        run an audit: {"url": "...", "engine": "all", "language": "en"}
  GET  /api/audits       list stored audits (?url= filters one page, ?limit=)
  GET  /api/audits/:id   fetch a stored audit
  GET  /healthz          liveness probe

Quota plans from the configuration file are enforced against the
"callerUsage" snapshot sent with each request. Logs are written as JSON.

Examples:
  # Listen on the default address (:8080)
  a11yscan serve

  # Listen on another port without storing audits
  a11yscan serve --listen 127.0.0.1:9000 --no-save`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "L", "",
		"Listen address (default: $A11YSCAN_LISTEN or :8080)")
	cmd.Flags().String("default-plan", "",
		"Plan applied to requests without callerUsage (default: no quota for them)")
	cmd.Flags().Bool("no-save", false,
		"Do not store the audits in the history database")
	cmd.Flags().Bool("tor", false,
		"Route every audit through Tor")
	cmd.Flags().StringP("external-tor", "e", "",
		"Use external Tor proxy at specified address (e.g., 127.0.0.1:9150)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .a11yscan in current or home directory)")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	listen, err := cmd.Flags().GetString("listen")
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.ListenAddr = listen
	}
	if cfg.Plan, err = cmd.Flags().GetString("default-plan"); err != nil {
		return err
	}
	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return err
	}
	cfg.SaveToDB = !noSave
	if cfg.UseTor, err = cmd.Flags().GetBool("tor"); err != nil {
		return err
	}
	externalTor, err := cmd.Flags().GetString("external-tor")
	if err != nil {
		return err
	}
	if externalTor != "" {
		cfg.UseTor, cfg.UseExternalTor, cfg.TorProxyAddress = true, true, externalTor
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := alog.NewSecureJSONLogger(os.Stderr, getVerboseFlag(cmd))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []orchestrator.Option
	var serverOpts []server.Option
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		opts = append(opts, orchestrator.WithResultSink(db))
		serverOpts = append(serverOpts, server.WithStore(db))
	}
	if len(cfg.SiteConfigs.Plans) > 0 {
		opts = append(opts, orchestrator.WithQuota(
			quota.NewChecker(cfg.SiteConfigs.Plans, quota.WithDefaultPlan(cfg.Plan)),
		))
	}

	stack, err := newAuditStack(ctx, cfg, cfg.UseTor, logger, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := stack.Close(); err != nil {
			logger.Error("failed to stop Tor", "error", err)
		}
	}()

	srv := server.New(stack.orch, append(serverOpts,
		server.WithLogger(logger),
		server.WithAddr(cfg.ListenAddr),
		server.WithVersion(getVersion()),
	)...)
	return srv.Run(ctx)
}
