package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/engine"
	"github.com/nao1215/a11yscan/internal/orchestrator"
	"github.com/nao1215/a11yscan/internal/tor"
	"github.com/spf13/cobra"

	alog "github.com/nao1215/a11yscan/internal/log"
)

// auditStack is an orchestrator together with the resources it holds.
type auditStack struct {
	orch  *orchestrator.Orchestrator
	route *tor.Route
	// httpClient fetches plain HTTP resources over the same route as the
	// browser sessions.
	httpClient *http.Client
}

// Close stops the Tor route, if any.
func (s *auditStack) Close() error {
	return s.route.Close()
}

// newAuditStack wires the browser provisioner, the three engine adapters
// and the orchestrator. When useTor is set, browser sessions and script
// downloads go through Tor.
func newAuditStack(ctx context.Context, cfg *config.Config, useTor bool, logger *slog.Logger, opts ...orchestrator.Option) (*auditStack, error) {
	env, err := browser.ParseEnvironment(cfg.Environment)
	if err != nil {
		return nil, err
	}

	provOpts := []browser.Option{
		browser.WithLogger(logger),
		browser.WithEnvironment(env),
		browser.WithExecPath(cfg.ChromePath),
		browser.WithTimeouts(browser.Timeouts{
			Launch:     cfg.LaunchTimeout,
			Navigation: cfg.NavigationTimeout,
			Idle:       cfg.IdleTimeout,
			Selector:   cfg.SelectorTimeout,
		}),
	}
	fetcher := engine.HTTPFetcher{Client: &http.Client{Timeout: cfg.InjectTimeout}}

	stack := &auditStack{}
	if useTor {
		if !cfg.UseExternalTor {
			fmt.Fprintln(os.Stderr, "Starting embedded Tor daemon (this may take 1-3 minutes)...")
		}
		stack.route, err = tor.Connect(ctx, tor.Settings{
			External:       cfg.UseExternalTor,
			ProxyAddress:   cfg.TorProxyAddress,
			StartupTimeout: cfg.TorStartupTimeout,
			Timeout:        cfg.NavigationTimeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Tor: %w", err)
		}
		provOpts = append(provOpts, browser.WithProxy(stack.route.ProxyURL()))
		fetcher.Client = stack.route.HTTPClient()
		logger.Info("audits are routed through Tor", "proxy", stack.route.ProxyURL())
	}

	prov := browser.NewProvisioner(provOpts...)
	logger.Debug("browser provisioner ready", "environment", prov.Environment())

	adapters := []engine.Adapter{
		engine.NewWaveAdapter(prov, engine.WaveConfig{
			BaseURL:          cfg.WaveURL,
			MaxPolls:         cfg.WaveMaxPolls,
			PollInterval:     cfg.WavePollInterval,
			FastPollInterval: cfg.WaveFastPollInterval,
		}, engine.NewHumanPacer(nil), engine.WithLogger(logger), engine.WithRunTimeout(cfg.RunTimeout)),
		engine.NewAxeAdapter(prov, engine.AxeConfig{
			ScriptURL:     cfg.AxeScriptURL,
			InjectTimeout: cfg.InjectTimeout,
			ScriptTimeout: cfg.ScriptTimeout,
			Mode:          browser.ModeHeadless,
		}, fetcher, engine.WithLogger(logger), engine.WithRunTimeout(cfg.RunTimeout)),
		engine.NewRGAAAdapter(prov, engine.WithLogger(logger), engine.WithRunTimeout(cfg.RunTimeout)),
	}

	orchOpts := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithSiteSettings(cfg.SiteConfigs),
	}
	stack.orch = orchestrator.New(adapters, append(orchOpts, opts...)...)
	stack.httpClient = fetcher.Client
	return stack, nil
}

// loadConfig builds the configuration shared by every command from the
// environment and the configuration file. An explicit path that does not
// exist is an error; a missing default file is not.
func loadConfig(configPath string) (*config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg := config.NewConfig()
	cfg.ApplyEnv()
	cfg.ConfigFilePath = configPath

	path := config.FindConfigFile(configPath)
	switch {
	case path != "":
		sites, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.SiteConfigs = sites
	case configPath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath)
	default:
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
			Plans: make(map[string]config.PlanConfig),
		}
	}
	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates a masking text logger on stderr.
func setupLogger(verbose bool) *slog.Logger {
	return alog.NewSecureLogger(os.Stderr, verbose)
}
