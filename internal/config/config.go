package config

import (
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "a11yscan"

	// DefaultEngine runs every engine and composes a comparative report.
	DefaultEngine = "all"

	// DefaultLanguage is the summary language when none is requested.
	DefaultLanguage = "en"

	// DefaultBatchSize is the number of URLs audited concurrently.
	// A comparative audit already starts three browsers per URL.
	DefaultBatchSize = 2

	// DefaultLaunchTimeout bounds one browser start attempt.
	DefaultLaunchTimeout = 30 * time.Second

	// DefaultNavigationTimeout bounds one page load.
	DefaultNavigationTimeout = 45 * time.Second

	// DefaultIdleTimeout bounds the wait for network activity to settle.
	DefaultIdleTimeout = 15 * time.Second

	// DefaultSelectorTimeout bounds one selector wait.
	DefaultSelectorTimeout = 10 * time.Second

	// DefaultScriptTimeout bounds one axe-core run.
	DefaultScriptTimeout = 30 * time.Second

	// DefaultInjectTimeout bounds the axe-core script load.
	DefaultInjectTimeout = 10 * time.Second

	// DefaultRunTimeout bounds one whole engine run, every step included.
	// A WAVE run that uses all of its polls stays well below it.
	DefaultRunTimeout = 4 * time.Minute

	// DefaultWaveURL is the WAVE entry page.
	DefaultWaveURL = "https://wave.webaim.org"

	// DefaultWaveMaxPolls bounds the WAVE completion polling loop.
	DefaultWaveMaxPolls = 30

	// DefaultWavePollInterval is the delay between two WAVE completion probes.
	DefaultWavePollInterval = 2 * time.Second

	// DefaultWaveFastPollInterval is used once the WAVE loader disappeared.
	DefaultWaveFastPollInterval = 500 * time.Millisecond

	// DefaultAxeScriptURL is the pinned axe-core build injected into pages.
	DefaultAxeScriptURL = "https://cdnjs.cloudflare.com/ajax/libs/axe-core/4.10.2/axe.min.js"

	// DefaultEnvironment lets the provisioner detect sandboxed hosts.
	DefaultEnvironment = "auto"

	// DefaultCrawlDepth disables page discovery: only the given URLs are audited.
	DefaultCrawlDepth = 0

	// DefaultMaxPages bounds the pages discovered from one start URL.
	DefaultMaxPages = 20

	// DefaultCrawlDelay is the pause between two discovery requests.
	DefaultCrawlDelay = 500 * time.Millisecond

	// DefaultListenAddr is the HTTP server address.
	DefaultListenAddr = ":8080"

	// DefaultTorProxyAddress is the standard Tor SOCKS5 proxy address.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// Config holds all configuration options for a11yscan.
// It is populated from defaults, the environment and CLI flags, and passed
// through the application rather than kept in global state.
type Config struct {
	// Targets is the list of URLs to audit.
	Targets []string

	// Engine is the engine selector: wave, axe, rgaa or all.
	Engine string

	// Language is the BCP 47 tag of the summary language.
	Language string

	// Plan is the quota plan applied to CLI audits. Empty disables quotas.
	Plan string

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// BatchSize is the number of URLs audited concurrently.
	BatchSize int

	// CrawlDepth is the number of link levels followed from each target to
	// discover more pages of the same site. 0 audits the targets only.
	CrawlDepth int

	// MaxPages bounds the pages discovered from one target.
	MaxPages int

	// CrawlDelay is the pause between two discovery requests.
	CrawlDelay time.Duration

	// LaunchTimeout bounds one browser start attempt.
	LaunchTimeout time.Duration

	// NavigationTimeout bounds one page load.
	NavigationTimeout time.Duration

	// IdleTimeout bounds the wait for network idle after load.
	IdleTimeout time.Duration

	// SelectorTimeout bounds one selector wait.
	SelectorTimeout time.Duration

	// ScriptTimeout bounds one axe-core run.
	ScriptTimeout time.Duration

	// InjectTimeout bounds the axe-core script load.
	InjectTimeout time.Duration

	// RunTimeout bounds one whole engine run. It caps the sum of the step
	// timeouts above; an engine that exceeds it fails with an engine
	// timeout.
	RunTimeout time.Duration

	// WaveURL is the WAVE entry page.
	WaveURL string

	// WaveMaxPolls bounds the WAVE completion polling loop.
	WaveMaxPolls int

	// WavePollInterval is the delay between two WAVE completion probes.
	WavePollInterval time.Duration

	// WaveFastPollInterval replaces WavePollInterval once the loader is gone.
	WaveFastPollInterval time.Duration

	// AxeScriptURL is the axe-core build injected into audited pages.
	AxeScriptURL string

	// Environment forces the browser launch profile: auto, sandbox or local.
	Environment string

	// ChromePath is the browser executable. Empty lets chromedp find one.
	ChromePath string

	// UseTor routes browser sessions and script downloads through Tor.
	UseTor bool

	// UseExternalTor uses the proxy at TorProxyAddress instead of starting
	// an embedded Tor daemon. Only used when UseTor is true.
	UseExternalTor bool

	// TorProxyAddress is the external Tor SOCKS5 proxy in "host:port" format.
	TorProxyAddress string

	// TorStartupTimeout is the maximum time to wait for the embedded Tor
	// daemon to bootstrap.
	TorStartupTimeout time.Duration

	// ConfigFilePath is the path to the configuration file.
	// If empty, .a11yscan is searched in the current directory and then in
	// the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds the settings loaded from the config file.
	SiteConfigs *File

	// JSONReport writes the JSON report instead of the text report.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport writes a GitHub Flavored Markdown report with a pie
	// chart instead of the text report. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory of the SQLite audit history.
	// Defaults to the XDG data directory (~/.local/share/a11yscan on Linux).
	DBDir string

	// SaveToDB stores every response in the audit history.
	SaveToDB bool

	// ListenAddr is the HTTP server address of the serve command.
	ListenAddr string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Engine:               DefaultEngine,
		Language:             DefaultLanguage,
		BatchSize:            DefaultBatchSize,
		CrawlDepth:           DefaultCrawlDepth,
		MaxPages:             DefaultMaxPages,
		CrawlDelay:           DefaultCrawlDelay,
		LaunchTimeout:        DefaultLaunchTimeout,
		NavigationTimeout:    DefaultNavigationTimeout,
		IdleTimeout:          DefaultIdleTimeout,
		SelectorTimeout:      DefaultSelectorTimeout,
		ScriptTimeout:        DefaultScriptTimeout,
		InjectTimeout:        DefaultInjectTimeout,
		RunTimeout:           DefaultRunTimeout,
		WaveURL:              DefaultWaveURL,
		WaveMaxPolls:         DefaultWaveMaxPolls,
		WavePollInterval:     DefaultWavePollInterval,
		WaveFastPollInterval: DefaultWaveFastPollInterval,
		AxeScriptURL:         DefaultAxeScriptURL,
		Environment:          DefaultEnvironment,
		TorProxyAddress:      DefaultTorProxyAddress,
		TorStartupTimeout:    DefaultTorStartupTimeout,
		DBDir:                XDGDataDir(),
		SaveToDB:             true,
		ListenAddr:           DefaultListenAddr,
	}
}

// XDGDataDir returns the XDG data directory for a11yscan.
// On Linux: ~/.local/share/a11yscan
// On macOS: ~/Library/Application Support/a11yscan
// On Windows: %LOCALAPPDATA%\a11yscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for a11yscan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for a11yscan.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

var environments = []string{"auto", "sandbox", "local"}

// Validate checks if the configuration is valid and returns the first
// problem found. Targets are checked by the commands that need them.
func (c *Config) Validate() error {
	for _, d := range []time.Duration{
		c.LaunchTimeout, c.NavigationTimeout, c.IdleTimeout,
		c.SelectorTimeout, c.ScriptTimeout, c.InjectTimeout, c.RunTimeout,
	} {
		if d <= 0 {
			return ErrInvalidTimeout
		}
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.CrawlDepth < 0 || c.MaxPages <= 0 || c.CrawlDelay < 0 {
		return ErrInvalidCrawlLimits
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.WaveMaxPolls <= 0 || c.WavePollInterval < 0 || c.WaveFastPollInterval < 0 {
		return ErrInvalidPolling
	}

	if !slices.Contains(environments, c.Environment) {
		return ErrInvalidEnvironment
	}

	if c.UseTor && c.TorStartupTimeout <= 0 && !c.UseExternalTor {
		return ErrInvalidTimeout
	}

	return nil
}
