package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/nao1215/a11yscan/internal/model"
)

// Mode selects whether the browser window is shown.
type Mode int

const (
	// ModeHeadless runs the browser without a window.
	ModeHeadless Mode = iota
	// ModeVisible shows the browser window. It is downgraded to headless in
	// sandboxed environments.
	ModeVisible
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeVisible {
		return "visible"
	}
	return "headless"
}

// Default timeouts of each layer.
const (
	DefaultLaunchTimeout     = 30 * time.Second
	DefaultNavigationTimeout = 30 * time.Second
	DefaultIdleTimeout       = 10 * time.Second
	DefaultSelectorTimeout   = 10 * time.Second
)

// errLaunchTimeout is returned when Chrome did not answer in time.
var errLaunchTimeout = errors.New("browser did not start in time")

// Timeouts bounds each layer of a session independently.
type Timeouts struct {
	Launch     time.Duration
	Navigation time.Duration
	Idle       time.Duration
	Selector   time.Duration
}

// DefaultTimeouts returns the default layer timeouts.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Launch:     DefaultLaunchTimeout,
		Navigation: DefaultNavigationTimeout,
		Idle:       DefaultIdleTimeout,
		Selector:   DefaultSelectorTimeout,
	}
}

// flag is one Chrome command-line switch.
type flag struct {
	name  string
	value any
}

// launchConfig is the resolved launch configuration of one attempt.
type launchConfig struct {
	headless bool
	minimal  bool
	flags    []flag
	identity *Identity
	execPath string
	proxy    string
}

var (
	sandboxFlags = []flag{
		{"no-sandbox", true},
		{"disable-dev-shm-usage", true},
		{"disable-gpu", true},
		{"no-zygote", true},
	}
	stealthFlags = []flag{
		{"disable-blink-features", "AutomationControlled"},
		{"lang", "en-US,en"},
	}
)

// launcher starts a browser for a resolved configuration.
type launcher func(ctx context.Context, cfg launchConfig) (Session, error)

// Provisioner launches browser sessions.
type Provisioner struct {
	logger   *slog.Logger
	env      Environment
	probe    hostProbe
	execPath string
	proxy    string
	timeouts Timeouts

	mu   sync.Mutex
	rand *rand.Rand

	launch launcher
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provisioner) {
		p.logger = logger
	}
}

// WithEnvironment forces the environment instead of detecting it.
func WithEnvironment(env Environment) Option {
	return func(p *Provisioner) {
		p.env = env
	}
}

// WithExecPath sets the Chrome executable. Empty means chromedp's lookup.
func WithExecPath(path string) Option {
	return func(p *Provisioner) {
		p.execPath = path
	}
}

// WithProxy routes browser traffic through a proxy such as
// "socks5://127.0.0.1:9050".
func WithProxy(proxy string) Option {
	return func(p *Provisioner) {
		p.proxy = proxy
	}
}

// WithTimeouts sets the layer timeouts. Zero values keep the defaults.
func WithTimeouts(t Timeouts) Option {
	return func(p *Provisioner) {
		if t.Launch > 0 {
			p.timeouts.Launch = t.Launch
		}
		if t.Navigation > 0 {
			p.timeouts.Navigation = t.Navigation
		}
		if t.Idle > 0 {
			p.timeouts.Idle = t.Idle
		}
		if t.Selector > 0 {
			p.timeouts.Selector = t.Selector
		}
	}
}

// WithRand sets the random source used to pick identities.
func WithRand(r *rand.Rand) Option {
	return func(p *Provisioner) {
		p.rand = r
	}
}

// NewProvisioner creates a Provisioner backed by chromedp.
func NewProvisioner(opts ...Option) *Provisioner {
	p := &Provisioner{
		logger:   slog.Default(),
		env:      EnvironmentAuto,
		probe:    osProbe(),
		timeouts: DefaultTimeouts(),
		rand:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)), //nolint:gosec // identity rotation, not security
	}
	for _, opt := range opts {
		opt(p)
	}
	p.launch = p.launchChrome
	return p
}

// Environment returns the effective environment, detecting it when auto.
func (p *Provisioner) Environment() Environment {
	if p.env == EnvironmentAuto || p.env == "" {
		return p.probe.detect()
	}
	return p.env
}

// Acquire launches a new browser session. When the first launch fails, one
// more attempt is made with a minimal configuration; if that fails too the
// returned error wraps model.ErrBrowserLaunch.
func (p *Provisioner) Acquire(ctx context.Context, mode Mode) (Session, error) {
	env := p.Environment()
	if env == EnvironmentSandbox && mode == ModeVisible {
		p.logger.Debug("visible mode is unavailable in a sandbox, using headless")
		mode = ModeHeadless
	}

	cfg := p.config(env, mode, p.identity())
	s, err := p.launch(ctx, cfg)
	if err == nil {
		p.logger.Debug("browser launched",
			"environment", string(env),
			"mode", mode.String(),
			"viewport", fmt.Sprintf("%dx%d", cfg.identity.Width, cfg.identity.Height))
		return s, nil
	}

	p.logger.Warn("browser launch failed, retrying with minimal configuration", "error", err)
	s, fallbackErr := p.launch(ctx, p.minimalConfig())
	if fallbackErr != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrBrowserLaunch, errors.Join(err, fallbackErr))
	}
	return s, nil
}

func (p *Provisioner) identity() Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return RandomIdentity(p.rand)
}

func (p *Provisioner) config(env Environment, mode Mode, id Identity) launchConfig {
	cfg := launchConfig{
		headless: mode == ModeHeadless,
		identity: &id,
		execPath: p.execPath,
		proxy:    p.proxy,
	}
	if env == EnvironmentSandbox {
		cfg.flags = append(cfg.flags, sandboxFlags...)
	}
	cfg.flags = append(cfg.flags, stealthFlags...)
	return cfg
}

func (p *Provisioner) minimalConfig() launchConfig {
	return launchConfig{
		headless: true,
		minimal:  true,
		execPath: p.execPath,
		proxy:    p.proxy,
	}
}

// allocatorOptions converts a launch configuration into chromedp options.
func allocatorOptions(cfg launchConfig) []chromedp.ExecAllocatorOption {
	var opts []chromedp.ExecAllocatorOption
	if cfg.minimal {
		opts = []chromedp.ExecAllocatorOption{
			chromedp.NoFirstRun,
			chromedp.NoDefaultBrowserCheck,
			chromedp.Headless,
			chromedp.NoSandbox,
			chromedp.DisableGPU,
		}
	} else {
		opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)
		if !cfg.headless {
			opts = append(opts, chromedp.Flag("headless", false), chromedp.Flag("hide-scrollbars", false))
		}
		for _, f := range cfg.flags {
			opts = append(opts, chromedp.Flag(f.name, f.value))
		}
	}
	if cfg.identity != nil {
		opts = append(opts,
			chromedp.UserAgent(cfg.identity.UserAgent),
			chromedp.WindowSize(cfg.identity.Width, cfg.identity.Height))
	}
	if cfg.execPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.execPath))
	}
	if cfg.proxy != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.proxy))
	}
	return opts
}

// launchChrome starts Chrome and waits for the first tab.
//
// The first chromedp.Run allocates the browser under the context it is given,
// so the launch bound is enforced with a timer rather than a context deadline
// that would kill the browser once it expires.
func (p *Provisioner) launchChrome(ctx context.Context, cfg launchConfig) (Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocatorOptions(cfg)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		p.logger.Debug(fmt.Sprintf(format, args...))
	}))
	release := func() {
		tabCancel()
		allocCancel()
	}

	actions := []chromedp.Action{network.Enable()}
	if cfg.identity != nil {
		actions = append(actions, chromedp.EmulateViewport(int64(cfg.identity.Width), int64(cfg.identity.Height)))
	}

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(tabCtx, actions...)
	}()

	timer := time.NewTimer(p.timeouts.Launch)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			release()
			return nil, err
		}
	case <-timer.C:
		release()
		return nil, errLaunchTimeout
	}

	id := Identity{}
	if cfg.identity != nil {
		id = *cfg.identity
	}
	return newChromeSession(tabCtx, release, id, p.timeouts, p.logger), nil
}
