package engine

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/locale"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/normalize"
	"github.com/nao1215/a11yscan/internal/scoring"
)

//go:embed axe_fallback.js
var axeFallbackScript string

// AxeConfig configures the injected library adapter.
type AxeConfig struct {
	// ScriptURL is the versioned library URL injected into the page.
	ScriptURL string
	// InjectTimeout bounds the script element load.
	InjectTimeout time.Duration
	// ScriptTimeout bounds the library run.
	ScriptTimeout time.Duration
	// Mode is the browser mode, headless by default.
	Mode browser.Mode
}

// DefaultAxeConfig returns the production settings.
func DefaultAxeConfig() AxeConfig {
	return AxeConfig{
		ScriptURL:     "https://cdnjs.cloudflare.com/ajax/libs/axe-core/4.10.2/axe.min.js",
		InjectTimeout: 10 * time.Second,
		ScriptTimeout: 30 * time.Second,
		Mode:          browser.ModeHeadless,
	}
}

// ScriptFetcher downloads the library source outside the page, for pages
// whose content security policy blocks the script element.
type ScriptFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher fetches scripts with an http.Client.
type HTTPFetcher struct {
	Client *http.Client
}

// maxScriptSize bounds a downloaded library.
const maxScriptSize = 8 << 20

// Fetch implements ScriptFetcher.
func (f HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: %s", url, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptSize))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// AxeAdapter audits a page by injecting axe-core.
type AxeAdapter struct {
	base
	cfg     AxeConfig
	fetcher ScriptFetcher

	mu     sync.Mutex
	source string
}

var _ Adapter = (*AxeAdapter)(nil)

// NewAxeAdapter returns an injected library adapter. fetcher may be nil.
func NewAxeAdapter(provider SessionProvider, cfg AxeConfig, fetcher ScriptFetcher, opts ...Option) *AxeAdapter {
	def := DefaultAxeConfig()
	if cfg.ScriptURL == "" {
		cfg.ScriptURL = def.ScriptURL
	}
	if cfg.InjectTimeout <= 0 {
		cfg.InjectTimeout = def.InjectTimeout
	}
	if cfg.ScriptTimeout <= 0 {
		cfg.ScriptTimeout = def.ScriptTimeout
	}
	a := &AxeAdapter{
		base:    newBase(provider),
		cfg:     cfg,
		fetcher: fetcher,
	}
	a.apply(opts)
	return a
}

// Engine implements Adapter.
func (a *AxeAdapter) Engine() model.Engine { return model.EngineAxe }

// axeOutcome is the value the run script resolves with.
type axeOutcome struct {
	TimedOut bool                 `json:"timedOut"`
	Results  normalize.AxeResults `json:"results"`
}

// Run implements Adapter.
func (a *AxeAdapter) Run(ctx context.Context, target Target) (*model.AuditResult, error) {
	ts := a.now()
	runCtx, cancel := a.bounded(ctx)
	defer cancel()
	results, err := a.run(runCtx, target)
	if err != nil {
		return a.fail(target, model.EngineAxe, ts, fmt.Errorf("axe: %w", a.timeoutErr(runCtx, err)))
	}
	violations := normalize.NormalizeAxe(results)
	score := scoring.Axe(violations)
	return model.NewAuditResult(target.URL, model.EngineAxe, ts, violations, score,
		locale.AuditSummary(target.Language, model.EngineAxe, len(violations), score)), nil
}

func (a *AxeAdapter) run(ctx context.Context, target Target) (normalize.AxeResults, error) {
	sess, err := a.acquire(ctx, a.cfg.Mode, target)
	if err != nil {
		return normalize.AxeResults{}, err
	}
	defer a.release(sess)

	status, err := sess.Navigate(ctx, target.URL, browser.WaitDOMContentLoaded)
	if err != nil {
		return normalize.AxeResults{}, err
	}
	if !navigationOK(status) {
		return normalize.AxeResults{}, fmt.Errorf("%w: %s returned HTTP %d", model.ErrNavigation, target.URL, status)
	}

	if err := a.inject(ctx, sess); err != nil {
		return normalize.AxeResults{}, err
	}

	runCtx, cancel := context.WithTimeout(ctx, a.cfg.ScriptTimeout+2*time.Second)
	defer cancel()
	var out axeOutcome
	err = sess.EvaluateAsync(runCtx, axeRunScript(a.cfg.ScriptTimeout), &out)
	switch {
	case err != nil && ctx.Err() != nil:
		return normalize.AxeResults{}, err
	case err != nil && (errors.Is(err, context.DeadlineExceeded) || runCtx.Err() != nil):
		out = axeOutcome{TimedOut: true}
	case err != nil:
		return normalize.AxeResults{}, fmt.Errorf("%w: %w", model.ErrExtraction, err)
	}
	if out.TimedOut {
		a.logger.Warn("axe run did not finish in time, reporting no violations",
			"url", target.URL,
			"timeout", a.cfg.ScriptTimeout,
			"error", model.ErrEngineTimeout,
		)
		return normalize.AxeResults{}, nil
	}
	return out.Results, nil
}

// inject makes window.axe available: script element first, then a source
// fetched outside the page, then the embedded rule subset.
func (a *AxeAdapter) inject(ctx context.Context, sess browser.Session) error {
	injCtx, cancel := context.WithTimeout(ctx, a.cfg.InjectTimeout+time.Second)
	defer cancel()

	var loaded bool
	err := sess.EvaluateAsync(injCtx, axeInjectScript(a.cfg.ScriptURL, a.cfg.InjectTimeout), &loaded)
	if err == nil && loaded {
		return nil
	}
	a.logger.Debug("axe script element failed", "url", a.cfg.ScriptURL, "error", err)

	if src, ferr := a.fetchSource(ctx); ferr == nil {
		if err := sess.Evaluate(ctx, src+"\n;!!window.axe", &loaded); err == nil && loaded {
			return nil
		}
	} else if a.fetcher != nil {
		a.logger.Debug("axe script fetch failed", "url", a.cfg.ScriptURL, "error", ferr)
	}

	a.logger.Warn("axe-core unavailable, using embedded rule subset", "url", a.cfg.ScriptURL)
	if err := sess.Evaluate(ctx, axeFallbackScript+"\n;!!window.axe", &loaded); err != nil {
		return fmt.Errorf("%w: load embedded rules: %w", model.ErrExtraction, err)
	}
	if !loaded {
		return fmt.Errorf("%w: embedded rules did not register", model.ErrExtraction)
	}
	return nil
}

// fetchSource returns the library source, downloading it once.
func (a *AxeAdapter) fetchSource(ctx context.Context) (string, error) {
	if a.fetcher == nil {
		return "", errors.New("no script fetcher")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.source != "" {
		return a.source, nil
	}
	src, err := a.fetcher.Fetch(ctx, a.cfg.ScriptURL)
	if err != nil {
		return "", err
	}
	a.source = src
	return src, nil
}

func axeInjectScript(url string, timeout time.Duration) string {
	return `new Promise((resolve) => {
  if (window.axe) { resolve(true); return; }
  const s = document.createElement('script');
  s.src = ` + strconv.Quote(url) + `;
  s.async = true;
  s.onload = () => resolve(!!window.axe);
  s.onerror = () => resolve(false);
  setTimeout(() => resolve(!!window.axe), ` + strconv.FormatInt(timeout.Milliseconds(), 10) + `);
  (document.head || document.documentElement).appendChild(s);
})`
}

func axeRunScript(timeout time.Duration) string {
	return `Promise.race([
  window.axe.run(document, {resultTypes: ['violations']}).then((r) => ({
    timedOut: false,
    results: {violations: r.violations, testEngine: r.testEngine},
  })),
  new Promise((resolve) => setTimeout(() => resolve({timedOut: true, results: {violations: []}}), ` +
		strconv.FormatInt(timeout.Milliseconds(), 10) + `)),
])`
}
