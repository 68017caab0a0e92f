package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/locale"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/normalize"
	"github.com/nao1215/a11yscan/internal/scoring"
)

// WaveConfig configures the remote scanner adapter.
//
// The zero value of every field selects its production default, so a
// partial WaveConfig never busy-polls the scanner.
type WaveConfig struct {
	// BaseURL is the scanner entry page, without the "/report" suffix.
	// Default: https://wave.webaim.org
	BaseURL string

	// MaxPolls bounds the completion polling loop. When it is exhausted the
	// run goes on with a best-effort extraction of whatever the results
	// page shows. Default: 30
	MaxPolls int

	// PollInterval is the delay between two completion probes while the
	// scanner is still loading. Default: 2s
	PollInterval time.Duration

	// FastPollInterval replaces PollInterval once the loader has been seen
	// and has disappeared, when results are expected any moment.
	// Default: 500ms
	FastPollInterval time.Duration

	// Headless runs the scanner without a window. The scanner is driven
	// like a person would, so a visible window is the default; sandboxed
	// hosts force headless regardless.
	Headless bool
}

// DefaultWaveConfig returns the production settings.
func DefaultWaveConfig() WaveConfig {
	return WaveConfig{
		BaseURL:          "https://wave.webaim.org",
		MaxPolls:         30,
		PollInterval:     2 * time.Second,
		FastPollInterval: 500 * time.Millisecond,
	}
}

// mode returns the browser mode requested for a run.
func (c WaveConfig) mode() browser.Mode {
	if c.Headless {
		return browser.ModeHeadless
	}
	return browser.ModeVisible
}

// ReportURL returns the public scanner report address for target.
func (c WaveConfig) ReportURL(target string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/report#/" + target
}

// Candidate selectors of the scanner form, most specific first.
var (
	waveFieldSelectors = []string{
		"#input_url",
		"input[name='url']",
		"input[type='url']",
		"input[type='text']",
	}
	waveSubmitSelectors = []string{
		"#button_go",
		"button[type='submit']",
		"input[type='submit']",
	}
)

// waveState is a step of one remote scanner run.
type waveState int

const (
	waveInit waveState = iota
	waveLaunched
	wavePageOpened
	waveFieldFilled
	waveSubmitted
	waveAwaiting
	waveConfirmed
	waveTimedOut
	waveExtracting
	waveDone
	waveFailed
)

func (s waveState) String() string {
	switch s {
	case waveInit:
		return "init"
	case waveLaunched:
		return "launched"
	case wavePageOpened:
		return "page_opened"
	case waveFieldFilled:
		return "field_filled"
	case waveSubmitted:
		return "submitted"
	case waveAwaiting:
		return "awaiting_completion"
	case waveConfirmed:
		return "completion_confirmed"
	case waveTimedOut:
		return "timed_out"
	case waveExtracting:
		return "extracting"
	case waveDone:
		return "done"
	case waveFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// WaveAdapter audits a page by driving the WAVE web interface.
type WaveAdapter struct {
	base
	cfg   WaveConfig
	pacer Pacer
	sleep func(context.Context, time.Duration)
}

var _ Adapter = (*WaveAdapter)(nil)

// NewWaveAdapter returns a remote scanner adapter. A nil pacer selects
// HumanPacer.
func NewWaveAdapter(provider SessionProvider, cfg WaveConfig, pacer Pacer, opts ...Option) *WaveAdapter {
	def := DefaultWaveConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = def.MaxPolls
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.FastPollInterval <= 0 {
		cfg.FastPollInterval = def.FastPollInterval
	}
	if pacer == nil {
		pacer = NewHumanPacer(nil)
	}
	a := &WaveAdapter{
		base:  newBase(provider),
		cfg:   cfg,
		pacer: pacer,
		sleep: sleep,
	}
	a.apply(opts)
	return a
}

// Engine implements Adapter.
func (a *WaveAdapter) Engine() model.Engine { return model.EngineWave }

// waveRun carries the state of one Run call.
type waveRun struct {
	state  waveState
	target Target
}

func (a *WaveAdapter) transition(run *waveRun, to waveState) {
	a.logger.Debug("wave state transition",
		"url", run.target.URL,
		"from", run.state.String(),
		"to", to.String(),
	)
	run.state = to
}

// Run implements Adapter.
func (a *WaveAdapter) Run(ctx context.Context, target Target) (*model.AuditResult, error) {
	ts := a.now()
	run := &waveRun{state: waveInit, target: target}

	runCtx, cancel := a.bounded(ctx)
	defer cancel()
	rep, err := a.run(runCtx, run)
	if err != nil {
		a.transition(run, waveFailed)
		return a.fail(target, model.EngineWave, ts, fmt.Errorf("wave: %w", a.timeoutErr(runCtx, err)))
	}
	a.transition(run, waveDone)

	violations := normalize.NormalizeWave(rep)
	score := scoring.Wave(violations)
	res := model.NewAuditResult(target.URL, model.EngineWave, ts, violations, score,
		locale.AuditSummary(target.Language, model.EngineWave, len(violations), score))
	res.ExternalReportURL = rep.ReportURL
	return res, nil
}

func (a *WaveAdapter) run(ctx context.Context, run *waveRun) (normalize.WaveReport, error) {
	sess, err := a.acquire(ctx, a.cfg.mode(), run.target)
	if err != nil {
		return normalize.WaveReport{}, err
	}
	defer a.release(sess)
	a.transition(run, waveLaunched)

	if _, err := sess.Navigate(ctx, a.cfg.BaseURL, browser.WaitNetworkIdle); err != nil {
		return normalize.WaveReport{}, err
	}
	a.transition(run, wavePageOpened)

	field, err := firstExisting(ctx, sess, waveFieldSelectors)
	if err != nil {
		return normalize.WaveReport{}, fmt.Errorf("%w: url field not found: %w", model.ErrNavigation, err)
	}
	if err := a.fill(ctx, sess, field, run.target.URL); err != nil {
		return normalize.WaveReport{}, err
	}
	a.transition(run, waveFieldFilled)

	if err := a.submit(ctx, sess, field); err != nil {
		return normalize.WaveReport{}, err
	}
	a.transition(run, waveSubmitted)

	a.transition(run, waveAwaiting)
	outcome, err := a.await(ctx, sess)
	if err != nil {
		return normalize.WaveReport{}, err
	}
	a.transition(run, outcome)

	a.transition(run, waveExtracting)
	var page wavePage
	if err := sess.Evaluate(ctx, waveExtractScript, &page); err != nil {
		return normalize.WaveReport{}, fmt.Errorf("%w: %w", model.ErrExtraction, err)
	}
	rep, recognized := BuildWaveReport(page.Text, page.Nodes, a.cfg.ReportURL(run.target.URL), run.target.Language)
	if !recognized {
		a.logger.Warn("wave results page not recognized, using recovered items only",
			"url", run.target.URL,
			"error", model.ErrExtraction,
		)
	}
	return rep, nil
}

// fill focuses the field and types target one character at a time.
func (a *WaveAdapter) fill(ctx context.Context, sess browser.Session, field, target string) error {
	a.pacer.Pause(ctx)
	if err := sess.MoveMouseTo(ctx, field); err != nil {
		a.logger.Debug("cursor move failed", "selector", field, "error", err)
	}
	if err := sess.Click(ctx, field); err != nil {
		return fmt.Errorf("%w: focus url field: %w", model.ErrNavigation, err)
	}
	for _, r := range target {
		if err := sess.TypeText(ctx, field, string(r)); err != nil {
			return fmt.Errorf("%w: type url: %w", model.ErrNavigation, err)
		}
		a.pacer.Keystroke(ctx)
	}
	return nil
}

// submit clicks the form button, or presses Enter in the field when no
// button can be found.
func (a *WaveAdapter) submit(ctx context.Context, sess browser.Session, field string) error {
	a.pacer.Pause(ctx)
	button, err := firstExisting(ctx, sess, waveSubmitSelectors)
	if err != nil {
		if err := sess.PressEnter(ctx, field); err != nil {
			return fmt.Errorf("%w: submit: %w", model.ErrNavigation, err)
		}
		return nil
	}
	if err := sess.MoveMouseTo(ctx, button); err != nil {
		a.logger.Debug("cursor move failed", "selector", button, "error", err)
	}
	a.pacer.Pause(ctx)
	if err := sess.Click(ctx, button); err != nil {
		return fmt.Errorf("%w: submit: %w", model.ErrNavigation, err)
	}
	return nil
}

// waveProbe is the result of one completion probe.
type waveProbe struct {
	Loader  bool `json:"loader"`
	Results bool `json:"results"`
	Error   bool `json:"error"`
	Counts  bool `json:"counts"`
}

// await polls the results page until one completion signal fires or the
// bound is exhausted. It returns waveConfirmed or waveTimedOut.
func (a *WaveAdapter) await(ctx context.Context, sess browser.Session) (waveState, error) {
	var loaderSeen, loaderGone, errorSeen bool
	for i := range a.cfg.MaxPolls {
		if err := ctx.Err(); err != nil {
			return waveTimedOut, err
		}
		var p waveProbe
		if err := sess.Evaluate(ctx, waveProbeScript, &p); err != nil {
			a.logger.Debug("completion probe failed", "poll", i+1, "error", err)
		} else {
			if p.Loader {
				loaderSeen = true
			} else if loaderSeen {
				loaderGone = true
			}
			if p.Error {
				errorSeen = true
			}
			if p.Results || (p.Counts && !p.Loader) {
				return waveConfirmed, nil
			}
		}
		interval := a.cfg.PollInterval
		if loaderGone {
			interval = a.cfg.FastPollInterval
		}
		a.sleep(ctx, interval)
	}
	if errorSeen && !loaderGone {
		return waveTimedOut, fmt.Errorf("%w: invalid input reported by the scanner", model.ErrNavigation)
	}
	return waveTimedOut, nil
}

// firstExisting returns the first selector matching an element.
func firstExisting(ctx context.Context, sess browser.Session, selectors []string) (string, error) {
	var errs []error
	for _, sel := range selectors {
		ok, err := sess.Exists(ctx, sel)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			return sel, nil
		}
	}
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return "", fmt.Errorf("none of %s", strings.Join(selectors, ", "))
}
