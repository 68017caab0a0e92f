package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/locale"
	"github.com/nao1215/a11yscan/internal/model"
)

// Target is the page an adapter audits.
type Target struct {
	// URL is the absolute http(s) URL of the page.
	URL string
	// Language selects the summary language.
	Language language.Tag
	// Headers are sent with every request of the session (e.g. Cookie).
	Headers map[string]string
}

// Adapter audits one URL with one engine.
//
// On failure Run returns a zeroed result together with the error so that
// callers always have a well-formed AuditResult to report.
type Adapter interface {
	Engine() model.Engine
	Run(ctx context.Context, target Target) (*model.AuditResult, error)
}

// SessionProvider hands out exclusive browser sessions.
type SessionProvider interface {
	Acquire(ctx context.Context, mode browser.Mode) (browser.Session, error)
}

// Pacer inserts human-like delays between browser interactions.
type Pacer interface {
	// Pause waits between two high level actions (focus, click, submit).
	Pause(ctx context.Context)
	// Keystroke waits between two typed characters.
	Keystroke(ctx context.Context)
}

// HumanPacer waits a random duration within fixed ranges.
type HumanPacer struct {
	mu   sync.Mutex
	rand *rand.Rand

	pauseMin, pauseMax time.Duration
	keyMin, keyMax     time.Duration
}

// NewHumanPacer returns a pacer that pauses 400-1200ms between actions and
// 50-180ms between keystrokes.
func NewHumanPacer(r *rand.Rand) *HumanPacer {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // timing jitter only
	}
	return &HumanPacer{
		rand:     r,
		pauseMin: 400 * time.Millisecond,
		pauseMax: 1200 * time.Millisecond,
		keyMin:   50 * time.Millisecond,
		keyMax:   180 * time.Millisecond,
	}
}

// Pause implements Pacer.
func (p *HumanPacer) Pause(ctx context.Context) {
	sleep(ctx, p.between(p.pauseMin, p.pauseMax))
}

// Keystroke implements Pacer.
func (p *HumanPacer) Keystroke(ctx context.Context) {
	sleep(ctx, p.between(p.keyMin, p.keyMax))
}

func (p *HumanPacer) between(lo, hi time.Duration) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo + time.Duration(p.rand.Int64N(int64(hi-lo)+1))
}

// NoPacer never waits.
type NoPacer struct{}

// Pause implements Pacer.
func (NoPacer) Pause(context.Context) {}

// Keystroke implements Pacer.
func (NoPacer) Keystroke(context.Context) {}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// DefaultRunTimeout bounds one whole adapter run, on top of the launch,
// navigation, selector and script timeouts of its steps.
const DefaultRunTimeout = 4 * time.Minute

// errRunDeadline is the cause of a run context whose overall bound expired.
var errRunDeadline = errors.New("engine run deadline exceeded")

// base holds what every adapter shares.
type base struct {
	provider SessionProvider
	logger   *slog.Logger
	now      func() time.Time
	// runTimeout bounds a whole Run. Zero or less disables the bound.
	runTimeout time.Duration
}

func newBase(provider SessionProvider) base {
	return base{
		provider:   provider,
		logger:     slog.Default(),
		now:        time.Now,
		runTimeout: DefaultRunTimeout,
	}
}

// Option configures the shared parts of an adapter.
type Option func(*base)

// WithLogger sets the adapter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock sets the function used to timestamp results.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

// WithRunTimeout bounds a whole Run. The steps keep their own, shorter
// timeouts; d only caps their sum. Zero or less disables the bound.
func WithRunTimeout(d time.Duration) Option {
	return func(b *base) {
		b.runTimeout = d
	}
}

func (b *base) apply(opts []Option) {
	for _, opt := range opts {
		opt(b)
	}
}

// bounded derives the context of one Run from ctx.
func (b *base) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.runTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeoutCause(ctx, b.runTimeout, errRunDeadline)
}

// timeoutErr reports err as an engine timeout when runCtx ran out of its
// overall bound, whatever step was interrupted.
func (b *base) timeoutErr(runCtx context.Context, err error) error {
	if errors.Is(context.Cause(runCtx), errRunDeadline) && !errors.Is(err, model.ErrEngineTimeout) {
		return fmt.Errorf("%w: run exceeded %s: %w", model.ErrEngineTimeout, b.runTimeout, err)
	}
	return err
}

// fail returns the zeroed result every adapter reports on error.
func (b *base) fail(target Target, engine model.Engine, ts time.Time, err error) (*model.AuditResult, error) {
	return model.EmptyAuditResult(target.URL, engine, ts, locale.FailureSummary(target.Language, engine, err)), err
}

// acquire opens a session and applies the target headers.
func (b *base) acquire(ctx context.Context, mode browser.Mode, target Target) (browser.Session, error) {
	sess, err := b.provider.Acquire(ctx, mode)
	if err != nil {
		return nil, err
	}
	if len(target.Headers) > 0 {
		if err := sess.SetExtraHeaders(ctx, target.Headers); err != nil {
			b.logger.Warn("failed to set extra headers", "error", err)
		}
	}
	return sess, nil
}

func (b *base) release(sess browser.Session) {
	if err := sess.Release(); err != nil {
		b.logger.Debug("failed to release browser session", "error", err)
	}
}

// navigationOK reports whether status denotes a usable document.
// Status 0 means only a degraded load signal was observed.
func navigationOK(status int) bool {
	return status == 0 || (status >= 200 && status < 300)
}
