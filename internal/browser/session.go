package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/nao1215/a11yscan/internal/model"
)

// WaitCondition is the page-load signal Navigate waits for.
type WaitCondition int

const (
	// WaitDOMContentLoaded returns once the document has been parsed.
	WaitDOMContentLoaded WaitCondition = iota
	// WaitNetworkIdle additionally waits for network activity to settle and
	// degrades to WaitDOMContentLoaded when that does not happen in time.
	WaitNetworkIdle
)

// Rect is the bounding box of an element in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Session is one exclusive browser instance.
type Session interface {
	// Navigate loads url and returns the HTTP status of the document,
	// or 0 when only a degraded load signal was observed.
	Navigate(ctx context.Context, url string, wait WaitCondition) (int, error)

	// Exists reports whether selector currently matches an element.
	Exists(ctx context.Context, selector string) (bool, error)

	// WaitVisible waits until selector matches a visible element.
	WaitVisible(ctx context.Context, selector string) error

	// BoundingBox returns the rectangle of the first element matching selector.
	BoundingBox(ctx context.Context, selector string) (Rect, error)

	// MoveMouseTo moves the cursor onto the element along a multi-step path.
	MoveMouseTo(ctx context.Context, selector string) error

	// Click clicks the element.
	Click(ctx context.Context, selector string) error

	// TypeText sends text as key events to the element. Callers pace
	// human-like typing by sending one character per call.
	TypeText(ctx context.Context, selector, text string) error

	// PressEnter sends the Enter key to the element.
	PressEnter(ctx context.Context, selector string) error

	// Evaluate runs js and decodes its result into out, which may be nil.
	Evaluate(ctx context.Context, js string, out any) error

	// EvaluateAsync is Evaluate for expressions returning a promise.
	EvaluateAsync(ctx context.Context, js string, out any) error

	// SetExtraHeaders sends headers with every request of the session.
	SetExtraHeaders(ctx context.Context, headers map[string]string) error

	// Identity returns the client identity of the session.
	Identity() Identity

	// Release closes the browser. It is safe to call more than once.
	Release() error
}

type chromeSession struct {
	ctx      context.Context
	release  func()
	once     sync.Once
	identity Identity
	timeouts Timeouts
	logger   *slog.Logger

	mouseMu   sync.Mutex
	mouseX    float64
	mouseY    float64
	mouseInit bool
}

func newChromeSession(ctx context.Context, release func(), id Identity, t Timeouts, logger *slog.Logger) *chromeSession {
	return &chromeSession{
		ctx:      ctx,
		release:  release,
		identity: id,
		timeouts: t,
		logger:   logger,
	}
}

// scope derives a context from the tab that is bounded by timeout and also
// ends when ctx ends.
func (s *chromeSession) scope(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	c, cancel := context.WithTimeout(s.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return c, func() {
		stop()
		cancel()
	}
}

func (s *chromeSession) Navigate(ctx context.Context, url string, wait WaitCondition) (int, error) {
	idle := make(chan struct{}, 1)
	if wait == WaitNetworkIdle {
		lctx, cancel := context.WithCancel(s.ctx)
		defer cancel()
		chromedp.ListenTarget(lctx, func(ev any) {
			if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" {
				select {
				case idle <- struct{}{}:
				default:
				}
			}
		})
		if err := chromedp.Run(s.ctx, page.SetLifecycleEventsEnabled(true)); err != nil {
			return 0, fmt.Errorf("%w: enable lifecycle events: %w", model.ErrNavigation, err)
		}
	}

	navCtx, cancel := s.scope(ctx, s.timeouts.Navigation)
	defer cancel()

	status := 0
	resp, err := chromedp.RunResponse(navCtx, chromedp.Navigate(url))
	switch {
	case err == nil:
		if resp != nil {
			status = int(resp.Status)
		}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(navCtx.Err(), context.DeadlineExceeded):
		if !s.contentLoaded(ctx) {
			return 0, fmt.Errorf("%w: %s did not load within %s", model.ErrNavigation, url, s.timeouts.Navigation)
		}
		s.logger.Debug("load event timed out, continuing with DOMContentLoaded", "url", url)
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %s: %w", model.ErrNavigation, url, err)
	}

	if wait == WaitNetworkIdle {
		timer := time.NewTimer(s.timeouts.Idle)
		defer timer.Stop()
		select {
		case <-idle:
		case <-timer.C:
			s.logger.Debug("network idle not reached, continuing with DOMContentLoaded", "url", url)
		}
	}
	return status, nil
}

// contentLoaded reports whether the current document is past the loading state.
func (s *chromeSession) contentLoaded(ctx context.Context) bool {
	var state string
	if err := s.Evaluate(ctx, "document.readyState", &state); err != nil {
		return false
	}
	return state == "interactive" || state == "complete"
}

func (s *chromeSession) Exists(ctx context.Context, selector string) (bool, error) {
	var ok bool
	err := s.Evaluate(ctx, fmt.Sprintf("document.querySelector(%s) !== null", jsString(selector)), &ok)
	return ok, err
}

func (s *chromeSession) WaitVisible(ctx context.Context, selector string) error {
	c, cancel := s.scope(ctx, s.timeouts.Selector)
	defer cancel()
	return chromedp.Run(c, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (s *chromeSession) BoundingBox(ctx context.Context, selector string) (Rect, error) {
	var r *Rect
	js := fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  if (!el) return null;
  const r = el.getBoundingClientRect();
  return {x: r.x + window.scrollX, y: r.y + window.scrollY, width: r.width, height: r.height};
})()`, jsString(selector))
	if err := s.Evaluate(ctx, js, &r); err != nil {
		return Rect{}, err
	}
	if r == nil {
		return Rect{}, fmt.Errorf("no element matches %q", selector)
	}
	return *r, nil
}

// mouseSteps is the number of intermediate cursor positions.
const mouseSteps = 8

func (s *chromeSession) MoveMouseTo(ctx context.Context, selector string) error {
	rect, err := s.BoundingBox(ctx, selector)
	if err != nil {
		return err
	}
	var scroll struct{ X, Y float64 }
	if err := s.Evaluate(ctx, "({X: window.scrollX, Y: window.scrollY})", &scroll); err != nil {
		return err
	}
	tx := rect.X - scroll.X + rect.Width/2
	ty := rect.Y - scroll.Y + rect.Height/2

	s.mouseMu.Lock()
	fromX, fromY := s.mouseX, s.mouseY
	if !s.mouseInit {
		fromX, fromY = float64(s.identity.Width)/2, float64(s.identity.Height)/2
	}
	s.mouseX, s.mouseY, s.mouseInit = tx, ty, true
	s.mouseMu.Unlock()

	actions := make([]chromedp.Action, 0, mouseSteps)
	for i := 1; i <= mouseSteps; i++ {
		f := float64(i) / mouseSteps
		// ease-out curve so the cursor slows down near the target
		f = 1 - (1-f)*(1-f)
		actions = append(actions, chromedp.MouseEvent(input.MouseMoved, fromX+(tx-fromX)*f, fromY+(ty-fromY)*f))
	}
	c, cancel := s.scope(ctx, s.timeouts.Selector)
	defer cancel()
	return chromedp.Run(c, actions...)
}

func (s *chromeSession) Click(ctx context.Context, selector string) error {
	c, cancel := s.scope(ctx, s.timeouts.Selector)
	defer cancel()
	return chromedp.Run(c, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (s *chromeSession) TypeText(ctx context.Context, selector, text string) error {
	c, cancel := s.scope(ctx, s.timeouts.Selector)
	defer cancel()
	return chromedp.Run(c, chromedp.SendKeys(selector, text, chromedp.ByQuery))
}

func (s *chromeSession) PressEnter(ctx context.Context, selector string) error {
	return s.TypeText(ctx, selector, kb.Enter)
}

func (s *chromeSession) Evaluate(ctx context.Context, js string, out any) error {
	c, cancel := s.scope(ctx, s.timeouts.Selector)
	defer cancel()
	return chromedp.Run(c, chromedp.Evaluate(js, out))
}

// EvaluateAsync is bounded by ctx's deadline when it has one, so callers set
// the script layer timeout themselves.
func (s *chromeSession) EvaluateAsync(ctx context.Context, js string, out any) error {
	timeout := s.timeouts.Navigation
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	c, cancel := s.scope(ctx, timeout)
	defer cancel()
	return chromedp.Run(c, chromedp.Evaluate(js, out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
}

func (s *chromeSession) SetExtraHeaders(ctx context.Context, headers map[string]string) error {
	if len(headers) == 0 {
		return nil
	}
	h := make(network.Headers, len(headers))
	for k, v := range headers {
		h[k] = v
	}
	c, cancel := s.scope(ctx, s.timeouts.Selector)
	defer cancel()
	return chromedp.Run(c, network.SetExtraHTTPHeaders(h))
}

func (s *chromeSession) Identity() Identity {
	return s.identity
}

func (s *chromeSession) Release() error {
	s.once.Do(func() {
		if err := chromedp.Cancel(s.ctx); err != nil && !strings.Contains(err.Error(), "context canceled") {
			s.logger.Debug("graceful browser shutdown failed", "error", err)
		}
		s.release()
	})
	return nil
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}
