package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/a11yscan/internal/browser"
)

// fakeSession is a scripted browser.Session.
type fakeSession struct {
	mu sync.Mutex

	status int
	navErr error
	exists map[string]bool
	boxes  map[string]browser.Rect

	// eval answers Evaluate, evalAsync answers EvaluateAsync.
	// evalHangs makes Evaluate wait for its context instead.
	eval      func(js string) (any, error)
	evalHangs bool
	evalAsync func(ctx context.Context, js string) (any, error)

	navigated []string
	typed     strings.Builder
	clicks    []string
	entered   []string
	headers   map[string]string
	released  int
}

var _ browser.Session = (*fakeSession)(nil)

func (f *fakeSession) Navigate(_ context.Context, url string, _ browser.WaitCondition) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigated = append(f.navigated, url)
	if f.navErr != nil {
		return 0, f.navErr
	}
	return f.status, nil
}

func (f *fakeSession) Exists(_ context.Context, selector string) (bool, error) {
	return f.exists[selector], nil
}

func (f *fakeSession) WaitVisible(context.Context, string) error { return nil }

func (f *fakeSession) BoundingBox(_ context.Context, selector string) (browser.Rect, error) {
	r, ok := f.boxes[selector]
	if !ok {
		return browser.Rect{}, errors.New("not found")
	}
	return r, nil
}

func (f *fakeSession) MoveMouseTo(context.Context, string) error { return nil }

func (f *fakeSession) Click(_ context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = append(f.clicks, selector)
	return nil
}

func (f *fakeSession) TypeText(_ context.Context, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typed.WriteString(text)
	return nil
}

func (f *fakeSession) PressEnter(_ context.Context, selector string) error {
	f.entered = append(f.entered, selector)
	return nil
}

func (f *fakeSession) Evaluate(ctx context.Context, js string, out any) error {
	if f.evalHangs {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.eval == nil {
		return errors.New("no evaluator")
	}
	v, err := f.eval(js)
	if err != nil {
		return err
	}
	return roundTrip(v, out)
}

func (f *fakeSession) EvaluateAsync(ctx context.Context, js string, out any) error {
	if f.evalAsync == nil {
		return errors.New("no async evaluator")
	}
	v, err := f.evalAsync(ctx, js)
	if err != nil {
		return err
	}
	return roundTrip(v, out)
}

func (f *fakeSession) SetExtraHeaders(_ context.Context, headers map[string]string) error {
	f.headers = headers
	return nil
}

func (f *fakeSession) Identity() browser.Identity { return browser.Identity{} }

func (f *fakeSession) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
	return nil
}

func roundTrip(v, out any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// fakeProvider hands out one fakeSession.
type fakeProvider struct {
	sess  *fakeSession
	err   error
	modes []browser.Mode
}

func (p *fakeProvider) Acquire(_ context.Context, mode browser.Mode) (browser.Session, error) {
	p.modes = append(p.modes, mode)
	if p.err != nil {
		return nil, p.err
	}
	return p.sess, nil
}

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }
