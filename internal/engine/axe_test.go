package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/model"
)

var scenarioDResults = map[string]any{
	"violations": []any{
		map[string]any{
			"id":     "image-alt",
			"impact": "critical",
			"nodes": []any{
				map[string]any{"target": []string{"img"}, "html": "<img>"},
				map[string]any{"target": []string{"#logo"}, "html": `<img id="logo">`},
			},
		},
	},
	"testEngine": map[string]any{"name": "axe-core", "version": "4.10.2"},
}

func testAxeConfig() AxeConfig {
	return AxeConfig{
		ScriptURL:     "https://cdn.example/axe.min.js",
		InjectTimeout: time.Second,
		ScriptTimeout: time.Second,
	}
}

// axeAsync answers the inject script with loaded and the run script with out.
func axeAsync(loaded bool, out any) func(context.Context, string) (any, error) {
	return func(_ context.Context, js string) (any, error) {
		if strings.Contains(js, "createElement('script')") {
			return loaded, nil
		}
		return out, nil
	}
}

func TestAxeAdapterRun(t *testing.T) {
	t.Parallel()

	t.Run("one violation per node", func(t *testing.T) {
		t.Parallel()

		sess := &fakeSession{
			status:    200,
			evalAsync: axeAsync(true, map[string]any{"timedOut": false, "results": scenarioDResults}),
		}
		provider := &fakeProvider{sess: sess}
		a := NewAxeAdapter(provider, testAxeConfig(), nil, WithClock(fixedClock))

		target := Target{URL: "https://example.com/", Headers: map[string]string{"Cookie": "session=1"}}
		res, err := a.Run(context.Background(), target)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.TotalViolations != 2 {
			t.Fatalf("TotalViolations = %d, want 2", res.TotalViolations)
		}
		v := res.Violations[0]
		if v.Criterion != "1.1" || v.Level != model.LevelAA || v.Impact != model.ImpactCritical {
			t.Errorf("violation = %+v", v)
		}
		if res.Violations[1].Element != "#logo" {
			t.Errorf("second element = %q, want #logo", res.Violations[1].Element)
		}
		if sess.headers["Cookie"] != "session=1" {
			t.Errorf("headers = %v", sess.headers)
		}
		if sess.released != 1 {
			t.Errorf("released %d times, want 1", sess.released)
		}
		if len(provider.modes) != 1 || provider.modes[0] != browser.ModeHeadless {
			t.Errorf("modes = %v, want [headless]", provider.modes)
		}
	})

	t.Run("non 2xx status", func(t *testing.T) {
		t.Parallel()

		sess := &fakeSession{status: 404}
		a := NewAxeAdapter(&fakeProvider{sess: sess}, testAxeConfig(), nil)
		res, err := a.Run(context.Background(), Target{URL: "https://example.com/missing"})
		if !errors.Is(err, model.ErrNavigation) {
			t.Fatalf("Run() error = %v, want ErrNavigation", err)
		}
		if res.TotalViolations != 0 || res.Score != 0 {
			t.Errorf("failed result = %+v", res)
		}
		if sess.released != 1 {
			t.Errorf("released %d times, want 1", sess.released)
		}
	})

	t.Run("degraded load is accepted", func(t *testing.T) {
		t.Parallel()

		sess := &fakeSession{
			status:    0,
			evalAsync: axeAsync(true, map[string]any{"results": map[string]any{"violations": []any{}}}),
		}
		a := NewAxeAdapter(&fakeProvider{sess: sess}, testAxeConfig(), nil)
		res, err := a.Run(context.Background(), Target{URL: "https://example.com/"})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Score != 100 {
			t.Errorf("Score = %d, want 100", res.Score)
		}
	})

	t.Run("timeout yields an empty valid result", func(t *testing.T) {
		t.Parallel()

		sess := &fakeSession{
			status:    200,
			evalAsync: axeAsync(true, map[string]any{"timedOut": true, "results": map[string]any{"violations": []any{}}}),
		}
		a := NewAxeAdapter(&fakeProvider{sess: sess}, testAxeConfig(), nil)
		res, err := a.Run(context.Background(), Target{URL: "https://example.com/"})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.TotalViolations != 0 || res.Score != 100 {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("go side deadline yields an empty valid result", func(t *testing.T) {
		t.Parallel()

		sess := &fakeSession{
			status: 200,
			evalAsync: func(ctx context.Context, js string) (any, error) {
				if strings.Contains(js, "createElement('script')") {
					return true, nil
				}
				return nil, context.DeadlineExceeded
			},
		}
		a := NewAxeAdapter(&fakeProvider{sess: sess}, testAxeConfig(), nil)
		res, err := a.Run(context.Background(), Target{URL: "https://example.com/"})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.TotalViolations != 0 {
			t.Errorf("TotalViolations = %d, want 0", res.TotalViolations)
		}
	})

	t.Run("falls back to embedded rules", func(t *testing.T) {
		t.Parallel()

		var usedFallback bool
		sess := &fakeSession{
			status:    200,
			evalAsync: axeAsync(false, map[string]any{"results": scenarioDResults}),
			eval: func(js string) (any, error) {
				if strings.Contains(js, "a11yscan-fallback") {
					usedFallback = true
					return true, nil
				}
				return false, nil
			},
		}
		a := NewAxeAdapter(&fakeProvider{sess: sess}, testAxeConfig(), nil)
		res, err := a.Run(context.Background(), Target{URL: "https://example.com/"})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if !usedFallback {
			t.Error("embedded rules not evaluated")
		}
		if res.TotalViolations != 2 {
			t.Errorf("TotalViolations = %d, want 2", res.TotalViolations)
		}
	})

	t.Run("evaluates fetched source before the embedded rules", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("window.axe = {fetched: true};")) //nolint:errcheck
		}))
		defer srv.Close()

		var evaluated []string
		sess := &fakeSession{
			status:    200,
			evalAsync: axeAsync(false, map[string]any{"results": scenarioDResults}),
			eval: func(js string) (any, error) {
				evaluated = append(evaluated, js)
				return strings.Contains(js, "fetched: true"), nil
			},
		}
		cfg := testAxeConfig()
		cfg.ScriptURL = srv.URL + "/axe.min.js"
		a := NewAxeAdapter(&fakeProvider{sess: sess}, cfg, HTTPFetcher{Client: srv.Client()})
		if _, err := a.Run(context.Background(), Target{URL: "https://example.com/"}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(evaluated) != 1 {
			t.Errorf("evaluated %d scripts, want only the fetched source", len(evaluated))
		}
	})
}

func TestHTTPFetcherRejectsErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := (HTTPFetcher{Client: srv.Client()}).Fetch(context.Background(), srv.URL); err == nil {
		t.Error("Fetch() error = nil, want status error")
	}
}

func TestAxeScripts(t *testing.T) {
	t.Parallel()

	inject := axeInjectScript("https://cdn.example/axe.js", 1500*time.Millisecond)
	if !strings.Contains(inject, `"https://cdn.example/axe.js"`) || !strings.Contains(inject, "1500") {
		t.Errorf("inject script = %s", inject)
	}
	if run := axeRunScript(2 * time.Second); !strings.Contains(run, "Promise.race") || !strings.Contains(run, "2000") {
		t.Errorf("run script = %s", run)
	}
	for _, rule := range []string{"image-alt", "label", "html-has-lang", "document-title", "link-name", "button-name"} {
		if !strings.Contains(axeFallbackScript, "id: '"+rule+"'") {
			t.Errorf("embedded rules lack %s", rule)
		}
	}
}
