package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/normalize"
	"github.com/nao1215/a11yscan/internal/scoring"
)

func testWaveConfig() WaveConfig {
	return WaveConfig{
		BaseURL:          "https://wave.example",
		MaxPolls:         3,
		PollInterval:     time.Millisecond,
		FastPollInterval: time.Millisecond,
	}
}

// waveEval answers the probe script with probes in turn (repeating the last)
// and the extraction script with page.
func waveEval(probes []waveProbe, page wavePage) func(string) (any, error) {
	var n atomic.Int32
	return func(js string) (any, error) {
		switch js {
		case waveProbeScript:
			i := int(n.Add(1)) - 1
			if i >= len(probes) {
				i = len(probes) - 1
			}
			return probes[i], nil
		case waveExtractScript:
			return page, nil
		default:
			return nil, fmt.Errorf("unexpected script %q", js)
		}
	}
}

func TestWaveAdapterRun(t *testing.T) {
	t.Parallel()

	t.Run("completes and pads counted findings", func(t *testing.T) {
		t.Parallel()

		sess := &fakeSession{
			exists: map[string]bool{"#input_url": true, "#button_go": true},
			eval: waveEval(
				[]waveProbe{{Loader: true}, {Counts: true}},
				wavePage{
					Text: "Summary 3 errors 1 alert 4 features",
					Nodes: []WaveNode{
						{Text: "Missing alternative text", Class: "error icon"},
						{Text: "Redundant link", Class: "alert"},
						{Text: "Missing form label", Class: "error"},
					},
				},
			),
		}
		provider := &fakeProvider{sess: sess}
		a := NewWaveAdapter(provider, testWaveConfig(), NoPacer{}, WithClock(fixedClock))

		target := Target{URL: "https://example.com/", Language: language.English}
		res, err := a.Run(context.Background(), target)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Engine != model.EngineWave || !res.Timestamp.Equal(fixedTime) {
			t.Errorf("result header = %v %v", res.Engine, res.Timestamp)
		}
		if res.TotalViolations != 4 {
			t.Errorf("TotalViolations = %d, want 4", res.TotalViolations)
		}
		if res.Score != scoring.Wave(res.Violations) {
			t.Errorf("Score = %d, want %d", res.Score, scoring.Wave(res.Violations))
		}
		if got, want := res.ExternalReportURL, "https://wave.example/report#/https://example.com/"; got != want {
			t.Errorf("ExternalReportURL = %q, want %q", got, want)
		}
		if got := sess.typed.String(); got != target.URL {
			t.Errorf("typed %q, want %q", got, target.URL)
		}
		if got, want := strings.Join(sess.clicks, ","), "#input_url,#button_go"; got != want {
			t.Errorf("clicks = %q, want %q", got, want)
		}
		if got, want := sess.navigated, []string{"https://wave.example"}; len(got) != 1 || got[0] != want[0] {
			t.Errorf("navigated = %v, want %v", got, want)
		}
		if sess.released != 1 {
			t.Errorf("released %d times, want 1", sess.released)
		}
		if len(provider.modes) != 1 || provider.modes[0] != browser.ModeVisible {
			t.Errorf("modes = %v, want [visible]", provider.modes)
		}
	})

	t.Run("presses enter without a submit button", func(t *testing.T) {
		t.Parallel()

		sess := &fakeSession{
			exists: map[string]bool{"input[type='url']": true},
			eval:   waveEval([]waveProbe{{Results: true}}, wavePage{Text: "0 errors 0 alerts"}),
		}
		a := NewWaveAdapter(&fakeProvider{sess: sess}, testWaveConfig(), NoPacer{})
		res, err := a.Run(context.Background(), Target{URL: "https://example.com/"})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.TotalViolations != 0 || res.Score != 100 {
			t.Errorf("got %d violations, score %d", res.TotalViolations, res.Score)
		}
		if len(sess.entered) != 1 || sess.entered[0] != "input[type='url']" {
			t.Errorf("entered = %v", sess.entered)
		}
	})

	t.Run("invalid input marker fails the run", func(t *testing.T) {
		t.Parallel()

		sess := &fakeSession{
			exists: map[string]bool{"#input_url": true, "#button_go": true},
			eval:   waveEval([]waveProbe{{Error: true}}, wavePage{}),
		}
		a := NewWaveAdapter(&fakeProvider{sess: sess}, testWaveConfig(), NoPacer{})
		res, err := a.Run(context.Background(), Target{URL: "https://example.com/"})
		if !errors.Is(err, model.ErrNavigation) {
			t.Fatalf("Run() error = %v, want ErrNavigation", err)
		}
		if res == nil || res.TotalViolations != 0 || res.Score != 0 {
			t.Errorf("failed run result = %+v, want zeroed", res)
		}
		if sess.released != 1 {
			t.Errorf("released %d times, want 1", sess.released)
		}
	})

	t.Run("timeout extracts best effort", func(t *testing.T) {
		t.Parallel()

		sess := &fakeSession{
			exists: map[string]bool{"#input_url": true, "#button_go": true},
			eval:   waveEval([]waveProbe{{Loader: true}}, wavePage{Text: "2 errors"}),
		}
		a := NewWaveAdapter(&fakeProvider{sess: sess}, testWaveConfig(), NoPacer{})
		res, err := a.Run(context.Background(), Target{URL: "https://example.com/"})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.TotalViolations != 2 {
			t.Errorf("TotalViolations = %d, want 2", res.TotalViolations)
		}
	})

	t.Run("launch failure", func(t *testing.T) {
		t.Parallel()

		provider := &fakeProvider{err: fmt.Errorf("%w: no chrome", model.ErrBrowserLaunch)}
		a := NewWaveAdapter(provider, testWaveConfig(), NoPacer{})
		res, err := a.Run(context.Background(), Target{URL: "https://example.com/"})
		if !errors.Is(err, model.ErrBrowserLaunch) {
			t.Fatalf("Run() error = %v, want ErrBrowserLaunch", err)
		}
		if res == nil || res.Engine != model.EngineWave || len(res.Violations) != 0 {
			t.Errorf("failed run result = %+v", res)
		}
	})

	t.Run("missing form field", func(t *testing.T) {
		t.Parallel()

		sess := &fakeSession{exists: map[string]bool{}}
		a := NewWaveAdapter(&fakeProvider{sess: sess}, testWaveConfig(), NoPacer{})
		if _, err := a.Run(context.Background(), Target{URL: "https://example.com/"}); !errors.Is(err, model.ErrNavigation) {
			t.Fatalf("Run() error = %v, want ErrNavigation", err)
		}
		if sess.released != 1 {
			t.Errorf("released %d times, want 1", sess.released)
		}
	})
}

func TestParseWaveCounts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want WaveCounts
	}{
		{
			name: "english",
			text: "5 Errors\n2 Alerts\n12 Features",
			want: WaveCounts{Errors: 5, Alerts: 2, Features: 12, HasErrors: true, HasAlerts: true, HasFeatures: true},
		},
		{
			name: "french",
			text: "3 erreurs, 1 alerte, 4 fonctionnalités",
			want: WaveCounts{Errors: 3, Alerts: 1, Features: 4, HasErrors: true, HasAlerts: true, HasFeatures: true},
		},
		{
			name: "largest match wins",
			text: "1 error here, 7 errors total",
			want: WaveCounts{Errors: 7, HasErrors: true},
		},
		{
			name: "capped",
			text: "99999 errors",
			want: WaveCounts{Errors: maxWaveCount, HasErrors: true},
		},
		{
			name: "nothing",
			text: "Web accessibility evaluation tool",
			want: WaveCounts{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ParseWaveCounts(tt.text)
			if got != tt.want {
				t.Errorf("ParseWaveCounts() = %+v, want %+v", got, tt.want)
			}
			if got.Recognized() != (tt.want != WaveCounts{}) {
				t.Errorf("Recognized() = %v", got.Recognized())
			}
		})
	}
}

func TestExtractWaveItems(t *testing.T) {
	t.Parallel()

	nodes := []WaveNode{
		{Text: "Missing alternative text", Class: "icon error"},
		{Text: "missing   alternative text", Class: "icon error"},
		{Text: "Redundant link", Class: "sidebar warning"},
		{Text: "Very low contrast"},
		{Text: "Suspicious link text"},
		{Text: "5 errors"},
		{Text: "Home"},
		{Text: "Lien vide", Class: "erreur"},
	}
	errs, alerts := ExtractWaveItems(nodes)

	descriptions := func(items []normalize.WaveItem) []string {
		out := make([]string, len(items))
		for i, it := range items {
			out[i] = it.Description
		}
		return out
	}
	if got, want := strings.Join(descriptions(errs), "|"), "Missing alternative text|Very low contrast|Lien vide"; got != want {
		t.Errorf("errors = %q, want %q", got, want)
	}
	if got, want := strings.Join(descriptions(alerts), "|"), "Redundant link|Suspicious link text"; got != want {
		t.Errorf("alerts = %q, want %q", got, want)
	}
	for _, it := range errs {
		if it.Kind != normalize.WaveError {
			t.Errorf("error item kind = %q", it.Kind)
		}
	}
}

func TestBuildWaveReport(t *testing.T) {
	t.Parallel()

	t.Run("pads up to the counted totals", func(t *testing.T) {
		t.Parallel()

		nodes := []WaveNode{{Text: "Missing alternative text", Class: "error"}}
		rep, ok := BuildWaveReport("5 errors and 2 alerts", nodes, "https://wave.example/report#/x", language.English)
		if !ok {
			t.Error("page not recognized")
		}
		if len(rep.Errors) != 5 || rep.Summary.Errors != 5 {
			t.Errorf("errors = %d (summary %d), want 5", len(rep.Errors), rep.Summary.Errors)
		}
		if len(rep.Alerts) != 2 || rep.Summary.Alerts != 2 {
			t.Errorf("alerts = %d (summary %d), want 2", len(rep.Alerts), rep.Summary.Alerts)
		}
		if rep.Errors[0].Synthetic {
			t.Error("recovered error marked synthetic")
		}
		for _, it := range rep.Errors[1:] {
			if !it.Synthetic || it.Kind != normalize.WaveError || it.Description == "" {
				t.Errorf("placeholder = %+v", it)
			}
		}
		for _, it := range rep.Alerts {
			if !it.Synthetic || it.Kind != normalize.WaveAlert {
				t.Errorf("placeholder = %+v", it)
			}
		}
		if len(normalize.NormalizeWave(rep)) != 7 {
			t.Errorf("normalized %d violations, want 7", len(normalize.NormalizeWave(rep)))
		}
	})

	t.Run("count is authoritative over recovered items", func(t *testing.T) {
		t.Parallel()

		nodes := []WaveNode{
			{Text: "Missing alternative text", Class: "error"},
			{Text: "Empty button", Class: "error"},
		}
		rep, _ := BuildWaveReport("1 error", nodes, "", language.English)
		if len(rep.Errors) != 1 || rep.Summary.Errors != 1 {
			t.Errorf("errors = %d, want 1", len(rep.Errors))
		}
	})

	t.Run("uncounted page keeps recovered items", func(t *testing.T) {
		t.Parallel()

		nodes := []WaveNode{{Text: "Redundant title text", Class: "alert"}}
		rep, ok := BuildWaveReport("", nodes, "", language.English)
		if ok {
			t.Error("empty page recognized")
		}
		if len(rep.Alerts) != 1 || rep.Summary.Alerts != 1 || len(rep.Errors) != 0 {
			t.Errorf("report = %+v", rep)
		}
	})
}

func TestNewWaveAdapterDefaults(t *testing.T) {
	t.Parallel()

	def := DefaultWaveConfig()

	t.Run("fills a partial configuration", func(t *testing.T) {
		t.Parallel()

		a := NewWaveAdapter(nil, WaveConfig{BaseURL: "https://wave.example"}, NoPacer{})
		if a.cfg.BaseURL != "https://wave.example" {
			t.Errorf("BaseURL = %q", a.cfg.BaseURL)
		}
		if a.cfg.MaxPolls != def.MaxPolls || a.cfg.PollInterval != def.PollInterval || a.cfg.FastPollInterval != def.FastPollInterval {
			t.Errorf("polling = %d %s %s, want the defaults", a.cfg.MaxPolls, a.cfg.PollInterval, a.cfg.FastPollInterval)
		}
		if a.cfg.mode() != browser.ModeVisible {
			t.Errorf("mode = %s, want visible", a.cfg.mode())
		}
	})

	t.Run("headless on request", func(t *testing.T) {
		t.Parallel()

		if m := (WaveConfig{Headless: true}).mode(); m != browser.ModeHeadless {
			t.Errorf("mode = %s, want headless", m)
		}
	})
}
