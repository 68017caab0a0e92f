package normalize

import (
	"encoding/json"
	"testing"

	"github.com/nao1215/a11yscan/internal/model"
)

func TestNormalizeAxe(t *testing.T) {
	t.Parallel()

	t.Run("image-alt critical maps to 1.1 AA critical", func(t *testing.T) {
		t.Parallel()
		var res AxeResults
		raw := `{"violations":[{"id":"image-alt","impact":"critical","nodes":[{"target":["img"],"html":"<img>"}]}]}`
		if err := json.Unmarshal([]byte(raw), &res); err != nil {
			t.Fatalf("failed to decode fixture: %v", err)
		}

		got := NormalizeAxe(res)
		if len(got) != 1 {
			t.Fatalf("expected one violation, got %d", len(got))
		}
		v := got[0]
		if v.Criterion != "1.1" || v.Level != model.LevelAA || v.Impact != model.ImpactCritical {
			t.Errorf("unexpected violation: %+v", v)
		}
		if v.Element != "img" || v.HTMLSnippet != "<img>" || v.RuleID != "image-alt" {
			t.Errorf("unexpected node data: %+v", v)
		}
	})

	t.Run("one violation per node", func(t *testing.T) {
		t.Parallel()
		res := AxeResults{Violations: []AxeViolation{{
			ID:     "label",
			Impact: "serious",
			Nodes:  []AxeNode{{Target: AxeTarget{"#a"}}, {Target: AxeTarget{"#b"}}, {Target: AxeTarget{"#c"}}},
		}}}
		got := NormalizeAxe(res)
		if len(got) != 3 {
			t.Fatalf("expected three violations, got %d", len(got))
		}
		for _, v := range got {
			if v.Criterion != "11.1" || v.Impact != model.ImpactHigh || v.Level != model.LevelAA {
				t.Errorf("unexpected violation: %+v", v)
			}
		}
	})

	t.Run("impact mapping", func(t *testing.T) {
		t.Parallel()
		testCases := []struct {
			source string
			impact model.Impact
			level  model.Level
		}{
			{"critical", model.ImpactCritical, model.LevelAA},
			{"serious", model.ImpactHigh, model.LevelAA},
			{"moderate", model.ImpactMedium, model.LevelA},
			{"minor", model.ImpactLow, model.LevelA},
			{"", model.ImpactMedium, model.LevelAA},
		}
		for _, tc := range testCases {
			got := NormalizeAxe(AxeResults{Violations: []AxeViolation{{
				ID: "link-name", Impact: tc.source, Nodes: []AxeNode{{}},
			}}})
			if got[0].Impact != tc.impact || got[0].Level != tc.level {
				t.Errorf("source %q: got %s/%s, want %s/%s", tc.source, got[0].Impact, got[0].Level, tc.impact, tc.level)
			}
		}
	})

	t.Run("unknown rule falls back to the default criterion", func(t *testing.T) {
		t.Parallel()
		got := NormalizeAxe(AxeResults{Violations: []AxeViolation{{
			ID: "brand-new-rule", Nodes: []AxeNode{{}},
		}}})
		if got[0].Criterion != "1.1" || got[0].Impact != model.ImpactMedium || got[0].Level != model.LevelAA {
			t.Errorf("unexpected fallback: %+v", got[0])
		}
	})

	t.Run("node impact overrides rule impact", func(t *testing.T) {
		t.Parallel()
		got := NormalizeAxe(AxeResults{Violations: []AxeViolation{{
			ID: "color-contrast", Impact: "serious", Nodes: []AxeNode{{Impact: "minor"}},
		}}})
		if got[0].Impact != model.ImpactLow {
			t.Errorf("expected node impact to win, got %s", got[0].Impact)
		}
	})
}

func TestAxeTargetUnmarshal(t *testing.T) {
	t.Parallel()

	var target AxeTarget
	if err := json.Unmarshal([]byte(`["#host", ["my-el", "button"]]`), &target); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := target.String(); got != "#host, my-el >>> button" {
		t.Errorf("got %q", got)
	}

	if err := json.Unmarshal([]byte(`[1]`), &target); err == nil {
		t.Error("expected an error for a non-string target")
	}
}

func TestNormalizeWave(t *testing.T) {
	t.Parallel()

	rep := WaveReport{
		Errors: []WaveItem{
			{Kind: WaveError, Description: "Missing alternative text"},
			{Kind: WaveError, Description: "Very low contrast"},
			{Kind: WaveError, Description: "WAVE error #3", Synthetic: true},
		},
		Alerts: []WaveItem{
			{Kind: WaveAlert, Description: "Missing form label"},
			{Kind: WaveAlert, Description: "Something nobody has seen"},
		},
	}

	got := NormalizeWave(rep)
	if len(got) != 5 {
		t.Fatalf("expected five violations, got %d", len(got))
	}

	testCases := []struct {
		name      string
		index     int
		criterion string
		impact    model.Impact
		level     model.Level
	}{
		{"missing alt", 0, "1.1", model.ImpactCritical, model.LevelA},
		{"contrast", 1, "3.2", model.ImpactHigh, model.LevelAA},
		{"placeholder uses defaults", 2, "1.1", model.ImpactMedium, model.LevelAA},
		{"alert impact is capped", 3, "11.1", model.ImpactMedium, model.LevelA},
		{"unknown alert", 4, "1.1", model.ImpactLow, model.LevelAA},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			v := got[tc.index]
			if v.Criterion != tc.criterion || v.Impact != tc.impact || v.Level != tc.level {
				t.Errorf("got %s/%s/%s, want %s/%s/%s", v.Criterion, v.Impact, v.Level, tc.criterion, tc.impact, tc.level)
			}
		})
	}
}

func TestClassifyWave(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		description string
		expected    string
	}{
		{"Linked image missing alternative text", "alt_missing"},
		{"Empty button", "button_empty"},
		{"Skipped heading level", "heading_skipped"},
		{"Language missing or invalid", "language_missing"},
		{"Something else entirely", "unknown"},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyWave(tc.description); got != tc.expected {
				t.Errorf("got %q, expected %q", got, tc.expected)
			}
		})
	}
}

func TestTableVersions(t *testing.T) {
	t.Parallel()

	v := TableVersions()
	if v[model.EngineAxe] == 0 || v[model.EngineWave] == 0 {
		t.Errorf("expected embedded tables to carry a version, got %v", v)
	}
}
