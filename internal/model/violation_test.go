package model

import "testing"

func TestParseLevel(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected Level
	}{
		{"A", LevelA},
		{"aa", LevelAA},
		{" AAA ", LevelAAA},
		{"", LevelAA},
		{"B", LevelAA},
	}

	for _, tc := range testCases {
		t.Run("input "+tc.input, func(t *testing.T) {
			t.Parallel()
			if got := ParseLevel(tc.input); got != tc.expected {
				t.Errorf("ParseLevel(%q) = %q, expected %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestParseImpact(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected Impact
	}{
		{"low", ImpactLow},
		{"MEDIUM", ImpactMedium},
		{"high", ImpactHigh},
		{"critical", ImpactCritical},
		{"serious", ImpactMedium},
		{"", ImpactMedium},
	}

	for _, tc := range testCases {
		t.Run("input "+tc.input, func(t *testing.T) {
			t.Parallel()
			if got := ParseImpact(tc.input); got != tc.expected {
				t.Errorf("ParseImpact(%q) = %q, expected %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestImpactRank(t *testing.T) {
	t.Parallel()

	if ImpactLow.Rank() >= ImpactCritical.Rank() {
		t.Error("expected critical to rank above low")
	}
	if Impact("bogus").Rank() != -1 {
		t.Error("expected unknown impact to rank -1")
	}
}

func TestViolationSanitize(t *testing.T) {
	t.Parallel()

	t.Run("unknown values are mapped to defaults", func(t *testing.T) {
		t.Parallel()
		v := Violation{Criterion: "1.1", Level: "Z", Impact: "serious"}.Sanitize()
		if v.Level != LevelAA {
			t.Errorf("expected level AA, got %q", v.Level)
		}
		if v.Impact != ImpactMedium {
			t.Errorf("expected impact medium, got %q", v.Impact)
		}
	})

	t.Run("valid values are kept", func(t *testing.T) {
		t.Parallel()
		v := Violation{Level: LevelAAA, Impact: ImpactLow}.Sanitize()
		if v.Level != LevelAAA || v.Impact != ImpactLow {
			t.Errorf("unexpected sanitize result: %+v", v)
		}
	})
}

func TestViolationSameCriterion(t *testing.T) {
	t.Parallel()

	a := Violation{Criterion: "1.1", Level: LevelA, Description: "one"}
	b := Violation{Criterion: "1.1", Level: LevelA, Description: "two"}
	c := Violation{Criterion: "1.1", Level: LevelAA, Description: "one"}

	if !a.SameCriterion(b) {
		t.Error("expected equal criterion and level to match regardless of description")
	}
	if a.SameCriterion(c) {
		t.Error("expected different levels not to match")
	}
	if a.DedupKey() == b.DedupKey() {
		t.Error("expected different descriptions to produce different dedup keys")
	}
}
