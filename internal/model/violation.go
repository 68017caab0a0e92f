package model

import "strings"

// Level is the conformance tier of a normative criterion.
type Level string

const (
	// LevelA is the minimum conformance tier.
	LevelA Level = "A"
	// LevelAA is the intermediate conformance tier, the usual legal target.
	LevelAA Level = "AA"
	// LevelAAA is the strictest conformance tier.
	LevelAAA Level = "AAA"
)

// Levels lists every level in increasing strictness.
var Levels = []Level{LevelA, LevelAA, LevelAAA}

// ParseLevel converts a raw level string into a Level.
// Unknown values map to LevelAA so that a Violation never carries an
// out-of-range level.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return LevelA
	case "AA":
		return LevelAA
	case "AAA":
		return LevelAAA
	default:
		return LevelAA
	}
}

// Valid reports whether l is one of the enumerated levels.
func (l Level) Valid() bool {
	return l == LevelA || l == LevelAA || l == LevelAAA
}

// Impact is the severity of a single detected violation,
// independent of the conformance level of its criterion.
type Impact string

const (
	// ImpactLow is a minor annoyance for assistive technology users.
	ImpactLow Impact = "low"
	// ImpactMedium makes some content harder to reach or understand.
	ImpactMedium Impact = "medium"
	// ImpactHigh blocks some users from parts of the content.
	ImpactHigh Impact = "high"
	// ImpactCritical blocks some users from the page entirely.
	ImpactCritical Impact = "critical"
)

// Impacts lists every impact in increasing severity.
var Impacts = []Impact{ImpactLow, ImpactMedium, ImpactHigh, ImpactCritical}

// ParseImpact converts a raw impact string into an Impact.
// Unknown values map to ImpactMedium.
func ParseImpact(s string) Impact {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return ImpactLow
	case "medium":
		return ImpactMedium
	case "high":
		return ImpactHigh
	case "critical":
		return ImpactCritical
	default:
		return ImpactMedium
	}
}

// Valid reports whether i is one of the enumerated impacts.
func (i Impact) Valid() bool {
	return i == ImpactLow || i == ImpactMedium || i == ImpactHigh || i == ImpactCritical
}

// Rank returns the position of i in Impacts, or -1 when i is not valid.
// Higher ranks are more severe.
func (i Impact) Rank() int {
	for n, v := range Impacts {
		if v == i {
			return n
		}
	}
	return -1
}

// Position is the bounding box of the offending element on the rendered page.
type Position struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Selector string  `json:"selector,omitempty"`
}

// Violation is one accessibility non-conformity in the common schema
// shared by every engine.
type Violation struct {
	// RuleID is the source engine's rule identifier, when it has one.
	RuleID string `json:"ruleId,omitempty"`

	// Criterion is the normative catalog identifier (e.g. "1.1").
	Criterion string `json:"criterion"`

	// Level is the conformance tier of Criterion.
	Level Level `json:"level"`

	// Impact is the severity of this occurrence.
	Impact Impact `json:"impact"`

	// Description explains what is wrong.
	Description string `json:"description"`

	// Element is a best-effort CSS-like selector for the offending element.
	Element string `json:"element"`

	// HTMLSnippet is an excerpt of the offending markup.
	HTMLSnippet string `json:"htmlSnippet,omitempty"`

	// Recommendation explains how to fix the violation.
	Recommendation string `json:"recommendation"`

	// Context is raw text used during extraction (remote scanner only).
	Context string `json:"context,omitempty"`

	// Position is the element's bounding box, when it could be measured.
	Position *Position `json:"position,omitempty"`
}

// Sanitize returns a copy of v whose Level and Impact are guaranteed to be
// enumerated values.
func (v Violation) Sanitize() Violation {
	if !v.Level.Valid() {
		v.Level = ParseLevel(string(v.Level))
	}
	if !v.Impact.Valid() {
		v.Impact = ParseImpact(string(v.Impact))
	}
	return v
}

// SameCriterion reports whether v and other target the same criterion at the
// same level. This is the equivalence used by the comparative aggregator.
func (v Violation) SameCriterion(other Violation) bool {
	return v.Criterion == other.Criterion && v.Level == other.Level
}

// DedupKey is the key used to count unique violations across engines.
func (v Violation) DedupKey() string {
	return v.Criterion + "|" + string(v.Level) + "|" + v.Description
}
