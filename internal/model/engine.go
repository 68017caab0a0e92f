package model

import (
	"fmt"
	"strings"
)

// Engine identifies one of the three independent analyzers.
type Engine string

const (
	// EngineWave is the remote scanner driven through its web UI.
	EngineWave Engine = "wave"
	// EngineAxe is the rule library injected into the target page.
	EngineAxe Engine = "axe"
	// EngineRGAA is the in-page rule engine scored against the RGAA catalog.
	EngineRGAA Engine = "rgaa"
)

// Engines lists every engine in the order used for reports and tie-breaking.
var Engines = []Engine{EngineWave, EngineAxe, EngineRGAA}

// DisplayName returns the engine name as shown to humans.
func (e Engine) DisplayName() string {
	switch e {
	case EngineWave:
		return "WAVE"
	case EngineAxe:
		return "Axe"
	case EngineRGAA:
		return "RGAA"
	default:
		return string(e)
	}
}

// EngineSelector is the engine field of a request: one engine or "all".
type EngineSelector string

// SelectAll requests a comparative run of every engine.
const SelectAll EngineSelector = "all"

// ParseEngineSelector validates a raw engine selector.
// It returns ErrUnknownEngineSelector for anything other than
// "wave", "axe", "rgaa" or "all" (case-insensitive).
func ParseEngineSelector(s string) (EngineSelector, error) {
	v := EngineSelector(strings.ToLower(strings.TrimSpace(s)))
	if v == SelectAll {
		return v, nil
	}
	for _, e := range Engines {
		if string(e) == string(v) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEngineSelector, s)
}

// IsAll reports whether the selector requests a comparative run.
func (s EngineSelector) IsAll() bool {
	return s == SelectAll
}

// Engine returns the single engine selected. It must not be called on SelectAll.
func (s EngineSelector) Engine() Engine {
	return Engine(s)
}
