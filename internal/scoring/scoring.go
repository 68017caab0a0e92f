// Package scoring computes the 0-100 score of an engine run.
//
// The remote scanner and the injected library use a weighted deduction; the
// in-page rule engine reports a conformance percentage against the catalog.
package scoring

import (
	"github.com/nao1215/a11yscan/internal/model"
)

// CatalogSize is the number of criteria the conformance percentage is
// computed against.
const CatalogSize = 106

// Weights maps each impact to its deduction weight.
type Weights map[model.Impact]float64

var (
	// WaveWeights are the deduction weights of the remote scanner.
	WaveWeights = Weights{model.ImpactLow: 1, model.ImpactMedium: 2, model.ImpactHigh: 3, model.ImpactCritical: 5}

	// AxeWeights are the deduction weights of the injected library.
	AxeWeights = Weights{model.ImpactLow: 1, model.ImpactMedium: 3, model.ImpactHigh: 5, model.ImpactCritical: 8}
)

const (
	waveFactor = 2.0
	axeFactor  = 1.5
)

// Deduction returns 100 - min(sum(weight(impact)) * factor, 100), floored at 0.
func Deduction(violations []model.Violation, w Weights, factor float64) int {
	var sum float64
	for _, v := range violations {
		sum += w[v.Impact]
	}
	return model.RoundScore(100 - min(sum*factor, 100))
}

// Wave scores a remote scanner run.
func Wave(violations []model.Violation) int {
	return Deduction(violations, WaveWeights, waveFactor)
}

// Axe scores an injected library run.
func Axe(violations []model.Violation) int {
	return Deduction(violations, AxeWeights, axeFactor)
}

// RGAA returns the percentage of catalog criteria without any violation.
func RGAA(violations []model.Violation) int {
	failed := make(map[string]struct{})
	for _, v := range violations {
		failed[v.Criterion] = struct{}{}
	}
	return model.RoundScore(float64(CatalogSize-len(failed)) / CatalogSize * 100)
}

// Score dispatches to the formula of engine.
func Score(engine model.Engine, violations []model.Violation) int {
	switch engine {
	case model.EngineWave:
		return Wave(violations)
	case model.EngineAxe:
		return Axe(violations)
	case model.EngineRGAA:
		return RGAA(violations)
	default:
		return 0
	}
}
