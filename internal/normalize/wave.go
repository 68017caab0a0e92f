package normalize

import (
	"github.com/nao1215/a11yscan/internal/model"
)

// WaveKind is the category a remote scanner finding was listed under.
type WaveKind string

const (
	// WaveError is a definite failure.
	WaveError WaveKind = "error"
	// WaveAlert is a potential issue to be reviewed.
	WaveAlert WaveKind = "alert"
)

// WaveItem is one finding mined from the remote scanner results page.
type WaveItem struct {
	Kind        WaveKind `json:"kind"`
	Type        string   `json:"type,omitempty"`
	Description string   `json:"description"`
	Context     string   `json:"context,omitempty"`
	Selector    string   `json:"selector,omitempty"`

	// Synthetic marks placeholders added so the list length matches the
	// counted total.
	Synthetic bool `json:"synthetic,omitempty"`
}

// WaveSummary holds the counts displayed by the remote scanner.
type WaveSummary struct {
	Errors   int `json:"errors"`
	Alerts   int `json:"alerts"`
	Features int `json:"features"`
}

// WaveReport is the extracted content of a remote scanner results page.
// After extraction len(Errors) == Summary.Errors and len(Alerts) == Summary.Alerts.
type WaveReport struct {
	Errors    []WaveItem  `json:"errors"`
	Alerts    []WaveItem  `json:"alerts"`
	Summary   WaveSummary `json:"summary"`
	ReportURL string      `json:"reportUrl,omitempty"`
}

// NormalizeWave maps errors then alerts into violations, in list order.
func NormalizeWave(rep WaveReport) []model.Violation {
	out := make([]model.Violation, 0, len(rep.Errors)+len(rep.Alerts))
	for _, items := range [][]WaveItem{rep.Errors, rep.Alerts} {
		for _, it := range items {
			out = append(out, waveViolation(it))
		}
	}
	return out
}

func waveViolation(it WaveItem) model.Violation {
	typ := it.Type
	if _, ok := waveMapping.Types[typ]; !ok {
		typ = ClassifyWave(it.Description)
	}

	m, known := waveMapping.Types[typ]
	if !known {
		m = mapping{
			Criterion: waveMapping.Defaults.Criterion,
			Impact:    firstNonEmpty(waveMapping.Kinds[string(it.Kind)], waveMapping.Defaults.Impact),
			Level:     waveMapping.Defaults.Level,
		}
	}

	impact := model.ParseImpact(m.Impact)
	if it.Kind == WaveAlert && impact.Rank() > model.ImpactMedium.Rank() {
		impact = model.ImpactMedium
	}

	element := it.Selector
	if element == "" {
		element = "body"
	}

	return model.Violation{
		RuleID:         "wave-" + string(it.Kind) + "-" + typ,
		Criterion:      m.Criterion,
		Level:          model.ParseLevel(m.Level),
		Impact:         impact,
		Description:    it.Description,
		Element:        element,
		Recommendation: waveRecommendation(it.Kind),
		Context:        it.Context,
	}.Sanitize()
}

func waveRecommendation(kind WaveKind) string {
	if kind == WaveAlert {
		return "Review this item manually in the WAVE report and fix it if it hinders users"
	}
	return "Fix this error; the WAVE report shows the affected element in context"
}
