package report

import (
	"io"
	"sort"

	"github.com/nao1215/a11yscan/internal/model"
)

// Writer defines the interface for report output.
// Implementations write audit responses in various formats.
type Writer interface {
	// Write outputs the response to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(resp *model.Response) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the response to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(resp *model.Response) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(resp)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// impactOrder lists impacts from the most to the least severe.
var impactOrder = []model.Impact{
	model.ImpactCritical,
	model.ImpactHigh,
	model.ImpactMedium,
	model.ImpactLow,
}

// byImpact groups violations by impact, keeping their original order
// inside each group.
func byImpact(violations []model.Violation) map[model.Impact][]model.Violation {
	groups := make(map[model.Impact][]model.Violation, len(impactOrder))
	for _, v := range violations {
		groups[v.Impact] = append(groups[v.Impact], v)
	}
	return groups
}

// specificEngines returns the engines with an engine-specific list in report
// order. Failed engines are left out: their empty list says nothing about
// the page.
func specificEngines(c *model.ComparativeResult) []model.Engine {
	failed := make(map[model.Engine]bool, len(c.Engines))
	for _, r := range c.Engines {
		failed[r.Engine] = !r.Success
	}
	engines := make([]model.Engine, 0, len(c.EngineSpecificViolations))
	for e := range c.EngineSpecificViolations {
		if !failed[e] {
			engines = append(engines, e)
		}
	}
	rank := func(e model.Engine) int {
		for i, known := range model.Engines {
			if known == e {
				return i
			}
		}
		return len(model.Engines)
	}
	sort.SliceStable(engines, func(i, j int) bool {
		if rank(engines[i]) != rank(engines[j]) {
			return rank(engines[i]) < rank(engines[j])
		}
		return engines[i] < engines[j]
	})
	return engines
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// dash replaces an empty cell value.
func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
