package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/a11yscan/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
// Plain ASCII formatting keeps the output safe to pipe to files.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no violations are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with recommendations and snippets.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the response in human-readable format.
func (w *SimpleWriter) Write(resp *model.Response) (int, error) {
	var sb strings.Builder

	switch {
	case resp.Audit != nil:
		w.writeAudit(&sb, resp.Audit)
	case resp.Comparative != nil:
		w.writeComparative(&sb, resp.Comparative)
	default:
		w.writeBanner(&sb, "ACCESSIBILITY AUDIT")
		sb.WriteString("Empty response\n\n")
	}
	if resp.ID != "" {
		fmt.Fprintf(&sb, "Audit ID:       %s\n\n", resp.ID)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	pad := max(0, (70-len(title))/2)
	sb.WriteString(strings.Repeat(" ", pad) + title + "\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeAudit writes a single-engine audit.
func (w *SimpleWriter) writeAudit(sb *strings.Builder, a *model.AuditResult) {
	w.writeBanner(sb, "ACCESSIBILITY AUDIT")

	fmt.Fprintf(sb, "URL:            %s\n", a.URL)
	fmt.Fprintf(sb, "Engine:         %s\n", a.Engine.DisplayName())
	fmt.Fprintf(sb, "Audit Date:     %s\n", a.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Score:          %d/100\n", a.Score)
	if a.ExternalReportURL != "" {
		fmt.Fprintf(sb, "Full Report:    %s\n", a.ExternalReportURL)
	}
	if a.Summary != "" {
		fmt.Fprintf(sb, "Summary:        %s\n", a.Summary)
	}
	sb.WriteString("\n")

	w.writeImpactSummary(sb, a.ViolationsByImpact, a.TotalViolations)
	w.writeViolations(sb, "VIOLATIONS", a.Violations)
}

// writeImpactSummary writes the impact summary section.
func (w *SimpleWriter) writeImpactSummary(sb *strings.Builder, counts map[model.Impact]int, total int) {
	w.writeSection(sb, "IMPACT SUMMARY")

	fmt.Fprintf(sb, "  CRITICAL: %d\n", counts[model.ImpactCritical])
	fmt.Fprintf(sb, "  HIGH:     %d\n", counts[model.ImpactHigh])
	fmt.Fprintf(sb, "  MEDIUM:   %d\n", counts[model.ImpactMedium])
	fmt.Fprintf(sb, "  LOW:      %d\n", counts[model.ImpactLow])
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  TOTAL:    %d violations\n", total)
	sb.WriteString("\n")
}

// writeViolations writes violations grouped by impact.
func (w *SimpleWriter) writeViolations(sb *strings.Builder, title string, violations []model.Violation) {
	if len(violations) == 0 && !w.showEmpty {
		return
	}

	w.writeSection(sb, title)

	groups := byImpact(violations)
	for _, impact := range impactOrder {
		vs := groups[impact]
		if len(vs) == 0 && !w.showEmpty {
			continue
		}
		fmt.Fprintf(sb, "[%s] %s\n", impactIndicator(impact), strings.ToUpper(string(impact)))
		if len(vs) == 0 {
			sb.WriteString("  No violations\n\n")
			continue
		}
		for _, v := range vs {
			fmt.Fprintf(sb, "  * %s (%s %s)\n", v.Description, v.Criterion, v.Level)
			if v.Element != "" {
				fmt.Fprintf(sb, "    Element: %s\n", v.Element)
			}
			if w.verbose {
				if v.Recommendation != "" {
					fmt.Fprintf(sb, "    Fix: %s\n", v.Recommendation)
				}
				if v.HTMLSnippet != "" {
					fmt.Fprintf(sb, "    HTML: %s\n", truncateString(v.HTMLSnippet, 120))
				}
				if v.Position != nil {
					fmt.Fprintf(sb, "    Position: %.0f,%.0f %.0fx%.0f\n", v.Position.X, v.Position.Y, v.Position.Width, v.Position.Height)
				}
			}
		}
		sb.WriteString("\n")
	}
}

// writeComparative writes a comparative report.
func (w *SimpleWriter) writeComparative(sb *strings.Builder, c *model.ComparativeResult) {
	w.writeBanner(sb, "COMPARATIVE ACCESSIBILITY AUDIT")

	fmt.Fprintf(sb, "URL:            %s\n", c.URL)
	fmt.Fprintf(sb, "Audit Date:     %s\n", c.Timestamp.Format("2006-01-02 15:04:05 MST"))
	if c.Summary.Text != "" {
		fmt.Fprintf(sb, "Summary:        %s\n", c.Summary.Text)
	}
	sb.WriteString("\n")

	w.writeSection(sb, "ENGINES")
	for _, run := range c.Engines {
		if !run.Success {
			fmt.Fprintf(sb, "  [x] %-6s FAILED: %s (%dms)\n", run.Engine.DisplayName(), run.Error, run.ElapsedMs)
			continue
		}
		fmt.Fprintf(sb, "  [+] %-6s score %3d, %d violations (%dms)\n",
			run.Engine.DisplayName(), run.Result.Score, run.Result.TotalViolations, run.ElapsedMs)
	}
	sb.WriteString("\n")

	w.writeSection(sb, "CONSENSUS")
	fmt.Fprintf(sb, "  Best score:      %d\n", c.Summary.BestScore)
	fmt.Fprintf(sb, "  Worst score:     %d\n", c.Summary.WorstScore)
	fmt.Fprintf(sb, "  Average score:   %d\n", c.Summary.AverageScore)
	fmt.Fprintf(sb, "  Unique:          %d\n", c.TotalUniqueViolations)
	fmt.Fprintf(sb, "  Common:          %d\n", len(c.CommonViolations))
	fmt.Fprintf(sb, "  Consensus:       %d%%\n", c.Summary.ConsensusLevel)
	if c.Summary.MostReliableEngine != "" {
		fmt.Fprintf(sb, "  Most reliable:   %s\n", c.Summary.MostReliableEngine.DisplayName())
	}
	sb.WriteString("\n")

	w.writeViolations(sb, "COMMON VIOLATIONS", c.CommonViolations)
	if w.verbose {
		for _, e := range specificEngines(c) {
			w.writeViolations(sb, strings.ToUpper(e.DisplayName())+" VIOLATIONS", c.EngineSpecificViolations[e])
		}
	}
}

// impactIndicator returns a visual indicator for the impact.
func impactIndicator(impact model.Impact) string {
	switch impact {
	case model.ImpactCritical:
		return "!!!"
	case model.ImpactHigh:
		return "!!"
	case model.ImpactMedium:
		return "!"
	case model.ImpactLow:
		return "-"
	default:
		return "?"
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by a11yscan\n")
	sb.WriteString("https://github.com/nao1215/a11yscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
