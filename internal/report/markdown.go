package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/a11yscan/internal/model"
)

// MarkdownWriter outputs responses in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the response in Markdown format.
func (w *MarkdownWriter) Write(resp *model.Response) (int, error) {
	md := markdown.NewMarkdown(w.output)

	switch {
	case resp.Audit != nil:
		w.writeAudit(md, resp.Audit)
	case resp.Comparative != nil:
		w.writeComparative(md, resp.Comparative)
	default:
		md.H1("Accessibility Audit")
		md.PlainText("")
		md.Note("Empty response.")
		md.PlainText("")
	}
	w.writeUsage(md, resp.Usage)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeAudit writes a single-engine audit.
func (w *MarkdownWriter) writeAudit(md *markdown.Markdown, a *model.AuditResult) {
	md.H1("Accessibility Audit")
	md.PlainText("")

	rows := [][]string{
		{"URL", "`" + a.URL + "`"},
		{"Engine", a.Engine.DisplayName()},
		{"Audit Date", a.Timestamp.Format("2006-01-02 15:04:05 MST")},
		{"Score", strconv.Itoa(a.Score) + "/100"},
		{"Violations", strconv.Itoa(a.TotalViolations)},
	}
	if a.ExternalReportURL != "" {
		rows = append(rows, []string{"External Report", a.ExternalReportURL})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
	if a.Summary != "" {
		md.PlainText(a.Summary)
		md.PlainText("")
	}

	w.writeImpactSummary(md, a.ViolationsByImpact, a.TotalViolations)
	w.writeViolations(md, "Violations", a.Violations)
}

// writeImpactSummary writes the impact table, chart and alert.
func (w *MarkdownWriter) writeImpactSummary(md *markdown.Markdown, counts map[model.Impact]int, total int) {
	md.H2("Impact Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Impact", "Count"},
		Rows: [][]string{
			{"🔴 Critical", strconv.Itoa(counts[model.ImpactCritical])},
			{"🟠 High", strconv.Itoa(counts[model.ImpactHigh])},
			{"🟡 Medium", strconv.Itoa(counts[model.ImpactMedium])},
			{"🔵 Low", strconv.Itoa(counts[model.ImpactLow])},
			{"**Total**", "**" + strconv.Itoa(total) + "**"},
		},
	})
	md.PlainText("")

	if total > 0 {
		w.writePieChart(md, counts)
	}
	w.writeAlert(md, counts, total)
}

// writePieChart writes a mermaid pie chart for the impact distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts map[model.Impact]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Violation Impact Distribution"),
		piechart.WithShowData(true),
	)

	for _, impact := range impactOrder {
		if n := counts[impact]; n > 0 {
			chart.LabelAndIntValue(capitalize(string(impact)), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on impact counts.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, counts map[model.Impact]int, total int) {
	switch {
	case counts[model.ImpactCritical] > 0:
		md.Cautionf(
			"%d critical violation(s) block some users from the page entirely.",
			counts[model.ImpactCritical],
		)
	case counts[model.ImpactHigh] > 0:
		md.Warningf(
			"%d high impact violation(s) block some users from parts of the content.",
			counts[model.ImpactHigh],
		)
	case counts[model.ImpactMedium] > 0:
		md.Importantf(
			"%d medium impact violation(s) make content harder to reach.",
			counts[model.ImpactMedium],
		)
	case total > 0:
		md.Note("Only low impact violations detected.")
	default:
		md.Tip("No accessibility violations detected.")
	}
	md.PlainText("")
}

// writeViolations writes violations grouped by impact.
func (w *MarkdownWriter) writeViolations(md *markdown.Markdown, title string, violations []model.Violation) {
	md.H2(title)
	md.PlainText("")

	if len(violations) == 0 {
		md.PlainText("No violations.")
		md.PlainText("")
		return
	}

	groups := byImpact(violations)
	for _, impact := range impactOrder {
		vs := groups[impact]
		if len(vs) == 0 {
			continue
		}
		md.PlainText("### " + capitalize(string(impact)))
		md.PlainText("")
		w.writeViolationsTable(md, vs)
	}
}

// writeViolationsTable writes a table of violations with details.
func (w *MarkdownWriter) writeViolationsTable(md *markdown.Markdown, violations []model.Violation) {
	rows := make([][]string, len(violations))
	for i, v := range violations {
		rows[i] = []string{
			v.Criterion,
			string(v.Level),
			truncateString(escapeCell(v.Description), 60),
			"`" + truncateString(escapeCell(dash(v.Element)), 40) + "`",
			truncateString(escapeCell(dash(v.Recommendation)), 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Criterion", "Level", "Description", "Element", "Recommendation"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, v := range violations {
		if v.HTMLSnippet != "" {
			md.Details(v.Criterion+" "+dash(v.RuleID), "```html\n"+v.HTMLSnippet+"\n```")
		}
	}
	md.PlainText("")
}

// writeComparative writes a comparative report.
func (w *MarkdownWriter) writeComparative(md *markdown.Markdown, c *model.ComparativeResult) {
	md.H1("Comparative Accessibility Audit")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"URL", "`" + c.URL + "`"},
			{"Audit Date", c.Timestamp.Format("2006-01-02 15:04:05 MST")},
			{"Unique Violations", strconv.Itoa(c.TotalUniqueViolations)},
			{"Common Violations", strconv.Itoa(len(c.CommonViolations))},
			{"Best Score", strconv.Itoa(c.Summary.BestScore)},
			{"Worst Score", strconv.Itoa(c.Summary.WorstScore)},
			{"Average Score", strconv.Itoa(c.Summary.AverageScore)},
			{"Most Reliable Engine", dash(c.Summary.MostReliableEngine.DisplayName())},
			{"Consensus", strconv.Itoa(c.Summary.ConsensusLevel) + "%"},
		},
	})
	md.PlainText("")
	if c.Summary.Text != "" {
		md.PlainText(c.Summary.Text)
		md.PlainText("")
	}

	md.H2("Engines")
	md.PlainText("")
	rows := make([][]string, len(c.Engines))
	for i, run := range c.Engines {
		status := "✅ OK"
		if !run.Success {
			status = "❌ " + escapeCell(run.Error)
		}
		score, violations := "-", "-"
		if run.Success && run.Result != nil {
			score = strconv.Itoa(run.Result.Score)
			violations = strconv.Itoa(run.Result.TotalViolations)
		}
		rows[i] = []string{
			run.Engine.DisplayName(),
			status,
			score,
			violations,
			fmt.Sprintf("%dms", run.ElapsedMs),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Engine", "Status", "Score", "Violations", "Elapsed"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeImpactSummary(md, comparativeImpacts(c), c.TotalUniqueViolations)
	w.writeViolations(md, "Common Violations", c.CommonViolations)
	for _, e := range specificEngines(c) {
		w.writeViolations(md, e.DisplayName()+" Violations", c.EngineSpecificViolations[e])
	}
}

// comparativeImpacts sums the impact counts of the successful engines.
func comparativeImpacts(c *model.ComparativeResult) map[model.Impact]int {
	counts := make(map[model.Impact]int, len(impactOrder))
	for _, run := range c.SuccessfulRuns() {
		for impact, n := range run.Result.ViolationsByImpact {
			counts[impact] += n
		}
	}
	return counts
}

// writeUsage writes the caller's plan usage when present.
func (w *MarkdownWriter) writeUsage(md *markdown.Markdown, usage *model.PlanUsageSnapshot) {
	if usage == nil {
		return
	}
	limit := "unlimited"
	if usage.AuditsLimit > 0 {
		limit = strconv.Itoa(usage.AuditsLimit)
	}
	md.H2("Plan Usage")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Plan", "Audits Used", "Audits Limit"},
		Rows:   [][]string{{dash(usage.Plan), strconv.Itoa(usage.AuditsUsed), limit}},
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [a11yscan](https://github.com/nao1215/a11yscan)*")
}

// escapeCell keeps table cells on one line and away from column separators.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
