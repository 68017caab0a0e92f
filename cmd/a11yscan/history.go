package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/database"
	"github.com/nao1215/a11yscan/internal/report"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of audits listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show stored audits",
		Long: `History lists the audits stored in the local database.

Without a URL, the most recent audits of every page are listed. With a URL,
its audits are listed newest first, followed by the score change between
the two latest audits and the most violated criteria.

Examples:
  # Recent audits of every page
  a11yscan history

  # History of one page
  a11yscan history https://www.example.com

  # Audited pages
  a11yscan history --urls

  # Print a stored audit as Markdown
  a11yscan history --id 6f1c... -m`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of audits to list (0 for all)")
	cmd.Flags().BoolP("urls", "u", false,
		"List the audited pages")
	cmd.Flags().StringP("id", "i", "",
		"Print the stored audit with this ID")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the stored audit as Markdown (with --id)")

	return cmd
}

// historyOptions are the parsed history command flags.
type historyOptions struct {
	url      string
	limit    int
	urls     bool
	id       string
	json     bool
	markdown bool
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	var (
		opts historyOptions
		err  error
	)
	if len(args) > 0 {
		opts.url = args[0]
	}
	if opts.limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return err
	}
	if opts.urls, err = cmd.Flags().GetBool("urls"); err != nil {
		return err
	}
	if opts.id, err = cmd.Flags().GetString("id"); err != nil {
		return err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if opts.json && opts.markdown {
		return config.ErrConflictingReportFormats
	}

	cfg, err := loadConfig("")
	if err != nil {
		return err
	}
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return runHistory(cmd.Context(), db, opts, cmd.OutOrStdout())
}

// runHistory prints the part of the history selected by opts.
func runHistory(ctx context.Context, db *database.AuditDB, opts historyOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	switch {
	case opts.id != "":
		return showAudit(ctx, db, opts, out)
	case opts.urls:
		return listAuditedURLs(ctx, db, out)
	case opts.url != "":
		return listURLHistory(ctx, db, opts, out)
	default:
		return listRecentAudits(ctx, db, opts, out)
	}
}

// showAudit prints one stored audit in the selected report format.
func showAudit(ctx context.Context, db *database.AuditDB, opts historyOptions, out io.Writer) error {
	resp, err := db.Get(ctx, opts.id)
	if err != nil {
		return fmt.Errorf("failed to load audit %s: %w", opts.id, err)
	}
	var w report.Writer
	switch {
	case opts.json:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case opts.markdown:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out, report.WithVerbose(true))
	}
	_, err = w.Write(resp)
	return err
}

// listAuditedURLs prints every audited page.
func listAuditedURLs(ctx context.Context, db *database.AuditDB, out io.Writer) error {
	urls, err := db.ListURLs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pages: %w", err)
	}
	if len(urls) == 0 {
		fmt.Fprintln(out, "No audited pages found in the database.")
		fmt.Fprintln(out, "\nUse 'a11yscan audit <url>' to audit a page.")
		return nil
	}
	fmt.Fprintf(out, "Audited pages (%d):\n\n", len(urls))
	for _, u := range urls {
		fmt.Fprintf(out, "  • %s\n", u)
	}
	fmt.Fprintln(out, "\nUse 'a11yscan history <url>' to see the audits of a page.")
	return nil
}

// historyJSON is the JSON form of a page history.
type historyJSON struct {
	URL         string                    `json:"url,omitempty"`
	Audits      []database.AuditMetadata  `json:"audits"`
	ScoreDelta  *int                      `json:"scoreDelta,omitempty"`
	TopCriteria []database.CriterionCount `json:"topCriteria,omitempty"`
}

// listURLHistory prints the audits of one page with its score trend.
func listURLHistory(ctx context.Context, db *database.AuditDB, opts historyOptions, out io.Writer) error {
	history, err := db.History(ctx, opts.url, opts.limit)
	if err != nil {
		return fmt.Errorf("failed to get audit history: %w", err)
	}
	top, err := db.TopCriteria(ctx, opts.url, 5)
	if err != nil {
		return err
	}
	delta, hasDelta := database.ScoreDelta(history)

	if opts.json {
		doc := historyJSON{URL: opts.url, Audits: history, TopCriteria: top}
		if hasDelta {
			doc.ScoreDelta = &delta
		}
		return writeJSON(out, doc)
	}

	if len(history) == 0 {
		fmt.Fprintf(out, "No audit history found for %s\n", opts.url)
		fmt.Fprintln(out, "\nUse 'a11yscan audit' to audit this page.")
		return nil
	}

	fmt.Fprintf(out, "Audit history for %s (%d audits):\n\n", opts.url, len(history))
	writeHistoryTable(out, history, false)

	if hasDelta {
		fmt.Fprintf(out, "\nScore change since previous audit: %s\n", formatDelta(delta))
	}
	if len(top) > 0 {
		fmt.Fprintln(out, "\nMost violated criteria:")
		for _, c := range top {
			fmt.Fprintf(out, "  %-8s (%s)  %d\n", c.Criterion, dashIfEmpty(c.Level), c.Count)
		}
	}
	fmt.Fprintln(out, "\nUse 'a11yscan history --id <id>' to see a stored audit.")
	return nil
}

// listRecentAudits prints the latest audits of every page.
func listRecentAudits(ctx context.Context, db *database.AuditDB, opts historyOptions, out io.Writer) error {
	recent, err := db.Recent(ctx, opts.limit)
	if err != nil {
		return fmt.Errorf("failed to list audits: %w", err)
	}
	if opts.json {
		return writeJSON(out, historyJSON{Audits: recent})
	}
	if len(recent) == 0 {
		fmt.Fprintln(out, "No audits found in the database.")
		fmt.Fprintln(out, "\nUse 'a11yscan audit <url>' to audit a page.")
		return nil
	}
	fmt.Fprintf(out, "Recent audits (%d):\n\n", len(recent))
	writeHistoryTable(out, recent, true)
	return nil
}

// writeHistoryTable prints one line per audit.
func writeHistoryTable(out io.Writer, rows []database.AuditMetadata, withURL bool) {
	header := fmt.Sprintf("  %-36s  %-19s  %-6s  %5s  %10s  %s", "ID", "Date", "Engine", "Score", "Violations", "Impacts")
	if withURL {
		header += "  URL"
	}
	fmt.Fprintln(out, header)
	fmt.Fprintln(out, "  "+strings.Repeat("-", len(header)-2))
	for _, m := range rows {
		line := fmt.Sprintf("  %-36s  %-19s  %-6s  %5d  %10d  %s",
			m.ID,
			m.Timestamp.Format("2006-01-02 15:04:05"),
			m.Engine,
			m.Score,
			m.Violations,
			formatImpactSummary(m.ImpactSummary),
		)
		if withURL {
			line += "  " + m.URL
		}
		fmt.Fprintln(out, line)
	}
}

// formatImpactSummary formats impact counts as "C:1 H:2 M:0 L:3".
func formatImpactSummary(summary map[string]int) string {
	if len(summary) == 0 {
		return "N/A"
	}
	var parts []string
	for _, k := range []string{"critical", "high", "medium", "low"} {
		if v := summary[k]; v > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", strings.ToUpper(k[:1]), v))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}

// formatDelta formats a score change with its sign.
func formatDelta(delta int) string {
	switch {
	case delta > 0:
		return fmt.Sprintf("+%d (improved)", delta)
	case delta < 0:
		return fmt.Sprintf("%d (worsened)", delta)
	default:
		return "0 (unchanged)"
	}
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
