package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/newscrawl/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
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

// Write outputs the round report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RoundReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeItems(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteVerdicts outputs the verdicts of an audit batch in Markdown format.
func (w *MarkdownWriter) WriteVerdicts(round int, verdicts []model.Verdict) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Audit Report")
	md.PlainText("")

	accepted, rejected := countVotes(verdicts)
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Round", strconv.Itoa(round)},
			{"Submissions", strconv.Itoa(len(verdicts))},
			{"Accepted", strconv.Itoa(accepted)},
			{"Rejected", strconv.Itoa(rejected)},
		},
	})
	md.PlainText("")

	if rejected > 0 {
		md.Warningf("%d submission(s) were rejected.", rejected)
	} else {
		md.Tip("All submissions were accepted.")
	}
	md.PlainText("")

	if len(verdicts) > 0 {
		md.H2("Verdicts")
		md.PlainText("")
		rows := make([][]string, len(verdicts))
		for i, v := range verdicts {
			vote := "✅ accept"
			if !v.Vote {
				vote = "❌ reject"
			}
			reason := v.Reason
			if reason == "" {
				reason = "-"
			}
			rows[i] = []string{"`" + v.SubmissionCID + "`", vote, truncateString(reason, 60)}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Submission", "Vote", "Reason"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// writeHeader writes the report header with round information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RoundReport) {
	md.H1("Newscrawl Round Report")
	md.PlainText("")

	rows := [][]string{
		{"Round", strconv.Itoa(report.Round)},
		{"Edition", report.Locale.String()},
	}
	if report.SearchTerm != "" {
		rows = append(rows, []string{"Search", report.SearchTerm})
	}
	rows = append(rows,
		[]string{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
		[]string{"Session Probe", report.Session.Probe.String()},
	)
	if report.ArticleListCID != "" {
		rows = append(rows, []string{"Article List", "`" + report.ArticleListCID + "`"})
	}
	rows = append(rows, []string{"Status", w.getStatusText(report)})

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.RoundReport) string {
	switch {
	case report.TimedOut:
		return "⚠️ Timed Out (partial results)"
	case report.Error != nil || report.ErrorMessage != "":
		return "❌ " + statusText(report)
	default:
		return "✅ Complete"
	}
}

// writeSummary writes the item counters, a pie chart and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.RoundReport) {
	md.H2("Summary")
	md.PlainText("")

	s := report.Summary()
	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows: [][]string{
			{"Queued", strconv.Itoa(report.Queued)},
			{"Duplicates", strconv.Itoa(report.Duplicates)},
			{"🟢 OK", strconv.Itoa(s.OK)},
			{"⚪ Skipped", strconv.Itoa(s.Skipped)},
			{"🔴 Failed", strconv.Itoa(s.Failed)},
			{"🟡 Altered", strconv.Itoa(s.Altered)},
			{"**Processed**", "**" + strconv.Itoa(len(report.Items)) + "**"},
		},
	})
	md.PlainText("")

	if len(report.Items) > 0 {
		w.writePieChart(md, s)
	}
	w.writeAlert(md, report, s)
}

// writePieChart writes a mermaid pie chart for the item outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Article Outcomes"),
		piechart.WithShowData(true),
	)

	if s.OK > 0 {
		chart.LabelAndIntValue("OK", uint64(s.OK))
	}
	if s.Skipped > 0 {
		chart.LabelAndIntValue("Skipped", uint64(s.Skipped))
	}
	if s.Failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(s.Failed))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the round outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.RoundReport, s model.Summary) {
	switch {
	case report.ListError != "":
		md.Cautionf("Article list fetch failed: %s", report.ListError)
	case s.Altered > 0:
		md.Importantf("%d article(s) changed since round %d.", s.Altered, report.AlterationSampleRound)
	case s.Failed > 0:
		md.Warningf("%d article(s) could not be processed.", s.Failed)
	case len(report.Items) == 0:
		md.Note("No articles were processed this round.")
	default:
		md.Tip("All queued articles were processed.")
	}
	md.PlainText("")
}

// writeItems writes the items that need attention.
func (w *MarkdownWriter) writeItems(md *markdown.Markdown, report *model.RoundReport) {
	md.H2("Items")
	md.PlainText("")

	var rows [][]string
	for _, it := range report.Items {
		if it.Status == model.ItemOK && !it.Altered {
			continue
		}
		reason := it.Reason
		if reason == "" {
			reason = "-"
		}
		status := it.Status.String()
		if it.Altered {
			status += " (altered)"
		}
		rows = append(rows, []string{
			truncateString(it.Link, 60),
			status,
			truncateString(reason, 60),
		})
	}

	if len(rows) == 0 {
		md.PlainText("No failed, skipped or altered items.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Link", "Status", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [newscrawl](https://github.com/nao1215/newscrawl)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
