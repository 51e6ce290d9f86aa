package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/newscrawl/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose lists every processed item, not only the failures.
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

// WithVerbose enables verbose output with additional details.
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

// Write outputs the round report in human-readable format.
func (w *SimpleWriter) Write(report *model.RoundReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSession(&sb, report)
	w.writeSummary(&sb, report)
	w.writeItems(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteVerdicts outputs the verdicts of an audit batch.
func (w *SimpleWriter) WriteVerdicts(round int, verdicts []model.Verdict) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "AUDIT REPORT")
	accepted, rejected := countVotes(verdicts)
	sb.WriteString(fmt.Sprintf("Round:       %d\n", round))
	sb.WriteString(fmt.Sprintf("Submissions: %d\n", len(verdicts)))
	sb.WriteString(fmt.Sprintf("Accepted:    %d\n", accepted))
	sb.WriteString(fmt.Sprintf("Rejected:    %d\n\n", rejected))

	if len(verdicts) > 0 || w.showEmpty {
		writeSection(&sb, "VERDICTS")
		if len(verdicts) == 0 {
			sb.WriteString("  No submissions audited\n")
		}
		for _, v := range verdicts {
			mark := "[+]"
			if !v.Vote {
				mark = "[x]"
			}
			sb.WriteString(fmt.Sprintf("  %s %s\n", mark, v.SubmissionCID))
			if v.Reason != "" {
				sb.WriteString(fmt.Sprintf("      Reason: %s\n", v.Reason))
			}
		}
		sb.WriteString("\n")
	}

	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with round information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RoundReport) {
	writeBanner(sb, "NEWSCRAWL ROUND REPORT")

	sb.WriteString(fmt.Sprintf("Round:        %d\n", report.Round))
	sb.WriteString(fmt.Sprintf("Edition:      %s\n", report.Locale))
	if report.SearchTerm != "" {
		sb.WriteString(fmt.Sprintf("Search:       %s\n", report.SearchTerm))
	}
	sb.WriteString(fmt.Sprintf("Started:      %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	if report.ArticleListCID != "" {
		sb.WriteString(fmt.Sprintf("Article list: %s\n", report.ArticleListCID))
	}
	sb.WriteString(fmt.Sprintf("Status:       %s\n", statusText(report)))
	sb.WriteString("\n")
}

// writeSession writes the session state.
func (w *SimpleWriter) writeSession(sb *strings.Builder, report *model.RoundReport) {
	writeSection(sb, "SESSION")

	sb.WriteString(fmt.Sprintf("  Valid:  %t\n", report.Session.Valid))
	probe := report.Session.Probe.String()
	if report.Session.ProbeIgnored {
		probe += " (ignored)"
	}
	sb.WriteString(fmt.Sprintf("  Probe:  %s\n", probe))
	if w.verbose && !report.Session.LastCheckedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("  Checked: %s\n", report.Session.LastCheckedAt.Format("2006-01-02 15:04:05 MST")))
	}
	sb.WriteString("\n")
}

// writeSummary writes the item counters.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.RoundReport) {
	writeSection(sb, "SUMMARY")

	s := report.Summary()
	sb.WriteString(fmt.Sprintf("  QUEUED:     %d\n", report.Queued))
	sb.WriteString(fmt.Sprintf("  DUPLICATES: %d\n", report.Duplicates))
	sb.WriteString(fmt.Sprintf("  OK:         %d\n", s.OK))
	sb.WriteString(fmt.Sprintf("  SKIPPED:    %d\n", s.Skipped))
	sb.WriteString(fmt.Sprintf("  FAILED:     %d\n", s.Failed))
	sb.WriteString(fmt.Sprintf("  ALTERED:    %d\n", s.Altered))
	if report.AlterationSampleRound > 0 {
		sb.WriteString(fmt.Sprintf("  (compared against round %d)\n", report.AlterationSampleRound))
	}
	if report.ListError != "" {
		sb.WriteString(fmt.Sprintf("  LIST ERROR: %s\n", report.ListError))
	}
	sb.WriteString("\n")
}

// writeItems lists failed and skipped items, or every item when verbose.
func (w *SimpleWriter) writeItems(sb *strings.Builder, report *model.RoundReport) {
	items := report.Items
	if !w.verbose {
		items = nil
		for _, it := range report.Items {
			if it.Status != model.ItemOK || it.Altered {
				items = append(items, it)
			}
		}
	}
	if len(items) == 0 && !w.showEmpty {
		return
	}

	writeSection(sb, "ITEMS")
	if len(items) == 0 {
		sb.WriteString("  No items\n\n")
		return
	}

	for _, it := range items {
		sb.WriteString(fmt.Sprintf("  [%s] %s\n", itemIndicator(it), it.Link))
		if it.Reason != "" {
			sb.WriteString(fmt.Sprintf("    Reason: %s\n", it.Reason))
		}
		if it.NavigationFailed {
			sb.WriteString("    Navigation timed out\n")
		}
	}
	sb.WriteString("\n")
}

// itemIndicator returns a short visual marker for an item.
func itemIndicator(it model.ItemResult) string {
	switch {
	case it.Status == model.ItemFailed:
		return "!!"
	case it.Status == model.ItemSkipped:
		return "-"
	case it.Altered:
		return "~"
	default:
		return "ok"
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by newscrawl\n")
	sb.WriteString("https://github.com/nao1215/newscrawl\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

func writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	pad := max((70-len(title))/2, 0)
	sb.WriteString(strings.Repeat(" ", pad))
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}
