package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/newscrawl/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the round report in JSON format.
func (w *JSONWriter) Write(report *model.RoundReport) (int, error) {
	syncErrorMessage(report)
	return w.writeJSON(report)
}

// WriteVerdicts outputs the verdicts as a JSON array.
func (w *JSONWriter) WriteVerdicts(_ int, verdicts []model.Verdict) (int, error) {
	if verdicts == nil {
		verdicts = []model.Verdict{}
	}
	return w.writeJSON(verdicts)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// syncErrorMessage copies Error into its serialized form.
func syncErrorMessage(report *model.RoundReport) {
	if report.Error != nil && report.ErrorMessage == "" {
		report.ErrorMessage = report.Error.Error()
	}
}

// JSONReport is a wrapper for the round report with additional metadata.
type JSONReport struct {
	// Version is the newscrawl version that generated this report.
	Version string `json:"version"`

	// Report is the full round report.
	Report *model.RoundReport `json:"report"`

	// Summary counts the item results by status.
	Summary model.Summary `json:"summary"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(report *model.RoundReport, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Report:  report,
		Summary: report.Summary(),
	}
}

// VerdictsReport wraps an audit batch with metadata.
type VerdictsReport struct {
	Version  string          `json:"version"`
	Round    int             `json:"round"`
	Accepted int             `json:"accepted"`
	Rejected int             `json:"rejected"`
	Verdicts []model.Verdict `json:"verdicts"`
}

// FullJSONWriter outputs complete reports with metadata wrapper.
type FullJSONWriter struct {
	*JSONWriter

	// version is the newscrawl version string.
	version string
}

// NewFullJSONWriter creates a writer for complete reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the round report wrapped with metadata.
func (w *FullJSONWriter) Write(report *model.RoundReport) (int, error) {
	syncErrorMessage(report)
	return w.writeJSON(NewJSONReport(report, w.version))
}

// WriteVerdicts outputs the verdicts wrapped with vote counts.
func (w *FullJSONWriter) WriteVerdicts(round int, verdicts []model.Verdict) (int, error) {
	if verdicts == nil {
		verdicts = []model.Verdict{}
	}
	accepted, rejected := countVotes(verdicts)
	return w.writeJSON(&VerdictsReport{
		Version:  w.version,
		Round:    round,
		Accepted: accepted,
		Rejected: rejected,
		Verdicts: verdicts,
	})
}
