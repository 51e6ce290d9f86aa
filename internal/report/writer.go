package report

import (
	"io"

	"github.com/nao1215/newscrawl/internal/model"
)

// Writer defines the interface for report output.
// Implementations render round reports and audit verdicts in one format.
type Writer interface {
	// Write outputs a crawl round report.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.RoundReport) (int, error)

	// WriteVerdicts outputs the verdicts of one audit batch.
	WriteVerdicts(round int, verdicts []model.Verdict) (int, error)
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

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.RoundReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteVerdicts outputs the verdicts to all configured Writers.
func (m *MultiWriter) WriteVerdicts(round int, verdicts []model.Verdict) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteVerdicts(round, verdicts)
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

// statusText returns a one-line round status.
func statusText(report *model.RoundReport) string {
	switch {
	case report.TimedOut:
		return "TIMED OUT (partial results)"
	case report.ErrorMessage != "":
		return "ERROR - " + report.ErrorMessage
	case report.Error != nil:
		return "ERROR - " + report.Error.Error()
	default:
		return "Complete"
	}
}

// countVotes returns the number of accepting and rejecting verdicts.
func countVotes(verdicts []model.Verdict) (accepted, rejected int) {
	for _, v := range verdicts {
		if v.Vote {
			accepted++
		} else {
			rejected++
		}
	}
	return accepted, rejected
}
