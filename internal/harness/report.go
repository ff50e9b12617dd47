package harness

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/eupholio/costparity/internal/canonical"
	"github.com/eupholio/costparity/internal/parityerr"
	"github.com/eupholio/costparity/internal/protocol"
)

// Report formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// SummaryPrefix starts the summary line in text reports.
const SummaryPrefix = "summary: "

// Summary encodes every case's summary entry as canonical JSON.
func Summary(results []CaseResult) ([]byte, error) {
	entries := make([]SummaryEntry, 0, len(results))
	for _, r := range results {
		entries = append(entries, r.Summary())
	}
	out, err := canonical.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	return out, nil
}

// WriteReport writes the report in format. The json format writes the
// summary JSON only.
func WriteReport(w io.Writer, results []CaseResult, format string) error {
	summary, err := Summary(results)
	if err != nil {
		return err
	}
	if format == FormatJSON {
		_, err := fmt.Fprintf(w, "%s\n", summary)
		return err
	}
	for _, r := range results {
		if err := WriteCase(w, r); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "%s%s\n", SummaryPrefix, summary)
	return err
}

// WriteCase writes one case's lines.
func WriteCase(w io.Writer, r CaseResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", r.Case)
	fmt.Fprintf(&b, "moving: reference=%s candidate=%s\n", r.Moving.Reference, r.Moving.CandidateValue())
	fmt.Fprintf(&b, "total : reference=%s candidate=%s\n", r.Total.Reference, r.Total.CandidateValue())
	for _, m := range protocol.Methods {
		mr := r.Method(m)
		if msg := mr.Error(); msg != "" {
			writeIndented(&b, "error: "+m.String()+": ", msg)
		}
		for _, mm := range mr.Mismatches {
			writeIndented(&b, "mismatch: "+m.String()+": ", mismatchMessage(mm))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func mismatchMessage(err error) string {
	var pe *parityerr.Error
	if errors.As(err, &pe) {
		return pe.Message
	}
	return err.Error()
}

// writeIndented keeps multi-line engine diagnostics under their label.
func writeIndented(b *strings.Builder, label, msg string) {
	lines := strings.Split(strings.TrimRight(msg, "\n"), "\n")
	b.WriteString(label)
	b.WriteString(lines[0])
	b.WriteByte('\n')
	for _, l := range lines[1:] {
		b.WriteString("  ")
		b.WriteString(l)
		b.WriteByte('\n')
	}
}
