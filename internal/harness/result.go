package harness

import (
	"github.com/eupholio/costparity/internal/compare"
	"github.com/eupholio/costparity/internal/fixture"
	"github.com/eupholio/costparity/internal/protocol"
)

// MethodResult is one method's outcome within a case.
type MethodResult struct {
	Method protocol.Method

	// Reference is the reference engine's unrounded value.
	Reference fixture.Amount

	// Candidate is nil when the candidate was not invoked for this method.
	Candidate *protocol.EngineResult

	Equal      compare.Verdict
	ExpectedOK compare.Verdict

	// Mismatches explains each Fail verdict.
	Mismatches []error
}

// Invoked reports whether the candidate ran for this method.
func (m MethodResult) Invoked() bool { return m.Candidate != nil }

// Error returns the captured candidate error, or "".
func (m MethodResult) Error() string {
	if m.Candidate == nil {
		return ""
	}
	return m.Candidate.Error
}

// CandidateValue is the candidate's value for display, or "(skipped)".
func (m MethodResult) CandidateValue() string {
	if m.Candidate == nil || !m.Candidate.OK() {
		return "(skipped)"
	}
	return m.Candidate.Realized.String()
}

// Failed reports an explicit false verdict or a captured error.
func (m MethodResult) Failed() bool {
	return m.Equal.Failed() || m.ExpectedOK.Failed() || m.Error() != ""
}

// CaseResult is the immutable outcome of one case.
type CaseResult struct {
	// Case is the case file's base name.
	Case string
	Path string

	Moving MethodResult
	Total  MethodResult
}

// Method returns the result for m.
func (r CaseResult) Method(m protocol.Method) MethodResult {
	if m == protocol.TotalAverage {
		return r.Total
	}
	return r.Moving
}

// HasFailures reports whether any method failed.
func (r CaseResult) HasFailures() bool {
	return r.Moving.Failed() || r.Total.Failed()
}

// SummaryEntry is one case in the summary line.
type SummaryEntry struct {
	Case             string          `json:"case"`
	MovingEqual      compare.Verdict `json:"moving_equal"`
	TotalEqual       compare.Verdict `json:"total_equal"`
	MovingExpectedOK compare.Verdict `json:"moving_expected_ok"`
	TotalExpectedOK  compare.Verdict `json:"total_expected_ok"`
	MovingError      *string         `json:"moving_error"`
	TotalError       *string         `json:"total_error"`
}

// Summary projects r into its summary entry.
func (r CaseResult) Summary() SummaryEntry {
	return SummaryEntry{
		Case:             r.Case,
		MovingEqual:      r.Moving.Equal,
		TotalEqual:       r.Total.Equal,
		MovingExpectedOK: r.Moving.ExpectedOK,
		TotalExpectedOK:  r.Total.ExpectedOK,
		MovingError:      errorPtr(r.Moving.Error()),
		TotalError:       errorPtr(r.Total.Error()),
	}
}

func errorPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
