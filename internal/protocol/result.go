package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/eupholio/costparity/internal/fixture"
)

// EngineResult is one engine's answer for one method.
//
// A candidate failure is a value, not an error: Error holds the diagnostic
// and ExitCode is set when the process ran and exited non-zero.
type EngineResult struct {
	Method   Method
	Token    string
	Realized fixture.Amount
	Error    string
	ExitCode *int
}

// OK reports whether the engine produced a realized P&L.
func (r EngineResult) OK() bool {
	return r.Error == "" && !r.Realized.IsZero()
}

// Value returns the realized P&L as an exact decimal.
func (r EngineResult) Value() decimal.Decimal {
	return r.Realized.Decimal()
}

type referenceRecord struct {
	Method   string          `json:"method"`
	Realized *fixture.Amount `json:"realized_pnl_jpy"`
}

// ParseReferenceOutput decodes the reference engine's stdout: a JSON array
// with one record per method.
func ParseReferenceOutput(stdout []byte) ([]EngineResult, error) {
	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("expected a JSON array, got %q", abbreviate(trimmed))
	}
	var records []referenceRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("decode reference output: %w", err)
	}
	results := make([]EngineResult, 0, len(records))
	for i, rec := range records {
		if rec.Method == "" {
			return nil, fmt.Errorf("record %d: method is missing", i)
		}
		if rec.Realized == nil {
			return nil, fmt.Errorf("record %d (%s): realized_pnl_jpy is missing", i, rec.Method)
		}
		r := EngineResult{Token: rec.Method, Realized: *rec.Realized}
		for _, m := range Methods {
			if m.ReferenceToken() == rec.Method {
				r.Method = m
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// PickReference returns the record for m by its reference token.
func PickReference(results []EngineResult, m Method) (EngineResult, error) {
	for _, r := range results {
		if r.Token == m.ReferenceToken() {
			return r, nil
		}
	}
	return EngineResult{}, fmt.Errorf("method %q not found in reference output", m.ReferenceToken())
}

type candidateRecord struct {
	Realized *fixture.Amount `json:"realized_pnl_jpy"`
}

// ParseCandidateOutput decodes the candidate engine's stdout: one JSON
// object, possibly pretty-printed, with extra fields ignored.
func ParseCandidateOutput(m Method, stdout []byte) (EngineResult, error) {
	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return EngineResult{}, fmt.Errorf("expected a JSON object, got %q", abbreviate(trimmed))
	}
	var rec candidateRecord
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return EngineResult{}, fmt.Errorf("decode candidate output: %w", err)
	}
	if rec.Realized == nil {
		return EngineResult{}, fmt.Errorf("realized_pnl_jpy is missing")
	}
	return EngineResult{Method: m, Token: m.CandidateToken(), Realized: *rec.Realized}, nil
}

func abbreviate(b []byte) string {
	const limit = 80
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
