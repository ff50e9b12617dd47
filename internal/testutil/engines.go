// Package testutil provides scripted engines for harness tests.
//
// FakeEngines implements runner.CommandRunner. It dispatches on argv[0]
// ("reference" or "candidate") to a Script, records every invocation, and is
// deterministic: the same scripts and requests always produce the same
// outcomes, so golden comparisons are stable.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/eupholio/costparity/internal/runner"
)

// Argv[0] values the fake dispatches on.
const (
	ReferenceBin = "reference"
	CandidateBin = "candidate"
)

// ReferenceEngine and CandidateEngine are engine definitions wired to
// FakeEngines.
var (
	ReferenceEngine = runner.Engine{Name: "reference", Argv: []string{ReferenceBin}}
	CandidateEngine = runner.Engine{Name: "candidate", Argv: []string{CandidateBin}}
)

// Script answers one invocation.
type Script func(inv runner.Invocation) (runner.Outcome, error)

// FakeEngines is a scripted runner.CommandRunner.
//
// Thread-safety: safe for concurrent use.
type FakeEngines struct {
	Reference Script
	Candidate Script

	mu    sync.Mutex
	calls []runner.Invocation
}

// Run implements runner.CommandRunner.
func (f *FakeEngines) Run(ctx context.Context, inv runner.Invocation) (runner.Outcome, error) {
	f.mu.Lock()
	f.calls = append(f.calls, inv)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return runner.Outcome{}, err
	}
	if len(inv.Argv) == 0 {
		return runner.Outcome{}, fmt.Errorf("empty argv")
	}
	var script Script
	switch inv.Argv[0] {
	case ReferenceBin:
		script = f.Reference
	case CandidateBin:
		script = f.Candidate
	}
	if script == nil {
		return runner.Outcome{}, fmt.Errorf("exec: %q: executable file not found in $PATH", inv.Argv[0])
	}
	return script(inv)
}

// Calls returns a copy of every recorded invocation.
func (f *FakeEngines) Calls() []runner.Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runner.Invocation(nil), f.calls...)
}

// CandidateCalls counts candidate invocations for a method token.
func (f *FakeEngines) CandidateCalls(method string) int {
	n := 0
	for _, inv := range f.Calls() {
		if inv.Argv[0] != CandidateBin {
			continue
		}
		if RequestMethod(inv) == method {
			n++
		}
	}
	return n
}

// ReferenceCalls counts reference invocations.
func (f *FakeEngines) ReferenceCalls() int {
	n := 0
	for _, inv := range f.Calls() {
		if inv.Argv[0] == ReferenceBin {
			n++
		}
	}
	return n
}

// RequestMethod extracts the "method" field of a request body.
func RequestMethod(inv runner.Invocation) string {
	var req struct {
		Method string `json:"method"`
	}
	_ = json.Unmarshal(inv.Stdin, &req)
	return req.Method
}

// ReferenceAnswers returns the same mam/wam values for every request.
func ReferenceAnswers(mam, wam string) Script {
	return func(runner.Invocation) (runner.Outcome, error) {
		body := fmt.Sprintf(`[{"method":"mam","realized_pnl_jpy":%q,"positions":{}},{"method":"wam","realized_pnl_jpy":%q,"positions":{}}]`+"\n\n", mam, wam)
		return runner.Outcome{Stdout: []byte(body)}, nil
	}
}

// CandidateAnswers answers by method token with a realized P&L. Methods
// missing from values make the fake exit 1 with "unsupported method".
func CandidateAnswers(values map[string]string) Script {
	return func(inv runner.Invocation) (runner.Outcome, error) {
		method := RequestMethod(inv)
		v, ok := values[method]
		if !ok {
			return Exit(1, "Error: unsupported method: "+method), nil
		}
		body := fmt.Sprintf("{\n  \"realized_pnl_jpy\": %q,\n  \"income_jpy\": \"0\",\n  \"diagnostics_count\": 0\n}\n", v)
		return runner.Outcome{Stdout: []byte(body)}, nil
	}
}

// Exit builds an outcome for a process that exited with code and stderr.
func Exit(code int, stderr string) runner.Outcome {
	return runner.Outcome{ExitCode: code, Stderr: []byte(stderr)}
}

// Stdout builds a successful outcome with the given stdout.
func Stdout(s string) Script {
	return func(runner.Invocation) (runner.Outcome, error) {
		return runner.Outcome{Stdout: []byte(s)}, nil
	}
}

// ByTaxYear routes requests to per-case scripts by the request's tax_year;
// tests give each case a distinct year.
func ByTaxYear(scripts map[int]Script) Script {
	return func(inv runner.Invocation) (runner.Outcome, error) {
		var req struct {
			TaxYear int `json:"tax_year"`
		}
		if err := json.Unmarshal(inv.Stdin, &req); err != nil {
			return runner.Outcome{}, err
		}
		s, ok := scripts[req.TaxYear]
		if !ok {
			return Exit(2, fmt.Sprintf("no script for tax_year %d", req.TaxYear)), nil
		}
		return s(inv)
	}
}
