package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/eupholio/costparity/internal/protocol"
)

// CandidateRunner invokes the candidate engine, one process per method.
type CandidateRunner struct {
	engine Engine
	exec   *Executor
	hook   CallHook
}

// NewCandidateRunner creates a runner for eng. hook may be nil.
func NewCandidateRunner(eng Engine, exec *Executor, hook CallHook) *CandidateRunner {
	if eng.Name == "" {
		eng.Name = "candidate"
	}
	return &CandidateRunner{engine: eng, exec: exec, hook: hook}
}

// Run sends req to a fresh candidate process. Failures are recorded in the
// result's Error (and ExitCode when the process exited non-zero).
func (r *CandidateRunner) Run(ctx context.Context, caseName string, req protocol.CandidateRequest) protocol.EngineResult {
	m, _ := protocol.ParseCandidateToken(req.Method)
	res := protocol.EngineResult{Method: m, Token: req.Method}

	body, err := protocol.Encode(req)
	if err != nil {
		res.Error = fmt.Sprintf("encode candidate request: %v", err)
		return res
	}

	out, execErr := r.exec.Exec(ctx, r.engine, body)
	call := Call{
		Case:     caseName,
		Engine:   r.engine.Name,
		Method:   req.Method,
		Request:  body,
		ExitCode: out.ExitCode,
		Duration: out.Duration,
	}
	defer func() {
		call.Err = res.Error
		if r.hook != nil {
			r.hook(ctx, call)
		}
	}()

	switch {
	case execErr != nil:
		res.Error = execErr.Error()
	case out.ExitCode != 0:
		code := out.ExitCode
		res.ExitCode = &code
		res.Error = strings.TrimSpace(string(out.Stderr))
		if res.Error == "" {
			res.Error = fmt.Sprintf("%s exited with code %d", r.engine.Name, code)
		}
	default:
		parsed, err := protocol.ParseCandidateOutput(m, out.Stdout)
		if err != nil {
			res.Error = fmt.Sprintf("invalid %s output: %v", r.engine.Name, err)
			return res
		}
		res.Realized = parsed.Realized
	}
	return res
}
