package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/eupholio/costparity/internal/parityerr"
	"github.com/eupholio/costparity/internal/protocol"
)

// ReferenceRunner invokes the reference engine once per fixture.
type ReferenceRunner struct {
	engine Engine
	exec   *Executor
	hook   CallHook
}

// NewReferenceRunner creates a runner for eng. hook may be nil.
func NewReferenceRunner(eng Engine, exec *Executor, hook CallHook) *ReferenceRunner {
	if eng.Name == "" {
		eng.Name = "reference"
	}
	return &ReferenceRunner{engine: eng, exec: exec, hook: hook}
}

// ReferenceResults is the reference engine's answer for every method.
type ReferenceResults struct {
	Case    string
	Results []protocol.EngineResult
}

// Pick returns the result for m. A missing method is a REFERENCE_SHAPE error.
func (rr ReferenceResults) Pick(m protocol.Method) (protocol.EngineResult, error) {
	r, err := protocol.PickReference(rr.Results, m)
	if err != nil {
		return protocol.EngineResult{}, parityerr.Wrap(parityerr.ReferenceShape, rr.Case, "reference output incomplete", err)
	}
	return r, nil
}

// Run sends req to the reference engine. Every failure is fatal for the run.
func (r *ReferenceRunner) Run(ctx context.Context, caseName string, req protocol.ReferenceRequest) (ReferenceResults, error) {
	body, err := protocol.Encode(req)
	if err != nil {
		return ReferenceResults{}, parityerr.Wrap(parityerr.ReferenceInvocation, caseName, "encode reference request", err)
	}

	out, execErr := r.exec.Exec(ctx, r.engine, body)
	call := Call{
		Case:     caseName,
		Engine:   r.engine.Name,
		Request:  body,
		ExitCode: out.ExitCode,
		Duration: out.Duration,
	}
	defer func() {
		if r.hook != nil {
			r.hook(ctx, call)
		}
	}()

	if execErr != nil {
		call.Err = execErr.Error()
		return ReferenceResults{}, parityerr.Wrap(parityerr.ReferenceInvocation, caseName, "reference engine did not complete", execErr)
	}
	if out.ExitCode != 0 {
		msg := strings.TrimSpace(string(out.Stderr))
		if msg == "" {
			msg = "no diagnostic on stderr"
		}
		call.Err = msg
		return ReferenceResults{}, parityerr.New(parityerr.ReferenceInvocation, caseName,
			fmt.Sprintf("reference engine exited with code %d: %s", out.ExitCode, msg))
	}

	results, err := protocol.ParseReferenceOutput(out.Stdout)
	if err != nil {
		call.Err = err.Error()
		return ReferenceResults{}, parityerr.Wrap(parityerr.ReferenceShape, caseName, "unexpected reference output", err)
	}
	return ReferenceResults{Case: caseName, Results: results}, nil
}
