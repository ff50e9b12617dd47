// Package runner invokes the two engines as short-lived subprocesses.
//
// Each call writes the whole request to the child's stdin, closes it, and
// waits for exit; there is no streaming. The reference engine is the oracle:
// any failure to obtain a well-formed answer from it is returned as a fatal
// error. The candidate engine is under test: its failures are captured in
// the returned protocol.EngineResult and never returned as errors.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

// Engine is how to start one engine process.
type Engine struct {
	Name string
	Argv []string
	Dir  string
	Env  map[string]string
}

// Invocation is one subprocess call.
type Invocation struct {
	Argv  []string
	Dir   string
	Env   map[string]string
	Stdin []byte
}

// Outcome is what a process produced. ExitCode is meaningful only when the
// runner returned no error.
type Outcome struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// CommandRunner abstracts process execution so tests can script engines.
//
// Run returns an error only when the process could not be started or did
// not run to completion (context expiry included). A non-zero exit is
// reported through Outcome.ExitCode.
type CommandRunner interface {
	Run(ctx context.Context, inv Invocation) (Outcome, error)
}

// OSRunner executes commands on the host.
type OSRunner struct {
	// WaitDelay bounds how long Run waits for output pipes to close after
	// the process is killed. Zero means one second.
	WaitDelay time.Duration
}

// Run executes inv with stdin supplied in full and stdout/stderr captured
// separately.
func (r OSRunner) Run(ctx context.Context, inv Invocation) (Outcome, error) {
	if len(inv.Argv) == 0 {
		return Outcome{}, fmt.Errorf("empty argv")
	}
	// #nosec G204 -- argv comes from harness configuration.
	cmd := exec.CommandContext(ctx, inv.Argv[0], inv.Argv[1:]...)
	cmd.Dir = inv.Dir
	if len(inv.Env) != 0 {
		keys := make([]string, 0, len(inv.Env))
		for k := range inv.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		merged := cmd.Environ()
		for _, k := range keys {
			merged = append(merged, fmt.Sprintf("%s=%s", k, inv.Env[k]))
		}
		cmd.Env = merged
	}
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = time.Second
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(inv.Stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	out := Outcome{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, fmt.Errorf("run %q: %w", inv.Argv, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("run %q: %w", inv.Argv, err)
	}
	return out, nil
}

// Executor applies the per-call timeout and the shared spawn limiter in
// front of a CommandRunner. One Executor is shared by both engine runners.
type Executor struct {
	runner  CommandRunner
	limiter *rate.Limiter
	timeout time.Duration
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithTimeout bounds every invocation. Zero disables the timeout.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = d }
}

// WithSpawnRate limits process starts to perSecond with the given burst.
// A non-positive rate disables limiting.
func WithSpawnRate(perSecond float64, burst int) ExecutorOption {
	return func(e *Executor) {
		if perSecond <= 0 {
			e.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewExecutor wraps runner.
func NewExecutor(runner CommandRunner, opts ...ExecutorOption) *Executor {
	e := &Executor{runner: runner}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Exec runs eng with stdin.
func (e *Executor) Exec(ctx context.Context, eng Engine, stdin []byte) (Outcome, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return Outcome{}, fmt.Errorf("wait for spawn slot: %w", err)
		}
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	out, err := e.runner.Run(ctx, Invocation{
		Argv:  eng.Argv,
		Dir:   eng.Dir,
		Env:   eng.Env,
		Stdin: stdin,
	})
	if err != nil && e.timeout > 0 && errors.Is(err, context.DeadlineExceeded) {
		return out, fmt.Errorf("%s timed out after %s", eng.Name, e.timeout)
	}
	return out, err
}

// Call describes one finished engine invocation, for journaling.
type Call struct {
	Case     string
	Engine   string
	Method   string
	Request  []byte
	ExitCode int
	Duration time.Duration
	Err      string
}

// CallHook observes every invocation after it finishes.
type CallHook func(ctx context.Context, c Call)
