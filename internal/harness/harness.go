package harness

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/eupholio/costparity/internal/compare"
	"github.com/eupholio/costparity/internal/fixture"
	"github.com/eupholio/costparity/internal/parityerr"
	"github.com/eupholio/costparity/internal/protocol"
	"github.com/eupholio/costparity/internal/runner"
)

// LoadFunc loads one case file.
type LoadFunc func(path string) (*fixture.Fixture, error)

// Harness runs cases through both engines.
//
// Thread-safety: a Harness holds no per-run state and may run concurrently.
type Harness struct {
	reference *runner.ReferenceRunner
	candidate *runner.CandidateRunner
	load      LoadFunc
	workers   int
	logger    *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithWorkers sets the worker pool size. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(h *Harness) {
		if n < 1 {
			n = 1
		}
		h.workers = n
	}
}

// WithLogger sets the logger; the default discards.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithLoader replaces fixture.Load.
func WithLoader(load LoadFunc) Option {
	return func(h *Harness) { h.load = load }
}

// New creates a Harness.
func New(ref *runner.ReferenceRunner, cand *runner.CandidateRunner, opts ...Option) *Harness {
	h := &Harness{
		reference: ref,
		candidate: cand,
		load:      fixture.Load,
		workers:   1,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run loads every case, then evaluates them on the worker pool. Any fatal
// error (malformed fixture, reference failure) aborts the run and no
// partial results are returned.
func (h *Harness) Run(ctx context.Context, paths []string) ([]CaseResult, error) {
	fixtures := make([]*fixture.Fixture, len(paths))
	for i, p := range paths {
		f, err := h.load(p)
		if err != nil {
			return nil, err
		}
		fixtures[i] = f
		h.logger.Debug("case loaded", "case", f.Name(), "events", len(f.Events))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]CaseResult, len(fixtures))
	jobs := make(chan int)

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		errMu.Lock()
		defer errMu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	workers := h.workers
	if workers > len(fixtures) {
		workers = len(fixtures)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if runCtx.Err() != nil {
					continue
				}
				res, err := h.RunCase(runCtx, fixtures[i])
				if err != nil {
					fail(err)
					continue
				}
				results[i] = res
			}
		}()
	}

dispatch:
	for i := range fixtures {
		if runCtx.Err() != nil {
			break
		}
		select {
		case jobs <- i:
		case <-runCtx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// RunCase evaluates one loaded fixture. The returned error is always fatal.
func (h *Harness) RunCase(ctx context.Context, f *fixture.Fixture) (CaseResult, error) {
	name := f.Name()
	log := h.logger.With("case", name)
	res := CaseResult{Case: name, Path: f.Path}

	refReq := protocol.ReferenceInput(f)
	needed := compare.NeededMethods(f)
	log.Debug("case translated", "events", len(refReq.Events), "methods", len(needed))

	refOut, err := h.reference.Run(ctx, name, refReq)
	if err != nil {
		return CaseResult{}, err
	}

	candidates := make(map[protocol.Method]*protocol.EngineResult, len(needed))
	for _, m := range needed {
		out := h.candidate.Run(ctx, name, protocol.CandidateInput(f, m))
		if out.Error != "" {
			log.Warn("candidate failed", "method", m.CandidateToken(), "error",
				parityerr.New(parityerr.SutInvocation, name+"/"+m.String(), out.Error))
		}
		candidates[m] = &out
	}
	if err := ctx.Err(); err != nil {
		return CaseResult{}, err
	}

	for _, m := range protocol.Methods {
		ref, err := refOut.Pick(m)
		if err != nil {
			return CaseResult{}, err
		}
		cand := candidates[m]
		v := compare.Evaluate(f, m, ref, cand)
		mr := MethodResult{
			Method:     m,
			Reference:  ref.Realized,
			Candidate:  cand,
			Equal:      v.Equal,
			ExpectedOK: v.ExpectedOK,
			Mismatches: v.Mismatches,
		}
		for _, mm := range v.Mismatches {
			log.Info("comparison mismatch", "error", mm)
		}
		if m == protocol.TotalAverage {
			res.Total = mr
		} else {
			res.Moving = mr
		}
	}

	log.Debug("case recorded",
		"moving_equal", res.Moving.Equal.String(),
		"total_equal", res.Total.Equal.String(),
		"failed", res.HasFailures())
	return res, nil
}

// FailedCases counts the cases with at least one failure.
func FailedCases(results []CaseResult) int {
	n := 0
	for _, r := range results {
		if r.HasFailures() {
			n++
		}
	}
	return n
}
