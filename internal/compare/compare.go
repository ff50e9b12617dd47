// Package compare decides whether two engines agree.
//
// All arithmetic is exact decimal arithmetic. The reference engine reports
// unrounded realized P&L while the candidate rounds to whole yen, so the
// cross-engine check quantizes the reference value (round half to even)
// before comparing. Expectation checks compare the candidate's value as-is.
package compare

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/eupholio/costparity/internal/fixture"
	"github.com/eupholio/costparity/internal/parityerr"
	"github.com/eupholio/costparity/internal/protocol"
)

// Tolerance is the absolute tolerance for every comparison.
var Tolerance = decimal.New(1, -9)

// ApproxEqual reports |a-b| <= Tolerance.
func ApproxEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// QuantizeJPY rounds to a whole yen, ties to even.
func QuantizeJPY(v decimal.Decimal) decimal.Decimal {
	return v.RoundBank(0)
}

// EqualityApplies reports whether the cross-engine check runs for m.
func EqualityApplies(f *fixture.Fixture, m protocol.Method) bool {
	switch m {
	case protocol.MovingAverage:
		return f.ChecksMoving()
	case protocol.TotalAverage:
		return f.ChecksTotal()
	}
	return false
}

// Expected returns the declared expectation for m, if any.
func Expected(f *fixture.Fixture, m protocol.Method) (fixture.Amount, bool) {
	if f.Expectation == nil {
		return fixture.Amount{}, false
	}
	var a *fixture.Amount
	switch m {
	case protocol.MovingAverage:
		a = f.Expectation.MovingRealizedPnLJPY
	case protocol.TotalAverage:
		a = f.Expectation.TotalRealizedPnLJPY
	}
	if a == nil {
		return fixture.Amount{}, false
	}
	return *a, true
}

// Needed reports whether the candidate must be invoked for m: either the
// method is checked against the reference or an expectation exists.
func Needed(f *fixture.Fixture, m protocol.Method) bool {
	if EqualityApplies(f, m) {
		return true
	}
	_, ok := Expected(f, m)
	return ok
}

// NeededMethods returns the methods the candidate must be invoked for.
func NeededMethods(f *fixture.Fixture) []protocol.Method {
	var out []protocol.Method
	for _, m := range protocol.Methods {
		if Needed(f, m) {
			out = append(out, m)
		}
	}
	return out
}

// Verdicts holds the outcome of both checks for one method.
type Verdicts struct {
	Equal      Verdict
	ExpectedOK Verdict

	// Mismatches explains every Fail verdict.
	Mismatches []error
}

// Evaluate runs the cross-engine and expectation checks for m. cand is nil
// when the candidate was not invoked for m.
func Evaluate(f *fixture.Fixture, m protocol.Method, ref protocol.EngineResult, cand *protocol.EngineResult) Verdicts {
	var v Verdicts
	if cand == nil || !cand.OK() {
		return v
	}

	if EqualityApplies(f, m) {
		refRounded := QuantizeJPY(ref.Value())
		if ApproxEqual(refRounded, cand.Value()) {
			v.Equal = Pass
		} else {
			v.Equal = Fail
			v.Mismatches = append(v.Mismatches, mismatch(f, m,
				fmt.Sprintf("reference %s (rounded %s) != candidate %s",
					ref.Realized, refRounded.String(), cand.Realized)))
		}
	}

	if want, ok := Expected(f, m); ok {
		if ApproxEqual(cand.Value(), want.Decimal()) {
			v.ExpectedOK = Pass
		} else {
			v.ExpectedOK = Fail
			v.Mismatches = append(v.Mismatches, mismatch(f, m,
				fmt.Sprintf("candidate %s != expected %s", cand.Realized, want)))
		}
	}
	return v
}

func mismatch(f *fixture.Fixture, m protocol.Method, msg string) error {
	return parityerr.New(parityerr.ComparisonMismatch, f.Name()+"/"+m.String(), msg)
}
