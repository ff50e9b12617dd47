// Package protocol describes the two engines' wire schemas and translates
// fixtures into them.
//
// The reference engine takes the whole fixture once and answers for both
// averaging methods; the candidate engine takes one method per process and
// names the methods differently. Both schemas are produced from the same
// fixture.Fixture by pure functions in this package.
package protocol

import "fmt"

// Method is a cost-basis averaging strategy.
type Method int

const (
	MovingAverage Method = iota
	TotalAverage
)

// Methods lists every method in report order.
var Methods = []Method{MovingAverage, TotalAverage}

// String returns the short name used in report keys ("moving", "total").
func (m Method) String() string {
	switch m {
	case MovingAverage:
		return "moving"
	case TotalAverage:
		return "total"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// ReferenceToken is the method's name in the reference engine's output.
func (m Method) ReferenceToken() string {
	switch m {
	case MovingAverage:
		return "mam"
	case TotalAverage:
		return "wam"
	default:
		return ""
	}
}

// CandidateToken is the method's name in the candidate engine's input.
func (m Method) CandidateToken() string {
	switch m {
	case MovingAverage:
		return "moving_average"
	case TotalAverage:
		return "total_average"
	default:
		return ""
	}
}

// ParseCandidateToken maps a candidate method name back to a Method.
func ParseCandidateToken(s string) (Method, bool) {
	for _, m := range Methods {
		if m.CandidateToken() == s {
			return m, true
		}
	}
	return 0, false
}
