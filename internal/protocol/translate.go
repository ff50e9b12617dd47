package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/eupholio/costparity/internal/fixture"
)

// DefaultTimestamp is used for events that omit ts.
const DefaultTimestamp = "2026-01-01T00:00:00Z"

// Event is the event shape shared by both engine schemas.
type Event struct {
	Type        string          `json:"type"`
	ID          string          `json:"id"`
	Asset       string          `json:"asset"`
	Qty         fixture.Amount  `json:"qty"`
	TS          string          `json:"ts"`
	JPYCost     *fixture.Amount `json:"jpy_cost,omitempty"`
	JPYProceeds *fixture.Amount `json:"jpy_proceeds,omitempty"`
	JPYValue    *fixture.Amount `json:"jpy_value,omitempty"`
}

// ReferenceRequest is the reference engine's single-call input.
type ReferenceRequest struct {
	TaxYear  int                        `json:"tax_year"`
	Events   []Event                    `json:"events"`
	CarryIn  map[string]fixture.CarryIn `json:"carry_in,omitempty"`
	Rounding json.RawMessage            `json:"rounding,omitempty"`
}

// CandidateRequest is the candidate engine's per-method input.
type CandidateRequest struct {
	Method   string                     `json:"method"`
	TaxYear  int                        `json:"tax_year"`
	Events   []Event                    `json:"events"`
	CarryIn  map[string]fixture.CarryIn `json:"carry_in,omitempty"`
	Rounding json.RawMessage            `json:"rounding,omitempty"`
}

// ReferenceInput projects a fixture into the reference schema.
func ReferenceInput(f *fixture.Fixture) ReferenceRequest {
	req := ReferenceRequest{
		TaxYear: f.TaxYear,
		Events:  translateEvents(f.Events),
	}
	if len(f.CarryIn) > 0 {
		req.CarryIn = f.CarryIn
	}
	if f.HasRounding() {
		req.Rounding = f.Rounding
	}
	return req
}

// CandidateInput projects a fixture into the candidate schema for one
// method. The opening balance only applies to the total-average method.
func CandidateInput(f *fixture.Fixture, m Method) CandidateRequest {
	req := CandidateRequest{
		Method:  m.CandidateToken(),
		TaxYear: f.TaxYear,
		Events:  translateEvents(f.Events),
	}
	if m == TotalAverage && len(f.CarryIn) > 0 {
		req.CarryIn = f.CarryIn
	}
	if f.HasRounding() {
		req.Rounding = f.Rounding
	}
	return req
}

// CandidateInputs returns one candidate request per method, in order.
func CandidateInputs(f *fixture.Fixture, methods []Method) []CandidateRequest {
	reqs := make([]CandidateRequest, 0, len(methods))
	for _, m := range methods {
		reqs = append(reqs, CandidateInput(f, m))
	}
	return reqs
}

// translateEvents keeps recognized events in order and drops the rest.
// Missing ids default to e<N>, N being the 1-based position in the fixture.
func translateEvents(events []fixture.Event) []Event {
	out := make([]Event, 0, len(events))
	for i, e := range events {
		if !e.Recognized() {
			continue
		}
		te := Event{
			Type:  e.Type,
			ID:    e.ID,
			Asset: e.Asset,
			Qty:   e.Qty,
			TS:    e.TS,
		}
		if te.ID == "" {
			te.ID = fmt.Sprintf("e%d", i+1)
		}
		if te.TS == "" {
			te.TS = DefaultTimestamp
		}
		amount, _ := e.Amount()
		switch e.Type {
		case fixture.TagAcquire:
			te.JPYCost = &amount
		case fixture.TagDispose:
			te.JPYProceeds = &amount
		case fixture.TagIncome:
			te.JPYValue = &amount
		}
		out = append(out, te)
	}
	return out
}

// Encode serializes a request as a single line of JSON.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
