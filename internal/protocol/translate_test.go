package protocol

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eupholio/costparity/internal/fixture"
)

func amt(s string) *fixture.Amount {
	a := fixture.MustAmount(s)
	return &a
}

func sampleFixture() *fixture.Fixture {
	return &fixture.Fixture{
		Path:    "cases/sample.json",
		TaxYear: 2026,
		Events: []fixture.Event{
			{Type: "Acquire", Asset: "BTC", Qty: fixture.MustAmount("1"), JPYCost: amt("1000000")},
			{Type: "Transfer", ID: "t1", Asset: "BTC", Qty: fixture.MustAmount("0.5")},
			{Type: "Income", ID: "staking", Asset: "ETH", Qty: fixture.MustAmount("0.25"), JPYValue: amt("12.5"), TS: "2026-04-01T00:00:00Z"},
			{Type: "Dispose", Asset: "BTC", Qty: fixture.MustAmount("1"), JPYProceeds: amt("1500000")},
		},
		CarryIn: map[string]fixture.CarryIn{
			"BTC": {Qty: fixture.MustAmount("2"), Cost: fixture.MustAmount("8000000")},
		},
		Rounding: json.RawMessage(`{"timing":"report_only"}`),
	}
}

func TestReferenceInput(t *testing.T) {
	req := ReferenceInput(sampleFixture())

	assert.Equal(t, 2026, req.TaxYear)
	require.Len(t, req.Events, 3)
	assert.Equal(t, "e1", req.Events[0].ID)
	assert.Equal(t, DefaultTimestamp, req.Events[0].TS)
	assert.Equal(t, "staking", req.Events[1].ID)
	assert.Equal(t, "2026-04-01T00:00:00Z", req.Events[1].TS)
	assert.Equal(t, "e4", req.Events[2].ID, "synthetic ids count dropped events")
	assert.Contains(t, req.CarryIn, "BTC")
	assert.JSONEq(t, `{"timing":"report_only"}`, string(req.Rounding))
}

func TestCandidateInput_CarryInOnlyForTotal(t *testing.T) {
	f := sampleFixture()

	moving := CandidateInput(f, MovingAverage)
	assert.Equal(t, "moving_average", moving.Method)
	assert.Nil(t, moving.CarryIn)

	total := CandidateInput(f, TotalAverage)
	assert.Equal(t, "total_average", total.Method)
	assert.Contains(t, total.CarryIn, "BTC")

	assert.JSONEq(t, `{"timing":"report_only"}`, string(moving.Rounding))
	assert.JSONEq(t, `{"timing":"report_only"}`, string(total.Rounding))
}

func TestInputs_OmitAbsentOptionalFields(t *testing.T) {
	f := sampleFixture()
	f.CarryIn = nil
	f.Rounding = json.RawMessage("null")

	refJSON, err := Encode(ReferenceInput(f))
	require.NoError(t, err)
	candJSON, err := Encode(CandidateInput(f, TotalAverage))
	require.NoError(t, err)

	for _, body := range [][]byte{refJSON, candJSON} {
		var m map[string]any
		require.NoError(t, json.Unmarshal(body, &m))
		assert.NotContains(t, m, "carry_in")
		assert.NotContains(t, m, "rounding")
		assert.False(t, bytes.ContainsRune(body, '\n'), "payload must be newline-free")
	}
}

func TestTranslationFidelity(t *testing.T) {
	f := sampleFixture()
	ref := ReferenceInput(f)
	cands := CandidateInputs(f, Methods)
	require.Len(t, cands, 2)

	var recognized []fixture.Event
	for _, e := range f.Events {
		if e.Recognized() {
			recognized = append(recognized, e)
		}
	}

	for _, events := range [][]Event{ref.Events, cands[0].Events, cands[1].Events} {
		require.Len(t, events, len(recognized))
		for i, e := range recognized {
			got := events[i]
			assert.Equal(t, e.Type, got.Type)
			assert.Equal(t, e.Asset, got.Asset)
			assert.Equal(t, e.Qty.String(), got.Qty.String())
			want, _ := e.Amount()
			var gotAmount *fixture.Amount
			switch got.Type {
			case "Acquire":
				gotAmount = got.JPYCost
			case "Dispose":
				gotAmount = got.JPYProceeds
			case "Income":
				gotAmount = got.JPYValue
			}
			require.NotNil(t, gotAmount)
			assert.Equal(t, want.String(), gotAmount.String())
		}
	}
}

func TestEncode_WireShape(t *testing.T) {
	f := &fixture.Fixture{
		TaxYear: 2026,
		Events: []fixture.Event{
			{Type: "Acquire", Asset: "BTC", Qty: fixture.MustAmount("1"), JPYCost: amt("1000000")},
		},
	}

	body, err := Encode(CandidateInput(f, MovingAverage))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"method": "moving_average",
		"tax_year": 2026,
		"events": [{"type": "Acquire", "id": "e1", "asset": "BTC", "qty": "1", "ts": "2026-01-01T00:00:00Z", "jpy_cost": "1000000"}]
	}`, string(body))

	body, err = Encode(ReferenceInput(f))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"tax_year": 2026,
		"events": [{"type": "Acquire", "id": "e1", "asset": "BTC", "qty": "1", "ts": "2026-01-01T00:00:00Z", "jpy_cost": "1000000"}]
	}`, string(body))
}

func TestEmptyEventsEncodeAsArray(t *testing.T) {
	f := &fixture.Fixture{TaxYear: 2026, Events: []fixture.Event{{Type: "Transfer", Asset: "BTC", Qty: fixture.MustAmount("1")}}}
	body, err := Encode(ReferenceInput(f))
	require.NoError(t, err)
	assert.JSONEq(t, `{"tax_year": 2026, "events": []}`, string(body))
}

func TestMethodTokens(t *testing.T) {
	assert.Equal(t, "mam", MovingAverage.ReferenceToken())
	assert.Equal(t, "wam", TotalAverage.ReferenceToken())
	assert.Equal(t, "moving", MovingAverage.String())
	assert.Equal(t, "total", TotalAverage.String())

	m, ok := ParseCandidateToken("total_average")
	require.True(t, ok)
	assert.Equal(t, TotalAverage, m)
	_, ok = ParseCandidateToken("fifo")
	assert.False(t, ok)
}
