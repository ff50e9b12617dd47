// Package fixture loads parity case files.
//
// A case file describes one tax year of ledger events that both engines are
// asked to price. Files may be JSON or YAML:
//
//	tax_year: 2026
//	description: "single round trip"
//	events:
//	  - type: Acquire
//	    asset: BTC
//	    qty: 1
//	    jpy_cost: 1000000
//	  - type: Dispose
//	    asset: BTC
//	    qty: 1
//	    jpy_proceeds: 1500000
//	carry_in:
//	  BTC: { qty: "2", cost: "8000000" }
//	check_moving: true
//	check_total: false
//	expectation:
//	  moving_realized_pnl_jpy: "500000"
//
// # Validation
//
// Every file is validated against the embedded CUE definition #Fixture
// before it is decoded, so a missing tax_year or events and non-decimal
// amounts are rejected with a position. Optional fields may be null and read
// as absent, except check_moving and check_total, where null turns the check
// off. Fixtures and events are open structs: extra keys are annotations, and
// tags the engines do not price (Transfer, for instance) load fine and are
// dropped later by the translators.
//
// # Decimals
//
// Amounts may be written as numbers or strings. The literal text is kept
// verbatim (an Amount never round-trips through float64) and is forwarded to
// the engines as a JSON string.
package fixture
