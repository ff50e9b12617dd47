// Package harness runs every configured case through both engines and
// aggregates the verdicts.
//
// Each case moves through Loaded, Translated, ReferenceInvoked,
// CandidateInvoked (once per needed method), Compared and Recorded. There
// are no retries. Candidate failures are recorded on the CaseResult and the
// run continues; fixture and reference failures abort the run.
//
// Cases are independent, so Run evaluates them on a fixed worker pool.
// Results are always returned in configured order regardless of which
// worker finished first.
//
// # Report
//
// The text report prints, per case:
//
//	== parity_fixture_case1.json ==
//	moving: reference=500000 candidate=500000
//	total : reference=500000 candidate=500000
//
// followed by one error line per captured candidate error and, after all
// cases, a single line
//
//	summary: [{"case":"parity_fixture_case1.json","moving_equal":true,...}]
//
// whose JSON is canonical, so two runs over the same inputs produce
// byte-identical summaries.
package harness
