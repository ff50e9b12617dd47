// Package journal records every engine invocation of a run in SQLite.
//
// The journal backs `--trace`: after a run it lists, per case, which engine
// ran which method, how it exited and how long it took, together with a
// fingerprint of the exact request body. It defaults to an in-memory
// database; pass a file path to keep a run's trace.
//
// Invariants:
//   - Append-only: rows are never updated or deleted.
//   - List orders by case name, engine and method, so traces from parallel
//     runs compare equal.
package journal
