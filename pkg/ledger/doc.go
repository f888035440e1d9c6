// Package ledger provides the append-only usage ledger consumed by budget
// tracking.
//
// One entry is appended per completed billed request, by the caller, after
// the provider call finishes. The governance core only reads aggregates
// (day-range cost sums); it never mutates or deletes entries.
//
// Two backends are provided: an in-memory ledger for tests and development,
// and a SQLite ledger for single-node persistence.
package ledger
