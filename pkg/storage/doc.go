// Package storage persists policy evaluation records and their
// violations.
//
// Records are write-once: an evaluation and its violations are inserted
// when the governance pipeline reaches the decision stage and never
// mutated afterwards. Two backends are provided: an in-memory store for
// tests and single-process use, and a SQLite store for durable
// single-instance deployments.
package storage
