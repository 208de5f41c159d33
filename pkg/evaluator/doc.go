// Package evaluator runs pools of independent judge models against a
// (prompt, response, context) triple and aggregates their verdicts.
//
// Each evaluator is a provider-specific client behind one capability
// interface. The pool fans one request out to every instantiated
// client concurrently, bounds each call by the pool's time budget, and
// waits for all of them to settle before aggregating. Failures are
// values, not panics: every call produces a Result carrying either a
// Verdict or a failure, and aggregation is commutative so completion
// order never affects the outcome.
package evaluator
