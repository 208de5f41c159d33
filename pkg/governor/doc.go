// Package governor sequences the governance pipeline: cache check,
// generation, concurrent policy and evaluator-pool scoring, decision
// merge, remediation, and emission.
//
// The pipeline never propagates a raw error to the caller. Generation
// or scoring failures emit a safe block result; evaluator failures are
// absorbed by the pool; rewrite failures count against the bounded
// attempt budget and fall back to a fixed decline message.
package governor
