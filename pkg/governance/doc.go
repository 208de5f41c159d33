// Package governance defines the shared vocabulary of the governance
// pipeline: enforcement actions, violation severities, and the violation
// record that condition evaluators and model evaluators both emit.
//
// Actions form a total order from most permissive to most restrictive.
// Merging decisions from multiple sources always keeps the most
// restrictive action, so the merge is commutative and associative and
// independent of evaluation order.
package governance
