// Package cache is the content-addressed response cache.
//
// Keys are fingerprints over (prompt, context): SHA-256 of the prompt
// crossed with SHA-256 of the canonical JSON serialization of the
// context. Entries expire lazily — a read past expiry behaves as a
// miss — so no background sweep is needed for correctness; the
// optional cron sweeper only reclaims space. Only responses whose
// final action was allow are ever written.
package cache
