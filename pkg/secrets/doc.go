// Package secrets resolves credentials for evaluators and model providers.
//
// Secrets are looked up through a chain of providers (environment
// variables, mounted files) with organization-scoped names tried before
// global names. Resolved values are cached with a TTL. A missing secret
// is an expected condition: callers degrade the affected evaluator or
// provider instead of failing the request.
package secrets
