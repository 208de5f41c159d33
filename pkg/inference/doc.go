// Package inference provides text-generation adapters over the
// supported model providers (openai, anthropic, gemini, and self-hosted
// local endpoints) behind one Generator interface.
//
// Adapters share an HTTP base with bounded retries and exponential
// backoff. Transient failures (network errors, 5xx) are retried up to
// the configured limit; authentication and client errors are not. A
// call that exceeds its deadline returns a *TimeoutError so callers can
// distinguish slow from broken.
package inference
