package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Entry is one cached response.
type Entry struct {
	// Response is the cached response body.
	Response string

	// ExpiresAt is when the entry stops being served.
	ExpiresAt time.Time

	// HitCount is how many times the entry has been read.
	HitCount int64
}

// Cache maps fingerprints to previously approved responses.
type Cache interface {
	// Get returns a live entry and increments its hit counter. An
	// expired or absent entry returns ok=false.
	Get(ctx context.Context, fingerprint string) (*Entry, bool, error)

	// Set writes an entry under the fingerprint, replacing any
	// previous entry wholesale.
	Set(ctx context.Context, fingerprint, response string, ttl time.Duration) error

	// Sweep removes expired entries and returns how many were removed.
	Sweep(ctx context.Context) (int, error)

	// Close releases the cache's resources.
	Close() error
}

// Fingerprint derives the cache key for a (prompt, context) pair. The
// context is serialized to canonical JSON (map keys sorted) so that
// semantically equal contexts always produce the same key.
func Fingerprint(prompt string, evalCtx map[string]string) string {
	promptHash := sha256.Sum256([]byte(prompt))

	if evalCtx == nil {
		evalCtx = map[string]string{}
	}
	ctxJSON, err := json.Marshal(evalCtx)
	if err != nil {
		// A map[string]string cannot fail to marshal; guard anyway.
		ctxJSON = []byte("{}")
	}
	ctxHash := sha256.Sum256(ctxJSON)

	return fmt.Sprintf("%s:%s", hex.EncodeToString(promptHash[:]), hex.EncodeToString(ctxHash[:]))
}
