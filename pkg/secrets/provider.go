package secrets

import "context"

// Provider retrieves secrets from a backend.
//
// Implementations include environment variables and mounted secret files.
// Providers are chained with priority-based fallback by the Manager.
type Provider interface {
	// GetSecret retrieves a secret by name.
	// Returns an error if the secret is not found or cannot be retrieved.
	GetSecret(ctx context.Context, name string) (string, error)

	// Provider returns the provider name (env, file).
	Provider() string
}

// RefreshableProvider can reload secrets without restart.
type RefreshableProvider interface {
	Provider

	// Refresh reloads all secrets from the backend.
	Refresh(ctx context.Context) error
}

// Resolver is the credential lookup contract consumed by the evaluator
// pool and the inference layer. An empty value with a nil error never
// occurs: absence is always an error the caller degrades on.
type Resolver interface {
	// GetSecretByName resolves a secret for an organization. The
	// organization-scoped name is tried first, then the global name.
	GetSecretByName(ctx context.Context, orgID, name string) (string, error)
}
