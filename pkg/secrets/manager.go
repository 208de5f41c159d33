package secrets

import (
	"context"
	"fmt"
	"log/slog"
)

// Manager orchestrates multiple secret providers with priority-based
// fallback and caches resolved values.
//
// For organization-scoped lookups the manager first tries the scoped
// name "orgs/<orgID>/<name>" and then falls back to the bare name, so a
// deployment can share one credential across organizations or override
// it per organization.
type Manager struct {
	providers []Provider
	cache     *Cache
	logger    *slog.Logger
}

// NewManager creates a new secret manager. Providers are tried in the
// order given; the first one that returns a value wins.
func NewManager(providers []Provider, cacheConfig CacheConfig) *Manager {
	return &Manager{
		providers: providers,
		cache:     NewCache(cacheConfig),
		logger:    slog.Default().With("component", "secrets.manager"),
	}
}

// GetSecret retrieves a secret from the first provider that has it.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	if value, ok := m.cache.Get(name); ok {
		return value, nil
	}

	var lastErr error
	for _, provider := range m.providers {
		value, err := provider.GetSecret(ctx, name)
		if err != nil {
			lastErr = err
			continue
		}

		m.cache.Set(name, value)
		m.logger.Debug("secret resolved",
			"provider", provider.Provider(),
			"name", redactSecretName(name),
		)
		return value, nil
	}

	if lastErr != nil {
		return "", fmt.Errorf("failed to get secret %q: %w", redactSecretName(name), lastErr)
	}
	return "", fmt.Errorf("secret not found: %q", redactSecretName(name))
}

// GetSecretByName resolves a secret for an organization, trying the
// organization-scoped name before the global name.
func (m *Manager) GetSecretByName(ctx context.Context, orgID, name string) (string, error) {
	if orgID != "" {
		scoped := fmt.Sprintf("orgs/%s/%s", orgID, name)
		if value, err := m.GetSecret(ctx, scoped); err == nil {
			return value, nil
		}
	}
	return m.GetSecret(ctx, name)
}

// Refresh reloads all refreshable providers and clears the cache.
func (m *Manager) Refresh(ctx context.Context) error {
	for _, provider := range m.providers {
		refreshable, ok := provider.(RefreshableProvider)
		if !ok {
			continue
		}
		if err := refreshable.Refresh(ctx); err != nil {
			m.logger.Error("failed to refresh secret provider",
				"provider", provider.Provider(),
				"error", err,
			)
		}
	}

	m.cache.Clear()
	return nil
}

// redactSecretName returns a redacted form of the secret name for logs
// and error messages.
func redactSecretName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:4] + "***"
}
