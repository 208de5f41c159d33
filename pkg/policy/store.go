package policy

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrPolicyNotFound is returned when a requested policy does not exist.
var ErrPolicyNotFound = errors.New("policy not found")

// Store holds an organization's policies. Implementations must validate
// on write so evaluation never sees an invalid policy.
type Store interface {
	// ListEnabled returns the enabled policies visible to an
	// organization (its own plus global ones), ordered by ascending
	// priority.
	ListEnabled(ctx context.Context, orgID string) ([]*Policy, error)

	// Upsert validates and stores a policy by ID.
	Upsert(ctx context.Context, p *Policy) error

	// Get returns a policy by ID, or ErrPolicyNotFound.
	Get(ctx context.Context, id string) (*Policy, error)

	// Disable soft-disables a policy. The policy stays resolvable by ID
	// for historical records.
	Disable(ctx context.Context, id string) error
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu       sync.RWMutex
	policies map[string]*Policy
}

// NewMemoryStore creates an empty in-memory policy store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{policies: make(map[string]*Policy)}
}

// ListEnabled returns the enabled policies for an organization.
func (s *MemoryStore) ListEnabled(ctx context.Context, orgID string) ([]*Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*Policy
	for _, p := range s.policies {
		if !p.Enabled {
			continue
		}
		if p.OrganizationID != "" && p.OrganizationID != orgID {
			continue
		}
		policyCopy := *p
		results = append(results, &policyCopy)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Priority != results[j].Priority {
			return results[i].Priority < results[j].Priority
		}
		return results[i].Name < results[j].Name
	})
	return results, nil
}

// Upsert validates and stores a policy.
func (s *MemoryStore) Upsert(ctx context.Context, p *Policy) error {
	if err := Validate(p); err != nil {
		return err
	}
	if p.ID == "" {
		return &ConfigurationError{Policy: p.Name, Field: "id", Message: "id is required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	policyCopy := *p
	s.policies[p.ID] = &policyCopy
	return nil
}

// Get returns a policy by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.policies[id]
	if !ok {
		return nil, ErrPolicyNotFound
	}
	policyCopy := *p
	return &policyCopy, nil
}

// Disable soft-disables a policy.
func (s *MemoryStore) Disable(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.policies[id]
	if !ok {
		return ErrPolicyNotFound
	}
	p.Enabled = false
	return nil
}

// ReplaceAll atomically swaps the full policy set. Used by file-backed
// sources on reload.
func (s *MemoryStore) ReplaceAll(policies []*Policy) {
	next := make(map[string]*Policy, len(policies))
	for _, p := range policies {
		policyCopy := *p
		next[p.ID] = &policyCopy
	}

	s.mu.Lock()
	s.policies = next
	s.mu.Unlock()
}
