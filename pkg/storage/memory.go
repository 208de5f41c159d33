package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore implements Store using in-memory maps. It is intended for
// tests and single-process deployments without durability requirements.
type MemoryStore struct {
	mu          sync.RWMutex
	evaluations map[string]*EvaluationRecord
	violations  map[string][]*ViolationRecord // keyed by evaluation ID
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		evaluations: make(map[string]*EvaluationRecord),
		violations:  make(map[string][]*ViolationRecord),
	}
}

// InsertEvaluation persists one evaluation record.
func (s *MemoryStore) InsertEvaluation(ctx context.Context, record *EvaluationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *record
	s.evaluations[record.ID] = &recordCopy
	return nil
}

// InsertViolations persists the violations of one evaluation.
func (s *MemoryStore) InsertViolations(ctx context.Context, records []*ViolationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range records {
		recordCopy := *record
		s.violations[record.EvaluationID] = append(s.violations[record.EvaluationID], &recordCopy)
	}
	return nil
}

// GetEvaluation returns an evaluation by ID.
func (s *MemoryStore) GetEvaluation(ctx context.Context, id string) (*EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.evaluations[id]
	if !ok {
		return nil, ErrNotFound
	}
	recordCopy := *record
	return &recordCopy, nil
}

// ListEvaluations returns the most recent evaluations for an organization.
func (s *MemoryStore) ListEvaluations(ctx context.Context, orgID string, limit int) ([]*EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*EvaluationRecord
	for _, record := range s.evaluations {
		if record.OrganizationID == orgID {
			recordCopy := *record
			results = append(results, &recordCopy)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// ListViolations returns the violations of one evaluation.
func (s *MemoryStore) ListViolations(ctx context.Context, evaluationID string) ([]*ViolationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.violations[evaluationID]
	results := make([]*ViolationRecord, 0, len(records))
	for _, record := range records {
		recordCopy := *record
		results = append(results, &recordCopy)
	}
	return results, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
