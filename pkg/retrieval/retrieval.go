// Package retrieval supplies the documents and fragments the governor
// injects ahead of the user prompt. The core consumes it read-only.
package retrieval

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Document is one retrieved item: a whole-document summary or a
// fragment excerpt, ranked by relevance.
type Document struct {
	// Title is the document title.
	Title string

	// Summary is a whole-document summary. Documents carry a summary,
	// fragments carry content.
	Summary string

	// Content is a fragment excerpt.
	Content string

	// Score is the relevance score; higher ranks first.
	Score float64
}

// Searcher retrieves context for a query.
type Searcher interface {
	// Search returns up to limit documents for the organization,
	// highest score first.
	Search(ctx context.Context, query, orgID string, limit int) ([]Document, error)
}

// StaticSearcher is an in-memory Searcher over a fixed corpus. It
// ranks by term overlap between the query and the document text, which
// is enough for tests and single-node deployments without an index.
type StaticSearcher struct {
	mu        sync.RWMutex
	documents map[string][]Document // keyed by organization ID
}

// NewStaticSearcher creates an empty searcher.
func NewStaticSearcher() *StaticSearcher {
	return &StaticSearcher{documents: make(map[string][]Document)}
}

// Add registers documents for an organization.
func (s *StaticSearcher) Add(orgID string, docs ...Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[orgID] = append(s.documents[orgID], docs...)
}

// Search ranks the organization's documents by term overlap with the
// query, falling back to the stored score as a tie-break.
func (s *StaticSearcher) Search(ctx context.Context, query, orgID string, limit int) ([]Document, error) {
	s.mu.RLock()
	corpus := s.documents[orgID]
	s.mu.RUnlock()

	if limit <= 0 || len(corpus) == 0 {
		return nil, nil
	}

	terms := strings.Fields(strings.ToLower(query))
	scored := make([]Document, 0, len(corpus))
	for _, doc := range corpus {
		text := strings.ToLower(doc.Title + " " + doc.Summary + " " + doc.Content)
		overlap := 0
		for _, term := range terms {
			if strings.Contains(text, term) {
				overlap++
			}
		}
		ranked := doc
		ranked.Score = float64(overlap) + doc.Score/1000
		scored = append(scored, ranked)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}
