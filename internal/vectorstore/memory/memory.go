// Package memory implements vectorstore.Store entirely in-process; it is
// the fully-grounded primary backend (see DESIGN.md for why no external
// vector database client is adopted by default).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/nexischat/nexis/internal/vectorstore"
)

// Store is a RWMutex-guarded map of documents, searched by brute-force
// cosine similarity. Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	documents map[string]vectorstore.Document
	dimension int
}

// New builds an empty in-memory store fixed to dimension.
func New(dimension int) *Store {
	return &Store{documents: make(map[string]vectorstore.Document), dimension: dimension}
}

func (s *Store) Dimension() int      { return s.dimension }
func (s *Store) BackendName() string { return "memory" }

func (s *Store) Upsert(ctx context.Context, doc vectorstore.Document) (string, error) {
	if doc.Vector.Dimensions != s.dimension {
		return "", &vectorstore.InvalidDimensionError{Expected: s.dimension, Actual: doc.Vector.Dimensions}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = doc
	return doc.ID, nil
}

func (s *Store) UpsertBatch(ctx context.Context, docs []vectorstore.Document) (*vectorstore.BatchResult, error) {
	result := &vectorstore.BatchResult{}
	for _, doc := range docs {
		id, err := s.Upsert(ctx, doc)
		if err != nil {
			result.Failed = append(result.Failed, vectorstore.BatchFailure{ID: doc.ID, Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result, nil
}

func (s *Store) Get(ctx context.Context, id string) (*vectorstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, &vectorstore.NotFoundError{ID: id}
	}
	return &doc, nil
}

func (s *Store) GetBatch(ctx context.Context, ids []string) ([]vectorstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]vectorstore.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := s.documents[id]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return &vectorstore.NotFoundError{ID: id}
	}
	delete(s.documents, id)
	return nil
}

func (s *Store) DeleteBatch(ctx context.Context, ids []string) (*vectorstore.BatchResult, error) {
	result := &vectorstore.BatchResult{}
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			result.Failed = append(result.Failed, vectorstore.BatchFailure{ID: id, Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents), nil
}

func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.documents[id]
	return ok, nil
}

func (s *Store) Search(ctx context.Context, query vectorstore.SearchQuery) ([]vectorstore.SearchResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	candidates := make([]vectorstore.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		candidates = append(candidates, doc)
	}
	s.mu.RUnlock()

	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}

	results := make([]vectorstore.SearchResult, 0, len(candidates))
	for _, doc := range candidates {
		if !query.Filter.Matches(doc) {
			continue
		}
		score := doc.Vector.CosineSimilarity(query.Vector)
		if query.MinScore != nil && score < *query.MinScore {
			continue
		}
		if !query.IncludeContent {
			doc.Content = ""
		}
		if !query.IncludeMetadata {
			doc.Metadata = vectorstore.DocumentMetadata{}
		}
		results = append(results, vectorstore.SearchResult{Document: doc, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].Document.CreatedAt.Equal(results[j].Document.CreatedAt) {
			return results[i].Document.CreatedAt.After(results[j].Document.CreatedAt)
		}
		return results[i].Document.ID < results[j].Document.ID
	})

	start := query.Offset
	if start > len(results) {
		start = len(results)
	}
	end := start + limit
	if end > len(results) {
		end = len(results)
	}
	return results[start:end], nil
}

var _ vectorstore.Store = (*Store)(nil)
