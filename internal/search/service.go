// Package search implements the Search Service: embed a query, search
// the vector store, and shape the response for the HTTP surface.
package search

import (
	"context"
	"errors"
	"strings"

	"github.com/nexischat/nexis/internal/embedding"
	"github.com/nexischat/nexis/internal/vectorstore"
)

// ErrInvalidQuery is returned when Request.Query is empty or whitespace.
var ErrInvalidQuery = errors.New("search: query cannot be empty")

// Request is a semantic search request.
type Request struct {
	Query          string
	Limit          int // 0 means the Service's default limit (see WithDefaultLimit)
	MinScore       *float32
	RoomID         *string
	IncludeContent *bool // nil means true
}

// ResultItem is one ranked hit in a Response.
type ResultItem struct {
	ID       string
	Score    float32
	Content  *string
	RoomID   *string
	Metadata map[string]any
}

// Response is the shaped result of a search.
type Response struct {
	Query     string
	Results   []ResultItem
	Total     int
	Truncated bool
}

// Service is the Search Service: embed a query, build a SearchQuery, and
// delegate to the vector store.
type Service struct {
	store        vectorstore.Store
	embedder     embedding.Provider
	defaultLimit int
}

// New builds a Service with the spec default limit of 10.
func New(store vectorstore.Store, embedder embedding.Provider) *Service {
	return &Service{store: store, embedder: embedder, defaultLimit: 10}
}

// WithDefaultLimit overrides the default result limit.
func (s *Service) WithDefaultLimit(limit int) *Service {
	s.defaultLimit = limit
	return s
}

// Search performs a semantic search per req.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrInvalidQuery
	}

	result, err := s.embedder.Embed(ctx, req.Query, "")
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}

	query := vectorstore.NewSearchQuery(vectorstore.NewVector(result.Embedding))
	query.Limit = limit
	query.MinScore = req.MinScore
	if req.RoomID != nil {
		query.Filter = &vectorstore.SearchFilter{RoomID: req.RoomID}
	}
	includeContent := req.IncludeContent == nil || *req.IncludeContent
	query.IncludeContent = includeContent

	hits, err := s.store.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	items := make([]ResultItem, 0, len(hits))
	for _, hit := range hits {
		item := ResultItem{ID: hit.Document.ID, Score: hit.Score, Metadata: hit.Document.Metadata.Extra}
		if hit.Document.Metadata.RoomID != "" {
			roomID := hit.Document.Metadata.RoomID
			item.RoomID = &roomID
		}
		if includeContent {
			content := hit.Document.Content
			item.Content = &content
		}
		items = append(items, item)
	}

	return &Response{
		Query:     req.Query,
		Results:   items,
		Total:     len(items),
		Truncated: len(items) >= limit,
	}, nil
}

// SearchInRoom is Search scoped to roomID.
func (s *Service) SearchInRoom(ctx context.Context, query, roomID string, limit int) (*Response, error) {
	return s.Search(ctx, Request{Query: query, Limit: limit, RoomID: &roomID})
}
