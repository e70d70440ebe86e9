package indexing

import (
	"context"

	"github.com/nexischat/nexis/internal/embedding"
	"github.com/nexischat/nexis/internal/retrypolicy"
	"github.com/nexischat/nexis/internal/vectorstore"
)

// Service is the synchronous indexing/search capability: embed text,
// upsert it into the vector store, and run semantic search queries.
type Service struct {
	embedder embedding.Provider
	store    vectorstore.Store
	retry    retrypolicy.Policy
	queue    *Queue
}

// Config configures a Service.
type Config struct {
	Embedder      embedding.Provider
	Store         vectorstore.Store
	Retry         retrypolicy.Policy
	QueueCapacity int
}

// New builds a Service and starts its background IndexingQueue worker
// against ctx.
func New(ctx context.Context, cfg Config) *Service {
	if cfg.Retry == (retrypolicy.Policy{}) {
		cfg.Retry = retrypolicy.DefaultPolicy()
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 1024
	}
	s := &Service{embedder: cfg.Embedder, store: cfg.Store, retry: cfg.Retry}
	s.queue = NewQueue(ctx, cfg.QueueCapacity, s.handle)
	return s
}

// IndexMessage embeds text with retry, builds a Document carrying the
// given room and custom metadata, and upserts it into the vector store.
func (s *Service) IndexMessage(ctx context.Context, text, roomID string, metadata map[string]any) (string, error) {
	vec, err := s.embed(ctx, text)
	if err != nil {
		return "", err
	}
	doc := vectorstore.NewDocument(vec, text, vectorstore.DocumentMetadata{
		RoomID: roomID,
		Extra:  map[string]any{"custom": metadata},
	})
	return s.store.Upsert(ctx, doc)
}

// Enqueue submits text for asynchronous indexing via the IndexingQueue.
func (s *Service) Enqueue(id, text, roomID string, metadata map[string]any) error {
	return s.queue.Submit(NewTask(id, text, roomID, metadata))
}

// Search embeds q and returns the top semantic matches across all rooms.
func (s *Service) Search(ctx context.Context, q string, limit int) ([]vectorstore.SearchResult, error) {
	return s.search(ctx, q, limit, nil)
}

// SearchInRoom embeds q and returns the top semantic matches restricted
// to roomID.
func (s *Service) SearchInRoom(ctx context.Context, q, roomID string, limit int) ([]vectorstore.SearchResult, error) {
	return s.search(ctx, q, limit, &roomID)
}

func (s *Service) search(ctx context.Context, q string, limit int, roomID *string) ([]vectorstore.SearchResult, error) {
	vec, err := s.embed(ctx, q)
	if err != nil {
		return nil, err
	}
	query := vectorstore.NewSearchQuery(vec)
	if limit > 0 {
		query.Limit = limit
	}
	if roomID != nil {
		query.Filter = &vectorstore.SearchFilter{RoomID: roomID}
	}
	return s.store.Search(ctx, query)
}

func (s *Service) embed(ctx context.Context, text string) (vectorstore.Vector, error) {
	var result *embedding.Result
	err := retrypolicy.With(ctx, s.retry, nil, func(ctx context.Context) error {
		r, embedErr := s.embedder.Embed(ctx, text, "")
		if embedErr != nil {
			return embedErr
		}
		result = r
		return nil
	})
	if err != nil {
		return vectorstore.Vector{}, &EmbeddingFailureError{Err: err}
	}
	return vectorstore.NewVector(result.Embedding), nil
}

// handle is the IndexingQueue's Handler: it drives IndexMessage for a
// dequeued Task.
func (s *Service) handle(ctx context.Context, task Task) error {
	_, err := s.IndexMessage(ctx, task.Message, task.RoomID, task.Metadata)
	return err
}

// Stats delegates to the background queue.
func (s *Service) Stats() QueueStats {
	return s.queue.Stats()
}

// Close drains in-flight queue work before returning, or until ctx is
// done.
func (s *Service) Close(ctx context.Context) error {
	return s.queue.Close(ctx)
}
