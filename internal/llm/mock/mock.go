// Package mock is the test-only provider: a FIFO queue of canned
// responses (or errors) drained one per Generate/GenerateStream call,
// yielding ProviderError.MockQueueEmpty once exhausted.
package mock

import (
	"context"
	"sync"

	"github.com/nexischat/nexis/internal/llm"
)

// QueuedResponse is one entry in a Provider's response queue: either a
// response to return, or an error to return instead.
type QueuedResponse struct {
	Response *llm.GenerateResponse
	Err      error
}

// Provider is the mock dialect. Safe for concurrent use.
type Provider struct {
	mu    sync.Mutex
	queue []QueuedResponse
	calls int
}

// New builds an empty mock provider.
func New() *Provider { return &Provider{} }

// Enqueue appends a response to be returned by a future Generate call.
func (p *Provider) Enqueue(resp *llm.GenerateResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, QueuedResponse{Response: resp})
}

// EnqueueError appends an error to be returned by a future Generate call.
func (p *Provider) EnqueueError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, QueuedResponse{Err: err})
}

// Calls returns how many times Generate/GenerateStream have been called.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *Provider) Name() string { return "mock" }

func (p *Provider) dequeue() (QueuedResponse, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.queue) == 0 {
		return QueuedResponse{}, false
	}
	next := p.queue[0]
	p.queue = p.queue[1:]
	return next, true
}

func (p *Provider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	entry, ok := p.dequeue()
	if !ok {
		return nil, &llm.ProviderError{Kind: llm.ErrMockQueueEmpty}
	}
	if entry.Err != nil {
		return nil, entry.Err
	}
	return entry.Response, nil
}

type mockStream struct {
	chunks []*llm.StreamChunk
	idx    int
}

func (s *mockStream) Next() (*llm.StreamChunk, error) {
	if s.idx >= len(s.chunks) {
		return nil, nil
	}
	c := s.chunks[s.idx]
	s.idx++
	return c, nil
}

func (s *mockStream) Close() error { return nil }

func (p *Provider) GenerateStream(ctx context.Context, req llm.GenerateRequest) (llm.Stream, error) {
	entry, ok := p.dequeue()
	if !ok {
		return nil, &llm.ProviderError{Kind: llm.ErrMockQueueEmpty}
	}
	if entry.Err != nil {
		return nil, entry.Err
	}

	chunks := []*llm.StreamChunk{
		{Kind: llm.ChunkDelta, Text: entry.Response.Content},
		{Kind: llm.ChunkDone},
	}
	return &mockStream{chunks: chunks}, nil
}

var _ llm.Provider = (*Provider)(nil)
