// Package mock is a deterministic, offline embedding.Provider: it hashes
// the input text into a fixed-dimension vector so tests and local
// development don't depend on a live upstream.
package mock

import (
	"context"
	"hash/fnv"

	"github.com/nexischat/nexis/internal/embedding"
)

type Provider struct {
	dimension int
}

func New(dimension int) *Provider {
	if dimension <= 0 {
		dimension = 8
	}
	return &Provider{dimension: dimension}
}

func (p *Provider) Dimension() int { return p.dimension }

func (p *Provider) vectorFor(text string) []float32 {
	vec := make([]float32, p.dimension)
	h := fnv.New64a()
	for i := 0; i < p.dimension; i++ {
		_, _ = h.Write([]byte(text))
		_, _ = h.Write([]byte{byte(i)})
		sum := h.Sum64()
		vec[i] = float32(int64(sum%2001)-1000) / 1000.0
	}
	return vec
}

func (p *Provider) Embed(ctx context.Context, text string, model string) (*embedding.Result, error) {
	return &embedding.Result{Embedding: p.vectorFor(text), Model: "mock", Dimension: p.dimension}, nil
}

func (p *Provider) EmbedBatch(ctx context.Context, texts []string, model string) (*embedding.BatchResult, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.vectorFor(t)
	}
	return &embedding.BatchResult{Embeddings: out, Model: "mock", Dimension: p.dimension}, nil
}

var _ embedding.Provider = (*Provider)(nil)
