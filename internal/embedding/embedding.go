// Package embedding is the text→vector contract used by the Indexing
// Pipeline and Search Service.
package embedding

import "context"

// Usage reports token accounting for an embed call, when the upstream
// provides it.
type Usage struct {
	PromptTokens int
	TotalTokens  int
}

// Result is the response to a single embed call.
type Result struct {
	Embedding []float32
	Model     string
	Dimension int
	Usage     *Usage
}

// BatchResult is the response to an embed_batch call. Embeddings preserve
// input order regardless of any index field the upstream emits.
type BatchResult struct {
	Embeddings [][]float32
	Model      string
	Dimension  int
	Usage      *Usage
}

// Provider is the embedding contract. Dimension is constant per instance
// and equals the length of any vector the instance emits.
type Provider interface {
	Embed(ctx context.Context, text string, model string) (*Result, error)
	EmbedBatch(ctx context.Context, texts []string, model string) (*BatchResult, error)
	Dimension() int
}
