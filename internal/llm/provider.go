package llm

import "context"

// Stream is a pull-iterator over StreamChunk, the Go encoding of the
// spec's "lazy sequence of (StreamChunk | ProviderError)". Next returns
// io.EOF-free termination: the sequence itself carries a Done chunk, so
// callers call Next until it returns a non-nil error (which is always a
// *ProviderError, never io.EOF) or a chunk with Kind == ChunkDone.
type Stream interface {
	Next() (*StreamChunk, error)
	Close() error
}

// Provider is the uniform contract every dialect adapter implements.
// Providers are immutable after construction and safe for concurrent use
// by multiple goroutines.
type Provider interface {
	// Name returns the provider identifier: "openai", "anthropic",
	// "gemini", "mock", or "http-json".
	Name() string

	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	GenerateStream(ctx context.Context, req GenerateRequest) (Stream, error)
}
