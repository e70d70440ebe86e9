// Package httpjson is the generic "http-json" dialect: it POSTs a plain
// {prompt, model, max_tokens, temperature} payload and expects
// {content, model, finish_reason} back. Non-streaming only; GenerateStream
// synthesizes a single Delta followed by Done from the full response.
package httpjson

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nexischat/nexis/internal/httpx"
	"github.com/nexischat/nexis/internal/llm"
	"github.com/nexischat/nexis/internal/retrypolicy"
)

type Config struct {
	URL   string
	Retry retrypolicy.Policy
}

type Provider struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config) *Provider {
	if cfg.Retry == (retrypolicy.Policy{}) {
		cfg.Retry = retrypolicy.DefaultPolicy()
	}
	return &Provider{cfg: cfg, client: httpx.New(httpx.Config{})}
}

func (p *Provider) Name() string { return "http-json" }

type wireRequest struct {
	Prompt      string   `json:"prompt"`
	Model       string   `json:"model,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type wireResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	FinishReason string `json:"finish_reason"`
}

func (p *Provider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	var result *llm.GenerateResponse
	err := llm.WithRetry(ctx, p.cfg.Retry, func(ctx context.Context) error {
		resp, err := p.client.Do(ctx, httpx.Request{
			Method: http.MethodPost,
			Path:   p.cfg.URL,
			Body: wireRequest{
				Prompt:      req.Prompt,
				Model:       req.Model,
				MaxTokens:   req.MaxTokens,
				Temperature: req.Temperature,
			},
		})
		if err != nil {
			return llm.NewTransportError(err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return llm.NewHTTPStatusError(resp.StatusCode, string(resp.Body))
		}
		var parsed wireResponse
		if jsonErr := json.Unmarshal(resp.Body, &parsed); jsonErr != nil {
			return llm.NewDecodeError(jsonErr.Error())
		}
		result = &llm.GenerateResponse{Content: parsed.Content, Model: parsed.Model, FinishReason: parsed.FinishReason}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type syntheticStream struct {
	chunks []*llm.StreamChunk
	idx    int
}

func (s *syntheticStream) Next() (*llm.StreamChunk, error) {
	if s.idx >= len(s.chunks) {
		return nil, nil
	}
	c := s.chunks[s.idx]
	s.idx++
	return c, nil
}

func (s *syntheticStream) Close() error { return nil }

func (p *Provider) GenerateStream(ctx context.Context, req llm.GenerateRequest) (llm.Stream, error) {
	resp, err := p.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return &syntheticStream{chunks: []*llm.StreamChunk{
		{Kind: llm.ChunkDelta, Text: resp.Content},
		{Kind: llm.ChunkDone},
	}}, nil
}

var _ llm.Provider = (*Provider)(nil)
