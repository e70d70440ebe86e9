// Package openai adapts the OpenAI chat completions dialect to the
// Provider Runtime contract.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/nexischat/nexis/internal/httpx"
	"github.com/nexischat/nexis/internal/llm"
	"github.com/nexischat/nexis/internal/retrypolicy"
	"github.com/nexischat/nexis/internal/sse"
)

const DefaultBaseURL = "https://api.openai.com/v1"

// Config configures a Provider.
type Config struct {
	APIKey      string
	BaseURL     string
	DefaultModel string
	Retry       retrypolicy.Policy
}

// Provider implements llm.Provider for OpenAI chat completions.
type Provider struct {
	cfg    Config
	client *httpx.Client
}

// New builds an OpenAI provider. Immutable after construction.
func New(cfg Config) *Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-4o-mini"
	}
	if cfg.Retry == (retrypolicy.Policy{}) {
		cfg.Retry = retrypolicy.DefaultPolicy()
	}
	client := httpx.New(httpx.Config{
		BaseURL: baseURL,
		Headers: map[string]string{"Authorization": "Bearer " + cfg.APIKey},
	})
	return &Provider{cfg: cfg, client: client}
}

func (p *Provider) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatResponse struct {
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *Provider) buildRequest(req llm.GenerateRequest, stream bool) chatRequest {
	model := req.Model
	if model == "" {
		model = p.cfg.DefaultModel
	}
	return chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
}

func (p *Provider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	var result *llm.GenerateResponse
	err := llm.WithRetry(ctx, p.cfg.Retry, func(ctx context.Context) error {
		resp, err := p.client.Do(ctx, httpx.Request{
			Method: http.MethodPost,
			Path:   "/chat/completions",
			Body:   p.buildRequest(req, false),
		})
		if err != nil {
			return llm.NewTransportError(err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return classifyErrorBody(resp.StatusCode, resp.Body)
		}

		var parsed chatResponse
		if jsonErr := json.Unmarshal(resp.Body, &parsed); jsonErr != nil {
			return llm.NewDecodeError(jsonErr.Error())
		}
		if len(parsed.Choices) == 0 {
			return llm.NewDecodeError("no choices in response")
		}
		result = &llm.GenerateResponse{
			Content:      parsed.Choices[0].Message.Content,
			Model:        parsed.Model,
			FinishReason: parsed.Choices[0].FinishReason,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func classifyErrorBody(status int, body []byte) error {
	var parsed chatResponse
	message := string(body)
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
	}
	return llm.NewHTTPStatusError(status, message)
}

type openAIStream struct {
	body   interface{ Close() error }
	reader *sse.Reader
	done   bool
}

func (s *openAIStream) Next() (*llm.StreamChunk, error) {
	if s.done {
		return nil, nil
	}
	for {
		event, err := s.reader.Next()
		if err != nil {
			s.done = true
			return nil, llm.NewDecodeError(err.Error())
		}
		if sse.IsDone(event.Data) {
			s.done = true
			return &llm.StreamChunk{Kind: llm.ChunkDone}, nil
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
				FinishReason *string `json:"finish_reason"`
			} `json:"choices"`
		}
		if jsonErr := json.Unmarshal([]byte(event.Data), &chunk); jsonErr != nil {
			s.done = true
			return nil, llm.NewDecodeError(jsonErr.Error())
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.FinishReason != nil {
			s.done = true
			return &llm.StreamChunk{Kind: llm.ChunkDone}, nil
		}
		if choice.Delta.Content == "" {
			continue
		}
		return &llm.StreamChunk{Kind: llm.ChunkDelta, Text: choice.Delta.Content}, nil
	}
}

func (s *openAIStream) Close() error { return s.body.Close() }

func (p *Provider) GenerateStream(ctx context.Context, req llm.GenerateRequest) (llm.Stream, error) {
	resp, err := p.client.DoStream(ctx, httpx.Request{
		Method: http.MethodPost,
		Path:   "/chat/completions",
		Body:   p.buildRequest(req, true),
	})
	if err != nil {
		return nil, llm.NewTransportError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(resp.Body)
		return nil, classifyErrorBody(resp.StatusCode, buf.Bytes())
	}
	return &openAIStream{body: resp.Body, reader: sse.NewReader(resp.Body)}, nil
}

var _ llm.Provider = (*Provider)(nil)
