// Package anthropic adapts the Anthropic Messages dialect to the
// Provider Runtime contract.
package anthropic

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

const (
	DefaultBaseURL = "https://api.anthropic.com/v1"
	APIVersion     = "2023-06-01"
)

type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Retry        retrypolicy.Policy
}

type Provider struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config) *Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-3-5-sonnet-latest"
	}
	if cfg.Retry == (retrypolicy.Policy{}) {
		cfg.Retry = retrypolicy.DefaultPolicy()
	}
	client := httpx.New(httpx.Config{
		BaseURL: baseURL,
		Headers: map[string]string{
			"x-api-key":         cfg.APIKey,
			"anthropic-version": APIVersion,
		},
	})
	return &Provider{cfg: cfg, client: client}
}

func (p *Provider) Name() string { return "anthropic" }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *Provider) buildRequest(req llm.GenerateRequest, stream bool) messagesRequest {
	model := req.Model
	if model == "" {
		model = p.cfg.DefaultModel
	}
	maxTokens := 1024
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	return messagesRequest{
		Model:       model,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
}

func classifyErrorBody(status int, body []byte) error {
	var parsed messagesResponse
	message := string(body)
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
	}
	return llm.NewHTTPStatusError(status, message)
}

func (p *Provider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	var result *llm.GenerateResponse
	err := llm.WithRetry(ctx, p.cfg.Retry, func(ctx context.Context) error {
		resp, err := p.client.Do(ctx, httpx.Request{
			Method: http.MethodPost,
			Path:   "/messages",
			Body:   p.buildRequest(req, false),
		})
		if err != nil {
			return llm.NewTransportError(err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return classifyErrorBody(resp.StatusCode, resp.Body)
		}
		var parsed messagesResponse
		if jsonErr := json.Unmarshal(resp.Body, &parsed); jsonErr != nil {
			return llm.NewDecodeError(jsonErr.Error())
		}
		var text string
		for _, block := range parsed.Content {
			if block.Type == "text" {
				text += block.Text
			}
		}
		result = &llm.GenerateResponse{Content: text, Model: parsed.Model, FinishReason: parsed.StopReason}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type anthropicStream struct {
	body   interface{ Close() error }
	reader *sse.Reader
	done   bool
}

func (s *anthropicStream) Next() (*llm.StreamChunk, error) {
	if s.done {
		return nil, nil
	}
	for {
		event, err := s.reader.Next()
		if err != nil {
			s.done = true
			return nil, llm.NewDecodeError(err.Error())
		}
		switch event.Event {
		case "content_block_delta":
			var payload struct {
				Delta struct {
					Text string `json:"text"`
				} `json:"delta"`
			}
			if jsonErr := json.Unmarshal([]byte(event.Data), &payload); jsonErr != nil {
				s.done = true
				return nil, llm.NewDecodeError(jsonErr.Error())
			}
			if payload.Delta.Text == "" {
				continue
			}
			return &llm.StreamChunk{Kind: llm.ChunkDelta, Text: payload.Delta.Text}, nil
		case "message_stop":
			s.done = true
			return &llm.StreamChunk{Kind: llm.ChunkDone}, nil
		case "error":
			s.done = true
			var payload struct {
				Error struct {
					Message string `json:"message"`
				} `json:"error"`
			}
			_ = json.Unmarshal([]byte(event.Data), &payload)
			return nil, llm.NewMessageError(payload.Error.Message)
		default:
			continue
		}
	}
}

func (s *anthropicStream) Close() error { return s.body.Close() }

func (p *Provider) GenerateStream(ctx context.Context, req llm.GenerateRequest) (llm.Stream, error) {
	resp, err := p.client.DoStream(ctx, httpx.Request{
		Method: http.MethodPost,
		Path:   "/messages",
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
	return &anthropicStream{body: resp.Body, reader: sse.NewReader(resp.Body)}, nil
}

var _ llm.Provider = (*Provider)(nil)
