// Package gemini adapts the Google Gemini generateContent dialect to the
// Provider Runtime contract. API key travels in the query string, not a
// header, unlike OpenAI/Anthropic.
package gemini

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

const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

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
		cfg.DefaultModel = "gemini-1.5-flash"
	}
	if cfg.Retry == (retrypolicy.Policy{}) {
		cfg.Retry = retrypolicy.DefaultPolicy()
	}
	client := httpx.New(httpx.Config{BaseURL: baseURL})
	return &Provider{cfg: cfg, client: client}
}

func (p *Provider) Name() string { return "gemini" }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *Provider) buildRequest(req llm.GenerateRequest) generateRequest {
	return generateRequest{
		Contents: []content{{Parts: []part{{Text: req.Prompt}}}},
		GenerationConfig: generationConfig{
			MaxOutputTokens: req.MaxTokens,
			Temperature:     req.Temperature,
		},
	}
}

func (p *Provider) model(req llm.GenerateRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return p.cfg.DefaultModel
}

func classifyErrorBody(status int, body []byte) error {
	var parsed generateResponse
	message := string(body)
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
	}
	return llm.NewHTTPStatusError(status, message)
}

func candidateText(c candidate) string {
	var text string
	for _, pt := range c.Content.Parts {
		text += pt.Text
	}
	return text
}

func (p *Provider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	var result *llm.GenerateResponse
	err := llm.WithRetry(ctx, p.cfg.Retry, func(ctx context.Context) error {
		path := "/models/" + p.model(req) + ":generateContent"
		resp, err := p.client.Do(ctx, httpx.Request{
			Method: http.MethodPost,
			Path:   path,
			Body:   p.buildRequest(req),
			Query:  map[string]string{"key": p.cfg.APIKey},
		})
		if err != nil {
			return llm.NewTransportError(err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return classifyErrorBody(resp.StatusCode, resp.Body)
		}
		var parsed generateResponse
		if jsonErr := json.Unmarshal(resp.Body, &parsed); jsonErr != nil {
			return llm.NewDecodeError(jsonErr.Error())
		}
		if len(parsed.Candidates) == 0 {
			return llm.NewDecodeError("no candidates in response")
		}
		result = &llm.GenerateResponse{
			Content:      candidateText(parsed.Candidates[0]),
			Model:        p.model(req),
			FinishReason: parsed.Candidates[0].FinishReason,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type geminiStream struct {
	body   interface{ Close() error }
	reader *sse.Reader
	done   bool
}

func (s *geminiStream) Next() (*llm.StreamChunk, error) {
	if s.done {
		return nil, nil
	}
	for {
		event, err := s.reader.Next()
		if err != nil {
			s.done = true
			return nil, llm.NewDecodeError(err.Error())
		}
		if event.Data == "" {
			continue
		}
		var parsed generateResponse
		if jsonErr := json.Unmarshal([]byte(event.Data), &parsed); jsonErr != nil {
			s.done = true
			return nil, llm.NewDecodeError(jsonErr.Error())
		}
		if len(parsed.Candidates) == 0 {
			continue
		}
		c := parsed.Candidates[0]
		if c.FinishReason != "" {
			s.done = true
			return &llm.StreamChunk{Kind: llm.ChunkDone}, nil
		}
		text := candidateText(c)
		if text == "" {
			continue
		}
		return &llm.StreamChunk{Kind: llm.ChunkDelta, Text: text}, nil
	}
}

func (s *geminiStream) Close() error { return s.body.Close() }

func (p *Provider) GenerateStream(ctx context.Context, req llm.GenerateRequest) (llm.Stream, error) {
	path := "/models/" + p.model(req) + ":streamGenerateContent"
	resp, err := p.client.DoStream(ctx, httpx.Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   p.buildRequest(req),
		Query:  map[string]string{"key": p.cfg.APIKey, "alt": "sse"},
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
	return &geminiStream{body: resp.Body, reader: sse.NewReader(resp.Body)}, nil
}

var _ llm.Provider = (*Provider)(nil)
