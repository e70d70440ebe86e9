// Package openai implements the embedding.Provider contract against
// OpenAI's /v1/embeddings endpoint, reusing the Provider Runtime's shared
// retry policy per spec §4.4.
package openai

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nexischat/nexis/internal/embedding"
	"github.com/nexischat/nexis/internal/httpx"
	"github.com/nexischat/nexis/internal/llm"
	"github.com/nexischat/nexis/internal/retrypolicy"
)

const DefaultBaseURL = "https://api.openai.com/v1"

type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Dimension    int
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
		cfg.DefaultModel = "text-embedding-3-small"
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = 1536
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

func (p *Provider) Dimension() int { return p.cfg.Dimension }

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedDatum struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type embedResponse struct {
	Model string       `json:"model"`
	Data  []embedDatum `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *Provider) doEmbed(ctx context.Context, texts []string, model string) (*embedResponse, error) {
	if model == "" {
		model = p.cfg.DefaultModel
	}
	var parsed embedResponse
	err := llm.WithRetry(ctx, p.cfg.Retry, func(ctx context.Context) error {
		resp, err := p.client.Do(ctx, httpx.Request{
			Method: http.MethodPost,
			Path:   "/embeddings",
			Body:   embedRequest{Model: model, Input: texts},
		})
		if err != nil {
			return llm.NewTransportError(err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			message := string(resp.Body)
			var e embedResponse
			if jsonErr := json.Unmarshal(resp.Body, &e); jsonErr == nil && e.Error != nil {
				message = e.Error.Message
			}
			return llm.NewHTTPStatusError(resp.StatusCode, message)
		}
		if jsonErr := json.Unmarshal(resp.Body, &parsed); jsonErr != nil {
			return llm.NewDecodeError(jsonErr.Error())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func (p *Provider) Embed(ctx context.Context, text string, model string) (*embedding.Result, error) {
	parsed, err := p.doEmbed(ctx, []string{text}, model)
	if err != nil {
		return nil, err
	}
	if len(parsed.Data) == 0 {
		return nil, llm.NewDecodeError("no embedding data in response")
	}
	return &embedding.Result{
		Embedding: parsed.Data[0].Embedding,
		Model:     parsed.Model,
		Dimension: p.cfg.Dimension,
		Usage:     &embedding.Usage{PromptTokens: parsed.Usage.PromptTokens, TotalTokens: parsed.Usage.TotalTokens},
	}, nil
}

func (p *Provider) EmbedBatch(ctx context.Context, texts []string, model string) (*embedding.BatchResult, error) {
	parsed, err := p.doEmbed(ctx, texts, model)
	if err != nil {
		return nil, err
	}
	// Preserve input order regardless of the upstream's index field.
	ordered := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index >= 0 && d.Index < len(ordered) {
			ordered[d.Index] = d.Embedding
		}
	}
	return &embedding.BatchResult{
		Embeddings: ordered,
		Model:      parsed.Model,
		Dimension:  p.cfg.Dimension,
		Usage:      &embedding.Usage{PromptTokens: parsed.Usage.PromptTokens, TotalTokens: parsed.Usage.TotalTokens},
	}, nil
}

var _ embedding.Provider = (*Provider)(nil)
