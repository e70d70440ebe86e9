// Package config loads the Gateway Core's runtime configuration from
// the environment, per the NEXIS_* variable table.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/nexischat/nexis/internal/gateway"
)

// Config is every environment-sourced knob the gateway binary needs.
type Config struct {
	BindAddr string

	AIProvider string // "openai", "anthropic", "gemini", or "" (disabled)
	AIModel    string
	AIMember   string

	EmbeddingProvider string // "mock" (default) or "openai"

	OpenAIAPIKey    string
	AnthropicAPIKey string
	GeminiAPIKey    string

	QdrantURL string

	RunNetworkTests bool

	AdmissionCapacity  int64
	ConnectionCapacity int64

	LogFormat string // "json" or "text"
}

// Load reads configuration from the process environment, applying the
// spec's defaults for anything unset.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:           getEnv("NEXIS_BIND_ADDR", "0.0.0.0:8080"),
		AIProvider:         os.Getenv("NEXIS_AI_PROVIDER"),
		AIModel:            os.Getenv("NEXIS_AI_MODEL"),
		AIMember:           getEnv("NEXIS_AI_MEMBER", "nexis:agent:assistant"),
		EmbeddingProvider:  getEnv("NEXIS_EMBEDDING_PROVIDER", "mock"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		QdrantURL:          os.Getenv("NEXIS_QDRANT_URL"),
		AdmissionCapacity:  gateway.DefaultAdmissionCapacity,
		ConnectionCapacity: gateway.DefaultConnectionCapacity,
		LogFormat:          getEnv("NEXIS_LOG_FORMAT", "json"),
	}

	var err error
	cfg.RunNetworkTests, err = getEnvBool("NEXIS_RUN_NETWORK_TESTS", false)
	if err != nil {
		return Config{}, err
	}

	switch cfg.AIProvider {
	case "":
		// AI turn wiring disabled; no key required.
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("config: NEXIS_AI_PROVIDER=openai requires OPENAI_API_KEY")
		}
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return Config{}, fmt.Errorf("config: NEXIS_AI_PROVIDER=anthropic requires ANTHROPIC_API_KEY")
		}
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return Config{}, fmt.Errorf("config: NEXIS_AI_PROVIDER=gemini requires GEMINI_API_KEY")
		}
	default:
		return Config{}, fmt.Errorf("config: unknown NEXIS_AI_PROVIDER: %s", cfg.AIProvider)
	}

	switch cfg.EmbeddingProvider {
	case "mock":
		// No key required.
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("config: NEXIS_EMBEDDING_PROVIDER=openai requires OPENAI_API_KEY")
		}
	default:
		return Config{}, fmt.Errorf("config: unknown NEXIS_EMBEDDING_PROVIDER: %s", cfg.EmbeddingProvider)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return parsed, nil
}
