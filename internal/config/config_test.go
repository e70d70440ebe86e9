package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"NEXIS_BIND_ADDR", "NEXIS_AI_PROVIDER", "NEXIS_AI_MODEL", "NEXIS_AI_MEMBER",
		"NEXIS_EMBEDDING_PROVIDER", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY",
		"NEXIS_QDRANT_URL", "NEXIS_RUN_NETWORK_TESTS", "NEXIS_LOG_FORMAT",
	}
	for _, k := range keys {
		orig, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, orig)
			}
		})
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:8080", cfg.BindAddr)
	require.Equal(t, "nexis:agent:assistant", cfg.AIMember)
	require.Equal(t, "json", cfg.LogFormat)
	require.False(t, cfg.RunNetworkTests)
	require.Empty(t, cfg.AIProvider)
	require.Equal(t, "mock", cfg.EmbeddingProvider)
}

func TestLoadRequiresAPIKeyForEmbeddingProvider(t *testing.T) {
	clearEnv(t)
	os.Setenv("NEXIS_EMBEDDING_PROVIDER", "openai")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadAcceptsEmbeddingProviderWithKeyPresent(t *testing.T) {
	clearEnv(t)
	os.Setenv("NEXIS_EMBEDDING_PROVIDER", "openai")
	os.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "openai", cfg.EmbeddingProvider)
}

func TestLoadRejectsUnknownEmbeddingProvider(t *testing.T) {
	clearEnv(t)
	os.Setenv("NEXIS_EMBEDDING_PROVIDER", "unknown-vendor")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRequiresAPIKeyForSelectedProvider(t *testing.T) {
	clearEnv(t)
	os.Setenv("NEXIS_AI_PROVIDER", "openai")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadAcceptsProviderWithKeyPresent(t *testing.T) {
	clearEnv(t)
	os.Setenv("NEXIS_AI_PROVIDER", "anthropic")
	os.Setenv("ANTHROPIC_API_KEY", "sk-test")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "anthropic", cfg.AIProvider)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	clearEnv(t)
	os.Setenv("NEXIS_AI_PROVIDER", "unknown-vendor")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsMalformedBoolEnv(t *testing.T) {
	clearEnv(t)
	os.Setenv("NEXIS_RUN_NETWORK_TESTS", "not-a-bool")
	_, err := Load()
	require.Error(t, err)
}
