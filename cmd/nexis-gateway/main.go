// Command nexis-gateway runs the Gateway Core: the HTTP/WebSocket
// surface over in-memory room state, with search and indexing always
// wired. Environment variables select the embedder, the vector-store
// backend, whether AI-addressed turns run, and whether tracing is on.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nexischat/nexis/internal/auth"
	"github.com/nexischat/nexis/internal/config"
	"github.com/nexischat/nexis/internal/contextwindow"
	"github.com/nexischat/nexis/internal/embedding"
	embeddingmock "github.com/nexischat/nexis/internal/embedding/mock"
	embeddingopenai "github.com/nexischat/nexis/internal/embedding/openai"
	"github.com/nexischat/nexis/internal/gateway"
	"github.com/nexischat/nexis/internal/indexing"
	"github.com/nexischat/nexis/internal/llm"
	"github.com/nexischat/nexis/internal/llm/anthropic"
	"github.com/nexischat/nexis/internal/llm/gemini"
	"github.com/nexischat/nexis/internal/llm/openai"
	"github.com/nexischat/nexis/internal/metrics"
	"github.com/nexischat/nexis/internal/search"
	"github.com/nexischat/nexis/internal/vectorstore"
	"github.com/nexischat/nexis/internal/vectorstore/memory"
	"github.com/nexischat/nexis/internal/vectorstore/qdrantlike"
	"github.com/nexischat/nexis/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func newLogger(format string) *slog.Logger {
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, nil)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	}
	return slog.New(handler)
}

func buildRegistry(cfg config.Config, log *slog.Logger) *llm.Registry {
	registry := llm.NewRegistry()
	switch cfg.AIProvider {
	case "openai":
		registry.Register("openai", openai.New(openai.Config{APIKey: cfg.OpenAIAPIKey, DefaultModel: cfg.AIModel}))
	case "anthropic":
		registry.Register("anthropic", anthropic.New(anthropic.Config{APIKey: cfg.AnthropicAPIKey, DefaultModel: cfg.AIModel}))
	case "gemini":
		registry.Register("gemini", gemini.New(gemini.Config{APIKey: cfg.GeminiAPIKey, DefaultModel: cfg.AIModel}))
	default:
		log.Info("no NEXIS_AI_PROVIDER configured, AI-addressed turns are disabled")
		return nil
	}
	return registry
}

// mockEmbeddingDimension is the vector size used by the deterministic
// mock embedder and, in turn, by the in-memory/qdrantlike stores when no
// real embedding provider is configured.
const mockEmbeddingDimension = 8

// buildEmbedder selects the embedding provider by NEXIS_EMBEDDING_PROVIDER,
// mirroring buildRegistry's per-concern provider selection for the LLM
// side. Its dimension drives buildVectorStore so the store and embedder
// agree on vector size.
func buildEmbedder(cfg config.Config, log *slog.Logger) embedding.Provider {
	switch cfg.EmbeddingProvider {
	case "openai":
		return embeddingopenai.New(embeddingopenai.Config{APIKey: cfg.OpenAIAPIKey})
	default:
		log.Info("NEXIS_EMBEDDING_PROVIDER not set to openai, using the deterministic mock embedder")
		return embeddingmock.New(mockEmbeddingDimension)
	}
}

func buildVectorStore(cfg config.Config, dimension int) vectorstore.Store {
	if cfg.QdrantURL != "" {
		return qdrantlike.New(qdrantlike.Config{BaseURL: cfg.QdrantURL, Collection: "nexis-messages", Dimension: dimension})
	}
	return memory.New(dimension)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("config load failed", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogFormat)

	state := gateway.NewState(cfg.AdmissionCapacity)
	connections := gateway.NewConnectionRegistry(cfg.ConnectionCapacity)

	embedder := buildEmbedder(cfg, log)
	store := buildVectorStore(cfg, embedder.Dimension())
	searchSvc := search.New(store, embedder)

	indexCfg := indexing.Config{Embedder: embedder, Store: store}
	indexSvc := indexing.New(context.Background(), indexCfg)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = indexSvc.Close(ctx)
	}()

	contexts := contextwindow.NewManager(contextwindow.DefaultWindow())
	registry := buildRegistry(cfg, log)

	meter := noop.NewMeterProvider().Meter("nexis-gateway")
	instruments, err := metrics.New(meter)
	if err != nil {
		log.Error("metrics setup failed", "error", err)
		os.Exit(1)
	}

	var aiTurn *gateway.AITurn
	if registry != nil {
		aiTurn = gateway.NewAITurn(state, connections, contexts, registry, cfg.AIMember, log).WithMetrics(instruments)
	}

	server := gateway.NewServer(state, connections, searchSvc, indexSvc, aiTurn, instruments)
	if tracerShutdown := setupTracing(log); tracerShutdown != nil {
		defer tracerShutdown(context.Background())
		enabled := telemetry.DefaultSettings().WithEnabled(true)
		server = server.WithTelemetry(enabled)
		if aiTurn != nil {
			aiTurn.WithTelemetry(enabled)
		}
	}

	jwtCfg := auth.NewConfig(os.Getenv("NEXIS_JWT_SECRET"), "nexis", "nexis-clients")
	handler := withAuthInfoRoute(server.Routes(), jwtCfg)

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: handler,
	}

	go func() {
		log.Info("nexis-gateway listening", "addr", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// setupTracing registers a real sdktrace.TracerProvider as the global
// tracer when NEXIS_OTEL_ENABLED is set, returning its Shutdown func, or
// nil if tracing stays on pkg/telemetry's default no-op posture.
func setupTracing(log *slog.Logger) func(context.Context) error {
	if os.Getenv("NEXIS_OTEL_ENABLED") == "" {
		return nil
	}
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	log.Info("tracing enabled", "tracer", telemetry.TracerName)
	return tp.Shutdown
}

// withAuthInfoRoute adds the optional /v1/whoami introspection route
// alongside the Gateway Core's routes, per §4.9.1.
func withAuthInfoRoute(next http.Handler, jwtCfg auth.Config) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/v1/whoami", auth.WhoAmI(jwtCfg))
	mux.Handle("/", next)
	return mux
}
