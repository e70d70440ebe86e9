package gateway

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nexischat/nexis/internal/contextwindow"
	"github.com/nexischat/nexis/internal/llm"
	"github.com/nexischat/nexis/internal/metrics"
	"github.com/nexischat/nexis/internal/protocol"
	"github.com/nexischat/nexis/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// turnTimeout bounds how long a single background AI turn may run.
const turnTimeout = 30 * time.Second

// AITurn implements the AI-addressed-turn contract: when an incoming
// message addresses the configured AI member (by @mention of its
// identifier, or because the AI member has been invited to the room), the
// room's recent context is handed to the default provider and its reply
// is appended as a new message from the AI member.
type AITurn struct {
	state             *State
	connections       *ConnectionRegistry
	contexts          *contextwindow.Manager
	registry          *llm.Registry
	aiMemberID        string
	log               *slog.Logger
	telemetrySettings *telemetry.Settings
	metrics           *metrics.Instruments
	roomContexts      sync.Map // room id -> context id
}

// NewAITurn builds an AITurn. aiMemberID is the full wire form, e.g.
// "nexis:agent:assistant". connections may be nil, in which case the
// AI member's reply is persisted but never fanned out over WebSocket.
// Tracing is disabled by default; call WithTelemetry to enable it.
func NewAITurn(state *State, connections *ConnectionRegistry, contexts *contextwindow.Manager, registry *llm.Registry, aiMemberID string, log *slog.Logger) *AITurn {
	if log == nil {
		log = slog.Default()
	}
	return &AITurn{state: state, connections: connections, contexts: contexts, registry: registry, aiMemberID: aiMemberID, log: log, telemetrySettings: telemetry.DefaultSettings()}
}

// WithTelemetry returns a with tracing settings replaced by settings,
// matching Server.WithTelemetry so a process can share one tracer
// configuration across both collaborators.
func (a *AITurn) WithTelemetry(settings *telemetry.Settings) *AITurn {
	a.telemetrySettings = settings
	return a
}

// WithMetrics returns a with inst wired in to record AI-turn request,
// error, and latency instruments. Metrics recording is a no-op until
// this is called.
func (a *AITurn) WithMetrics(inst *metrics.Instruments) *AITurn {
	a.metrics = inst
	return a
}

// addressesAI reports whether msg should trigger an AI turn: either the
// text @mentions the AI member's identifier, or the AI member is among
// the room's members. Messages sent by the AI member never trigger one.
func (a *AITurn) addressesAI(roomID string, msg StoredMessage) bool {
	if msg.Sender == a.aiMemberID {
		return false
	}

	aiID, err := protocol.ParseMemberId(a.aiMemberID)
	if err == nil && strings.Contains(msg.Text, "@"+aiID.Identifier()) {
		return true
	}

	members := a.state.RoomMembers(roomID)
	for _, m := range members {
		if m == a.aiMemberID {
			return true
		}
	}
	return false
}

// Handle runs, in the background, the AI turn for msg if it addresses
// the configured AI member. Errors are logged, never surfaced to the
// HTTP caller that triggered them: the send-message response has
// already been written by the time Handle runs. The turn runs under a
// context detached from the triggering request — ctx is cancelled the
// moment the HTTP handler returns, so the goroutine must not inherit it
// directly or the provider call would be cancelled before it starts.
func (a *AITurn) Handle(ctx context.Context, roomID string, msg StoredMessage) {
	if a.registry == nil || a.contexts == nil {
		return
	}
	if !a.addressesAI(roomID, msg) {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), turnTimeout)
		defer cancel()

		provider, ok := a.registry.Default()
		if !ok {
			a.log.Warn("ai turn: no default provider registered", "room_id", roomID)
			return
		}

		contextID := roomID
		if id, ok := a.roomContexts.Load(roomID); ok {
			contextID = id.(string)
		}
		if _, err := a.contexts.GetContext(contextID); err != nil {
			contextID = a.contexts.CreateContext(&roomID)
			a.roomContexts.Store(roomID, contextID)
		}
		_ = a.contexts.AddMessage(contextID, contextwindow.NewMessage(contextwindow.RoleUser, msg.Text))

		convo, err := a.contexts.GetContext(contextID)
		if err != nil {
			a.log.Error("ai turn: context lookup failed", "room_id", roomID, "error", err)
			return
		}

		var prompt strings.Builder
		for _, m := range convo.Messages {
			prompt.WriteString(string(m.Role))
			prompt.WriteString(": ")
			prompt.WriteString(m.Content)
			prompt.WriteString("\n")
		}

		aiStart := time.Now()
		providerAttrs := metric.WithAttributes(attribute.String("provider", provider.Name()))
		if a.metrics != nil {
			a.metrics.AIRequestsTotal.Add(ctx, 1, providerAttrs)
		}

		tracer := telemetry.GetTracer(a.telemetrySettings)
		attrs := telemetry.GetBaseAttributes(provider.Name(), "", a.telemetrySettings, nil)
		resp, err := telemetry.RecordSpan(ctx, tracer, telemetry.SpanOptions{
			Name:        "gateway.ai_turn.generate",
			Attributes:  attrs,
			EndWhenDone: true,
		}, func(ctx context.Context, span trace.Span) (*llm.GenerateResponse, error) {
			fields := map[string]interface{}{"room_id": roomID}
			if a.telemetrySettings != nil && a.telemetrySettings.RecordInputs {
				fields["prompt"] = prompt.String()
			}
			resp, err := provider.Generate(ctx, llm.GenerateRequest{Prompt: prompt.String()})
			if err == nil {
				fields["finish_reason"] = resp.FinishReason
				if a.telemetrySettings != nil && a.telemetrySettings.RecordOutputs {
					fields["response"] = resp.Content
				}
			}
			telemetry.AddSettingsAttributes(span, "gateway.ai_turn", fields)
			return resp, err
		})
		if a.metrics != nil {
			a.metrics.AILatency.Record(ctx, time.Since(aiStart).Seconds(), providerAttrs)
		}
		if err != nil {
			if a.metrics != nil {
				errType := "unknown"
				var provErr *llm.ProviderError
				if errors.As(err, &provErr) {
					errType = string(provErr.Kind)
				}
				a.metrics.AIErrorsTotal.Add(ctx, 1, metric.WithAttributes(
					attribute.String("provider", provider.Name()),
					attribute.String("error_type", errType),
				))
			}
			a.log.Error("ai turn: generate failed", "room_id", roomID, "provider", provider.Name(), "error", err)
			return
		}
		if a.metrics != nil {
			promptTokens := contextwindow.EstimateTokens(prompt.String())
			completionTokens := contextwindow.EstimateTokens(resp.Content)
			a.metrics.AITokensTotal.Add(ctx, int64(promptTokens), metric.WithAttributes(
				attribute.String("provider", provider.Name()), attribute.String("type", "prompt"),
			))
			a.metrics.AITokensTotal.Add(ctx, int64(completionTokens), metric.WithAttributes(
				attribute.String("provider", provider.Name()), attribute.String("type", "completion"),
			))
		}

		reply := StoredMessage{
			ID:        NewMessageID(),
			Sender:    a.aiMemberID,
			Text:      resp.Content,
			ReplyTo:   msg.ID,
			CreatedAt: msg.CreatedAt,
		}
		if err := a.state.AppendMessage(ctx, roomID, reply); err != nil {
			a.log.Error("ai turn: append reply failed", "room_id", roomID, "error", err)
			return
		}
		_ = a.contexts.AddMessage(contextID, contextwindow.NewMessage(contextwindow.RoleAssistant, resp.Content))
		if a.connections != nil {
			a.connections.Broadcast(reply.Text)
		}
	}()
}
