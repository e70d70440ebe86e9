package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nexischat/nexis/internal/indexing"
	"github.com/nexischat/nexis/internal/metrics"
	"github.com/nexischat/nexis/internal/search"
	"github.com/nexischat/nexis/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Server is the Gateway Core's HTTP/WebSocket surface: §6's route table
// wired against a State, a ConnectionRegistry, and the optional search,
// indexing, and AI-turn collaborators.
type Server struct {
	state             *State
	connections       *ConnectionRegistry
	search            *search.Service
	indexing          *indexing.Service
	aiTurn            *AITurn
	metrics           *metrics.Instruments
	telemetrySettings *telemetry.Settings
}

// NewServer builds a Server. search, indexSvc, and aiTurn may all be
// nil, in which case /v1/search responds 503, sent messages are not
// indexed, and no message triggers an AI turn. Tracing is disabled by
// default; call WithTelemetry to enable it.
func NewServer(state *State, connections *ConnectionRegistry, searchSvc *search.Service, indexSvc *indexing.Service, aiTurn *AITurn, inst *metrics.Instruments) *Server {
	return &Server{
		state:             state,
		connections:       connections,
		search:            searchSvc,
		indexing:          indexSvc,
		aiTurn:            aiTurn,
		metrics:           inst,
		telemetrySettings: telemetry.DefaultSettings(),
	}
}

// WithTelemetry returns s with tracing settings replaced by settings.
func (s *Server) WithTelemetry(settings *telemetry.Settings) *Server {
	s.telemetrySettings = settings
	return s
}

// Routes returns the configured mux for the Gateway Core's HTTP surface.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("POST /v1/rooms", s.handleCreateRoom)
	mux.HandleFunc("POST /v1/messages", s.handleSendMessage)
	mux.HandleFunc("GET /v1/rooms/{id}", s.handleGetRoom)
	mux.HandleFunc("POST /v1/rooms/{id}/invite", s.handleInvite)
	mux.HandleFunc("POST /v1/search", s.handleSearch)
	return s.trace(s.instrument(mux))
}

func (s *Server) instrument(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, time.Since(start).Seconds())
	})
}

// trace wraps next so every request runs inside a telemetry.GetTracer
// span named after the request method and path.
// Telemetry defaults to disabled (a no-op tracer), matching the ambient
// stack's settings-gated posture.
func (s *Server) trace(next http.Handler) http.Handler {
	tracer := telemetry.GetTracer(s.telemetrySettings)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "gateway."+r.Method+" "+r.URL.Path)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func writeError(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": reason})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type createRoomRequest struct {
	Name  string `json:"name"`
	Topic string `json:"topic,omitempty"`
}

type createRoomResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name must not be empty")
		return
	}

	room, err := s.state.CreateRoom(r.Context(), req.Name, req.Topic)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	if s.metrics != nil {
		s.metrics.RoomsActive.Add(r.Context(), 1)
	}
	writeJSON(w, http.StatusCreated, createRoomResponse{ID: room.ID, Name: room.Name})
}

type sendMessageRequest struct {
	RoomID  string `json:"roomId"`
	Sender  string `json:"sender"`
	Text    string `json:"text"`
	ReplyTo string `json:"replyTo,omitempty"`
}

type sendMessageResponse struct {
	ID string `json:"id"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if strings.TrimSpace(req.RoomID) == "" || strings.TrimSpace(req.Sender) == "" || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "roomId, sender, and text must not be empty")
		return
	}

	msg := StoredMessage{
		ID:        NewMessageID(),
		Sender:    req.Sender,
		Text:      req.Text,
		ReplyTo:   req.ReplyTo,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.state.AppendMessage(r.Context(), req.RoomID, msg); err != nil {
		switch {
		case errors.Is(err, ErrRoomNotFound):
			writeError(w, http.StatusNotFound, "room not found")
		case errors.Is(err, ErrServiceUnavailable):
			writeError(w, http.StatusServiceUnavailable, "service unavailable")
		default:
			writeError(w, http.StatusServiceUnavailable, "service unavailable")
		}
		return
	}
	writeJSON(w, http.StatusCreated, sendMessageResponse{ID: msg.ID})

	if s.metrics != nil {
		attrs := metric.WithAttributes(attribute.String("type", "text"))
		s.metrics.MessagesReceived.Add(r.Context(), 1)
		s.metrics.MessagesByType.Add(r.Context(), 1, attrs)
		s.metrics.MessageSize.Record(r.Context(), float64(len(msg.Text)))
		s.metrics.MessageLatency.Record(r.Context(), time.Since(start).Seconds())
	}

	if s.indexing != nil {
		if err := s.indexing.Enqueue(msg.ID, msg.Text, req.RoomID, nil); err != nil {
			slog.Default().Warn("indexing: enqueue failed", "room_id", req.RoomID, "message_id", msg.ID, "error", err)
		}
	}
	if s.aiTurn != nil {
		s.aiTurn.Handle(r.Context(), req.RoomID, msg)
	}
	if s.connections != nil {
		s.connections.Broadcast(msg.Text)
	}
}

type getRoomMessage struct {
	ID      string `json:"id"`
	Sender  string `json:"sender"`
	Text    string `json:"text"`
	ReplyTo string `json:"replyTo,omitempty"`
}

type getRoomResponse struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Topic    string           `json:"topic,omitempty"`
	Messages []getRoomMessage `json:"messages"`
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	room, msgs, err := s.state.GetRoom(roomID)
	if err != nil {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}

	out := make([]getRoomMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, getRoomMessage{ID: m.ID, Sender: m.Sender, Text: m.Text, ReplyTo: m.ReplyTo})
	}
	writeJSON(w, http.StatusOK, getRoomResponse{ID: room.ID, Name: room.Name, Topic: room.Topic, Messages: out})
}

type inviteRequest struct {
	MemberID string `json:"memberId"`
}

type inviteResponse struct {
	RoomID   string `json:"roomId"`
	MemberID string `json:"memberId"`
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if strings.TrimSpace(req.MemberID) == "" {
		writeError(w, http.StatusBadRequest, "memberId must not be empty")
		return
	}

	if err := s.state.InviteMember(r.Context(), roomID, req.MemberID); err != nil {
		switch {
		case errors.Is(err, ErrRoomNotFound):
			writeError(w, http.StatusNotFound, "room not found")
		default:
			writeError(w, http.StatusServiceUnavailable, "service unavailable")
		}
		return
	}
	writeJSON(w, http.StatusOK, inviteResponse{RoomID: roomID, MemberID: req.MemberID})
}

type searchRequest struct {
	Query    string   `json:"query"`
	Limit    *int     `json:"limit,omitempty"`
	MinScore *float32 `json:"min_score,omitempty"`
	RoomID   *string  `json:"room_id,omitempty"`
}

type searchResultWire struct {
	ID      string  `json:"id"`
	Score   float32 `json:"score"`
	Content *string `json:"content,omitempty"`
	RoomID  *string `json:"room_id,omitempty"`
}

type searchResponseWire struct {
	Query   string             `json:"query"`
	Results []searchResultWire `json:"results"`
	Total   int                `json:"total"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.search == nil {
		writeError(w, http.StatusServiceUnavailable, "search service not configured")
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	limit := 10
	if req.Limit != nil {
		limit = *req.Limit
	}

	resp, err := s.search.Search(r.Context(), search.Request{
		Query:    req.Query,
		Limit:    limit,
		MinScore: req.MinScore,
		RoomID:   req.RoomID,
	})
	if err != nil {
		if errors.Is(err, search.ErrInvalidQuery) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	results := make([]searchResultWire, 0, len(resp.Results))
	for _, item := range resp.Results {
		results = append(results, searchResultWire{ID: item.ID, Score: item.Score, Content: item.Content, RoomID: item.RoomID})
	}
	writeJSON(w, http.StatusOK, searchResponseWire{Query: resp.Query, Results: results, Total: resp.Total})
}
