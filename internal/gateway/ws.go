package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
)

// outboundCapacity is the per-connection bounded outbound channel size.
const outboundCapacity = 256

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	connID, err := s.connections.TryAddConnection("")
	if err != nil {
		// Pool saturation maps to a graceful close: accept then
		// immediately close with the try-again-later code (1013)
		// rather than leaving the client hanging on the upgrade.
		conn, acceptErr := websocket.Accept(w, r, nil)
		if acceptErr == nil {
			conn.Close(websocket.StatusTryAgainLater, "connection pool saturated")
		} else {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		}
		return
	}

	// Subscribed before the handshake completes, so a message sent the
	// instant a peer finishes connecting is never missed.
	broadcasts := s.connections.Subscribe(connID)
	defer s.connections.Unsubscribe(connID)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.connections.RemoveConnection(connID)
		return
	}
	if s.metrics != nil {
		s.metrics.ConnectionsActive.Add(r.Context(), 1)
		s.metrics.ConnectionsTotal.Add(r.Context(), 1)
	}

	defer func() {
		s.connections.RemoveConnection(connID)
		if s.metrics != nil {
			s.metrics.ConnectionsActive.Add(r.Context(), -1)
		}
	}()

	outbound := make(chan string, outboundCapacity)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	done := make(chan struct{})
	go s.writeLoop(ctx, conn, outbound, done)
	go forwardBroadcasts(ctx, broadcasts, outbound)
	s.readLoop(ctx, conn, outbound)

	cancel()
	<-done
}

// readLoop consumes incoming frames until a close frame, a stream error,
// or a failed dispatch onto outbound. Binary frames are ignored; text
// frames are echoed/dispatched onto outbound for the writer to drain.
// outbound is shared with forwardBroadcasts, so it is never closed here;
// both producers instead stop on ctx cancellation.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, outbound chan<- string) {
	for {
		kind, data, err := conn.Read(ctx)
		if err != nil {
			var closeErr websocket.CloseError
			if errors.As(err, &closeErr) {
				conn.Close(websocket.StatusNormalClosure, "")
			}
			return
		}
		if kind != websocket.MessageText {
			continue
		}

		select {
		case outbound <- string(data):
		case <-ctx.Done():
			return
		default:
			slog.Default().Warn("ws: outbound channel full, terminating connection")
			return
		}
	}
}

// forwardBroadcasts relays the connection's ConnectionRegistry.Broadcast
// fan-out subscription onto its outbound channel, per §4.7's "fans out to
// WebSocket subscribers" contract. A full outbound buffer drops the
// broadcast rather than blocking, matching Broadcast's own lossy-on-
// overflow behavior.
func forwardBroadcasts(ctx context.Context, broadcasts <-chan string, outbound chan<- string) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-broadcasts:
			if !ok {
				return
			}
			select {
			case outbound <- msg:
			case <-ctx.Done():
				return
			default:
			}
		}
	}
}

// writeLoop drains outbound into the socket until ctx is cancelled.
func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, outbound <-chan string, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-outbound:
			if err := conn.Write(ctx, websocket.MessageText, []byte(msg)); err != nil {
				return
			}
			if s.metrics != nil {
				s.metrics.MessagesSent.Add(ctx, 1)
			}
		}
	}
}
