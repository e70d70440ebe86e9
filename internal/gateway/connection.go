package gateway

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrPoolSaturated is returned by TryAddConnection when the connection
// semaphore has no spare capacity.
var ErrPoolSaturated = errors.New("gateway: connection pool saturated")

// DefaultConnectionCapacity is the default maximum concurrent WebSocket
// connections.
const DefaultConnectionCapacity = 10000

// Connection describes one registered WebSocket peer.
type Connection struct {
	ID          string
	MemberID    string
	RoomID      string
	ConnectedAt time.Time
}

// ConnectionRegistry is the process-wide connection-id -> Connection
// map, gated by a counting semaphore, plus a broadcast hub for global
// announcements.
type ConnectionRegistry struct {
	mu          sync.RWMutex
	connections map[string]Connection
	capacity    *semaphore.Weighted

	broadcastMu   sync.Mutex
	broadcastSubs map[string]chan string
}

// NewConnectionRegistry builds an empty registry with the given
// capacity (0 selects DefaultConnectionCapacity).
func NewConnectionRegistry(capacity int64) *ConnectionRegistry {
	if capacity <= 0 {
		capacity = DefaultConnectionCapacity
	}
	return &ConnectionRegistry{
		connections:   make(map[string]Connection),
		capacity:      semaphore.NewWeighted(capacity),
		broadcastSubs: make(map[string]chan string),
	}
}

// TryAddConnection registers a new connection for memberID, returning
// its id, or ErrPoolSaturated if the capacity semaphore is exhausted.
func (r *ConnectionRegistry) TryAddConnection(memberID string) (string, error) {
	if !r.capacity.TryAcquire(1) {
		return "", ErrPoolSaturated
	}
	conn := Connection{ID: NewConnectionID(), MemberID: memberID, ConnectedAt: time.Now().UTC()}

	r.mu.Lock()
	r.connections[conn.ID] = conn
	r.mu.Unlock()
	return conn.ID, nil
}

// RemoveConnection unregisters id and releases its capacity permit,
// unless id was already removed (or never existed), guarding against a
// double release of the same permit.
func (r *ConnectionRegistry) RemoveConnection(id string) {
	r.mu.Lock()
	_, existed := r.connections[id]
	delete(r.connections, id)
	r.mu.Unlock()

	if existed {
		r.capacity.Release(1)
	}
}

// Count returns the number of currently registered connections, for the
// nexis_connections_active gauge.
func (r *ConnectionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// Subscribe registers a channel that receives every Broadcast message
// until Unsubscribe is called. The returned channel has a small buffer;
// slow subscribers drop messages rather than blocking the broadcaster.
func (r *ConnectionRegistry) Subscribe(connectionID string) <-chan string {
	ch := make(chan string, 32)
	r.broadcastMu.Lock()
	r.broadcastSubs[connectionID] = ch
	r.broadcastMu.Unlock()
	return ch
}

// Unsubscribe removes and closes connectionID's broadcast channel.
func (r *ConnectionRegistry) Unsubscribe(connectionID string) {
	r.broadcastMu.Lock()
	ch, ok := r.broadcastSubs[connectionID]
	delete(r.broadcastSubs, connectionID)
	r.broadcastMu.Unlock()
	if ok {
		close(ch)
	}
}

// Broadcast sends message to every subscriber without blocking; a
// subscriber whose buffer is full misses the message.
func (r *ConnectionRegistry) Broadcast(message string) {
	r.broadcastMu.Lock()
	defer r.broadcastMu.Unlock()
	for _, ch := range r.broadcastSubs {
		select {
		case ch <- message:
		default:
		}
	}
}
