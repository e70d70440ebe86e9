package contextwindow

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by GetContext/AddMessage/DeleteContext for an
// unknown context id.
var ErrNotFound = errors.New("contextwindow: context not found")

// ErrWindowFull is returned by AddMessage when the window's strategy is
// Fail and appending would exceed the available token budget.
var ErrWindowFull = errors.New("contextwindow: window is full")

// Manager holds conversation contexts under a single token-budget
// window, guarded by a RWMutex.
type Manager struct {
	mu       sync.RWMutex
	contexts map[string]*ConversationContext
	window   Window
}

// NewManager builds a Manager enforcing window across every context it
// creates.
func NewManager(window Window) *Manager {
	return &Manager{contexts: make(map[string]*ConversationContext), window: window}
}

// CreateContext creates an empty ConversationContext, optionally scoped
// to roomID, and returns its id.
func (m *Manager) CreateContext(roomID *string) string {
	now := time.Now().UTC()
	ctx := &ConversationContext{
		ID:        uuid.New().String(),
		RoomID:    roomID,
		Metadata:  map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.mu.Lock()
	m.contexts[ctx.ID] = ctx
	m.mu.Unlock()
	return ctx.ID
}

// GetContext returns a copy of the context with the given id.
func (m *Manager) GetContext(id string) (*ConversationContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ctx, ok := m.contexts[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *ctx
	clone.Messages = append([]Message(nil), ctx.Messages...)
	return &clone, nil
}

// AddMessage token-checks message against the window's available
// budget before appending it to the context named by id.
func (m *Manager) AddMessage(id string, message Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, ok := m.contexts[id]
	if !ok {
		return ErrNotFound
	}

	estimated := EstimateTokens(message.Content)
	newTotal := ctx.TotalTokens() + estimated
	available := m.window.AvailableTokens()

	if newTotal > available {
		switch m.window.OverflowStrategy {
		case Fail:
			return ErrWindowFull
		case TruncateOldest, Summarize:
			truncateOldest(ctx, newTotal-available)
		}
	}

	message.TokenCount = estimated
	ctx.Messages = append(ctx.Messages, message)
	ctx.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteContext removes the context named by id.
func (m *Manager) DeleteContext(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contexts[id]; !ok {
		return ErrNotFound
	}
	delete(m.contexts, id)
	return nil
}

// truncateOldest drops the oldest messages from ctx until at least
// tokensToFree tokens have been freed, or only one message remains.
func truncateOldest(ctx *ConversationContext, tokensToFree int) {
	freed := 0
	for freed < tokensToFree && len(ctx.Messages) > 1 {
		freed += ctx.Messages[0].TokenCount
		ctx.Messages = ctx.Messages[1:]
	}
}
