// Package contextwindow implements the Context Manager: bounded
// conversation histories with token-budget overflow handling.
package contextwindow

import (
	"time"

	"github.com/google/uuid"
)

// Role is the speaker of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn in a ConversationContext.
type Message struct {
	ID         string
	Role       Role
	Content    string
	CreatedAt  time.Time
	TokenCount int
}

// NewMessage builds a Message with a fresh id and CreatedAt set to now;
// TokenCount is filled in by Manager.AddMessage.
func NewMessage(role Role, content string) Message {
	return Message{ID: uuid.New().String(), Role: role, Content: content, CreatedAt: time.Now().UTC()}
}

// ConversationContext is a bounded, ordered message history.
type ConversationContext struct {
	ID        string
	RoomID    *string
	Messages  []Message
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TotalTokens sums the TokenCount of every message currently retained.
func (c *ConversationContext) TotalTokens() int {
	total := 0
	for _, m := range c.Messages {
		total += m.TokenCount
	}
	return total
}

// OverflowStrategy governs what happens when appending a message would
// exceed the window's available token budget.
type OverflowStrategy int

const (
	// TruncateOldest drops oldest messages until enough tokens are
	// freed, or only one message remains.
	TruncateOldest OverflowStrategy = iota
	// Summarize is reserved for future summarization; it currently
	// behaves identically to TruncateOldest.
	Summarize
	// Fail rejects the append with ErrWindowFull.
	Fail
)

// Window configures the token budget for a Manager.
type Window struct {
	MaxTokens        int
	ReservedTokens   int
	OverflowStrategy OverflowStrategy
}

// DefaultWindow mirrors the reference implementation's defaults: a
// 4096-token window with 256 tokens reserved, truncating oldest on
// overflow.
func DefaultWindow() Window {
	return Window{MaxTokens: 4096, ReservedTokens: 256, OverflowStrategy: TruncateOldest}
}

// NewWindow builds a Window of maxTokens with the default reservation
// and overflow strategy.
func NewWindow(maxTokens int) Window {
	w := DefaultWindow()
	w.MaxTokens = maxTokens
	return w
}

// AvailableTokens is MaxTokens minus ReservedTokens, floored at zero.
func (w Window) AvailableTokens() int {
	if w.ReservedTokens >= w.MaxTokens {
		return 0
	}
	return w.MaxTokens - w.ReservedTokens
}

// EstimateTokens approximates token count at about 4 characters per
// token, with a floor of 1 (an empty string also counts as 1).
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}
