package contextwindow

import (
	"strings"
	"testing"
)

func TestCreateAndGetContext(t *testing.T) {
	m := NewManager(DefaultWindow())
	id := m.CreateContext(nil)
	ctx, err := m.GetContext(id)
	if err != nil {
		t.Fatalf("get context: %v", err)
	}
	if len(ctx.Messages) != 0 {
		t.Fatalf("expected empty context, got %d messages", len(ctx.Messages))
	}
}

func TestGetContextNotFound(t *testing.T) {
	m := NewManager(DefaultWindow())
	if _, err := m.GetContext("missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddMessageAppendsAndSetsTokenCount(t *testing.T) {
	m := NewManager(DefaultWindow())
	id := m.CreateContext(nil)
	if err := m.AddMessage(id, NewMessage(RoleUser, "Hello")); err != nil {
		t.Fatalf("add message: %v", err)
	}
	ctx, err := m.GetContext(id)
	if err != nil {
		t.Fatalf("get context: %v", err)
	}
	if len(ctx.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(ctx.Messages))
	}
	if ctx.Messages[0].TokenCount != EstimateTokens("Hello") {
		t.Fatalf("expected token count %d, got %d", EstimateTokens("Hello"), ctx.Messages[0].TokenCount)
	}
}

func TestWindowOverflowTruncatesOldest(t *testing.T) {
	window := NewWindow(50)
	m := NewManager(window)
	id := m.CreateContext(nil)

	for i := 0; i < 10; i++ {
		msg := NewMessage(RoleUser, strings.Repeat("x", 20))
		if err := m.AddMessage(id, msg); err != nil {
			t.Fatalf("add message %d: %v", i, err)
		}
	}

	ctx, err := m.GetContext(id)
	if err != nil {
		t.Fatalf("get context: %v", err)
	}
	if len(ctx.Messages) >= 10 {
		t.Fatalf("expected truncation to have dropped some messages, got %d", len(ctx.Messages))
	}
}

// Spec property: a 50-token window retains fewer than 10 messages once
// 10 are appended.
func TestFiftyTokenWindowRetainsFewerThanTenMessages(t *testing.T) {
	window := Window{MaxTokens: 50, ReservedTokens: 0, OverflowStrategy: TruncateOldest}
	m := NewManager(window)
	id := m.CreateContext(nil)

	for i := 0; i < 10; i++ {
		msg := NewMessage(RoleUser, "this message has enough characters to cost several tokens")
		if err := m.AddMessage(id, msg); err != nil {
			t.Fatalf("add message %d: %v", i, err)
		}
	}

	ctx, err := m.GetContext(id)
	if err != nil {
		t.Fatalf("get context: %v", err)
	}
	if len(ctx.Messages) >= 10 {
		t.Fatalf("expected fewer than 10 retained messages, got %d", len(ctx.Messages))
	}
}

func TestFailStrategyReturnsWindowFull(t *testing.T) {
	window := Window{MaxTokens: 10, ReservedTokens: 0, OverflowStrategy: Fail}
	m := NewManager(window)
	id := m.CreateContext(nil)

	if err := m.AddMessage(id, NewMessage(RoleUser, "short")); err != nil {
		t.Fatalf("first add message: %v", err)
	}
	err := m.AddMessage(id, NewMessage(RoleUser, strings.Repeat("x", 200)))
	if err != ErrWindowFull {
		t.Fatalf("expected ErrWindowFull, got %v", err)
	}
}

func TestDeleteContext(t *testing.T) {
	m := NewManager(DefaultWindow())
	id := m.CreateContext(nil)
	if err := m.DeleteContext(id); err != nil {
		t.Fatalf("delete context: %v", err)
	}
	if _, err := m.GetContext(id); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := m.DeleteContext(id); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestEstimateTokensFloorsAtOne(t *testing.T) {
	if EstimateTokens("") != 1 {
		t.Fatalf("expected floor of 1 token for empty string, got %d", EstimateTokens(""))
	}
	if EstimateTokens("abc") != 1 {
		t.Fatalf("expected 1 token for short string, got %d", EstimateTokens("abc"))
	}
	if EstimateTokens(strings.Repeat("x", 40)) != 10 {
		t.Fatalf("expected 10 tokens for 40 chars, got %d", EstimateTokens(strings.Repeat("x", 40)))
	}
}
