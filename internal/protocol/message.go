package protocol

import (
	"encoding/json"
	"errors"
	"time"
)

// ContentKind discriminates the MessageContent tagged union.
type ContentKind string

const (
	ContentText ContentKind = "text"
	ContentCode ContentKind = "code"
	ContentTool ContentKind = "tool"
)

// MessageContent is a tagged union over the three message payload shapes a
// Message may carry. Exactly one of the typed accessors is meaningful,
// selected by Kind.
type MessageContent struct {
	Kind ContentKind

	// Text, for ContentText.
	Text string

	// Code / Language, for ContentCode. Language is optional.
	Code     string
	Language string

	// ToolName / Input, for ContentTool.
	ToolName string
	Input    json.RawMessage
}

// NewTextContent builds a Text variant.
func NewTextContent(text string) MessageContent {
	return MessageContent{Kind: ContentText, Text: text}
}

// NewCodeContent builds a Code variant. language may be empty.
func NewCodeContent(code, language string) MessageContent {
	return MessageContent{Kind: ContentCode, Code: code, Language: language}
}

// NewToolContent builds a Tool variant.
func NewToolContent(toolName string, input json.RawMessage) MessageContent {
	return MessageContent{Kind: ContentTool, ToolName: toolName, Input: input}
}

type wireContent struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	Code     string          `json:"code,omitempty"`
	Language string          `json:"language,omitempty"`
	ToolName string          `json:"toolName,omitempty"`
	Input    json.RawMessage `json:"input,omitempty"`
}

// MarshalJSON renders the tagged union as {"type": "...", ...fields}.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	w := wireContent{Type: string(c.Kind)}
	switch c.Kind {
	case ContentText:
		w.Text = c.Text
	case ContentCode:
		w.Code = c.Code
		w.Language = c.Language
	case ContentTool:
		w.ToolName = c.ToolName
		w.Input = c.Input
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the tagged union back from its wire form.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var w wireContent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch ContentKind(w.Type) {
	case ContentText:
		*c = NewTextContent(w.Text)
	case ContentCode:
		*c = NewCodeContent(w.Code, w.Language)
	case ContentTool:
		*c = NewToolContent(w.ToolName, w.Input)
	default:
		return errors.New("message content: unknown type " + w.Type)
	}
	return nil
}

// Message is the envelope exchanged within a room.
type Message struct {
	ID        string          `json:"id"`
	RoomID    string          `json:"roomId"`
	Sender    MemberId        `json:"sender"`
	Content   MessageContent  `json:"content"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	ReplyTo   *string         `json:"replyTo,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

// Validate checks the invariants Message must hold after construction:
// a non-empty id and room id. All other fields are schema-validated at
// deserialization time by encoding/json and MessageContent.UnmarshalJSON.
func (m Message) Validate() error {
	if m.ID == "" {
		return errors.New("message: id must not be empty")
	}
	if m.RoomID == "" {
		return errors.New("message: roomId must not be empty")
	}
	return nil
}

// NewMessage constructs a Message with CreatedAt set to now and UpdatedAt
// unset, matching the construction invariant in the data model.
func NewMessage(id, roomID string, sender MemberId, content MessageContent) Message {
	return Message{
		ID:        id,
		RoomID:    roomID,
		Sender:    sender,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// WithReplyTo returns a copy of m with ReplyTo set.
func (m Message) WithReplyTo(replyTo string) Message {
	m.ReplyTo = &replyTo
	return m
}

// Touch sets UpdatedAt to now, marking the message body as mutated.
func (m Message) Touch() Message {
	now := time.Now().UTC()
	m.UpdatedAt = &now
	return m
}
