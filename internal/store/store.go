package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a referenced conversation does not exist.
var ErrNotFound = errors.New("conversation not found")

// previewMaxChars is the stored length of the first_user_message and
// first_assistant_message columns.
const previewMaxChars = 100

// Conversation is a persisted conversation with optional messages attached.
type Conversation struct {
	ID                    string         `json:"id"`
	Title                 string         `json:"title"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	UserID                *string        `json:"user_id,omitempty"`
	Model                 string         `json:"model"`
	SystemPrompt          *string        `json:"system_prompt,omitempty"`
	FirstUserMessage      *string        `json:"first_user_message,omitempty"`
	FirstAssistantMessage *string        `json:"first_assistant_message,omitempty"`
	Metadata              map[string]any `json:"metadata,omitempty"`
	Messages              []Message      `json:"messages,omitempty"`
	MessageCount          int            `json:"message_count"`
}

// Message is a single persisted chat message. Messages are immutable once
// appended and ordered by CreatedAt ascending within a conversation.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Role           string         `json:"role"`
	Content        string         `json:"content"`
	CreatedAt      time.Time      `json:"created_at"`
	Tokens         *int           `json:"tokens,omitempty"`
	Model          *string        `json:"model,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// NewConversation carries the caller-supplied fields of a conversation.
type NewConversation struct {
	Title        string
	Model        string
	UserID       *string
	SystemPrompt *string
	Metadata     map[string]any
}

// NewMessage carries the caller-supplied fields of a message. Any role
// string may be stored; role filtering happens at history assembly.
type NewMessage struct {
	Role     string
	Content  string
	Tokens   *int
	Model    *string
	Metadata map[string]any
}

// Store is the persistence contract shared by all storage backends.
//
// AppendMessage must insert the message, advance the conversation's
// updated_at, and set the first-message preview column for the message's
// role if still unset — all within one transaction.
type Store interface {
	CreateConversation(ctx context.Context, conv NewConversation) (string, error)
	AppendMessage(ctx context.Context, conversationID string, msg NewMessage) (string, error)
	GetConversation(ctx context.Context, conversationID string, includeMessages bool) (*Conversation, error)
	ListConversations(ctx context.Context, userID *string, limit, offset int) ([]Conversation, error)
	DeleteConversation(ctx context.Context, conversationID string) (bool, error)
	Close() error
}

// preview truncates content to the preview column width, verbatim.
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewMaxChars {
		return content
	}
	return string(runes[:previewMaxChars])
}

func encodeMetadata(m map[string]any) (*string, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	s := string(data)
	return &s, nil
}

func decodeMetadata(raw *string) (map[string]any, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(*raw), &m); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return m, nil
}
