package turn

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/json2x/chatapp-v2-api/internal/llm"
	"github.com/json2x/chatapp-v2-api/internal/store"
)

// titleMaxChars bounds the auto-generated title of an implicitly
// created conversation.
const titleMaxChars = 50

// Request carries one inbound chat turn.
type Request struct {
	Model            string
	Message          string
	ConversationID   string
	SystemPrompt     *string
	SummarizeHistory bool
	Title            *string
	UserID           *string
}

// Event is one element of the response stream. Exactly one terminal
// event with Done=true ends every stream; on failure it carries the
// error text.
type Event struct {
	Content        string `json:"content"`
	Done           bool   `json:"done"`
	ConversationID string `json:"conversation_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Backend resolves model names and opens completion streams. Satisfied
// by *llm.Service.
type Backend interface {
	Resolve(model string) (llm.Provider, error)
	StreamChat(ctx context.Context, model string, messages []llm.Message, opts llm.Options) (llm.Stream, error)
}

// HistoryBuilder assembles the prompt for a conversation.
type HistoryBuilder interface {
	BuildHistory(ctx context.Context, conversationID string, summarize bool) ([]llm.Message, error)
}

// Orchestrator drives one turn from request to persisted result:
// append user message, assemble history, stream the completion, persist
// the assistant reply. It holds no state across turns.
type Orchestrator struct {
	Store   store.Store
	Backend Backend
	History HistoryBuilder
}

// Run executes a turn. Failures before the backend stream opens are
// returned synchronously and leave no stream behind; once the stream is
// open, failures surface as the terminal event of the returned channel
// and the partial output is discarded.
func (o *Orchestrator) Run(ctx context.Context, req Request) (string, <-chan Event, error) {
	// Model resolution comes first so an invalid-model request never
	// creates a conversation or appends a message.
	if _, err := o.Backend.Resolve(req.Model); err != nil {
		return "", nil, err
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		id, err := o.Store.CreateConversation(ctx, store.NewConversation{
			Title:        conversationTitle(req),
			Model:        req.Model,
			UserID:       req.UserID,
			SystemPrompt: req.SystemPrompt,
		})
		if err != nil {
			return "", nil, fmt.Errorf("create conversation: %w", err)
		}
		conversationID = id
	}

	if _, err := o.Store.AppendMessage(ctx, conversationID, store.NewMessage{
		Role:    "user",
		Content: req.Message,
	}); err != nil {
		return "", nil, err
	}

	messages, err := o.History.BuildHistory(ctx, conversationID, req.SummarizeHistory)
	if err != nil {
		return "", nil, err
	}

	stream, err := o.Backend.StreamChat(ctx, req.Model, messages, llm.Options{})
	if err != nil {
		return "", nil, err
	}

	events := make(chan Event)
	go o.relay(ctx, stream, req.Model, conversationID, events)
	return conversationID, events, nil
}

// relay forwards deltas in arrival order, accumulates the full text,
// and persists it as one assistant message once the stream is
// exhausted. Partial output from a failed stream is discarded.
func (o *Orchestrator) relay(ctx context.Context, stream llm.Stream, model, conversationID string, events chan<- Event) {
	defer close(events)
	defer stream.Close()

	var full []byte
	for {
		delta, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			o.emit(ctx, events, Event{Done: true, ConversationID: conversationID, Error: err.Error()})
			return
		}
		full = append(full, delta...)
		if !o.emit(ctx, events, Event{Content: delta}) {
			// Caller is gone; abandon the turn without persisting.
			return
		}
	}

	if _, err := o.Store.AppendMessage(ctx, conversationID, store.NewMessage{
		Role:    "assistant",
		Content: string(full),
		Model:   &model,
	}); err != nil {
		log.Printf("[turn] failed to persist assistant message for conversation %s: %v", conversationID, err)
		o.emit(ctx, events, Event{Done: true, ConversationID: conversationID, Error: err.Error()})
		return
	}

	o.emit(ctx, events, Event{Done: true, ConversationID: conversationID})
}

func (o *Orchestrator) emit(ctx context.Context, events chan<- Event, e Event) bool {
	select {
	case events <- e:
		return true
	case <-ctx.Done():
		return false
	}
}

// conversationTitle returns the explicit title override or derives one
// from the first user message.
func conversationTitle(req Request) string {
	if req.Title != nil && *req.Title != "" {
		return *req.Title
	}
	runes := []rune(req.Message)
	if len(runes) > titleMaxChars {
		return string(runes[:titleMaxChars]) + "..."
	}
	return req.Message
}
