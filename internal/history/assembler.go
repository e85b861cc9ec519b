package history

import (
	"context"
	"log"

	"github.com/json2x/chatapp-v2-api/internal/llm"
	"github.com/json2x/chatapp-v2-api/internal/store"
)

// summaryPrefix heads the synthetic system entry holding the condensed
// older history.
const summaryPrefix = "Summary of previous conversation: \n"

// Summarizer condenses older history into one synopsis string.
type Summarizer interface {
	Summarize(ctx context.Context, messages []llm.Message) (string, error)
}

// Assembler builds the ordered message list sent to a generation
// backend from a conversation's stored messages. It holds no state of
// its own; every call reads the store's current snapshot.
type Assembler struct {
	Store      store.Store
	Summarizer Summarizer
	Threshold  int
}

// BuildHistory loads the conversation and projects its messages into
// role/content pairs in canonical order. Messages with unrecognized
// roles are dropped. When the projected list exceeds the threshold and
// summarize is set, all but the last Threshold entries are condensed
// into one leading system entry; if that condensation fails the recent
// entries are returned alone — summarization failure never aborts a
// turn.
func (a *Assembler) BuildHistory(ctx context.Context, conversationID string, summarize bool) ([]llm.Message, error) {
	conv, err := a.Store.GetConversation(ctx, conversationID, true)
	if err != nil {
		return nil, err
	}

	messages := make([]llm.Message, 0, len(conv.Messages)+1)
	hasSystem := false
	for _, m := range conv.Messages {
		switch m.Role {
		case "user", "assistant", "system":
		default:
			continue
		}
		if m.Role == "system" {
			hasSystem = true
		}
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}

	if conv.SystemPrompt != nil && !hasSystem {
		messages = append([]llm.Message{{Role: "system", Content: *conv.SystemPrompt}}, messages...)
	}

	if !summarize || len(messages) <= a.Threshold {
		return messages, nil
	}

	older := messages[:len(messages)-a.Threshold]
	recent := messages[len(messages)-a.Threshold:]

	// Only plain user/assistant exchanges feed the summarizer.
	condensable := make([]llm.Message, 0, len(older))
	for _, m := range older {
		if m.Role == "system" {
			continue
		}
		condensable = append(condensable, m)
	}
	if len(condensable) == 0 {
		return messages, nil
	}

	summaryText, err := a.Summarizer.Summarize(ctx, condensable)
	if err != nil {
		log.Printf("[history] summarization failed for conversation %s: %v", conversationID, err)
		return recent, nil
	}

	assembled := make([]llm.Message, 0, len(recent)+1)
	assembled = append(assembled, llm.Message{Role: "system", Content: summaryPrefix + summaryText})
	assembled = append(assembled, recent...)
	return assembled, nil
}
