package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/json2x/chatapp-v2-api/internal/llm"
	"github.com/json2x/chatapp-v2-api/internal/store"
	"github.com/json2x/chatapp-v2-api/internal/turn"
)

type chatRequest struct {
	Model                 string  `json:"model" binding:"required"`
	Message               string  `json:"message" binding:"required"`
	ConversationSessionID string  `json:"conversation_session_id"`
	SystemPrompt          *string `json:"system_prompt"`
	SummarizeHistory      *bool   `json:"summarize_history"`
	Title                 *string `json:"title"`
	UserID                *string `json:"user_id"`
}

// handleChat runs a conversational turn and streams the assistant's
// reply back as server-sent events. Errors that occur before any
// token is generated are reported as plain JSON with an appropriate
// status code; errors mid-stream arrive as a terminal event.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	summarize := true
	if req.SummarizeHistory != nil {
		summarize = *req.SummarizeHistory
	}

	_, events, err := s.orchestrator.Run(c.Request.Context(), turn.Request{
		Model:            req.Model,
		Message:          req.Message,
		ConversationID:   req.ConversationSessionID,
		SystemPrompt:     req.SystemPrompt,
		SummarizeHistory: summarize,
		Title:            req.Title,
		UserID:           req.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrUnsupportedModel), errors.Is(err, llm.ErrProviderNotInitialized):
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("Conversation %s not found", req.ConversationSessionID)})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		}
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		data, err := json.Marshal(ev)
		if err != nil {
			return false
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		return true
	})
}
