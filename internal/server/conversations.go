package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/json2x/chatapp-v2-api/internal/store"
)

const defaultListLimit = 100

func (s *Server) handleListConversations(c *gin.Context) {
	var userID *string
	if v := c.Query("user_id"); v != "" {
		userID = &v
	}

	limit := defaultListLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	offset := 0
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "offset must be a non-negative integer"})
			return
		}
		offset = n
	}

	convs, err := s.store.ListConversations(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, convs)
}

func (s *Server) handleGetConversation(c *gin.Context) {
	id := c.Param("id")
	conv, err := s.store.GetConversation(c.Request.Context(), id, true)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("Conversation %s not found", id)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (s *Server) handleDeleteConversation(c *gin.Context) {
	id := c.Param("id")
	deleted, err := s.store.DeleteConversation(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("Conversation %s not found", id)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Conversation %s deleted successfully", id)})
}
