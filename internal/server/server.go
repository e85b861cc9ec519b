package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/json2x/chatapp-v2-api/internal/llm"
	"github.com/json2x/chatapp-v2-api/internal/store"
	"github.com/json2x/chatapp-v2-api/internal/turn"
)

// Server wires the API routes to the turn orchestrator and its
// collaborators. All state lives in the injected dependencies.
type Server struct {
	store        store.Store
	llm          *llm.Service
	orchestrator *turn.Orchestrator
}

// New creates a Server around the given dependencies.
func New(s store.Store, llmService *llm.Service, orchestrator *turn.Orchestrator) *Server {
	return &Server{store: s, llm: llmService, orchestrator: orchestrator}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router(corsOrigin string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), corsMiddleware(corsOrigin))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome to ChatApp v2 API"})
	})

	api := r.Group("/api")
	api.POST("/chat", s.handleChat)
	api.GET("/models", s.handleModels)
	api.GET("/models/:provider", s.handleProviderModels)
	api.GET("/models-default", s.handleDefaultModels)
	api.GET("/conversations", s.handleListConversations)
	api.GET("/conversations/:id", s.handleGetConversation)
	api.DELETE("/conversations/:id", s.handleDeleteConversation)

	return r
}

func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
