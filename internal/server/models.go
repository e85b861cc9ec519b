package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/json2x/chatapp-v2-api/internal/llm"
)

func (s *Server) handleModels(c *gin.Context) {
	c.JSON(http.StatusOK, s.llm.AvailableModels())
}

func (s *Server) handleProviderModels(c *gin.Context) {
	provider := c.Param("provider")
	if provider != llm.ProviderOpenAI && provider != llm.ProviderAnthropic {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("Unknown provider: %s", provider)})
		return
	}
	if !s.llm.HasProvider(provider) {
		c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("Provider %s is not initialized", provider)})
		return
	}
	c.JSON(http.StatusOK, gin.H{provider: s.llm.AvailableModels()[provider]})
}

func (s *Server) handleDefaultModels(c *gin.Context) {
	c.JSON(http.StatusOK, s.llm.DefaultModels())
}
