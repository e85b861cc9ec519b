package main

import (
	"log"

	"github.com/json2x/chatapp-v2-api/internal/config"
	"github.com/json2x/chatapp-v2-api/internal/history"
	"github.com/json2x/chatapp-v2-api/internal/llm"
	"github.com/json2x/chatapp-v2-api/internal/server"
	"github.com/json2x/chatapp-v2-api/internal/store"
	"github.com/json2x/chatapp-v2-api/internal/summary"
	"github.com/json2x/chatapp-v2-api/internal/turn"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Fatalf("[server] %v", err)
	}

	var st store.Store
	switch cfg.DBType {
	case config.DBTypePostgres:
		st, err = store.OpenPostgres(cfg.PostgresDSN)
	default:
		st, err = store.OpenSQLite(cfg.SQLitePath)
	}
	if err != nil {
		log.Fatalf("[server] failed to open store: %v", err)
	}
	defer st.Close()
	log.Printf("[server] storage backend: %s", cfg.DBType)

	llmService := llm.NewService()
	if cfg.OpenAIAPIKey != "" {
		llmService.Register(llm.ProviderOpenAI, llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL))
	} else {
		log.Printf("[server] OPENAI_API_KEY not set, openai models unavailable")
	}
	if cfg.AnthropicAPIKey != "" {
		llmService.Register(llm.ProviderAnthropic, llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL))
	} else {
		log.Printf("[server] ANTHROPIC_API_KEY not set, anthropic models unavailable")
	}

	summarizer := summary.New(llmService, cfg.SummaryModel, cfg.SummaryMaxTokens, cfg.SummaryTemp)
	assembler := &history.Assembler{
		Store:      st,
		Summarizer: summarizer,
		Threshold:  cfg.HistoryThreshold,
	}
	orchestrator := &turn.Orchestrator{
		Store:   st,
		Backend: llmService,
		History: assembler,
	}

	router := server.New(st, llmService, orchestrator).Router(cfg.CORSOrigin)
	log.Printf("[server] listening on %s", cfg.ListenAddr)
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("[server] %v", err)
	}
}
