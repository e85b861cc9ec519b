package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Storage backend identifiers accepted in CHATAPP_DB_TYPE.
const (
	DBTypeSQLite   = "sqlite"
	DBTypePostgres = "postgres"
)

// ServerConfig holds configuration for the API server process.
type ServerConfig struct {
	ListenAddr       string
	CORSOrigin       string
	DBType           string
	SQLitePath       string
	PostgresDSN      string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	AnthropicAPIKey  string
	AnthropicBaseURL string
	RequestTimeout   int
	HistoryThreshold int
	SummaryModel     string
	SummaryMaxTokens int
	SummaryTemp      float64
}

// LoadServerConfig reads server configuration from environment variables.
func LoadServerConfig() (ServerConfig, error) {
	dbType := strings.ToLower(envOrDefault("CHATAPP_DB_TYPE", DBTypeSQLite))
	switch dbType {
	case DBTypeSQLite, DBTypePostgres:
	default:
		return ServerConfig{}, fmt.Errorf("unsupported CHATAPP_DB_TYPE %q (want sqlite or postgres)", dbType)
	}

	postgresDSN := os.Getenv("CHATAPP_POSTGRES_DSN")
	if dbType == DBTypePostgres && postgresDSN == "" {
		return ServerConfig{}, fmt.Errorf("CHATAPP_POSTGRES_DSN is required in environment when CHATAPP_DB_TYPE=postgres")
	}

	return ServerConfig{
		ListenAddr:       envOrDefault("CHATAPP_LISTEN_ADDR", ":8000"),
		CORSOrigin:       envOrDefault("CHATAPP_CORS_ORIGIN", "http://localhost:9000"),
		DBType:           dbType,
		SQLitePath:       envOrDefault("CHATAPP_DB_PATH", "chatapp-v2.db"),
		PostgresDSN:      postgresDSN,
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicBaseURL: envOrDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1"),
		RequestTimeout:   envIntOrDefault("CHATAPP_REQUEST_TIMEOUT_SECONDS", 120),
		HistoryThreshold: envIntOrDefault("CHATAPP_MESSAGES_THRESHOLD", 20),
		SummaryModel:     envOrDefault("CHATAPP_SUMMARY_MODEL", "gpt-4o-mini"),
		SummaryMaxTokens: envIntOrDefault("CHATAPP_SUMMARY_MAX_TOKENS", 500),
		SummaryTemp:      envFloatOrDefault("CHATAPP_SUMMARY_TEMPERATURE", 0.3),
	}, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloatOrDefault(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
