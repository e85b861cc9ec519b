package llm

import "strings"

// Provider names used as registry keys.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// modelProviders maps every directly supported model to its provider.
var modelProviders = map[string]string{
	// OpenAI models
	"gpt-4o-mini":   ProviderOpenAI,
	"gpt-4o":        ProviderOpenAI,
	"gpt-4.1":       ProviderOpenAI,
	"gpt-4.1-mini":  ProviderOpenAI,
	"gpt-3.5-turbo": ProviderOpenAI,

	// Anthropic models
	"claude-3-5-haiku-20241022": ProviderAnthropic,
	"claude-3-opus-20240229":    ProviderAnthropic,
	"claude-3-sonnet-20240229":  ProviderAnthropic,
	"claude-3-haiku-20240307":   ProviderAnthropic,
}

// defaultModels is the default model per provider.
var defaultModels = map[string]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-haiku-20241022",
}

// providerForModel resolves a model name to a provider name: exact table
// match first, then family-prefix fallback.
func providerForModel(model string) (string, bool) {
	if provider, ok := modelProviders[model]; ok {
		return provider, true
	}
	if strings.HasPrefix(model, "gpt-") || strings.HasPrefix(model, "text-") {
		return ProviderOpenAI, true
	}
	if strings.HasPrefix(model, "claude-") {
		return ProviderAnthropic, true
	}
	return "", false
}
