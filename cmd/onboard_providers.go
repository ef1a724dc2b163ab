package cmd

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/relaybridge/wayfarer/internal/config"
)

// providerInfo is the onboarding-time metadata for one provider: which env
// var carries its key, and the model to default to when a user picks it.
type providerInfo struct {
	envKey    string
	modelHint string
}

// providerMap drives auto-detection (canAutoOnboard) and the interactive
// wizard's default-model suggestion. Keys match registerProviders'
// cfg.Providers.* fields and the env vars ApplyEnvOverrides reads.
var providerMap = map[string]providerInfo{
	"openrouter": {envKey: "WAYFARER_OPENROUTER_API_KEY", modelHint: "anthropic/claude-sonnet-4-5-20250929"},
	"anthropic":  {envKey: "WAYFARER_ANTHROPIC_API_KEY", modelHint: "claude-sonnet-4-5-20250929"},
	"openai":     {envKey: "WAYFARER_OPENAI_API_KEY", modelHint: "gpt-4o"},
	"groq":       {envKey: "WAYFARER_GROQ_API_KEY", modelHint: "llama-3.3-70b-versatile"},
	"deepseek":   {envKey: "WAYFARER_DEEPSEEK_API_KEY", modelHint: "deepseek-chat"},
	"gemini":     {envKey: "WAYFARER_GEMINI_API_KEY", modelHint: "gemini-2.0-flash"},
	"mistral":    {envKey: "WAYFARER_MISTRAL_API_KEY", modelHint: "mistral-large-latest"},
	"xai":        {envKey: "WAYFARER_XAI_API_KEY", modelHint: "grok-3-mini"},
	"minimax":    {envKey: "WAYFARER_MINIMAX_API_KEY", modelHint: "MiniMax-M2.5"},
	"cohere":     {envKey: "WAYFARER_COHERE_API_KEY", modelHint: "command-a"},
	"perplexity": {envKey: "WAYFARER_PERPLEXITY_API_KEY", modelHint: "sonar-pro"},
}

// providerAPIBase returns the default API base URL registerProviders would
// use for name, or "" for providers whose SDK-specific client doesn't take
// one (anthropic) or that aren't recognized.
func providerAPIBase(name string) string {
	switch name {
	case "openrouter":
		return "https://openrouter.ai/api/v1"
	case "groq":
		return "https://api.groq.com/openai/v1"
	case "deepseek":
		return "https://api.deepseek.com/v1"
	case "gemini":
		return "https://generativelanguage.googleapis.com/v1beta/openai"
	case "mistral":
		return "https://api.mistral.ai/v1"
	case "xai":
		return "https://api.x.ai/v1"
	case "minimax":
		return "https://api.minimax.io/v1"
	case "cohere":
		return "https://api.cohere.ai/compatibility/v1"
	case "perplexity":
		return "https://api.perplexity.ai"
	default:
		return ""
	}
}

// resolveProviderAPIKey returns the API key configured for name, checking
// cfg.Providers.* (already populated from config.json + env overrides).
func resolveProviderAPIKey(cfg *config.Config, name string) string {
	switch name {
	case "anthropic":
		return cfg.Providers.Anthropic.APIKey
	case "openai":
		return cfg.Providers.OpenAI.APIKey
	case "openrouter":
		return cfg.Providers.OpenRouter.APIKey
	case "groq":
		return cfg.Providers.Groq.APIKey
	case "deepseek":
		return cfg.Providers.DeepSeek.APIKey
	case "gemini":
		return cfg.Providers.Gemini.APIKey
	case "mistral":
		return cfg.Providers.Mistral.APIKey
	case "xai":
		return cfg.Providers.XAI.APIKey
	case "minimax":
		return cfg.Providers.MiniMax.APIKey
	case "cohere":
		return cfg.Providers.Cohere.APIKey
	case "perplexity":
		return cfg.Providers.Perplexity.APIKey
	default:
		return ""
	}
}

// resolveProviderAPIBase returns the configured custom API base for name if
// set, otherwise registerProviders' built-in default.
func resolveProviderAPIBase(cfg *config.Config, name string) string {
	var configured string
	switch name {
	case "anthropic":
		configured = cfg.Providers.Anthropic.APIBase
	case "openai":
		configured = cfg.Providers.OpenAI.APIBase
	case "openrouter":
		configured = cfg.Providers.OpenRouter.APIBase
	case "groq":
		configured = cfg.Providers.Groq.APIBase
	case "deepseek":
		configured = cfg.Providers.DeepSeek.APIBase
	case "gemini":
		configured = cfg.Providers.Gemini.APIBase
	case "mistral":
		configured = cfg.Providers.Mistral.APIBase
	case "xai":
		configured = cfg.Providers.XAI.APIBase
	case "minimax":
		configured = cfg.Providers.MiniMax.APIBase
	case "cohere":
		configured = cfg.Providers.Cohere.APIBase
	case "perplexity":
		configured = cfg.Providers.Perplexity.APIBase
	}
	if configured != "" {
		return configured
	}
	return providerAPIBase(name)
}

// setProviderAPIKey stores an API key entered interactively into cfg.Providers,
// mirroring resolveProviderAPIKey's field mapping in reverse.
func setProviderAPIKey(cfg *config.Config, name, apiKey string) {
	switch name {
	case "anthropic":
		cfg.Providers.Anthropic.APIKey = apiKey
	case "openai":
		cfg.Providers.OpenAI.APIKey = apiKey
	case "openrouter":
		cfg.Providers.OpenRouter.APIKey = apiKey
	case "groq":
		cfg.Providers.Groq.APIKey = apiKey
	case "deepseek":
		cfg.Providers.DeepSeek.APIKey = apiKey
	case "gemini":
		cfg.Providers.Gemini.APIKey = apiKey
	case "mistral":
		cfg.Providers.Mistral.APIKey = apiKey
	case "xai":
		cfg.Providers.XAI.APIKey = apiKey
	case "minimax":
		cfg.Providers.MiniMax.APIKey = apiKey
	case "cohere":
		cfg.Providers.Cohere.APIKey = apiKey
	case "perplexity":
		cfg.Providers.Perplexity.APIKey = apiKey
	}
}

// onboardGenerateToken returns a random hex token of n bytes, used for the
// gateway bearer token when one isn't already configured.
func onboardGenerateToken(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
