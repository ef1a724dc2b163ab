package cmd

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/relaybridge/wayfarer/internal/bus"
	"github.com/relaybridge/wayfarer/internal/config"
	"github.com/relaybridge/wayfarer/internal/fallback"
	"github.com/relaybridge/wayfarer/internal/providers"
)

func registerProviders(registry *providers.Registry, cfg *config.Config) {
	if cfg.Providers.Anthropic.APIKey != "" {
		registry.Register(providers.NewAnthropicProvider(cfg.Providers.Anthropic.APIKey))
		slog.Info("registered provider", "name", "anthropic")
	}

	if cfg.Providers.OpenAI.APIKey != "" {
		registry.Register(providers.NewOpenAIProvider("openai", cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase, "gpt-4o"))
		slog.Info("registered provider", "name", "openai")
	}

	if cfg.Providers.OpenRouter.APIKey != "" {
		registry.Register(providers.NewOpenAIProvider("openrouter", cfg.Providers.OpenRouter.APIKey, "https://openrouter.ai/api/v1", "anthropic/claude-sonnet-4-5-20250929"))
		slog.Info("registered provider", "name", "openrouter")
	}

	if cfg.Providers.Groq.APIKey != "" {
		registry.Register(providers.NewOpenAIProvider("groq", cfg.Providers.Groq.APIKey, "https://api.groq.com/openai/v1", "llama-3.3-70b-versatile"))
		slog.Info("registered provider", "name", "groq")
	}

	if cfg.Providers.DeepSeek.APIKey != "" {
		registry.Register(providers.NewOpenAIProvider("deepseek", cfg.Providers.DeepSeek.APIKey, "https://api.deepseek.com/v1", "deepseek-chat"))
		slog.Info("registered provider", "name", "deepseek")
	}

	if cfg.Providers.Gemini.APIKey != "" {
		registry.Register(providers.NewOpenAIProvider("gemini", cfg.Providers.Gemini.APIKey, "https://generativelanguage.googleapis.com/v1beta/openai", "gemini-2.0-flash"))
		slog.Info("registered provider", "name", "gemini")
	}

	if cfg.Providers.Mistral.APIKey != "" {
		registry.Register(providers.NewOpenAIProvider("mistral", cfg.Providers.Mistral.APIKey, "https://api.mistral.ai/v1", "mistral-large-latest"))
		slog.Info("registered provider", "name", "mistral")
	}

	if cfg.Providers.XAI.APIKey != "" {
		registry.Register(providers.NewOpenAIProvider("xai", cfg.Providers.XAI.APIKey, "https://api.x.ai/v1", "grok-3-mini"))
		slog.Info("registered provider", "name", "xai")
	}

	if cfg.Providers.MiniMax.APIKey != "" {
		registry.Register(providers.NewOpenAIProvider("minimax", cfg.Providers.MiniMax.APIKey, "https://api.minimax.io/v1", "MiniMax-M2.5").
			WithChatPath("/text/chatcompletion_v2"))
		slog.Info("registered provider", "name", "minimax")
	}

	if cfg.Providers.Cohere.APIKey != "" {
		registry.Register(providers.NewOpenAIProvider("cohere", cfg.Providers.Cohere.APIKey, "https://api.cohere.ai/compatibility/v1", "command-a"))
		slog.Info("registered provider", "name", "cohere")
	}

	if cfg.Providers.Perplexity.APIKey != "" {
		registry.Register(providers.NewOpenAIProvider("perplexity", cfg.Providers.Perplexity.APIKey, "https://api.perplexity.ai", "sonar-pro"))
		slog.Info("registered provider", "name", "perplexity")
	}
}

var (
	sharedFallbackMu   sync.Mutex
	sharedFallbackCtrl *fallback.Controller
)

// buildCallWrapper wires a providers.CallWrapper around the agent's
// configured primary provider and (if configured) a secondary, sharing one
// fallback.Controller per process so every LLM call site sees the same
// consecutive-failure count regardless of which agent or sub-agent made it.
//
// sessionKeys are "agent:{agentId}:{channel}:{peerKind}:{chatId}" (see
// agent.RunRequest.SessionKey); the notify callback parses the channel/chat
// back out to address the outbound fallback notice at the right origin.
func buildCallWrapper(reg *providers.Registry, cfg *config.Config, primaryName string, router bus.MessageRouter) *providers.CallWrapper {
	fc := cfg.Providers.Fallback

	primary, err := reg.Get(primaryName)
	if err != nil {
		names := reg.List()
		if len(names) == 0 {
			return nil
		}
		primary, _ = reg.Get(names[0])
	}

	var secondary providers.Provider
	if fc.Secondary != "" {
		if sp, err := reg.Get(fc.Secondary); err == nil {
			secondary = sp
		} else {
			slog.Warn("fallback: secondary provider not registered", "name", fc.Secondary)
		}
	}

	probeInterval := time.Duration(fc.ProbeIntervalSec) * time.Second
	sharedFallbackMu.Lock()
	if sharedFallbackCtrl == nil {
		sharedFallbackCtrl = fallback.NewController(config.ExpandHome(fc.StatePath))
	}
	ctrl := sharedFallbackCtrl
	sharedFallbackMu.Unlock()

	var notify providers.NotifyFunc
	if router != nil {
		notify = func(n providers.FallbackNotice) {
			channel, chatID := parseSessionKeyOrigin(n.SessionKey)
			if channel == "" {
				return
			}
			text := "Switched to the backup LLM provider after repeated errors from the primary."
			if n.Kind == "restored" {
				text = "Primary LLM provider is back; switching away from the backup."
			}
			router.PublishOutbound(bus.OutboundMessage{
				Channel:  channel,
				ChatID:   chatID,
				Content:  text,
				Metadata: map[string]string{"fallback": n.Kind},
			})
		}
	}

	return providers.NewCallWrapper(primary, secondary, ctrl, fc.Threshold, probeInterval, notify)
}

// parseSessionKeyOrigin extracts (channel, chatID) from a composite session
// key of the form "agent:{agentId}:{channel}:{peerKind}:{chatId}".
func parseSessionKeyOrigin(sessionKey string) (channel, chatID string) {
	parts := strings.SplitN(sessionKey, ":", 5)
	if len(parts) != 5 {
		return "", ""
	}
	return parts[2], parts[4]
}
