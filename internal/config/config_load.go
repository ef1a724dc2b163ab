package config

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

// DefaultAgentID is the agent key used when no binding or explicit AgentID
// resolves a message to a specific agent, and no agent in agents.list is
// marked default.
const DefaultAgentID = "default"

// NormalizeAgentID lowercases and trims an agent key so lookups are
// case-insensitive regardless of how a channel binding or RPC caller wrote it.
func NormalizeAgentID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return DefaultAgentID
	}
	return id
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Agents: AgentsConfig{
			Defaults: AgentDefaults{
				Workspace:           "~/.wayfarer/workspace",
				RestrictToWorkspace: true,
				Provider:            "anthropic",
				Model:               "claude-sonnet-4-5-20250929",
				MaxTokens:           8192,
				Temperature:         0.7,
				MaxToolIterations:   20,
				ContextWindow:       200000,
				Subagents: &SubagentsConfig{
					MaxConcurrent: 20,
					MaxSpawnDepth: 1,
				},
			},
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{
				StreamMode:    "none",
				ReactionLevel: "full",
			},
		},
		Gateway: GatewayConfig{
			Host:            "0.0.0.0",
			Port:            18790,
			MaxMessageChars: 32000,
			RateLimitRPM:    20,
		},
		Tools: ToolsConfig{
			Web: WebToolsConfig{
				DuckDuckGo: DuckDuckGoConfig{Enabled: true, MaxResults: 5},
			},
			Browser: BrowserToolConfig{
				Enabled:  true,
				Headless: true,
			},
			ExecApproval: ExecApprovalCfg{
				Security: "full",
				Ask:      "off",
			},
		},
		Sessions: SessionsConfig{
			Storage: "~/.wayfarer/sessions",
		},
		Providers: ProvidersConfig{
			Fallback: FallbackConfig{
				Threshold:        3,
				ProbeIntervalSec: 300,
				StatePath:        "~/.wayfarer/fallback_state.json",
			},
		},
	}
}

// Load reads config from a JSON file, then overlays env vars.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			cfg.applyContextPruningDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyContextPruningDefaults()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr("WAYFARER_ANTHROPIC_API_KEY", &c.Providers.Anthropic.APIKey)
	envStr("WAYFARER_ANTHROPIC_BASE_URL", &c.Providers.Anthropic.APIBase)
	envStr("WAYFARER_OPENAI_API_KEY", &c.Providers.OpenAI.APIKey)
	envStr("WAYFARER_OPENROUTER_API_KEY", &c.Providers.OpenRouter.APIKey)
	envStr("WAYFARER_GROQ_API_KEY", &c.Providers.Groq.APIKey)
	envStr("WAYFARER_DEEPSEEK_API_KEY", &c.Providers.DeepSeek.APIKey)
	envStr("WAYFARER_GEMINI_API_KEY", &c.Providers.Gemini.APIKey)
	envStr("WAYFARER_MISTRAL_API_KEY", &c.Providers.Mistral.APIKey)
	envStr("WAYFARER_XAI_API_KEY", &c.Providers.XAI.APIKey)
	envStr("WAYFARER_MINIMAX_API_KEY", &c.Providers.MiniMax.APIKey)
	envStr("WAYFARER_COHERE_API_KEY", &c.Providers.Cohere.APIKey)
	envStr("WAYFARER_PERPLEXITY_API_KEY", &c.Providers.Perplexity.APIKey)
	envStr("WAYFARER_GATEWAY_TOKEN", &c.Gateway.Token)
	envStr("WAYFARER_TELEGRAM_TOKEN", &c.Channels.Telegram.Token)
	envStr("WAYFARER_DISCORD_TOKEN", &c.Channels.Discord.Token)
	envStr("WAYFARER_ZALO_TOKEN", &c.Channels.Zalo.Token)
	envStr("WAYFARER_FEISHU_APP_ID", &c.Channels.Feishu.AppID)
	envStr("WAYFARER_FEISHU_APP_SECRET", &c.Channels.Feishu.AppSecret)
	envStr("WAYFARER_FEISHU_ENCRYPT_KEY", &c.Channels.Feishu.EncryptKey)
	envStr("WAYFARER_FEISHU_VERIFICATION_TOKEN", &c.Channels.Feishu.VerificationToken)

	// TTS secrets
	envStr("WAYFARER_TTS_OPENAI_API_KEY", &c.Tts.OpenAI.APIKey)
	envStr("WAYFARER_TTS_ELEVENLABS_API_KEY", &c.Tts.ElevenLabs.APIKey)
	envStr("WAYFARER_TTS_MINIMAX_API_KEY", &c.Tts.MiniMax.APIKey)
	envStr("WAYFARER_TTS_MINIMAX_GROUP_ID", &c.Tts.MiniMax.GroupID)

	// Auto-enable channels if credentials are provided via env
	if c.Channels.Telegram.Token != "" {
		c.Channels.Telegram.Enabled = true
	}
	if c.Channels.Discord.Token != "" {
		c.Channels.Discord.Enabled = true
	}
	if c.Channels.Zalo.Token != "" {
		c.Channels.Zalo.Enabled = true
	}
	if c.Channels.Feishu.AppID != "" && c.Channels.Feishu.AppSecret != "" {
		c.Channels.Feishu.Enabled = true
	}

	// Allow overriding default provider/model
	envStr("WAYFARER_PROVIDER", &c.Agents.Defaults.Provider)
	envStr("WAYFARER_MODEL", &c.Agents.Defaults.Model)

	// Workspace & sessions
	envStr("WAYFARER_WORKSPACE", &c.Agents.Defaults.Workspace)
	envStr("WAYFARER_SESSIONS_STORAGE", &c.Sessions.Storage)

	// Gateway host/port
	envStr("WAYFARER_HOST", &c.Gateway.Host)
	if v := os.Getenv("WAYFARER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Gateway.Port = port
		}
	}

	// Database
	envStr("WAYFARER_POSTGRES_DSN", &c.Database.PostgresDSN)
	envStr("WAYFARER_MODE", &c.Database.Mode)

	// Telemetry
	envStr("WAYFARER_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("WAYFARER_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	envStr("WAYFARER_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	if v := os.Getenv("WAYFARER_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("WAYFARER_TELEMETRY_INSECURE"); v != "" {
		c.Telemetry.Insecure = v == "true" || v == "1"
	}

	// Owner IDs from env (comma-separated)
	if v := os.Getenv("WAYFARER_OWNER_IDS"); v != "" {
		c.Gateway.OwnerIDs = strings.Split(v, ",")
	}

	// Tailscale (tsnet)
	envStr("WAYFARER_TSNET_HOSTNAME", &c.Tailscale.Hostname)
	envStr("WAYFARER_TSNET_AUTH_KEY", &c.Tailscale.AuthKey)
	envStr("WAYFARER_TSNET_DIR", &c.Tailscale.StateDir)

	// Sandbox (for Docker-compose sandbox overlay)
	ensureSandbox := func() {
		if c.Agents.Defaults.Sandbox == nil {
			c.Agents.Defaults.Sandbox = &SandboxConfig{}
		}
	}
	if v := os.Getenv("WAYFARER_SANDBOX_MODE"); v != "" {
		ensureSandbox()
		c.Agents.Defaults.Sandbox.Mode = v
	}
	if v := os.Getenv("WAYFARER_SANDBOX_IMAGE"); v != "" {
		ensureSandbox()
		c.Agents.Defaults.Sandbox.Image = v
	}
	if v := os.Getenv("WAYFARER_SANDBOX_WORKSPACE_ACCESS"); v != "" {
		ensureSandbox()
		c.Agents.Defaults.Sandbox.WorkspaceAccess = v
	}
	if v := os.Getenv("WAYFARER_SANDBOX_SCOPE"); v != "" {
		ensureSandbox()
		c.Agents.Defaults.Sandbox.Scope = v
	}
	if v := os.Getenv("WAYFARER_SANDBOX_MEMORY_MB"); v != "" {
		ensureSandbox()
		if mb, err := strconv.Atoi(v); err == nil && mb > 0 {
			c.Agents.Defaults.Sandbox.MemoryMB = mb
		}
	}
	if v := os.Getenv("WAYFARER_SANDBOX_CPUS"); v != "" {
		ensureSandbox()
		if cpus, err := strconv.ParseFloat(v, 64); err == nil && cpus > 0 {
			c.Agents.Defaults.Sandbox.CPUs = cpus
		}
	}
	if v := os.Getenv("WAYFARER_SANDBOX_TIMEOUT_SEC"); v != "" {
		ensureSandbox()
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			c.Agents.Defaults.Sandbox.TimeoutSec = sec
		}
	}
	if v := os.Getenv("WAYFARER_SANDBOX_NETWORK"); v != "" {
		ensureSandbox()
		c.Agents.Defaults.Sandbox.NetworkEnabled = v == "true" || v == "1"
	}
}

// applyContextPruningDefaults auto-enables context pruning when the Anthropic
// provider is configured, matching TS applyContextPruningDefaults() in
// src/config/defaults.ts.
//
// Go port does not have OAuth vs API-key distinction â€” we always treat it as
// API-key mode (heartbeat 30m).
func (c *Config) applyContextPruningDefaults() {
	// Only apply when Anthropic is configured.
	if c.Providers.Anthropic.APIKey == "" {
		return
	}

	defaults := &c.Agents.Defaults

	// Auto-enable context pruning if mode not explicitly set.
	if defaults.ContextPruning == nil {
		defaults.ContextPruning = &ContextPruningConfig{
			Mode: "cache-ttl",
		}
	} else if defaults.ContextPruning.Mode == "" {
		defaults.ContextPruning.Mode = "cache-ttl"
	}
}

// Save writes the config to a JSON file.
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Hash returns a SHA-256 hash of the config for optimistic concurrency.
func (c *Config) Hash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, _ := json.Marshal(c)
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:8])
}

// WorkspacePath returns the expanded workspace path.
func (c *Config) WorkspacePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ExpandHome(c.Agents.Defaults.Workspace)
}

// ResolveAgent returns the effective config for a given agent ID,
// merging defaults with per-agent overrides.
func (c *Config) ResolveAgent(agentID string) AgentDefaults {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d := c.Agents.Defaults
	if spec, ok := c.Agents.List[agentID]; ok {
		if spec.Provider != "" {
			d.Provider = spec.Provider
		}
		if spec.Model != "" {
			d.Model = spec.Model
		}
		if spec.MaxTokens > 0 {
			d.MaxTokens = spec.MaxTokens
		}
		if spec.Temperature > 0 {
			d.Temperature = spec.Temperature
		}
		if spec.MaxToolIterations > 0 {
			d.MaxToolIterations = spec.MaxToolIterations
		}
		if spec.ContextWindow > 0 {
			d.ContextWindow = spec.ContextWindow
		}
		if spec.Workspace != "" {
			d.Workspace = spec.Workspace
		}
		if spec.Sandbox != nil {
			d.Sandbox = spec.Sandbox
		}
		if spec.AgentType != "" {
			d.AgentType = spec.AgentType
		}
	}

	return d
}

// ResolveDefaultAgentID returns the ID of the agent marked as default,
// or "default" if none is explicitly marked.
func (c *Config) ResolveDefaultAgentID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for id, spec := range c.Agents.List {
		if spec.Default {
			return id
		}
	}
	return DefaultAgentID
}

// ResolveDisplayName returns the display name for an agent.
// Falls back to "Wayfarer" if not configured.
func (c *Config) ResolveDisplayName(agentID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if spec, ok := c.Agents.List[agentID]; ok && spec.DisplayName != "" {
		return spec.DisplayName
	}
	return "Wayfarer"
}

// ApplyEnvOverrides re-applies environment variable overrides onto the config.
// Call this after modifying config to restore runtime secrets from env vars.
func (c *Config) ApplyEnvOverrides() {
	c.applyEnvOverrides()
	c.applyContextPruningDefaults()
}

// ExpandHome replaces leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
