package providers

// ChatRequest.Options keys, shared across all providers so the agent loop
// doesn't need per-provider option names.
const (
	OptMaxTokens     = "max_tokens"
	OptTemperature   = "temperature"
	OptThinkingLevel = "thinking_level" // "off", "low", "medium", "high"
)

// ThinkingCapable is implemented by providers that can honor
// OptThinkingLevel (currently Anthropic and Dashscope/Qwen).
type ThinkingCapable interface {
	SupportsThinking() bool
}
