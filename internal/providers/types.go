package providers

import (
	"context"
	"encoding/json"
)

// Provider is the interface all LLM providers must implement.
type Provider interface {
	// Chat sends messages to the LLM and returns a response.
	// tools defines available tool schemas; model overrides the default.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// ChatStream sends messages and streams response chunks via callback.
	// Returns the final complete response after streaming ends.
	ChatStream(ctx context.Context, req ChatRequest, onChunk func(StreamChunk)) (*ChatResponse, error)

	// DefaultModel returns the provider's default model name.
	DefaultModel() string

	// Name returns the provider identifier (e.g. "anthropic", "openai").
	Name() string
}

// ChatRequest contains the input for a Chat/ChatStream call.
type ChatRequest struct {
	Messages []Message        `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
	Model    string           `json:"model,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// ChatResponse is the result from an LLM call.
type ChatResponse struct {
	Content      string     `json:"content"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason"` // "stop", "tool_calls", "length", "error"
	Usage        *Usage     `json:"usage,omitempty"`

	// RawAssistantContent preserves the provider's original content-block
	// JSON (e.g. Anthropic thinking blocks) so it can be passed back
	// unmodified on the next turn instead of being reconstructed lossily
	// from Content/ToolCalls.
	RawAssistantContent json.RawMessage `json:"raw_assistant_content,omitempty"`
}

// StreamChunk is a piece of a streaming response.
type StreamChunk struct {
	Content   string `json:"content,omitempty"`
	Thinking  string `json:"thinking,omitempty"`
	Done      bool   `json:"done,omitempty"`
}

// ImageContent represents a base64-encoded image for vision-capable models.
// Data and Ref are mutually exclusive on disk: session storage dehydrates an
// incoming Data payload to Ref (see sessions.Manager.dehydrateMessage) and
// rehydrates it back to Data when the session is loaded for a turn.
type ImageContent struct {
	MimeType string `json:"mime_type"`      // e.g. "image/jpeg"
	Data     string `json:"data,omitempty"` // base64-encoded image bytes
	Ref      string `json:"ref,omitempty"`  // content-addressed reference, set once dehydrated
}

// Message represents a conversation message.
type Message struct {
	Role       string         `json:"role"`                  // "system", "user", "assistant", "tool"
	Content    string         `json:"content"`
	Images     []ImageContent `json:"images,omitempty"`      // vision: base64 images
	ToolCalls  []ToolCall     `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"` // for role="tool" responses

	// RawAssistantContent carries a prior assistant turn's original
	// content-block JSON (see ChatResponse.RawAssistantContent) back to the
	// provider that produced it, so e.g. Anthropic thinking blocks survive
	// a round trip through the agent loop's message history.
	RawAssistantContent json.RawMessage `json:"raw_assistant_content,omitempty"`
}

// ToolCall represents a tool invocation requested by the LLM.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolDefinition describes a tool available to the LLM.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function ToolFunctionSchema `json:"function"`
}

// ToolFunctionSchema is the schema for a function tool.
type ToolFunctionSchema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens        int `json:"prompt_tokens"`
	CompletionTokens    int `json:"completion_tokens"`
	TotalTokens         int `json:"total_tokens"`
	CacheCreationTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadTokens     int `json:"cache_read_input_tokens,omitempty"`
	ThinkingTokens      int `json:"thinking_tokens,omitempty"`
}

// UsedFallback reports whether a response was produced by a secondary
// provider instead of the caller's primary. Set by providers.CallWrapper;
// zero value is "no" so providers that don't go through the wrapper are
// unaffected.
type FallbackNote struct {
	UsedFallback bool   `json:"used_fallback,omitempty"`
	Provider     string `json:"provider,omitempty"`
	Reason       string `json:"reason,omitempty"`
}
