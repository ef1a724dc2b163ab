package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Trace status constants.
const (
	TraceStatusRunning   = "running"
	TraceStatusCompleted = "completed"
	TraceStatusError     = "error"
	TraceStatusCancelled = "cancelled"
)

// Span type constants.
const (
	SpanTypeLLMCall  = "llm_call"
	SpanTypeToolCall = "tool_call"
	SpanTypeAgent    = "agent"
)

// Span status constants.
const (
	SpanStatusCompleted = "completed"
	SpanStatusError     = "error"
)

// Span level constants (severity-like bucket, matching OTEL "level" span attribute convention).
const (
	SpanLevelDefault = "DEFAULT"
	SpanLevelWarning = "WARNING"
	SpanLevelError   = "ERROR"
)

// TraceData is one top-level agent run (one user turn, one cron fire, one sub-agent task).
type TraceData struct {
	ID            uuid.UUID  `json:"id"`
	RunID         string     `json:"runId"`
	SessionKey    string     `json:"sessionKey"`
	UserID        string     `json:"userId,omitempty"`
	Channel       string     `json:"channel,omitempty"`
	AgentID       *uuid.UUID `json:"agentId,omitempty"`
	ParentTraceID *uuid.UUID `json:"parentTraceId,omitempty"`
	Name          string     `json:"name"`
	InputPreview  string     `json:"inputPreview,omitempty"`
	OutputPreview string     `json:"outputPreview,omitempty"`
	Status        string     `json:"status"`
	Error         string     `json:"error,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	StartTime     time.Time  `json:"startTime"`
	EndTime       *time.Time `json:"endTime,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// SpanData is one LLM call, tool call, or the root "agent" span within a trace.
type SpanData struct {
	ID           uuid.UUID  `json:"id"`
	TraceID      uuid.UUID  `json:"traceId"`
	ParentSpanID *uuid.UUID `json:"parentSpanId,omitempty"`
	AgentID      *uuid.UUID `json:"agentId,omitempty"`
	SpanType     string     `json:"spanType"`
	Name         string     `json:"name"`
	StartTime    time.Time  `json:"startTime"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	DurationMS   int        `json:"durationMs"`
	Status       string     `json:"status"`
	Level        string     `json:"level"`
	Error        string     `json:"error,omitempty"`

	Model    string `json:"model,omitempty"`
	Provider string `json:"provider,omitempty"`

	ToolName   string `json:"toolName,omitempty"`
	ToolCallID string `json:"toolCallId,omitempty"`

	FinishReason string `json:"finishReason,omitempty"`

	InputPreview  string `json:"inputPreview,omitempty"`
	OutputPreview string `json:"outputPreview,omitempty"`

	InputTokens  int `json:"inputTokens,omitempty"`
	OutputTokens int `json:"outputTokens,omitempty"`

	Metadata  []byte    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TracingStore persists traces and spans for the managed-mode tracing UI.
// Nil in standalone mode — the tracing.Collector then still forwards spans to
// OTLP (when configured) but skips durable storage.
type TracingStore interface {
	CreateTrace(ctx context.Context, trace *TraceData) error
	FinishTrace(ctx context.Context, id uuid.UUID, status, errMsg, outputPreview string) error
	CreateSpan(ctx context.Context, span *SpanData) error
}

// GenNewID generates a fresh random identifier for traces, spans, and tasks.
func GenNewID() uuid.UUID {
	return uuid.New()
}
