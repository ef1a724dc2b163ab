// Package tracing propagates trace/span identity through context.Context and
// forwards completed spans to the configured Collector (durable storage plus
// an optional OTLP exporter).
package tracing

import (
	"context"

	"github.com/google/uuid"
)

type tracingContextKey string

const (
	ctxTraceID             tracingContextKey = "tracing_trace_id"
	ctxCollector           tracingContextKey = "tracing_collector"
	ctxParentSpanID        tracingContextKey = "tracing_parent_span_id"
	ctxAnnounceParentSpan  tracingContextKey = "tracing_announce_parent_span_id"
	ctxDelegateParentTrace tracingContextKey = "tracing_delegate_parent_trace_id"
)

// WithTraceID attaches the active trace ID to ctx.
func WithTraceID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxTraceID, id)
}

// TraceIDFromContext returns the active trace ID, or uuid.Nil if tracing is inactive.
func TraceIDFromContext(ctx context.Context) uuid.UUID {
	v, _ := ctx.Value(ctxTraceID).(uuid.UUID)
	return v
}

// WithCollector attaches the trace collector to ctx.
func WithCollector(ctx context.Context, c *Collector) context.Context {
	return context.WithValue(ctx, ctxCollector, c)
}

// CollectorFromContext returns the active collector, or nil if tracing is inactive.
func CollectorFromContext(ctx context.Context) *Collector {
	v, _ := ctx.Value(ctxCollector).(*Collector)
	return v
}

// WithParentSpanID sets the span that newly emitted spans should nest under.
func WithParentSpanID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxParentSpanID, id)
}

// ParentSpanIDFromContext returns the current parent span ID, or uuid.Nil.
func ParentSpanIDFromContext(ctx context.Context) uuid.UUID {
	v, _ := ctx.Value(ctxParentSpanID).(uuid.UUID)
	return v
}

// WithAnnounceParentSpanID records the root span of the run that triggered an
// announce re-entry (sub-agent/cron result flowing back through the bus), so
// the announce's own agent run can nest its root span under the originator.
func WithAnnounceParentSpanID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxAnnounceParentSpan, id)
}

// AnnounceParentSpanIDFromContext returns the announce-origin parent span ID, or uuid.Nil.
func AnnounceParentSpanIDFromContext(ctx context.Context) uuid.UUID {
	v, _ := ctx.Value(ctxAnnounceParentSpan).(uuid.UUID)
	return v
}

// WithDelegateParentTraceID marks ctx as belonging to a delegated run (sub-agent
// or cross-agent delegation) whose parent trace should be linked from the new trace.
func WithDelegateParentTraceID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxDelegateParentTrace, id)
}

// DelegateParentTraceIDFromContext returns the delegating parent's trace ID, or uuid.Nil.
func DelegateParentTraceIDFromContext(ctx context.Context) uuid.UUID {
	v, _ := ctx.Value(ctxDelegateParentTrace).(uuid.UUID)
	return v
}
