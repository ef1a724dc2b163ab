package tracing

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/relaybridge/wayfarer/internal/store"
)

// Collector receives completed traces and spans from the agent loop, sub-agent
// manager, and cron dispatcher, persists them (managed mode only), and mirrors
// them onto an OTLP tracer when one has been configured via SetTracerProvider.
//
// Ingestion is asynchronous: EmitSpan/CreateTrace/FinishTrace enqueue and
// return immediately so tracing overhead never sits on the agent-loop hot
// path. A bounded queue sheds the oldest pending item under sustained
// backpressure rather than blocking callers.
type Collector struct {
	store   store.TracingStore
	tracer  oteltrace.Tracer
	verbose bool

	queue chan func()
	wg    sync.WaitGroup
	stop  chan struct{}
}

// NewCollector creates a Collector. store may be nil (standalone mode): spans
// are then only mirrored to OTLP, never persisted.
func NewCollector(tracingStore store.TracingStore) *Collector {
	return &Collector{
		store:   tracingStore,
		tracer:  noop.NewTracerProvider().Tracer("wayfarer/agent"),
		verbose: os.Getenv("WAYFARER_TRACE_VERBOSE") != "",
		queue:   make(chan func(), 1024),
		stop:    make(chan struct{}),
	}
}

// SetTracerProvider swaps in a real OTLP-backed tracer (see cmd/otel_enabled.go).
// Safe to call before Start.
func (c *Collector) SetTracerProvider(tp oteltrace.TracerProvider) {
	c.tracer = tp.Tracer("wayfarer/agent")
}

// Verbose reports whether full message/tool payloads should be captured on
// spans (WAYFARER_TRACE_VERBOSE=1) instead of short previews.
func (c *Collector) Verbose() bool { return c.verbose }

// Start begins draining the ingestion queue. Call once.
func (c *Collector) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case fn := <-c.queue:
				fn()
			case <-c.stop:
				// Drain remaining queued work before exiting.
				for {
					select {
					case fn := <-c.queue:
						fn()
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop drains the queue and waits for the background worker to exit.
func (c *Collector) Stop() {
	close(c.stop)
	c.wg.Wait()
}

func (c *Collector) enqueue(fn func()) {
	select {
	case c.queue <- fn:
	default:
		slog.Warn("tracing: queue full, dropping span/trace event")
	}
}

// CreateTrace persists the start of a new top-level run.
func (c *Collector) CreateTrace(ctx context.Context, trace *store.TraceData) error {
	if trace.ID == uuid.Nil {
		trace.ID = store.GenNewID()
	}
	if trace.Status == "" {
		trace.Status = store.TraceStatusRunning
	}
	t := *trace
	if c.store != nil {
		c.enqueue(func() {
			if err := c.store.CreateTrace(context.Background(), &t); err != nil {
				slog.Warn("tracing: failed to persist trace", "error", err, "trace_id", t.ID)
			}
		})
	}
	return nil
}

// FinishTrace marks a trace complete/errored/cancelled.
func (c *Collector) FinishTrace(ctx context.Context, id uuid.UUID, status, errMsg, outputPreview string) error {
	if c.store != nil {
		c.enqueue(func() {
			if err := c.store.FinishTrace(context.Background(), id, status, errMsg, outputPreview); err != nil {
				slog.Warn("tracing: failed to finish trace", "error", err, "trace_id", id)
			}
		})
	}
	return nil
}

// EmitSpan persists a completed LLM/tool/agent span and mirrors it onto the
// OTLP tracer (a no-op tracer when OTLP export isn't configured).
func (c *Collector) EmitSpan(span store.SpanData) {
	if span.ID == uuid.Nil {
		span.ID = store.GenNewID()
	}
	s := span
	c.enqueue(func() {
		c.emitOTel(s)
		if c.store != nil {
			if err := c.store.CreateSpan(context.Background(), &s); err != nil {
				slog.Warn("tracing: failed to persist span", "error", err, "span_id", s.ID)
			}
		}
	})
}

// emitOTel creates a real (possibly no-op) OTEL span carrying our span's
// timing and attributes. Our trace/span hierarchy is tracked by explicit
// uuid fields rather than OTEL's SpanContext propagation, so the parent
// relationship is recorded as attributes instead of a parent SpanContext —
// this keeps our own cross-goroutine trace model (detached tracing context
// for cancelled runs) independent of OTEL's context-bound span stack.
func (c *Collector) emitOTel(span store.SpanData) {
	end := time.Now().UTC()
	if span.EndTime != nil {
		end = *span.EndTime
	}

	attrs := []attribute.KeyValue{
		attribute.String("wayfarer.trace_id", span.TraceID.String()),
		attribute.String("wayfarer.span_type", span.SpanType),
	}
	if span.ParentSpanID != nil {
		attrs = append(attrs, attribute.String("wayfarer.parent_span_id", span.ParentSpanID.String()))
	}
	if span.Model != "" {
		attrs = append(attrs, attribute.String("llm.model", span.Model))
	}
	if span.Provider != "" {
		attrs = append(attrs, attribute.String("llm.provider", span.Provider))
	}
	if span.ToolName != "" {
		attrs = append(attrs, attribute.String("tool.name", span.ToolName))
	}
	if span.InputTokens > 0 {
		attrs = append(attrs, attribute.Int("llm.input_tokens", span.InputTokens))
	}
	if span.OutputTokens > 0 {
		attrs = append(attrs, attribute.Int("llm.output_tokens", span.OutputTokens))
	}

	_, otelSpan := c.tracer.Start(context.Background(), span.Name,
		oteltrace.WithTimestamp(span.StartTime),
		oteltrace.WithAttributes(attrs...),
	)
	if span.Status == store.SpanStatusError {
		otelSpan.RecordError(errors.New(span.Error))
		otelSpan.SetStatus(codes.Error, span.Error)
	}
	otelSpan.End(oteltrace.WithTimestamp(end))
}
