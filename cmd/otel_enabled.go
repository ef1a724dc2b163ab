//go:build otel

package cmd

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/relaybridge/wayfarer/internal/config"
	"github.com/relaybridge/wayfarer/internal/tracing"
)

// initOTelExporter builds an OTLP trace exporter from cfg.Telemetry and wires
// it into collector as the real tracer. Only linked in when built with
// 'go build -tags otel'; the default build uses the no-op stub in otel_noop.go
// so a stock binary never needs a collector endpoint reachable at startup.
func initOTelExporter(ctx context.Context, cfg *config.Config, collector *tracing.Collector) {
	tc := cfg.Telemetry
	if !tc.Enabled || tc.Endpoint == "" {
		return
	}

	exporter, err := newOTLPExporter(ctx, tc)
	if err != nil {
		slog.Error("otel: failed to create OTLP exporter, tracing stays local-only", "error", err)
		return
	}

	serviceName := tc.ServiceName
	if serviceName == "" {
		serviceName = "wayfarer"
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		res = resource.Default()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	collector.SetTracerProvider(tp)
	slog.Info("otel: OTLP trace export enabled", "endpoint", tc.Endpoint, "protocol", tc.Protocol, "service", serviceName)
}

func newOTLPExporter(ctx context.Context, tc config.TelemetryConfig) (*otlptrace.Exporter, error) {
	switch tc.Protocol {
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(tc.Endpoint)}
		if tc.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(tc.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(tc.Headers))
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(tc.Endpoint),
			otlptracegrpc.WithTimeout(10 * time.Second),
		}
		if tc.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		if len(tc.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(tc.Headers))
		}
		return otlptracegrpc.New(ctx, opts...)
	}
}
