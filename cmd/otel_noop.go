//go:build !otel

package cmd

import (
	"context"
	"log/slog"

	"github.com/relaybridge/wayfarer/internal/config"
	"github.com/relaybridge/wayfarer/internal/tracing"
)

// initOTelExporter is a no-op in the default build. The tracing.Collector
// still persists spans (managed mode) and mirrors them onto its internal
// no-op tracer; only the OTLP mirror is compiled out. Build with
// 'go build -tags otel' to link the real exporter in otel_enabled.go.
func initOTelExporter(ctx context.Context, cfg *config.Config, collector *tracing.Collector) {
	if cfg.Telemetry.Enabled {
		slog.Warn("telemetry.enabled is set but this binary was built without the 'otel' tag; OTLP export disabled")
	}
}
