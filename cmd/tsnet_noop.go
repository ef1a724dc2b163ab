//go:build !tsnet

package cmd

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/relaybridge/wayfarer/internal/config"
)

// initTailscale is a no-op in the default build. Build with
// 'go build -tags tsnet' to link the real tsnet listener in tsnet_enabled.go.
func initTailscale(ctx context.Context, cfg *config.Config, mux *http.ServeMux) func() {
	if cfg.Tailscale.Hostname != "" {
		slog.Warn("tailscale.hostname is set but this binary was built without the 'tsnet' tag; tailnet listener disabled")
	}
	return nil
}
