//go:build tsnet

package cmd

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"tailscale.com/tsnet"

	"github.com/relaybridge/wayfarer/internal/config"
)

// initTailscale starts a tsnet listener and serves mux on it alongside the
// regular TCP listener, so the gateway is reachable both locally and over
// the tailnet. Only linked in when built with 'go build -tags tsnet'; the
// default build uses the no-op stub in tsnet_noop.go.
func initTailscale(ctx context.Context, cfg *config.Config, mux *http.ServeMux) func() {
	tc := cfg.Tailscale
	if tc.Hostname == "" {
		return nil
	}

	srv := &tsnet.Server{
		Hostname:   tc.Hostname,
		AuthKey:    tc.AuthKey,
		Ephemeral:  tc.Ephemeral,
	}
	if tc.StateDir != "" {
		srv.Dir = config.ExpandHome(tc.StateDir)
	}

	var ln net.Listener
	var err error
	if tc.EnableTLS {
		ln, err = srv.ListenTLS("tcp", ":443")
	} else {
		ln, err = srv.Listen("tcp", ":80")
	}
	if err != nil {
		slog.Error("tsnet: failed to listen", "hostname", tc.Hostname, "error", err)
		srv.Close()
		return nil
	}

	go func() {
		if err := http.Serve(ln, mux); err != nil {
			slog.Warn("tsnet: http serve stopped", "error", err)
		}
	}()

	slog.Info("tsnet: listening on tailnet", "hostname", tc.Hostname)

	return func() {
		ln.Close()
		srv.Close()
	}
}
