package gateway

import (
	"context"
	"log/slog"

	"github.com/relaybridge/wayfarer/pkg/protocol"
)

// MethodHandler handles one dispatched RPC request for a connected client.
// Handlers are responsible for calling client.SendResponse exactly once.
type MethodHandler func(ctx context.Context, client *Client, req *protocol.RequestFrame)

// MethodRouter maps RPC method names to handlers. Core methods (connect,
// health, status, chat.*, send, sessions.*, skills.*, cron.*,
// exec.approval.*, device.pair.*, channels.*) are registered by
// registerAllMethods at startup; other method groups (e.g. the Zalo
// personal contacts methods) register themselves via their own
// Register(*MethodRouter) method.
type MethodRouter struct {
	server   *Server
	handlers map[string]MethodHandler
}

// NewMethodRouter creates an empty router bound to server (used by handlers
// that need access to shared state like the agent directory or session store).
func NewMethodRouter(server *Server) *MethodRouter {
	return &MethodRouter{
		server:   server,
		handlers: make(map[string]MethodHandler),
	}
}

// Register associates a method name with its handler. A later call for the
// same method replaces the earlier one.
func (r *MethodRouter) Register(method string, handler MethodHandler) {
	r.handlers[method] = handler
}

// Dispatch looks up and invokes the handler for req.Method, replying with a
// method_not_found error if none is registered.
func (r *MethodRouter) Dispatch(ctx context.Context, client *Client, req *protocol.RequestFrame) {
	handler, ok := r.handlers[req.Method]
	if !ok {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrMethodNotFound, "unknown method: "+req.Method))
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("gateway: method handler panicked", "method", req.Method, "panic", rec)
			client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, "internal error"))
		}
	}()

	handler(ctx, client, req)
}
