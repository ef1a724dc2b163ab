package protocol

import "encoding/json"

// ProtocolVersion is the WebSocket wire protocol version reported on /health
// and during connect handshakes.
const ProtocolVersion = 1

// RequestFrame is a client-to-server RPC call.
type RequestFrame struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ResponseFrame is a server reply to a RequestFrame, correlated by ID.
type ResponseFrame struct {
	Type   string      `json:"type"`
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  *RPCError   `json:"error,omitempty"`
}

// RPCError is the error shape carried in a failed ResponseFrame.
type RPCError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RPC error codes.
const (
	ErrInvalidRequest = "invalid_request"
	ErrNotFound       = "not_found"
	ErrUnauthorized   = "unauthorized"
	ErrForbidden      = "forbidden"
	ErrInternal       = "internal_error"
	ErrMethodNotFound = "method_not_found"
)

// NewOKResponse builds a successful ResponseFrame for the given request ID.
func NewOKResponse(id string, result interface{}) *ResponseFrame {
	return &ResponseFrame{Type: "response", ID: id, Result: result}
}

// NewErrorResponse builds a failed ResponseFrame for the given request ID.
func NewErrorResponse(id, code, message string) *ResponseFrame {
	return &ResponseFrame{Type: "response", ID: id, Error: &RPCError{Code: code, Message: message}}
}

// EventFrame is a server-to-client push not tied to a specific request.
type EventFrame struct {
	Type    string      `json:"type"`
	Name    string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// NewEvent wraps a bus event name/payload pair as a wire EventFrame.
func NewEvent(name string, payload interface{}) *EventFrame {
	return &EventFrame{Type: "event", Name: name, Payload: payload}
}
