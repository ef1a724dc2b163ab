package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/google/uuid"

	"github.com/relaybridge/wayfarer/pkg/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // 1 MiB
)

// Client is one connected WebSocket session: a read pump that dispatches
// incoming RPC requests through the server's MethodRouter, and a write
// pump that serializes outgoing responses/events onto the same connection.
type Client struct {
	id     string
	conn   *websocket.Conn
	server *Server

	send chan interface{}

	mu     sync.Mutex
	closed bool
}

// NewClient wraps an upgraded WebSocket connection as a Client.
func NewClient(conn *websocket.Conn, server *Server) *Client {
	return &Client{
		id:     uuid.NewString(),
		conn:   conn,
		server: server,
		send:   make(chan interface{}, 64),
	}
}

// Run drives the client's read and write pumps until the connection closes
// or ctx is cancelled.
func (c *Client) Run(ctx context.Context) {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(connCtx)
	c.readPump(connCtx)
}

func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var req protocol.RequestFrame
		if err := json.Unmarshal(data, &req); err != nil {
			slog.Warn("gateway: malformed request frame", "client", c.id, "error", err)
			continue
		}
		if req.Method == "" {
			continue
		}

		go c.server.router.Dispatch(ctx, c, &req)
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ID returns the client's connection ID, used as a default chat ID for
// RPC-originated chat turns that don't specify one explicitly.
func (c *Client) ID() string { return c.id }

// SendResponse enqueues an RPC response frame for delivery to this client.
func (c *Client) SendResponse(resp *protocol.ResponseFrame) {
	c.enqueue(resp)
}

// SendEvent enqueues a broadcast/targeted event frame for delivery to this client.
func (c *Client) SendEvent(event protocol.EventFrame) {
	c.enqueue(&event)
}

func (c *Client) enqueue(msg interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		slog.Warn("gateway: client send buffer full, dropping message", "client", c.id)
	}
}

// Close shuts down the client's send channel, stopping its write pump.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
