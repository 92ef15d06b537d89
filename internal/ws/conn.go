package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"
)

type Conn struct {
	ws  *websocket.Conn
	id  string
	out chan []byte

	// guarded by Hub.mu
	groups map[string]struct{}
	hosted []string
}

// Accept upgrades HTTP to websocket for the given origin patterns
func Accept(w http.ResponseWriter, r *http.Request, origins []string) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  origins,
		CompressionMode: websocket.CompressionDisabled,
	})
}

// NewConn wraps a WS connection under a session id
func NewConn(ws *websocket.Conn, id string) *Conn {
	return &Conn{
		ws:     ws,
		id:     id,
		out:    make(chan []byte, 256),
		groups: map[string]struct{}{},
	}
}

// ID is the session id
func (c *Conn) ID() string { return c.id }

// Read blocks until it receives a text/binary message
// Returns false if connection is closed
func (c *Conn) Read(ctx context.Context) ([]byte, bool) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return nil, false
		}
		if typ == websocket.MessageText || typ == websocket.MessageBinary {
			return data, true
		}
	}
}

// WriteLoop sends outbound frames + periodic pings
// Exits when ctx is cancelled
func (c *Conn) WriteLoop(ctx context.Context) {
	p := 20 * time.Second
	t := time.NewTicker(p)
	defer t.Stop()

	for {
		select {
		case b := <-c.out:
			_ = c.ws.Write(ctx, websocket.MessageText, b)
		case <-t.C:
			_ = c.ws.Ping(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Send queues a frame, dropping it if the buffer is full
func (c *Conn) Send(f Frame) bool {
	b, err := json.Marshal(f)
	if err != nil {
		return false
	}
	return c.sendRaw(b)
}

func (c *Conn) sendRaw(b []byte) bool {
	select {
	case c.out <- b:
		return true
	default:
		return false
	}
}

// reply answers request id with v; requests without an id get nothing.
// Unlike relays, a reply waits for buffer space until ctx is done.
func (c *Conn) reply(ctx context.Context, id uint64, v any) bool {
	if id == 0 {
		return false
	}
	b, err := json.Marshal(Frame{Ack: id, Data: encode(v)})
	if err != nil {
		return false
	}
	select {
	case c.out <- b:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close closes the WS connection normally
func (c *Conn) Close() error { return c.ws.Close(websocket.StatusNormalClosure, "bye") }
