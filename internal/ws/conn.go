package ws

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/sina1864/EChat/internal/presence"
)

// Conn wraps one websocket connection with a buffered outbound queue so
// fanout never blocks on a slow client.
type Conn struct {
	id   presence.ConnID
	sock *websocket.Conn
	out  chan []byte
}

// Accept upgrades HTTP to websocket (allow all origins)
func Accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
}

func newConn(id presence.ConnID, sock *websocket.Conn) *Conn {
	return &Conn{id: id, sock: sock, out: make(chan []byte, 256)}
}

// queue enqueues an outbound frame without blocking; a full buffer drops
// the frame, which counts as the one best-effort delivery attempt.
func (c *Conn) queue(b []byte) {
	select {
	case c.out <- b:
	default:
	}
}

// read blocks until a data message arrives
// Returns false when the connection is closed
func (c *Conn) read(ctx context.Context) ([]byte, bool) {
	for {
		typ, data, err := c.sock.Read(ctx)
		if err != nil {
			return nil, false
		}
		if typ == websocket.MessageText || typ == websocket.MessageBinary {
			return data, true
		}
	}
}

// writeLoop sends outbound frames + periodic pings
// Exits when ctx is cancelled
func (c *Conn) writeLoop(ctx context.Context, ping time.Duration) {
	t := time.NewTicker(ping)
	defer t.Stop()

	for {
		select {
		case b := <-c.out:
			_ = c.sock.Write(ctx, websocket.MessageText, b)
		case <-t.C:
			_ = c.sock.Ping(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// close closes the websocket normally
func (c *Conn) close() error { return c.sock.Close(websocket.StatusNormalClosure, "bye") }
