package gateway

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Stormrider66/hockey-hub-sub043/logger"
	security "github.com/Stormrider66/hockey-hub-sub043/tools/security"
)

const (
	sendQueueSize = 64
	writeWait     = 10 * time.Second
	pingInterval  = 25 * time.Second
	pongWait      = 75 * time.Second
)

// WsConn is one authenticated long-lived connection. Immutable after
// construction except for channel membership, which lives in the
// manager's side tables.
type WsConn struct {
	ConnID      string
	Identity    *security.Identity
	ConnectedAt time.Time

	Conn   *websocket.Conn
	Remote net.Addr
	Send   chan []byte // per-connection send queue, drained by WritePump

	closeOnce sync.Once
	done      chan struct{}
}

func NewWsConn(connID string, id *security.Identity, ws *websocket.Conn) *WsConn {
	c := &WsConn{
		ConnID:      connID,
		Identity:    id,
		ConnectedAt: time.Now(),
		Conn:        ws,
		Send:        make(chan []byte, sendQueueSize),
		done:        make(chan struct{}),
	}
	if ws != nil {
		c.Remote = ws.RemoteAddr()
	}
	return c
}

func (c *WsConn) UserID() string { return c.Identity.UserID }

// Enqueue pushes a frame onto the send queue without blocking. A slow
// client loses frames rather than stalling the fan-out path.
func (c *WsConn) Enqueue(payload []byte) bool {
	if payload == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- payload:
		return true
	default:
		logger.Warnf("[conn] send queue full, dropping frame conn=%s user=%s", c.ConnID, c.UserID())
		return false
	}
}

// SendEvent encodes and enqueues a single wire event.
func (c *WsConn) SendEvent(event string, data any) bool {
	return c.Enqueue(EncodeFrame(event, data))
}

// Close releases the write pump and the underlying socket. Safe to call
// more than once and from any goroutine.
func (c *WsConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.Conn != nil {
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = c.Conn.Close()
		}
	})
}

// WritePump is the single writer for the socket: gorilla conns must not
// be written concurrently. Run it in its own goroutine per connection.
func (c *WsConn) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Infof("[conn] write err conn=%s user=%s err=%v", c.ConnID, c.UserID(), err)
				return
			}
		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				logger.Infof("[conn] ping err conn=%s user=%s err=%v", c.ConnID, c.UserID(), err)
				return
			}
		}
	}
}
