// Package ws adapts gorilla WebSocket connections to the relay.
package ws

import (
	"chat-relay/contract"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// NewUpgrader accepts any origin. bufferSize <= 0 keeps gorilla's defaults.
func NewUpgrader(bufferSize int) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  bufferSize,
		WriteBufferSize: bufferSize,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

// Connection is one WebSocket bound to a pending HTTP upgrade.
type Connection struct {
	upgrader *websocket.Upgrader
	w        http.ResponseWriter
	r        *http.Request

	writeMu sync.Mutex
	conn    *websocket.Conn
	once    sync.Once
}

var _ contract.Connection = (*Connection)(nil)

func NewConnection(upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request) *Connection {
	return &Connection{upgrader: upgrader, w: w, r: r}
}

// Accept performs the upgrade handshake.
func (c *Connection) Accept(context.Context) error {
	if c.conn != nil {
		return nil
	}
	conn, err := c.upgrader.Upgrade(c.w, c.r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}
	c.conn = conn
	return nil
}

func (c *Connection) Send(ctx context.Context, text string) error {
	if c.conn == nil {
		return fmt.Errorf("websocket not accepted")
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeWait)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// Receive blocks for the next text frame. Binary frames are skipped.
// Cancelling ctx closes the socket, which unblocks the read.
func (c *Connection) Receive(ctx context.Context) (string, error) {
	if c.conn == nil {
		return "", fmt.Errorf("websocket not accepted")
	}
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", err
		}
		if messageType == websocket.TextMessage {
			return string(data), nil
		}
	}
}

// Close is idempotent.
func (c *Connection) Close() error {
	var err error
	c.once.Do(func() {
		if c.conn == nil {
			return
		}
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		err = c.conn.Close()
	})
	return err
}
