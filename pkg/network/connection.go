package network

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cbodonnell/voxelrelay/pkg/messages"
	"github.com/gorilla/websocket"
)

// writeWait is the deadline applied to every outbound write.
const writeWait = 10 * time.Second

// ErrConnectionClosed is returned when sending on a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// Socket is the subset of *websocket.Conn the connection wrapper needs.
// Tests substitute an in-memory implementation.
type Socket interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// deadlineSocket is implemented by sockets that support write deadlines.
type deadlineSocket interface {
	SetWriteDeadline(t time.Time) error
}

// Connection wraps one client socket. Writes are guarded by a mutex so the
// relay loop and the transport can both send safely.
type Connection struct {
	socket     Socket
	remoteAddr string

	writeMu sync.Mutex
	closed  atomic.Bool
	admin   atomic.Bool

	// PlayerID is set at login and read only by the relay loop.
	PlayerID string
}

// NewConnection wraps a socket. remoteAddr is used for logging only.
func NewConnection(socket Socket, remoteAddr string) *Connection {
	return &Connection{
		socket:     socket,
		remoteAddr: remoteAddr,
	}
}

// RemoteAddr returns the remote address the connection was accepted from.
func (c *Connection) RemoteAddr() string {
	return c.remoteAddr
}

// Send marshals the message envelope and writes it as a single text frame.
func (c *Connection) Send(msg *messages.Message) error {
	if !c.IsOpen() {
		return ErrConnectionClosed
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if ds, ok := c.socket.(deadlineSocket); ok {
		if err := ds.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}
	if err := c.socket.WriteMessage(websocket.TextMessage, b); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Close closes the underlying socket. It is safe to call from any
// goroutine and at any point in the connection's life, and is idempotent.
func (c *Connection) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.socket.Close()
}

// IsOpen reports whether the connection has not been closed.
func (c *Connection) IsOpen() bool {
	return !c.closed.Load()
}

// SetAdmin flags the connection as an admin/observer connection.
func (c *Connection) SetAdmin(admin bool) {
	c.admin.Store(admin)
}

// IsAdmin reports whether the connection is flagged as admin.
func (c *Connection) IsAdmin() bool {
	return c.admin.Load()
}
