package network

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/cbodonnell/voxelrelay/pkg/log"
	"github.com/cbodonnell/voxelrelay/pkg/queue"
	"github.com/gorilla/websocket"
)

// InboundFrame is a raw frame received from a connection, queued for the
// relay loop. The payload is not parsed on the transport goroutine.
type InboundFrame struct {
	Conn *Connection
	Data []byte
}

// Disconnect signals that a connection's reader has exited. Registry
// cleanup happens on the relay loop, never on the transport goroutine.
type Disconnect struct {
	Conn *Connection
}

// WSServer accepts WebSocket connections and feeds their frames into the
// message queue.
type WSServer struct {
	port          int
	clientManager *ClientManager
	messageQueue  queue.Queue
	server        *http.Server
	accepting     atomic.Bool
}

type NewWSServerOptions struct {
	Port          int
	ClientManager *ClientManager
	MessageQueue  queue.Queue
}

// NewWSServer creates a new WebSocket server. It accepts connections
// until SetAccepting(false) is called.
func NewWSServer(opts NewWSServerOptions) *WSServer {
	s := &WSServer{
		port:          opts.Port,
		clientManager: opts.ClientManager,
		messageQueue:  opts.MessageQueue,
	}
	s.accepting.Store(true)
	return s
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SetAccepting toggles whether new connections are admitted.
func (s *WSServer) SetAccepting(accepting bool) {
	s.accepting.Store(accepting)
}

// Accepting reports whether new connections are admitted.
func (s *WSServer) Accepting() bool {
	return s.accepting.Load()
}

// Handler returns the HTTP handler that upgrades to WebSocket.
func (s *WSServer) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.Accepting() {
			http.Error(w, "Server is not accepting connections", http.StatusServiceUnavailable)
			return
		}
		wsConn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("Failed to upgrade to WebSocket: %v", err)
			return
		}
		conn := NewConnection(wsConn, wsConn.RemoteAddr().String())
		log.Debug("New WebSocket connection from %s", conn.RemoteAddr())
		s.clientManager.Add(conn)
		go s.readLoop(wsConn, conn)
	})
}

// Start starts the WebSocket server and blocks until the context is
// cancelled or the listener fails.
func (s *WSServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.server = &http.Server{Addr: addr, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		s.server.Shutdown(context.Background())
	}()

	log.Info("WebSocket server listening on %s", addr)
	if err := s.server.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("WebSocket server closed")
			return nil
		}
		return fmt.Errorf("websocket server error: %w", err)
	}
	return nil
}

// readLoop reads frames until the connection errors or closes, then queues
// a Disconnect for the relay loop.
func (s *WSServer) readLoop(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		conn.Close()
		if err := s.messageQueue.Enqueue(&Disconnect{Conn: conn}); err != nil {
			// The relay loop reaps closed connections, so a dropped
			// disconnect event is recovered on the next sweep.
			log.Warn("Failed to enqueue disconnect for %s: %v", conn.RemoteAddr(), err)
		}
	}()

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error("Error reading WebSocket message from %s: %v", conn.RemoteAddr(), err)
			}
			log.Debug("Connection closed for %s", conn.RemoteAddr())
			return
		}
		if err := s.messageQueue.Enqueue(&InboundFrame{Conn: conn, Data: data}); err != nil {
			log.Warn("Dropping frame from %s: %v", conn.RemoteAddr(), err)
		}
	}
}
