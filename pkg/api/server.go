package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cbodonnell/voxelrelay/pkg/log"
	"github.com/cbodonnell/voxelrelay/pkg/repositories"
	"github.com/gorilla/mux"
)

// Relay is the core surface the control API drives. It is implemented by
// the game manager.
type Relay interface {
	PlayerCount() int
	Uptime() time.Duration
	// RequestDisconnectAll asks the relay loop to notify and close every
	// connection; the API never performs the shutdown broadcast itself.
	RequestDisconnectAll(reason string) error
}

// Gate controls whether the transport admits new connections. It is
// implemented by the WebSocket server.
type Gate interface {
	SetAccepting(accepting bool)
	Accepting() bool
}

// APIServer serves the status/control endpoints.
type APIServer struct {
	server *http.Server
}

type NewAPIServerOptions struct {
	Port       int
	Relay      Relay
	Gate       Gate
	Repository repositories.Repository
}

// NewAPIServer creates a new http.Server for handling control requests.
func NewAPIServer(opts NewAPIServerOptions) *APIServer {
	h := &handler{
		relay:      opts.Relay,
		gate:       opts.Gate,
		repository: opts.Repository,
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/status", h.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/start", h.handleStart).Methods(http.MethodPost)
	router.HandleFunc("/api/stop", h.handleStop).Methods(http.MethodPost)
	router.HandleFunc("/api/events", h.handleEvents).Methods(http.MethodGet)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}
	return &APIServer{
		server: server,
	}
}

// Handler returns the underlying router, for tests.
func (s *APIServer) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the APIServer.
func (s *APIServer) Start() {
	log.Info("API server listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("API server closed")
			return
		}
		log.Error("API server error: %v", err)
	}
}

// Stop stops the APIServer.
func (s *APIServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
