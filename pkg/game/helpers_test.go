package game

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cbodonnell/voxelrelay/pkg/messages"
	"github.com/cbodonnell/voxelrelay/pkg/network"
	"github.com/cbodonnell/voxelrelay/pkg/queue"
	"github.com/cbodonnell/voxelrelay/pkg/registry"
	"github.com/cbodonnell/voxelrelay/pkg/repositories"
	"github.com/stretchr/testify/require"
)

// fakeSocket records every frame written to it.
type fakeSocket struct {
	mu         sync.Mutex
	frames     []messages.Message
	failWrites bool
}

func (s *fakeSocket) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return errors.New("broken pipe")
	}
	var msg messages.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	s.frames = append(s.frames, msg)
	return nil
}

func (s *fakeSocket) Close() error {
	return nil
}

func (s *fakeSocket) received() []messages.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	frames := make([]messages.Message, len(s.frames))
	copy(frames, s.frames)
	return frames
}

func (s *fakeSocket) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = nil
}

// typesOf returns the type discriminators of the recorded frames, in order.
func (s *fakeSocket) typesOf() []string {
	frames := s.received()
	types := make([]string, len(frames))
	for i, f := range frames {
		types[i] = f.Type
	}
	return types
}

func decodePayload(t *testing.T, msg messages.Message, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(msg.Payload, v))
}

type testRig struct {
	manager  *Manager
	registry *registry.Registry
	clients  *network.ClientManager
	queue    *queue.InMemoryQueue
	events   chan repositories.Event
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	reg := registry.New()
	cm := network.NewClientManager()
	q := queue.NewInMemoryQueue(256)
	events := make(chan repositories.Event, 256)
	m := NewManager(NewManagerOptions{
		Registry:      reg,
		ClientManager: cm,
		MessageQueue:  q,
		Events:        events,
		ReapInterval:  time.Minute,
		StatsInterval: time.Minute,
	})
	return &testRig{
		manager:  m,
		registry: reg,
		clients:  cm,
		queue:    q,
		events:   events,
	}
}

// connect attaches a fake connection the way the transport would.
func (r *testRig) connect() (*network.Connection, *fakeSocket) {
	socket := &fakeSocket{}
	conn := network.NewConnection(socket, "test:0")
	r.clients.Add(conn)
	return conn, socket
}

func rawFrame(t *testing.T, msgType string, payload interface{}) []byte {
	t.Helper()
	msg, err := messages.New(msgType, payload)
	require.NoError(t, err)
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	return b
}

// login runs a login exchange and returns the assigned player id.
func (r *testRig) login(t *testing.T, conn *network.Connection, socket *fakeSocket, username string) string {
	t.Helper()
	r.manager.route(conn, rawFrame(t, messages.MessageTypeLogin, &messages.Login{
		Username: username,
		Version:  registry.SupportedVersion,
	}))
	frames := socket.received()
	require.NotEmpty(t, frames)
	require.Equal(t, messages.MessageTypeLoginSuccess, frames[0].Type)
	var success messages.LoginSuccess
	decodePayload(t, frames[0], &success)
	socket.reset()
	return success.PlayerID
}
