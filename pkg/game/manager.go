package game

import (
	"context"
	"time"

	"github.com/cbodonnell/voxelrelay/pkg/log"
	"github.com/cbodonnell/voxelrelay/pkg/messages"
	"github.com/cbodonnell/voxelrelay/pkg/network"
	"github.com/cbodonnell/voxelrelay/pkg/queue"
	"github.com/cbodonnell/voxelrelay/pkg/registry"
	"github.com/cbodonnell/voxelrelay/pkg/repositories"
)

// disconnectAllRequest asks the relay loop to broadcast a shutdown notice
// and close every connection. The control API enqueues it so the operation
// serializes with message handling.
type disconnectAllRequest struct {
	reason string
}

// Manager owns the registries and runs the relay loop. All registry
// mutation and all broadcast fan-out happens on that single loop, so no
// two handlers ever interleave, and the reap sweep and stats log serialize
// with message handling by construction.
type Manager struct {
	registry      *registry.Registry
	clientManager *network.ClientManager
	broadcaster   *Broadcaster
	messageQueue  queue.Queue
	events        chan<- repositories.Event
	reapInterval  time.Duration
	statsInterval time.Duration
	started       time.Time
}

type NewManagerOptions struct {
	Registry      *registry.Registry
	ClientManager *network.ClientManager
	MessageQueue  queue.Queue
	// Events receives relay events for recording. May be nil.
	Events        chan<- repositories.Event
	ReapInterval  time.Duration
	StatsInterval time.Duration
}

func NewManager(opts NewManagerOptions) *Manager {
	return &Manager{
		registry:      opts.Registry,
		clientManager: opts.ClientManager,
		broadcaster:   NewBroadcaster(opts.Registry, opts.ClientManager),
		messageQueue:  opts.MessageQueue,
		events:        opts.Events,
		reapInterval:  opts.ReapInterval,
		statsInterval: opts.StatsInterval,
		started:       time.Now(),
	}
}

// Start runs the relay loop until the context is cancelled. On cancellation
// every open connection receives a server_shutdown notification before the
// server closes it.
func (m *Manager) Start(ctx context.Context) error {
	reapTicker := time.NewTicker(m.reapInterval)
	defer reapTicker.Stop()
	statsTicker := time.NewTicker(m.statsInterval)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.disconnectAll("server shutting down")
			return nil
		case item := <-m.messageQueue.Events():
			m.dispatch(item)
		case <-reapTicker.C:
			m.reap()
		case <-statsTicker.C:
			m.logStats()
		}
	}
}

func (m *Manager) dispatch(item interface{}) {
	switch v := item.(type) {
	case *network.InboundFrame:
		m.route(v.Conn, v.Data)
	case *network.Disconnect:
		m.handleDisconnect(v.Conn)
	case *disconnectAllRequest:
		m.disconnectAll(v.reason)
	default:
		log.Error("Unhandled queue item type: %T", item)
	}
}

// RequestDisconnectAll asks the relay loop to notify and close every
// connection. Used by the control API's stop operation.
func (m *Manager) RequestDisconnectAll(reason string) error {
	return m.messageQueue.Enqueue(&disconnectAllRequest{reason: reason})
}

// PlayerCount returns the number of logged-in players.
func (m *Manager) PlayerCount() int {
	return m.registry.Count()
}

// Uptime returns the time since the manager was created.
func (m *Manager) Uptime() time.Duration {
	return time.Since(m.started)
}

// handleDisconnect processes an explicit close event from the transport.
func (m *Manager) handleDisconnect(conn *network.Connection) {
	conn.Close()
	m.clientManager.Remove(conn)

	if conn.PlayerID == "" {
		// Anonymous connection: nothing to clean up, nothing to announce.
		return
	}
	player, ok := m.registry.Find(conn.PlayerID)
	if !ok {
		// Already cleaned up by a racing reap sweep.
		return
	}
	m.removePlayer(player)
}

// removePlayer unregisters the player and announces the departure to the
// remaining world. It runs at most once per player: both the explicit
// close path and the reap sweep go through the registry, and the first
// removal wins.
func (m *Manager) removePlayer(player *registry.Player) {
	world := player.World
	m.registry.Unregister(player.ID)
	m.clientManager.ReleasePlayer(player.ID)

	leave, err := messages.New(messages.MessageTypePlayerLeave, &messages.PlayerLeave{
		PlayerID: player.ID,
		Username: player.Username,
	})
	if err != nil {
		log.Error("Failed to build player leave message: %v", err)
		return
	}
	m.broadcaster.Broadcast(world, leave, player.ID)

	m.recordEvent(repositories.Event{
		Timestamp: time.Now().UnixMilli(),
		Type:      repositories.EventTypePlayerLeave,
		World:     world,
		PlayerID:  player.ID,
		Username:  player.Username,
	})
	log.Info("Player %s (%s) disconnected", player.Username, player.ID)
}

// reap removes every player whose underlying connection is no longer open.
// A player already removed by an explicit close is not in the registry
// anymore, so reaping never produces a duplicate player_leave.
func (m *Manager) reap() {
	for _, player := range m.registry.Players() {
		conn := m.clientManager.GetByPlayerID(player.ID)
		if conn != nil && conn.IsOpen() {
			continue
		}
		log.Debug("Reaping player %s (%s)", player.Username, player.ID)
		if conn != nil {
			m.clientManager.Remove(conn)
		}
		m.removePlayer(player)
	}

	// Drop closed connections that never authenticated.
	for _, conn := range m.clientManager.All() {
		if !conn.IsOpen() && conn.PlayerID == "" {
			m.clientManager.Remove(conn)
		}
	}
}

func (m *Manager) logStats() {
	log.Info("Stats: %d players, %d connections", m.registry.Count(), m.clientManager.Count())
}

// disconnectAll notifies every open connection of the shutdown, closes it,
// and clears the registries. It is the single shutdown-broadcast
// implementation shared by the termination-signal path and the control
// API's stop operation.
func (m *Manager) disconnectAll(reason string) {
	msg, err := messages.New(messages.MessageTypeServerShutdown, &messages.ServerShutdown{Message: reason})
	if err != nil {
		log.Error("Failed to build server shutdown message: %v", err)
		return
	}

	conns := m.clientManager.All()
	for _, conn := range conns {
		if conn.IsOpen() {
			if err := conn.Send(msg); err != nil {
				log.Debug("Failed to send shutdown notice to %s: %v", conn.RemoteAddr(), err)
			}
		}
		conn.Close()
		m.clientManager.Remove(conn)
	}
	m.registry.Reset()
	log.Info("Disconnected %d connections: %s", len(conns), reason)
}

func (m *Manager) recordEvent(event repositories.Event) {
	if m.events == nil {
		return
	}
	select {
	case m.events <- event:
	default:
		log.Warn("Event channel full, dropping %s event", event.Type)
	}
}
