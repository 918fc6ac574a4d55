package game

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cbodonnell/voxelrelay/pkg/log"
	"github.com/cbodonnell/voxelrelay/pkg/messages"
	"github.com/cbodonnell/voxelrelay/pkg/network"
	"github.com/cbodonnell/voxelrelay/pkg/registry"
	"github.com/cbodonnell/voxelrelay/pkg/repositories"
)

// route parses a raw inbound frame and dispatches it to the handler for
// its message type. A frame that cannot be parsed, carries an unknown
// type, or panics a handler produces a single error reply to the sender;
// the connection stays open and the process never crashes.
func (m *Manager) route(conn *network.Connection, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Recovered from handler panic for %s: %v", conn.RemoteAddr(), r)
			m.sendError(conn, "malformed message")
		}
	}()

	var msg messages.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		m.sendError(conn, fmt.Sprintf("malformed message: %v", err))
		return
	}

	switch msg.Type {
	case messages.MessageTypeAdminConnect:
		m.handleAdminConnect(conn)
	case messages.MessageTypeLogin:
		m.handleLogin(conn, msg.Payload)
	case messages.MessageTypeMove:
		m.handleMove(conn, msg.Payload)
	case messages.MessageTypeBlockAction:
		m.handleBlockAction(conn, msg.Payload)
	case messages.MessageTypeChat:
		m.handleChat(conn, msg.Payload)
	case messages.MessageTypePing:
		m.handlePing(conn)
	default:
		m.sendError(conn, fmt.Sprintf("unrecognized message type: %q", msg.Type))
	}
}

// handleAdminConnect flags the connection as an admin/observer and replies
// with a snapshot of every registered player. Admin connections receive all
// broadcasts but never hold a player identity.
func (m *Manager) handleAdminConnect(conn *network.Connection) {
	conn.SetAdmin(true)
	players := m.registry.Players()
	infos := make([]messages.PlayerInfo, 0, len(players))
	for _, player := range players {
		infos = append(infos, player.Info())
	}
	m.send(conn, messages.MessageTypeAdminUpdate, &messages.AdminUpdate{Players: infos})
	log.Info("Admin connection registered from %s", conn.RemoteAddr())
}

func (m *Manager) handleLogin(conn *network.Connection, payload json.RawMessage) {
	if conn.IsAdmin() {
		// Admin connections observe; they never hold a player identity.
		log.Debug("Dropping login from admin connection %s", conn.RemoteAddr())
		return
	}
	if conn.PlayerID != "" {
		m.sendError(conn, "already logged in")
		return
	}

	login := &messages.Login{}
	if err := json.Unmarshal(payload, login); err != nil {
		m.sendError(conn, fmt.Sprintf("malformed message: %v", err))
		return
	}

	player, err := m.registry.Register(login.Username, login.Version, registry.DefaultWorldName)
	if err != nil {
		m.sendError(conn, err.Error())
		return
	}

	conn.PlayerID = player.ID
	m.clientManager.BindPlayer(conn, player.ID)

	spawn, _ := m.registry.Spawn(player.World)
	m.send(conn, messages.MessageTypeLoginSuccess, &messages.LoginSuccess{
		PlayerID: player.ID,
		Spawn:    spawn,
	})

	// Roster of everyone already in the world, excluding the new player.
	// Marshals as an empty array, never null, when the world is empty.
	members := m.registry.WorldMembers(player.World)
	existing := make([]messages.PlayerInfo, 0, len(members))
	for _, memberID := range members {
		if memberID == player.ID {
			continue
		}
		if member, ok := m.registry.Find(memberID); ok {
			existing = append(existing, member.Info())
		}
	}
	m.send(conn, messages.MessageTypeExistingPlayers, &messages.ExistingPlayers{Players: existing})

	join, err := messages.New(messages.MessageTypePlayerJoin, &messages.PlayerJoin{Player: player.Info()})
	if err != nil {
		log.Error("Failed to build player join message: %v", err)
		return
	}
	m.broadcaster.Broadcast(player.World, join, player.ID)

	m.recordEvent(repositories.Event{
		Timestamp: time.Now().UnixMilli(),
		Type:      repositories.EventTypePlayerJoin,
		World:     player.World,
		PlayerID:  player.ID,
		Username:  player.Username,
	})
	log.Info("Player %s logged in as %s", player.Username, player.ID)
}

func (m *Manager) handleMove(conn *network.Connection, payload json.RawMessage) {
	player, ok := m.authenticated(conn)
	if !ok {
		return
	}

	move := &messages.Move{}
	if err := json.Unmarshal(payload, move); err != nil {
		m.sendError(conn, fmt.Sprintf("malformed message: %v", err))
		return
	}

	// No bounds or physics check: the position is relayed verbatim.
	m.registry.UpdatePosition(player.ID, move.X, move.Y, move.Z)

	msg, err := messages.New(messages.MessageTypePlayerMove, &messages.PlayerMove{
		PlayerID: player.ID,
		X:        move.X,
		Y:        move.Y,
		Z:        move.Z,
	})
	if err != nil {
		log.Error("Failed to build player move message: %v", err)
		return
	}
	m.broadcaster.Broadcast(player.World, msg, player.ID)
}

func (m *Manager) handleBlockAction(conn *network.Connection, payload json.RawMessage) {
	player, ok := m.authenticated(conn)
	if !ok {
		return
	}

	action := &messages.BlockAction{}
	if err := json.Unmarshal(payload, action); err != nil {
		m.sendError(conn, fmt.Sprintf("malformed message: %v", err))
		return
	}

	update := &messages.BlockUpdate{
		X:        action.X,
		Y:        action.Y,
		Z:        action.Z,
		BlockID:  action.BlockID,
		Action:   action.Action,
		PlayerID: player.ID,
	}
	msg, err := messages.New(messages.MessageTypeBlockUpdate, update)
	if err != nil {
		log.Error("Failed to build block update message: %v", err)
		return
	}
	m.broadcaster.Broadcast(player.World, msg, player.ID)

	detail, _ := json.Marshal(update)
	m.recordEvent(repositories.Event{
		Timestamp: time.Now().UnixMilli(),
		Type:      repositories.EventTypeBlockUpdate,
		World:     player.World,
		PlayerID:  player.ID,
		Username:  player.Username,
		Detail:    detail,
	})
}

func (m *Manager) handleChat(conn *network.Connection, payload json.RawMessage) {
	player, ok := m.authenticated(conn)
	if !ok {
		return
	}

	chat := &messages.Chat{}
	if err := json.Unmarshal(payload, chat); err != nil {
		m.sendError(conn, fmt.Sprintf("malformed message: %v", err))
		return
	}

	broadcast := &messages.ChatBroadcast{
		Username:  player.Username,
		Message:   chat.Message,
		Timestamp: time.Now().UnixMilli(),
	}
	msg, err := messages.New(messages.MessageTypeChatBroadcast, broadcast)
	if err != nil {
		log.Error("Failed to build chat message: %v", err)
		return
	}
	// Chat goes to the whole world including the sender.
	m.broadcaster.Broadcast(player.World, msg, "")

	detail, _ := json.Marshal(chat)
	m.recordEvent(repositories.Event{
		Timestamp: broadcast.Timestamp,
		Type:      repositories.EventTypeChat,
		World:     player.World,
		PlayerID:  player.ID,
		Username:  player.Username,
		Detail:    detail,
	})
}

func (m *Manager) handlePing(conn *network.Connection) {
	m.send(conn, messages.MessageTypePong, &messages.Pong{})
}

// authenticated resolves the connection's player. Actions from connections
// that never logged in indicate a client bug, not a user-facing condition,
// so they are dropped without an error reply.
func (m *Manager) authenticated(conn *network.Connection) (*registry.Player, bool) {
	if conn.PlayerID == "" {
		log.Debug("Dropping message from unauthenticated connection %s", conn.RemoteAddr())
		return nil, false
	}
	player, ok := m.registry.Find(conn.PlayerID)
	if !ok {
		log.Debug("Dropping message from unknown player %s", conn.PlayerID)
		return nil, false
	}
	return player, true
}

func (m *Manager) send(conn *network.Connection, msgType string, payload interface{}) {
	msg, err := messages.New(msgType, payload)
	if err != nil {
		log.Error("Failed to build %s message: %v", msgType, err)
		return
	}
	if err := conn.Send(msg); err != nil {
		log.Debug("Failed to send %s to %s: %v", msgType, conn.RemoteAddr(), err)
	}
}

func (m *Manager) sendError(conn *network.Connection, message string) {
	m.send(conn, messages.MessageTypeError, &messages.Error{Message: message})
}
