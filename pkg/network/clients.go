package network

import "sync"

// ClientManager tracks every open connection and the player each
// authenticated connection is bound to.
type ClientManager struct {
	mu       sync.RWMutex
	conns    map[*Connection]struct{}
	byPlayer map[string]*Connection
}

// NewClientManager creates a new ClientManager.
func NewClientManager() *ClientManager {
	return &ClientManager{
		conns:    make(map[*Connection]struct{}),
		byPlayer: make(map[string]*Connection),
	}
}

// Add registers a connection with the manager.
func (cm *ClientManager) Add(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.conns[conn] = struct{}{}
}

// Remove unregisters a connection, including any player binding.
// Removing an unknown connection is a no-op.
func (cm *ClientManager) Remove(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.conns, conn)
	if conn.PlayerID != "" {
		if bound, ok := cm.byPlayer[conn.PlayerID]; ok && bound == conn {
			delete(cm.byPlayer, conn.PlayerID)
		}
	}
}

// BindPlayer indexes a connection by the player id assigned at login.
func (cm *ClientManager) BindPlayer(conn *Connection, playerID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.byPlayer[playerID] = conn
}

// ReleasePlayer drops the player binding. Releasing an unknown id is a no-op.
func (cm *ClientManager) ReleasePlayer(playerID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.byPlayer, playerID)
}

// GetByPlayerID returns the connection bound to a player id, or nil.
func (cm *ClientManager) GetByPlayerID(playerID string) *Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.byPlayer[playerID]
}

// All returns a snapshot of every tracked connection.
func (cm *ClientManager) All() []*Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	conns := make([]*Connection, 0, len(cm.conns))
	for conn := range cm.conns {
		conns = append(conns, conn)
	}
	return conns
}

// Admins returns a snapshot of every connection flagged as admin.
func (cm *ClientManager) Admins() []*Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	var admins []*Connection
	for conn := range cm.conns {
		if conn.IsAdmin() {
			admins = append(admins, conn)
		}
	}
	return admins
}

// Count returns the number of tracked connections.
func (cm *ClientManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.conns)
}
