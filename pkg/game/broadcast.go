package game

import (
	"github.com/cbodonnell/voxelrelay/pkg/log"
	"github.com/cbodonnell/voxelrelay/pkg/messages"
	"github.com/cbodonnell/voxelrelay/pkg/network"
	"github.com/cbodonnell/voxelrelay/pkg/registry"
)

// Broadcaster fans one message out to every live member of a world and,
// independently, to every admin connection.
type Broadcaster struct {
	registry      *registry.Registry
	clientManager *network.ClientManager
}

func NewBroadcaster(reg *registry.Registry, cm *network.ClientManager) *Broadcaster {
	return &Broadcaster{
		registry:      reg,
		clientManager: cm,
	}
}

// Broadcast delivers msg to every open connection whose player is a member
// of worldName, skipping excludePlayerID if non-empty, then to every admin
// connection with no exclusion. A failed delivery to one recipient is
// logged and never aborts delivery to the rest.
func (b *Broadcaster) Broadcast(worldName string, msg *messages.Message, excludePlayerID string) {
	for _, playerID := range b.registry.WorldMembers(worldName) {
		if playerID == excludePlayerID {
			continue
		}
		conn := b.clientManager.GetByPlayerID(playerID)
		if conn == nil || !conn.IsOpen() {
			continue
		}
		if err := conn.Send(msg); err != nil {
			log.Debug("Failed to deliver %s to player %s: %v", msg.Type, playerID, err)
		}
	}

	for _, conn := range b.clientManager.Admins() {
		if !conn.IsOpen() {
			continue
		}
		if err := conn.Send(msg); err != nil {
			log.Debug("Failed to deliver %s to admin %s: %v", msg.Type, conn.RemoteAddr(), err)
		}
	}
}
