package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientManager_AddRemove(t *testing.T) {
	cm := NewClientManager()
	conn := NewConnection(&recordingSocket{}, "test:0")

	cm.Add(conn)
	assert.Equal(t, 1, cm.Count())
	assert.Len(t, cm.All(), 1)

	cm.Remove(conn)
	assert.Zero(t, cm.Count())

	// Removing twice is a no-op.
	cm.Remove(conn)
	assert.Zero(t, cm.Count())
}

func TestClientManager_PlayerBinding(t *testing.T) {
	cm := NewClientManager()
	conn := NewConnection(&recordingSocket{}, "test:0")
	cm.Add(conn)

	cm.BindPlayer(conn, "p1")
	conn.PlayerID = "p1"
	assert.Same(t, conn, cm.GetByPlayerID("p1"))

	cm.ReleasePlayer("p1")
	assert.Nil(t, cm.GetByPlayerID("p1"))

	// Releasing an unknown id is a no-op.
	cm.ReleasePlayer("p2")
}

func TestClientManager_RemoveDropsBinding(t *testing.T) {
	cm := NewClientManager()
	conn := NewConnection(&recordingSocket{}, "test:0")
	cm.Add(conn)
	cm.BindPlayer(conn, "p1")
	conn.PlayerID = "p1"

	cm.Remove(conn)
	assert.Nil(t, cm.GetByPlayerID("p1"))
}

func TestClientManager_RemoveKeepsNewerBinding(t *testing.T) {
	cm := NewClientManager()
	stale := NewConnection(&recordingSocket{}, "test:0")
	stale.PlayerID = "p1"
	fresh := NewConnection(&recordingSocket{}, "test:1")
	fresh.PlayerID = "p1"
	cm.Add(stale)
	cm.Add(fresh)
	cm.BindPlayer(fresh, "p1")

	// Removing the stale connection must not drop the fresh binding.
	cm.Remove(stale)
	assert.Same(t, fresh, cm.GetByPlayerID("p1"))
}

func TestClientManager_Admins(t *testing.T) {
	cm := NewClientManager()
	player := NewConnection(&recordingSocket{}, "test:0")
	admin := NewConnection(&recordingSocket{}, "test:1")
	admin.SetAdmin(true)
	cm.Add(player)
	cm.Add(admin)

	admins := cm.Admins()
	require.Len(t, admins, 1)
	assert.Same(t, admin, admins[0])
}
