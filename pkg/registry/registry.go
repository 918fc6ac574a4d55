package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cbodonnell/voxelrelay/pkg/messages"
	"github.com/google/uuid"
)

const (
	// SupportedVersion is the single protocol version token accepted at login.
	SupportedVersion = "1.12.2"
	// DefaultWorldName is the world every player joins at login.
	DefaultWorldName = "default"

	initialHealth = 20
	initialFood   = 20
)

// ErrVersionMismatch is returned by Register when the client's protocol
// version token does not equal SupportedVersion.
var ErrVersionMismatch = errors.New("unsupported protocol version")

// ErrWorldNotFound is returned by Register for an unknown world name.
var ErrWorldNotFound = errors.New("world not found")

// Player represents one authenticated participant. Position and the
// health/food counters are relayed verbatim, never validated.
type Player struct {
	ID        string
	Username  string
	X, Y, Z   float64
	World     string
	Health    int
	Food      int
	Connected bool
}

// Info returns the wire snapshot of the player.
func (p *Player) Info() messages.PlayerInfo {
	return messages.PlayerInfo{
		PlayerID: p.ID,
		Username: p.Username,
		X:        p.X,
		Y:        p.Y,
		Z:        p.Z,
		Health:   p.Health,
		Food:     p.Food,
	}
}

type world struct {
	name    string
	spawn   messages.Position
	members map[string]struct{}
}

// Registry holds the session and world registries. It is created at server
// start and cleared at shutdown. All mutations are atomic with respect to
// concurrent reads, so the reap sweep and the control API can observe it
// safely while the relay loop mutates it.
type Registry struct {
	mu      sync.RWMutex
	players map[string]*Player
	worlds  map[string]*world
}

// New creates a Registry with the single default world.
func New() *Registry {
	r := &Registry{
		players: make(map[string]*Player),
		worlds:  make(map[string]*world),
	}
	r.AddWorld(DefaultWorldName, messages.Position{X: 0, Y: 64, Z: 0})
	return r
}

// AddWorld registers a world with its spawn point. Adding a world that
// already exists replaces its spawn but keeps its membership.
func (r *Registry) AddWorld(name string, spawn messages.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.worlds[name]; ok {
		w.spawn = spawn
		return
	}
	r.worlds[name] = &world{
		name:    name,
		spawn:   spawn,
		members: make(map[string]struct{}),
	}
}

// Register creates a Player for a successful login and inserts it into the
// session registry and the world's membership set. The identifier is a
// freshly generated UUID, unique for the process lifetime without locking.
func (r *Registry) Register(username, version, worldName string) (*Player, error) {
	if version != SupportedVersion {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrVersionMismatch, version, SupportedVersion)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.worlds[worldName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrWorldNotFound, worldName)
	}

	player := &Player{
		ID:        uuid.NewString(),
		Username:  username,
		X:         w.spawn.X,
		Y:         w.spawn.Y,
		Z:         w.spawn.Z,
		World:     worldName,
		Health:    initialHealth,
		Food:      initialFood,
		Connected: true,
	}
	r.players[player.ID] = player
	w.members[player.ID] = struct{}{}

	return player, nil
}

// Unregister removes a player from the session registry and from its
// world's membership set. Unregistering an unknown id is a no-op.
func (r *Registry) Unregister(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player, ok := r.players[playerID]
	if !ok {
		return
	}
	player.Connected = false
	if w, ok := r.worlds[player.World]; ok {
		delete(w.members, playerID)
	}
	delete(r.players, playerID)
}

// Find returns the player for the given id, or false if not registered.
func (r *Registry) Find(playerID string) (*Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	player, ok := r.players[playerID]
	return player, ok
}

// WorldMembers returns the ids of the players currently in the world.
func (r *Registry) WorldMembers(worldName string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.worlds[worldName]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(w.members))
	for id := range w.members {
		members = append(members, id)
	}
	return members
}

// Spawn returns the spawn point of the world.
func (r *Registry) Spawn(worldName string) (messages.Position, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.worlds[worldName]
	if !ok {
		return messages.Position{}, false
	}
	return w.spawn, true
}

// UpdatePosition sets a player's position unconditionally. Updating an
// unknown id is a no-op.
func (r *Registry) UpdatePosition(playerID string, x, y, z float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	player, ok := r.players[playerID]
	if !ok {
		return
	}
	player.X, player.Y, player.Z = x, y, z
}

// Players returns all registered players.
func (r *Registry) Players() []*Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	players := make([]*Player, 0, len(r.players))
	for _, player := range r.players {
		players = append(players, player)
	}
	return players
}

// Count returns the number of registered players.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// Reset clears the session registry and every world's membership set.
// Worlds and their spawn points survive so the server can start again.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players = make(map[string]*Player)
	for _, w := range r.worlds {
		w.members = make(map[string]struct{})
	}
}
