package messages

import (
	"encoding/json"
	"fmt"
)

// Client message types
const (
	MessageTypeAdminConnect = "admin_connect"
	MessageTypeLogin        = "login"
	MessageTypeMove         = "move"
	MessageTypeBlockAction  = "block_action"
	MessageTypeChat         = "chat"
	MessageTypePing         = "ping"
)

// Server message types
const (
	MessageTypeError           = "error"
	MessageTypeAdminUpdate     = "admin_update"
	MessageTypeLoginSuccess    = "login_success"
	MessageTypeExistingPlayers = "existing_players"
	MessageTypePlayerJoin      = "player_join"
	MessageTypePlayerMove      = "player_move"
	MessageTypeBlockUpdate     = "block_update"
	MessageTypeChatBroadcast   = "chat"
	MessageTypePong            = "pong"
	MessageTypePlayerLeave     = "player_leave"
	MessageTypeServerShutdown  = "server_shutdown"
)

// Block actions passed through unvalidated from the client.
const (
	BlockActionPlace = "place"
	BlockActionBreak = "break"
)

// Message is the envelope for every frame on the wire. The Type
// discriminator selects the payload shape.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// New builds a Message envelope around a payload.
func New(msgType string, payload interface{}) (*Message, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}
	return &Message{Type: msgType, Payload: b}, nil
}

// Position is a 3D coordinate relayed verbatim, never validated.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PlayerInfo is the snapshot of a player sent in join and roster messages.
type PlayerInfo struct {
	PlayerID string  `json:"playerId"`
	Username string  `json:"username"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Health   int     `json:"health"`
	Food     int     `json:"food"`
}

// Client payloads

type Login struct {
	Username string `json:"username"`
	Version  string `json:"version"`
}

type Move struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type BlockAction struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
	BlockID int     `json:"blockId"`
	Action  string  `json:"action"`
}

type Chat struct {
	Message string `json:"message"`
}

// Server payloads

type Error struct {
	Message string `json:"message"`
}

type AdminUpdate struct {
	Players []PlayerInfo `json:"players"`
}

type LoginSuccess struct {
	PlayerID string   `json:"playerId"`
	Spawn    Position `json:"spawn"`
}

type ExistingPlayers struct {
	Players []PlayerInfo `json:"players"`
}

type PlayerJoin struct {
	Player PlayerInfo `json:"player"`
}

type PlayerMove struct {
	PlayerID string  `json:"playerId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
}

type BlockUpdate struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	BlockID  int     `json:"blockId"`
	Action   string  `json:"action"`
	PlayerID string  `json:"playerId"`
}

type ChatBroadcast struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type Pong struct{}

type PlayerLeave struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
}

type ServerShutdown struct {
	Message string `json:"message"`
}
