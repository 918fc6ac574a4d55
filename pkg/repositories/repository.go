package repositories

import (
	"context"
	"encoding/json"
)

// EventType classifies a recorded relay event.
type EventType string

const (
	EventTypePlayerJoin  EventType = "player_join"
	EventTypePlayerLeave EventType = "player_leave"
	EventTypeChat        EventType = "chat"
	EventTypeBlockUpdate EventType = "block_update"
)

// Event is one relay occurrence recorded for the control API's
// recent-activity view. This is operational telemetry; it is never read
// back into the registries.
type Event struct {
	Timestamp int64           `json:"timestamp"`
	Type      EventType       `json:"type"`
	World     string          `json:"world"`
	PlayerID  string          `json:"playerId"`
	Username  string          `json:"username"`
	Detail    json.RawMessage `json:"detail,omitempty"`
}

// Repository stores relay events. Implementations must be safe for
// concurrent use.
type Repository interface {
	// RecordEvent appends an event.
	RecordEvent(ctx context.Context, event Event) error
	// RecentEvents returns up to limit events, most recent first.
	RecentEvents(ctx context.Context, limit int) ([]Event, error)
	// Close releases the underlying store.
	Close(ctx context.Context) error
}
