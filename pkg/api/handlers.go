package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cbodonnell/voxelrelay/pkg/log"
	"github.com/cbodonnell/voxelrelay/pkg/repositories"
)

const (
	statusRunning = "running"
	statusStopped = "stopped"

	defaultEventsLimit = 50
	maxEventsLimit     = 500
)

type handler struct {
	relay      Relay
	gate       Gate
	repository repositories.Repository
}

type statusResponse struct {
	Status        string `json:"status"`
	PlayerCount   int    `json:"playerCount"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

func (h *handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := statusStopped
	if h.gate.Accepting() {
		status = statusRunning
	}
	writeJSON(w, statusResponse{
		Status:        status,
		PlayerCount:   h.relay.PlayerCount(),
		UptimeSeconds: int64(h.relay.Uptime().Seconds()),
	})
}

func (h *handler) handleStart(w http.ResponseWriter, r *http.Request) {
	h.gate.SetAccepting(true)
	log.Info("Accepting connections")
	writeJSON(w, map[string]string{"status": statusRunning})
}

// handleStop stops admitting new connections and asks the relay loop to
// deliver server_shutdown to every connection before closing it.
func (h *handler) handleStop(w http.ResponseWriter, r *http.Request) {
	h.gate.SetAccepting(false)
	if err := h.relay.RequestDisconnectAll("server stopping"); err != nil {
		log.Error("Failed to request disconnect: %v", err)
		http.Error(w, "Failed to stop server", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": statusStopped})
}

func (h *handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	if limit > maxEventsLimit {
		limit = maxEventsLimit
	}

	events, err := h.repository.RecentEvents(r.Context(), limit)
	if err != nil {
		log.Error("Failed to read events: %v", err)
		http.Error(w, "Failed to read events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []repositories.Event{}
	}
	writeJSON(w, events)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response: %v", err)
	}
}
