package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cbodonnell/voxelrelay/pkg/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRelay struct {
	playerCount       int
	uptime            time.Duration
	disconnectReasons []string
	disconnectErr     error
}

func (r *fakeRelay) PlayerCount() int      { return r.playerCount }
func (r *fakeRelay) Uptime() time.Duration { return r.uptime }

func (r *fakeRelay) RequestDisconnectAll(reason string) error {
	r.disconnectReasons = append(r.disconnectReasons, reason)
	return r.disconnectErr
}

type fakeGate struct {
	accepting bool
}

func (g *fakeGate) SetAccepting(accepting bool) { g.accepting = accepting }
func (g *fakeGate) Accepting() bool             { return g.accepting }

type apiTestRig struct {
	relay      *fakeRelay
	gate       *fakeGate
	repository *repositories.InMemoryRepository
	server     *httptest.Server
}

func newAPITestRig(t *testing.T) *apiTestRig {
	t.Helper()
	relay := &fakeRelay{playerCount: 2, uptime: 90 * time.Second}
	gate := &fakeGate{accepting: true}
	repo := repositories.NewInMemoryRepository(1024)
	api := NewAPIServer(NewAPIServerOptions{
		Port:       0,
		Relay:      relay,
		Gate:       gate,
		Repository: repo,
	})
	server := httptest.NewServer(api.Handler())
	t.Cleanup(server.Close)
	return &apiTestRig{
		relay:      relay,
		gate:       gate,
		repository: repo,
		server:     server,
	}
}

func TestAPIServer_Status(t *testing.T) {
	rig := newAPITestRig(t)

	resp, err := http.Get(rig.server.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var status statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "running", status.Status)
	assert.Equal(t, 2, status.PlayerCount)
	assert.Equal(t, int64(90), status.UptimeSeconds)
}

func TestAPIServer_StatusStopped(t *testing.T) {
	rig := newAPITestRig(t)
	rig.gate.accepting = false

	resp, err := http.Get(rig.server.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var status statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "stopped", status.Status)
}

func TestAPIServer_StopThenStart(t *testing.T) {
	rig := newAPITestRig(t)

	resp, err := http.Post(rig.server.URL+"/api/stop", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Stop gates new connections and hands the shutdown to the relay loop.
	assert.False(t, rig.gate.Accepting())
	assert.Equal(t, []string{"server stopping"}, rig.relay.disconnectReasons)

	resp, err = http.Post(rig.server.URL+"/api/start", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.True(t, rig.gate.Accepting())
	// Starting again never touches existing connections.
	assert.Len(t, rig.relay.disconnectReasons, 1)
}

func TestAPIServer_StopRelayError(t *testing.T) {
	rig := newAPITestRig(t)
	rig.relay.disconnectErr = context.DeadlineExceeded

	resp, err := http.Post(rig.server.URL+"/api/stop", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestAPIServer_Events(t *testing.T) {
	rig := newAPITestRig(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, rig.repository.RecordEvent(ctx, repositories.Event{
			Timestamp: int64(i),
			Type:      repositories.EventTypeChat,
			World:     "default",
			Username:  "Alice",
		}))
	}

	resp, err := http.Get(rig.server.URL + "/api/events?limit=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var events []repositories.Event
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	require.Len(t, events, 2)
	assert.Equal(t, int64(4), events[0].Timestamp)
	assert.Equal(t, int64(3), events[1].Timestamp)
}

func TestAPIServer_EventsEmptyIsArray(t *testing.T) {
	rig := newAPITestRig(t)

	resp, err := http.Get(rig.server.URL + "/api/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var events []repositories.Event
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestAPIServer_EventsInvalidLimit(t *testing.T) {
	rig := newAPITestRig(t)

	for _, limit := range []string{"abc", "0", "-5"} {
		resp, err := http.Get(rig.server.URL + "/api/events?limit=" + limit)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "limit=%s", limit)
	}
}

func TestAPIServer_MethodNotAllowed(t *testing.T) {
	rig := newAPITestRig(t)

	resp, err := http.Get(rig.server.URL + "/api/stop")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
