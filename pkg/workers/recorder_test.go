package workers

import (
	"context"
	"testing"
	"time"

	"github.com/cbodonnell/voxelrelay/pkg/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRecorderWorker_RecordsEvents(t *testing.T) {
	repo := repositories.NewInMemoryRepository(16)
	events := make(chan repositories.Event, 4)
	worker := NewEventRecorderWorker(NewEventRecorderWorkerOptions{
		Repository: repo,
		Events:     events,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	events <- repositories.Event{Timestamp: 1, Type: repositories.EventTypePlayerJoin, Username: "Alice"}
	events <- repositories.Event{Timestamp: 2, Type: repositories.EventTypeChat, Username: "Alice"}

	require.Eventually(t, func() bool {
		stored, err := repo.RecentEvents(context.Background(), 10)
		return err == nil && len(stored) == 2
	}, time.Second, 10*time.Millisecond)

	stored, err := repo.RecentEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, repositories.EventTypeChat, stored[0].Type)
	assert.Equal(t, repositories.EventTypePlayerJoin, stored[1].Type)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancellation")
	}
}
