package workers

import (
	"context"

	"github.com/cbodonnell/voxelrelay/pkg/log"
	"github.com/cbodonnell/voxelrelay/pkg/repositories"
)

// EventRecorderWorker drains relay events from the relay loop and writes
// them to the repository so store latency never blocks message handling.
type EventRecorderWorker struct {
	repository repositories.Repository
	events     <-chan repositories.Event
}

type NewEventRecorderWorkerOptions struct {
	Repository repositories.Repository
	Events     <-chan repositories.Event
}

func NewEventRecorderWorker(opts NewEventRecorderWorkerOptions) *EventRecorderWorker {
	return &EventRecorderWorker{
		repository: opts.Repository,
		events:     opts.Events,
	}
}

func (w *EventRecorderWorker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-w.events:
			if err := w.repository.RecordEvent(ctx, event); err != nil {
				log.Error("Failed to record %s event: %v", event.Type, err)
			}
		}
	}
}
