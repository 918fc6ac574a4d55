// queue package

package queue

// Queue carries inbound frames and connection events from the transport
// goroutines to the relay loop.
type Queue interface {
	// Enqueue adds an item to the end of the queue. It returns
	// ErrQueueFull if the queue is at capacity.
	Enqueue(item interface{}) error
	// Events returns the channel items are delivered on.
	Events() <-chan interface{}
	// Size returns the current size of the queue.
	Size() int
}
