package scheduler

import (
	"context"
	"fmt"

	"github.com/sentineld/agent/pkg/models"
)

// EventQueue is the single shared queue HTTP ingress, messaging adapters,
// and the heartbeat-arm timer all push onto. Exactly one consumer (the
// Scheduler's main loop) drains it.
type EventQueue struct {
	ch chan models.Event
}

// NewEventQueue builds a buffered EventQueue.
func NewEventQueue(capacity int) *EventQueue {
	if capacity <= 0 {
		capacity = 256
	}
	return &EventQueue{ch: make(chan models.Event, capacity)}
}

// Enqueue pushes an event, blocking only until ctx is cancelled.
func (q *EventQueue) Enqueue(ctx context.Context, event models.Event) error {
	select {
	case q.ch <- event:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue cancelled: %w", ctx.Err())
	}
}

// take blocks until an event is available or ctx is cancelled.
func (q *EventQueue) take(ctx context.Context) (models.Event, bool) {
	select {
	case event := <-q.ch:
		return event, true
	case <-ctx.Done():
		return models.Event{}, false
	}
}
