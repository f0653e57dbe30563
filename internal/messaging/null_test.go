package messaging

import (
	"context"
	"testing"
	"time"
)

func TestNullRunBlocksUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	n := NewNull()
	go func() { done <- n.Run(ctx) }()

	select {
	case <-done:
		t.Fatal("Run returned before context was cancelled")
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestNullMethodsAreNoOps(t *testing.T) {
	n := NewNull()
	ctx := context.Background()
	if err := n.Notify(ctx, "hi"); err != nil {
		t.Errorf("Notify: %v", err)
	}
	if err := n.SendMessage(ctx, "chat", "hi"); err != nil {
		t.Errorf("SendMessage: %v", err)
	}
	if err := n.AddReaction(ctx, "msg", "👍"); err != nil {
		t.Errorf("AddReaction: %v", err)
	}
	if err := n.SendImage(ctx, "chat", "/tmp/x.png"); err != nil {
		t.Errorf("SendImage: %v", err)
	}
}
