package scheduler

import "testing"

func TestConversationSeenAndMarkSeen(t *testing.T) {
	c := NewConversation("chat-1")

	if c.Seen("m1") {
		t.Fatal("expected m1 to be unseen initially")
	}
	c.MarkSeen("m1")
	if !c.Seen("m1") {
		t.Fatal("expected m1 to be seen after MarkSeen")
	}
	if c.Seen("m2") {
		t.Fatal("expected m2 to remain unseen")
	}
}
