package scheduler

import (
	"path/filepath"
	"testing"

	"github.com/sentineld/agent/pkg/models"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	content := "hello there"
	conversation := &Conversation{
		ChatID:          "chat-1",
		Messages:        []models.ChatMessage{{Role: models.RoleUser, Content: &content}},
		MessageIDs:      map[string]struct{}{"m1": {}, "m2": {}},
		TotalTokens:     123,
		PreviousSummary: "earlier summary",
	}

	if err := store.Save(conversation); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, ok, err := store.Load("chat-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatal("expected conversation to be found")
	}
	if loaded.TotalTokens != 123 || loaded.PreviousSummary != "earlier summary" {
		t.Fatalf("unexpected loaded conversation: %+v", loaded)
	}
	if !loaded.Seen("m1") || !loaded.Seen("m2") {
		t.Fatalf("expected both message ids preserved, got %+v", loaded.MessageIDs)
	}
	if len(loaded.Messages) != 1 || *loaded.Messages[0].Content != content {
		t.Fatalf("expected messages round-tripped, got %+v", loaded.Messages)
	}
}

func TestSQLiteStoreLoadMissingReturnsNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	_, ok, err := store.Load("missing")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("expected no conversation to be found")
	}
}

func TestSQLiteStoreLoadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Save(NewConversation(id)); err != nil {
			t.Fatalf("Save(%s): %v", id, err)
		}
	}

	all, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 conversations, got %d", len(all))
	}
}

func TestSQLiteStoreSaveUpserts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	c := NewConversation("chat-x")
	c.TotalTokens = 1
	if err := store.Save(c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	c.TotalTokens = 2
	if err := store.Save(c); err != nil {
		t.Fatalf("Save (update): %v", err)
	}

	loaded, ok, err := store.Load("chat-x")
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if loaded.TotalTokens != 2 {
		t.Fatalf("expected updated token count 2, got %d", loaded.TotalTokens)
	}
}
