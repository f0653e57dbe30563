package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/sentineld/agent/internal/agent"
	"github.com/sentineld/agent/internal/observability"
	"github.com/sentineld/agent/internal/prompt"
	"github.com/sentineld/agent/pkg/models"
)

type fakeMessaging struct {
	notified []string
	sent     map[string][]string
}

func newFakeMessaging() *fakeMessaging {
	return &fakeMessaging{sent: map[string][]string{}}
}

func (f *fakeMessaging) Notify(ctx context.Context, text string) error {
	f.notified = append(f.notified, text)
	return nil
}

func (f *fakeMessaging) SendMessage(ctx context.Context, chatID, text string) error {
	f.sent[chatID] = append(f.sent[chatID], text)
	return nil
}

func (f *fakeMessaging) AddReaction(ctx context.Context, messageID, emoji string) error { return nil }
func (f *fakeMessaging) SendImage(ctx context.Context, chatID, imagePath string) error  { return nil }

type fakeProvider struct {
	calls    int
	requests [][]models.ChatMessage
}

func strPtr(s string) *string { return &s }

func (f *fakeProvider) ChatCompletion(ctx context.Context, messages []models.ChatMessage, tools []models.ToolSpec) (agent.CompletionResult, error) {
	f.calls++
	f.requests = append(f.requests, messages)
	return agent.CompletionResult{
		Message:      models.ChatMessage{Role: models.RoleAssistant, Content: strPtr("NO_REPORT")},
		FinishReason: "stop",
		Usage:        models.Usage{TotalTokens: 7},
	}, nil
}

func (f *fakeProvider) Complete(ctx context.Context, messages []models.ChatMessage, temperature float64) (string, error) {
	return "a compressed summary", nil
}

func newTestScheduler(t *testing.T, wakeInterval time.Duration) (*Scheduler, *fakeMessaging, *fakeProvider) {
	t.Helper()
	messaging := newFakeMessaging()
	provider := &fakeProvider{}
	sched, err := New(Config{
		Queue:            NewEventQueue(16),
		Agent:            agent.New(provider),
		BaseRegistry:     agent.NewToolRegistry(time.Second),
		Messaging:        messaging,
		PromptBuilder:    prompt.New(t.TempDir(), nil),
		Logger:           observability.NewLogger(observability.LogConfig{}),
		WakeInterval:     wakeInterval,
		ContextMaxTokens: 1000,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sched, messaging, provider
}

func TestHandleMessageDedupesByMessageID(t *testing.T) {
	sched, _, _ := newTestScheduler(t, 0)
	event := &models.HumanInputEvent{ChatID: "chat-1", MessageID: "m1", Message: "hello"}

	if err := sched.handleMessage(context.Background(), event); err != nil {
		t.Fatalf("first handleMessage: %v", err)
	}
	if err := sched.handleMessage(context.Background(), event); err != nil {
		t.Fatalf("second handleMessage: %v", err)
	}

	conversation := sched.conversations["chat-1"]
	if conversation == nil {
		t.Fatal("expected conversation to exist")
	}
	if len(conversation.MessageIDs) != 1 {
		t.Fatalf("expected exactly one deduped message id, got %d", len(conversation.MessageIDs))
	}
	if !conversation.Seen("m1") {
		t.Fatal("expected m1 to be marked seen")
	}
}

func TestHandleMessagePersistsPriorTurnIntoNextRequest(t *testing.T) {
	sched, _, provider := newTestScheduler(t, 0)
	event1 := &models.HumanInputEvent{ChatID: "chat-6", MessageID: "m1", Message: "first"}
	event2 := &models.HumanInputEvent{ChatID: "chat-6", MessageID: "m2", Message: "second"}

	if err := sched.handleMessage(context.Background(), event1); err != nil {
		t.Fatalf("first handleMessage: %v", err)
	}
	if err := sched.handleMessage(context.Background(), event2); err != nil {
		t.Fatalf("second handleMessage: %v", err)
	}

	if provider.calls != 2 {
		t.Fatalf("expected 2 LLM calls, got %d", provider.calls)
	}

	secondRequest := provider.requests[1]
	foundFirstAssistantReply := false
	for _, m := range secondRequest {
		if m.Role == models.RoleAssistant && m.Content != nil && *m.Content == "NO_REPORT" {
			foundFirstAssistantReply = true
		}
	}
	if !foundFirstAssistantReply {
		t.Fatalf("expected the second message's request to include the first turn's assistant reply, got %+v", secondRequest)
	}

	conversation := sched.conversations["chat-6"]
	if conversation == nil {
		t.Fatal("expected conversation to exist")
	}
	foundInStoredHistory := false
	for _, m := range conversation.Messages {
		if m.Role == models.RoleAssistant && m.Content != nil && *m.Content == "NO_REPORT" {
			foundInStoredHistory = true
		}
	}
	if !foundInStoredHistory {
		t.Fatalf("expected conversation.Messages to retain the first turn's assistant reply, got %+v", conversation.Messages)
	}
}

func TestDispatchNewResetsConversation(t *testing.T) {
	sched, messaging, _ := newTestScheduler(t, 0)
	chatID := "chat-2"

	conversation := sched.conversationFor(chatID)
	conversation.MarkSeen("old-message")
	conversation.TotalTokens = 500

	err := sched.dispatchHumanInput(context.Background(), &models.HumanInputEvent{ChatID: chatID, MessageID: "m9", Message: "/new"})
	if err != nil {
		t.Fatalf("dispatchHumanInput: %v", err)
	}

	fresh := sched.conversations[chatID]
	if fresh.Seen("old-message") {
		t.Fatal("expected /new to replace the conversation, old message should no longer be seen")
	}
	if fresh.TotalTokens != 0 {
		t.Fatalf("expected fresh conversation with 0 tokens, got %d", fresh.TotalTokens)
	}
	if len(messaging.sent[chatID]) == 0 || messaging.sent[chatID][len(messaging.sent[chatID])-1] != "New session started" {
		t.Fatalf("expected confirmation reply, got %+v", messaging.sent[chatID])
	}
}

func TestHandleCompressSkipsLLMWhenBelowThreshold(t *testing.T) {
	sched, messaging, _ := newTestScheduler(t, 0)
	chatID := "chat-3"
	conversation := sched.conversationFor(chatID)
	conversation.TotalTokens = 10 // well below ContextMaxTokens=1000

	if err := sched.handleCompress(context.Background(), chatID); err != nil {
		t.Fatalf("handleCompress: %v", err)
	}

	replies := messaging.sent[chatID]
	if len(replies) != 1 || replies[0] != "No need to compress, total tokens: 10" {
		t.Fatalf("unexpected reply: %+v", replies)
	}
}

func TestHandleCompressSummarizesWhenAboveThreshold(t *testing.T) {
	sched, messaging, _ := newTestScheduler(t, 0)
	chatID := "chat-4"
	conversation := sched.conversationFor(chatID)
	conversation.TotalTokens = 5000
	content := "hi"
	conversation.Messages = []models.ChatMessage{{Role: models.RoleUser, Content: &content}}

	if err := sched.handleCompress(context.Background(), chatID); err != nil {
		t.Fatalf("handleCompress: %v", err)
	}

	if conversation.PreviousSummary != "a compressed summary" {
		t.Fatalf("expected summary assigned, got %q", conversation.PreviousSummary)
	}
	if conversation.TotalTokens != 0 {
		t.Fatalf("expected tokens reset, got %d", conversation.TotalTokens)
	}
	if len(conversation.Messages) != 0 {
		t.Fatalf("expected messages cleared, got %d", len(conversation.Messages))
	}
	replies := messaging.sent[chatID]
	if len(replies) != 1 || replies[0] != "Conversation compressed" {
		t.Fatalf("unexpected reply: %+v", replies)
	}
}

func TestArmHeartbeatEnqueuesAfterInterval(t *testing.T) {
	sched, _, _ := newTestScheduler(t, 20*time.Millisecond)
	sched.armHeartbeat()
	defer sched.cancelArm()

	event, ok := sched.queue.take(context.Background())
	if !ok {
		t.Fatal("expected an event from the queue")
	}
	if !event.IsHeartbeat() {
		t.Fatal("expected a heartbeat event")
	}
}

func TestCancelArmIsIdempotent(t *testing.T) {
	sched, _, _ := newTestScheduler(t, time.Hour)
	sched.armHeartbeat()
	sched.cancelArm()
	sched.cancelArm() // must not panic on a second call

	if sched.armTimer != nil || sched.armCancel != nil {
		t.Fatal("expected arm state cleared after cancelArm")
	}
}

func TestRunProcessesHumanInputAndReturnsOnCancel(t *testing.T) {
	sched, messaging, _ := newTestScheduler(t, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	if err := sched.queue.Enqueue(context.Background(), models.NewHumanInput("chat-5", "m1", "hi", models.ChannelHTTP)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for len(messaging.sent["chat-5"]) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if len(messaging.sent["chat-5"]) == 0 {
		t.Fatal("expected the human input event to produce a reply")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected Run to return nil on cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
