package agent

import (
	"context"
	"testing"
	"time"

	"github.com/sentineld/agent/pkg/models"
)

type fakeProvider struct {
	responses    []CompletionResult
	calls        int
	systemCounts []int
	completeCalls int
}

func (f *fakeProvider) ChatCompletion(ctx context.Context, messages []models.ChatMessage, tools []models.ToolSpec) (CompletionResult, error) {
	systemCount := 0
	for _, m := range messages {
		if m.Role == models.RoleSystem {
			systemCount++
		}
	}
	f.systemCounts = append(f.systemCounts, systemCount)

	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}

func (f *fakeProvider) Complete(ctx context.Context, messages []models.ChatMessage, temperature float64) (string, error) {
	f.completeCalls++
	return "a summary", nil
}

func TestRunSendsExactlyOneSystemMessagePerIteration(t *testing.T) {
	provider := &fakeProvider{
		responses: []CompletionResult{
			{Message: models.ChatMessage{Role: models.RoleAssistant, Content: strPtr("working")}, FinishReason: "length"},
			{Message: models.ChatMessage{Role: models.RoleAssistant, Content: strPtr("done")}, FinishReason: "stop"},
		},
	}
	a := New(provider)
	registry := NewToolRegistry(time.Second)
	messaging := newFakeMessaging()
	orchestrator := NewHeartbeatOrchestrator(registry, messaging)

	result, err := a.Run(context.Background(), "be helpful", nil, orchestrator)
	if err != nil {
		t.Fatal(err)
	}
	if *result.Message.Content != "done" {
		t.Fatalf("expected final response returned, got %+v", result)
	}
	if provider.calls != 2 {
		t.Fatalf("expected 2 LLM calls, got %d", provider.calls)
	}
	for _, count := range provider.systemCounts {
		if count != 1 {
			t.Fatalf("expected exactly one system message per call, got %d", count)
		}
	}
}

func TestRunTerminatesOnEmptyOrchestratorResult(t *testing.T) {
	provider := &fakeProvider{
		responses: []CompletionResult{
			{Message: models.ChatMessage{Role: models.RoleAssistant, Content: strPtr("done")}, FinishReason: "stop", Usage: models.Usage{TotalTokens: 42}},
		},
	}
	a := New(provider)
	registry := NewToolRegistry(time.Second)
	messaging := newFakeMessaging()
	orchestrator := NewHeartbeatOrchestrator(registry, messaging)

	result, err := a.Run(context.Background(), "sys", nil, orchestrator)
	if err != nil {
		t.Fatal(err)
	}
	if result.Usage.TotalTokens != 42 {
		t.Fatalf("expected usage passed through, got %+v", result.Usage)
	}
	if provider.calls != 1 {
		t.Fatalf("expected a single call when orchestrator terminates immediately, got %d", provider.calls)
	}
}

func TestRunReturnsFullUpdatedTranscript(t *testing.T) {
	registry := NewToolRegistry(time.Second)
	registry.Register(Tool{
		Name: "noop",
		Handler: func(ctx context.Context, args map[string]any) (models.ToolResult, error) {
			return models.Success(nil), nil
		},
	})
	provider := &fakeProvider{
		responses: []CompletionResult{
			{
				Message: models.ChatMessage{
					Role: models.RoleAssistant,
					ToolCalls: []models.ToolCall{
						{ID: "call_1", Name: "noop", Arguments: `{}`},
					},
				},
				FinishReason: "tool_calls",
			},
			{Message: models.ChatMessage{Role: models.RoleAssistant, Content: strPtr("done")}, FinishReason: "stop"},
		},
	}
	a := New(provider)
	messaging := newFakeMessaging()
	orchestrator := NewHeartbeatOrchestrator(registry, messaging)

	initial := []models.ChatMessage{{Role: models.RoleUser, Content: strPtr("hi")}}
	result, err := a.Run(context.Background(), "be helpful", initial, orchestrator)
	if err != nil {
		t.Fatal(err)
	}

	// expected: initial user message, assistant tool-call message, tool
	// result message, final assistant message.
	if len(result.Messages) != 4 {
		t.Fatalf("expected 4 messages in returned transcript, got %d: %+v", len(result.Messages), result.Messages)
	}
	if result.Messages[0].Role != models.RoleUser {
		t.Fatalf("expected first message to be the original user message, got %+v", result.Messages[0])
	}
	if result.Messages[1].Role != models.RoleAssistant || len(result.Messages[1].ToolCalls) != 1 {
		t.Fatalf("expected second message to be the tool-call assistant message, got %+v", result.Messages[1])
	}
	if result.Messages[2].Role != models.RoleTool || result.Messages[2].ToolCallID != "call_1" {
		t.Fatalf("expected third message to be the tool result, got %+v", result.Messages[2])
	}
	if result.Messages[3].Role != models.RoleAssistant || *result.Messages[3].Content != "done" {
		t.Fatalf("expected fourth message to be the final assistant reply, got %+v", result.Messages[3])
	}
}

func TestCompressEmptyMessagesNoLLMCall(t *testing.T) {
	provider := &fakeProvider{}
	a := New(provider)

	summary, err := a.Compress(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if summary != "" {
		t.Fatalf("expected empty summary, got %q", summary)
	}
	if provider.completeCalls != 0 {
		t.Fatal("compress on empty input must not call the LLM")
	}
}

func TestCompressBuildsTranscriptAndCallsLLM(t *testing.T) {
	provider := &fakeProvider{}
	a := New(provider)

	messages := []models.ChatMessage{
		{Role: models.RoleUser, Content: strPtr("hello")},
		{Role: models.RoleAssistant, Content: strPtr("hi there")},
	}
	summary, err := a.Compress(context.Background(), messages)
	if err != nil {
		t.Fatal(err)
	}
	if summary != "a summary" {
		t.Fatalf("got %q", summary)
	}
	if provider.completeCalls != 1 {
		t.Fatalf("expected exactly one completion call, got %d", provider.completeCalls)
	}
}
