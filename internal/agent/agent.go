package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sentineld/agent/pkg/models"
)

const summarizerSystemPrompt = `You are summarizing a conversation transcript for later recall. Produce a ` +
	`concise summary that preserves decisions, open tasks, and facts the assistant will need if this ` +
	`conversation resumes later. Do not include meta-commentary about the summarization itself.`

// Agent drives one run of the LLM-and-tool loop: it calls the provider,
// hands the response to the orchestrator, and keeps going until the
// orchestrator reports the run is over.
type Agent struct {
	provider LLMProvider
}

// New builds an Agent around an LLM provider.
func New(provider LLMProvider) *Agent {
	return &Agent{provider: provider}
}

// Run executes one full tool-use loop: a single system message (built
// from systemPrompt) is prepended to messages on every LLM call,
// independent of how many iterations the loop takes. The loop terminates
// when the orchestrator returns an empty, non-error result, at which
// point Run returns the final LLM response including usage.
func (a *Agent) Run(ctx context.Context, systemPrompt string, messages []models.ChatMessage, orchestrator Orchestrator) (CompletionResult, error) {
	systemContent := systemPrompt
	systemMessages := []models.ChatMessage{{Role: models.RoleSystem, Content: &systemContent}}

	conversation := append([]models.ChatMessage{}, messages...)

	for {
		request := make([]models.ChatMessage, 0, len(systemMessages)+len(conversation))
		request = append(request, systemMessages...)
		request = append(request, conversation...)

		result, err := a.provider.ChatCompletion(ctx, request, orchestrator.ToolSpecs())
		if err != nil {
			return CompletionResult{}, fmt.Errorf("chat completion: %w", err)
		}

		conversation = append(conversation, result.Message)

		follow, err := orchestrator.Process(ctx, result.Message, result.FinishReason)
		if err != nil {
			return CompletionResult{}, fmt.Errorf("orchestrator process: %w", err)
		}

		if len(follow) == 0 {
			result.Messages = conversation
			return result, nil
		}

		conversation = append(conversation, follow...)
	}
}

// Compress reduces messages to a short natural-language summary via a
// single low-temperature completion. An empty slice yields an empty
// string without calling the LLM.
func (a *Agent) Compress(ctx context.Context, messages []models.ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", nil
	}

	transcript := buildTranscript(messages)
	if transcript == "" {
		return "", nil
	}

	systemContent := summarizerSystemPrompt
	userContent := transcript
	request := []models.ChatMessage{
		{Role: models.RoleSystem, Content: &systemContent},
		{Role: models.RoleUser, Content: &userContent},
	}

	summary, err := a.provider.Complete(ctx, request, 0.3)
	if err != nil {
		return "", fmt.Errorf("compress: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

// buildTranscript renders each message with non-empty content as a
// "[ROLE]\ncontent" block, blank-line separated.
func buildTranscript(messages []models.ChatMessage) string {
	var blocks []string
	for _, msg := range messages {
		if msg.Content == nil || strings.TrimSpace(*msg.Content) == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", strings.ToUpper(string(msg.Role)), *msg.Content))
	}
	return strings.Join(blocks, "\n\n")
}
