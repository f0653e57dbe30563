package agent

import (
	"context"

	"github.com/sentineld/agent/pkg/models"
)

// CompletionResult is one LLM chat-completion response.
type CompletionResult struct {
	Message      models.ChatMessage
	FinishReason string
	Usage        models.Usage

	// Messages holds the full updated transcript after an Agent.Run call:
	// the messages passed in, plus every assistant reply and tool-call/
	// tool-result message produced during the run. Unset on the raw
	// per-turn result an LLMProvider returns from ChatCompletion.
	Messages []models.ChatMessage
}

// LLMProvider is the narrow interface Agent needs from an LLM client.
// The concrete OpenAI-compatible implementation lives in internal/llm;
// Agent depends only on this contract to keep the tool-use loop testable
// without a network.
type LLMProvider interface {
	// ChatCompletion sends messages plus the tool schemas an Orchestrator
	// currently exposes and returns the assistant's reply.
	ChatCompletion(ctx context.Context, messages []models.ChatMessage, tools []models.ToolSpec) (CompletionResult, error)

	// Complete runs a single completion with no tools, at the given
	// temperature, and returns the text content. Used by
	// Agent.Compress, which trims it.
	Complete(ctx context.Context, messages []models.ChatMessage, temperature float64) (string, error)
}

// Orchestrator decides what happens to each assistant message an Agent
// run produces: dispatch tool calls, nudge a continuation, or deliver the
// terminal response. HeartbeatOrchestrator and HumanInputOrchestrator are
// the two variants; both clone the base ToolRegistry so any
// instance-scoped tools they register never leak across events.
type Orchestrator interface {
	// ToolSpecs returns the schemas of this orchestrator's tool set,
	// passed to the LLM on every turn of the run.
	ToolSpecs() []models.ToolSpec

	// Process reacts to one assistant message. An empty, non-error result
	// means the run is over: finishReason was "stop" and there were no
	// tool calls. A non-empty result is appended to the conversation and
	// the run continues.
	Process(ctx context.Context, message models.ChatMessage, finishReason string) ([]models.ChatMessage, error)
}
