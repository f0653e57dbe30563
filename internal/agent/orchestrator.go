package agent

import (
	"context"
	"strings"

	"github.com/sentineld/agent/pkg/models"
)

// NoReportSentinel is the literal trailing token a heartbeat's final
// response can end with to suppress the broadcast entirely.
const NoReportSentinel = "NO_REPORT"

const continueContent = "continue"

// RegisterInstanceTools binds tools scoped to one chat_id/message_id
// (add_reaction, send_image) onto a cloned registry. Supplied by the
// toolbox package at construction time so agent need not import it.
type RegisterInstanceTools func(registry *ToolRegistry, chatID, messageID string)

// process implements the shared state machine described by the
// Orchestrator contract: dispatch tool calls, nudge a continuation, or
// deliver the terminal response, via the two hooks every variant
// supplies.
func process(
	ctx context.Context,
	registry *ToolRegistry,
	message models.ChatMessage,
	finishReason string,
	beforeToolUse func(models.ChatMessage),
	onFinalResponse func(string),
) ([]models.ChatMessage, error) {
	if len(message.ToolCalls) > 0 {
		beforeToolUse(message)
		return dispatchToolCalls(ctx, registry, message.ToolCalls), nil
	}

	if finishReason != "stop" {
		content := continueContent
		return []models.ChatMessage{{Role: models.RoleUser, Content: &content}}, nil
	}

	content := ""
	if message.Content != nil {
		content = strings.TrimSpace(*message.Content)
	}
	onFinalResponse(content)
	return nil, nil
}

// HeartbeatOrchestrator handles a self-initiated heartbeat wake-up: it
// never addresses a specific chat, and stays silent unless the final
// response is non-empty and doesn't end with NoReportSentinel.
type HeartbeatOrchestrator struct {
	registry  *ToolRegistry
	messaging Messaging
}

// NewHeartbeatOrchestrator clones base so any tools it registers (none,
// today) can never affect other in-flight events.
func NewHeartbeatOrchestrator(base *ToolRegistry, messaging Messaging) *HeartbeatOrchestrator {
	return &HeartbeatOrchestrator{registry: base.Clone(), messaging: messaging}
}

func (h *HeartbeatOrchestrator) ToolSpecs() []models.ToolSpec {
	return h.registry.ToolSpecs()
}

func (h *HeartbeatOrchestrator) Process(ctx context.Context, message models.ChatMessage, finishReason string) ([]models.ChatMessage, error) {
	return process(ctx, h.registry, message, finishReason,
		func(models.ChatMessage) {},
		func(content string) { h.onFinalResponse(ctx, content) },
	)
}

func (h *HeartbeatOrchestrator) onFinalResponse(ctx context.Context, content string) {
	if content == "" || strings.HasSuffix(content, NoReportSentinel) {
		return
	}
	_ = h.messaging.Notify(ctx, content)
}

// HumanInputOrchestrator handles one inbound chat message: it registers
// add_reaction/send_image bound to chatID/messageID on its cloned
// registry, forwards any intermediate content alongside tool calls, and
// delivers the terminal response to the originating chat.
type HumanInputOrchestrator struct {
	registry  *ToolRegistry
	messaging Messaging
	chatID    string
	messageID string
}

// NewHumanInputOrchestrator clones base, then uses registerInstanceTools
// to bind the chat-scoped tools onto the clone.
func NewHumanInputOrchestrator(
	base *ToolRegistry,
	messaging Messaging,
	chatID, messageID string,
	registerInstanceTools RegisterInstanceTools,
) *HumanInputOrchestrator {
	registry := base.Clone()
	if registerInstanceTools != nil {
		registerInstanceTools(registry, chatID, messageID)
	}
	return &HumanInputOrchestrator{registry: registry, messaging: messaging, chatID: chatID, messageID: messageID}
}

func (o *HumanInputOrchestrator) ToolSpecs() []models.ToolSpec {
	return o.registry.ToolSpecs()
}

func (o *HumanInputOrchestrator) Process(ctx context.Context, message models.ChatMessage, finishReason string) ([]models.ChatMessage, error) {
	return process(ctx, o.registry, message, finishReason,
		func(msg models.ChatMessage) { o.beforeToolUse(ctx, msg) },
		func(content string) { o.onFinalResponse(ctx, content) },
	)
}

func (o *HumanInputOrchestrator) beforeToolUse(ctx context.Context, message models.ChatMessage) {
	if message.Content == nil {
		return
	}
	content := strings.TrimSpace(*message.Content)
	if content == "" {
		return
	}
	_ = o.messaging.SendMessage(ctx, o.chatID, content)
}

func (o *HumanInputOrchestrator) onFinalResponse(ctx context.Context, content string) {
	_ = o.messaging.SendMessage(ctx, o.chatID, content)
}
