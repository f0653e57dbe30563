// Package messaging implements the chat-platform adapters: Telegram and
// Discord receive loops that push HumanInputEvents onto the shared event
// queue, plus a Null variant for deployments without a chat platform.
package messaging

import (
	"context"

	"github.com/sentineld/agent/pkg/models"
)

// Queue is the subset of the event queue a messaging adapter needs: the
// ability to push an inbound HumanInputEvent without blocking indefinitely.
type Queue interface {
	Enqueue(ctx context.Context, event models.Event) error
}

// Messaging is implemented by every adapter (Telegram, Discord, Null). It
// is a superset of internal/agent.Messaging, which adds Run; the agent
// package defines its own narrower interface to avoid importing this package.
type Messaging interface {
	Run(ctx context.Context) error
	Notify(ctx context.Context, text string) error
	SendMessage(ctx context.Context, chatID, text string) error
	AddReaction(ctx context.Context, messageID, emoji string) error
	SendImage(ctx context.Context, chatID, imagePath string) error
}
