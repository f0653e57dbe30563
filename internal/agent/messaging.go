package agent

import "context"

// Messaging is the narrow contract an Orchestrator needs from whatever
// chat platform adapter is configured (or the Null adapter when none is).
type Messaging interface {
	// Notify broadcasts text outside any specific chat_id, used for
	// heartbeat reports and scheduler error announcements.
	Notify(ctx context.Context, text string) error

	// SendMessage delivers text to a specific chat_id.
	SendMessage(ctx context.Context, chatID, text string) error

	// AddReaction attaches an emoji reaction to a specific message.
	AddReaction(ctx context.Context, messageID, emoji string) error

	// SendImage delivers an image file to a specific chat_id.
	SendImage(ctx context.Context, chatID, imagePath string) error
}
