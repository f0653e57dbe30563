package scheduler

import "github.com/sentineld/agent/pkg/models"

// Conversation is the per-chat_id state the Scheduler owns and mutates as
// its sole writer.
type Conversation struct {
	ChatID          string
	Messages        []models.ChatMessage
	MessageIDs      map[string]struct{}
	TotalTokens     int
	PreviousSummary string
}

// NewConversation builds an empty Conversation for chatID.
func NewConversation(chatID string) *Conversation {
	return &Conversation{ChatID: chatID, MessageIDs: make(map[string]struct{})}
}

// Seen reports whether messageID has already been processed for this
// conversation.
func (c *Conversation) Seen(messageID string) bool {
	_, ok := c.MessageIDs[messageID]
	return ok
}

// MarkSeen records messageID as processed.
func (c *Conversation) MarkSeen(messageID string) {
	c.MessageIDs[messageID] = struct{}{}
}
