package models

// Event is the sum type the Scheduler consumes from the event queue: either
// a self-initiated HeartbeatEvent or a HumanInputEvent arriving from chat
// platform or HTTP ingress. HumanInput is non-nil for a human-input event
// and nil for a heartbeat.
type Event struct {
	HumanInput *HumanInputEvent
}

// IsHeartbeat reports whether this event carries no human input, i.e. is a
// self-initiated heartbeat wake-up.
func (e Event) IsHeartbeat() bool {
	return e.HumanInput == nil
}

// Heartbeat constructs a HeartbeatEvent.
func Heartbeat() Event {
	return Event{}
}

// NewHumanInput constructs a HumanInputEvent wrapped as an Event.
func NewHumanInput(chatID, messageID, message string, channel ChannelType) Event {
	return Event{HumanInput: &HumanInputEvent{
		ChatID:    chatID,
		MessageID: messageID,
		Message:   message,
		Channel:   channel,
	}}
}

// HumanInputEvent carries an inbound chat message from any messaging
// adapter or the HTTP ingress endpoint.
type HumanInputEvent struct {
	ChatID    string
	MessageID string
	Message   string
	Channel   ChannelType
}
