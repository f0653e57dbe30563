package messaging

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/sentineld/agent/internal/observability"
	"github.com/sentineld/agent/pkg/models"
)

func TestSplitDiscordRef(t *testing.T) {
	channelID, messageID, err := splitDiscordRef("100:55")
	if err != nil || channelID != "100" || messageID != "55" {
		t.Fatalf("splitDiscordRef(100:55) = (%q, %q, %v)", channelID, messageID, err)
	}

	if _, _, err := splitDiscordRef("nocolon"); err == nil {
		t.Error("expected error for ref without a colon")
	}
}

func TestDiscordMethodsRequireStartedSession(t *testing.T) {
	d := NewDiscord(DiscordConfig{}, nil, observability.NewLogger(observability.LogConfig{}))
	ctx := context.Background()

	if err := d.SendMessage(ctx, "1", "hi"); err == nil {
		t.Error("expected error before session is opened")
	}
	if err := d.AddReaction(ctx, "1:2", "👍"); err == nil {
		t.Error("expected error before session is opened")
	}
	if err := d.SendImage(ctx, "1", "/tmp/x.png"); err == nil {
		t.Error("expected error before session is opened")
	}
}

func TestDiscordNotifyNoopWithoutConfiguredChannel(t *testing.T) {
	d := NewDiscord(DiscordConfig{}, nil, observability.NewLogger(observability.LogConfig{}))
	if err := d.Notify(context.Background(), "heartbeat"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

type discordQueueRecorder struct {
	events []models.Event
}

func (r *discordQueueRecorder) Enqueue(ctx context.Context, event models.Event) error {
	r.events = append(r.events, event)
	return nil
}

func TestHandleMessageCreateSkipsBotAndEmptyMessages(t *testing.T) {
	recorder := &discordQueueRecorder{}
	d := NewDiscord(DiscordConfig{}, recorder, observability.NewLogger(observability.LogConfig{}))

	botAuthored := &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: "1",
		ID:        "2",
		Content:   "hello",
		Author:    &discordgo.User{Bot: true},
	}}
	d.handleMessageCreate(nil, botAuthored)

	empty := &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: "1",
		ID:        "3",
		Content:   "   ",
		Author:    &discordgo.User{Bot: false},
	}}
	d.handleMessageCreate(nil, empty)

	if len(recorder.events) != 0 {
		t.Fatalf("expected bot-authored and empty messages to be skipped, got %d events", len(recorder.events))
	}

	valid := &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: "1",
		ID:        "4",
		Content:   "hi there",
		Author:    &discordgo.User{Bot: false},
	}}
	d.handleMessageCreate(nil, valid)

	if len(recorder.events) != 1 {
		t.Fatalf("expected valid message to be enqueued, got %d events", len(recorder.events))
	}
}
