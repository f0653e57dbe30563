package messaging

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/sentineld/agent/internal/observability"
	"github.com/sentineld/agent/pkg/models"
)

// DiscordConfig configures the Discord adapter.
type DiscordConfig struct {
	BotToken        string
	NotifyChannelID string
}

// Discord implements Messaging over the Discord gateway, pushing every
// inbound guild/DM message onto the shared event queue as a
// HumanInputEvent. message_id handed back to the add_reaction tool is
// "<channel_id>:<message_id>" since a Discord reaction call needs both.
type Discord struct {
	config  DiscordConfig
	queue   Queue
	logger  *observability.Logger
	session *discordgo.Session
}

// NewDiscord builds a Discord adapter. The gateway session is opened in Run.
func NewDiscord(config DiscordConfig, queue Queue, logger *observability.Logger) *Discord {
	return &Discord{config: config, queue: queue, logger: logger}
}

// Run opens the gateway connection and blocks until ctx is cancelled.
func (d *Discord) Run(ctx context.Context) error {
	session, err := discordgo.New("Bot " + d.config.BotToken)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent
	session.AddHandler(d.handleMessageCreate)

	if err := session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	d.session = session
	d.logger.Info(ctx, "discord adapter started")

	<-ctx.Done()
	return session.Close()
}

func (d *Discord) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || strings.TrimSpace(m.Content) == "" {
		return
	}
	messageID := fmt.Sprintf("%s:%s", m.ChannelID, m.ID)
	event := models.NewHumanInput(m.ChannelID, messageID, m.Content, models.ChannelDiscord)
	if err := d.queue.Enqueue(context.Background(), event); err != nil {
		d.logger.Warn(context.Background(), "failed to enqueue discord message", "error", err.Error())
	}
}

// Notify sends text to the configured notify channel.
func (d *Discord) Notify(ctx context.Context, text string) error {
	if d.config.NotifyChannelID == "" {
		return nil
	}
	return d.SendMessage(ctx, d.config.NotifyChannelID, text)
}

// SendMessage posts text to channelID (chat_id is the Discord channel id).
func (d *Discord) SendMessage(ctx context.Context, chatID, text string) error {
	if d.session == nil {
		return fmt.Errorf("discord adapter not started")
	}
	_, err := d.session.ChannelMessageSend(chatID, text, discordgo.WithContext(ctx))
	return err
}

// AddReaction attaches an emoji reaction. messageID must be
// "<channel_id>:<message_id>" as produced by handleMessageCreate.
func (d *Discord) AddReaction(ctx context.Context, messageID, emoji string) error {
	if d.session == nil {
		return fmt.Errorf("discord adapter not started")
	}
	channelID, msgID, err := splitDiscordRef(messageID)
	if err != nil {
		return err
	}
	return d.session.MessageReactionAdd(channelID, msgID, emoji, discordgo.WithContext(ctx))
}

// SendImage uploads a local image file to chatID (a channel id).
func (d *Discord) SendImage(ctx context.Context, chatID, imagePath string) error {
	if d.session == nil {
		return fmt.Errorf("discord adapter not started")
	}
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	_, err = d.session.ChannelMessageSendComplex(chatID, &discordgo.MessageSend{
		Files: []*discordgo.File{{Name: filepath.Base(imagePath), Reader: bytes.NewReader(data)}},
	}, discordgo.WithContext(ctx))
	return err
}

func splitDiscordRef(ref string) (channelID, messageID string, err error) {
	idx := strings.LastIndex(ref, ":")
	if idx < 0 {
		return "", "", fmt.Errorf("message_id %q is not a channel_id:message_id pair", ref)
	}
	return ref[:idx], ref[idx+1:], nil
}
