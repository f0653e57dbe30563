package messaging

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/sentineld/agent/internal/observability"
	"github.com/sentineld/agent/pkg/models"
)

// botClient is the subset of *bot.Bot this adapter calls, so tests can
// substitute a fake without standing up a real Telegram connection.
type botClient interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*tgmodels.Message, error)
	SendPhoto(ctx context.Context, params *tgbot.SendPhotoParams) (*tgmodels.Message, error)
	SetMessageReaction(ctx context.Context, params *tgbot.SetMessageReactionParams) (bool, error)
	Start(ctx context.Context)
}

type realTelegramClient struct {
	bot *tgbot.Bot
}

func (r *realTelegramClient) SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*tgmodels.Message, error) {
	return r.bot.SendMessage(ctx, params)
}

func (r *realTelegramClient) SendPhoto(ctx context.Context, params *tgbot.SendPhotoParams) (*tgmodels.Message, error) {
	return r.bot.SendPhoto(ctx, params)
}

func (r *realTelegramClient) SetMessageReaction(ctx context.Context, params *tgbot.SetMessageReactionParams) (bool, error) {
	return r.bot.SetMessageReaction(ctx, params)
}

func (r *realTelegramClient) Start(ctx context.Context) {
	r.bot.Start(ctx)
}

// TelegramConfig configures the Telegram adapter.
type TelegramConfig struct {
	BotToken     string
	NotifyChatID string
}

// Telegram implements Messaging over the Telegram Bot API, pushing every
// inbound text message onto the shared event queue as a HumanInputEvent.
type Telegram struct {
	config TelegramConfig
	queue  Queue
	logger *observability.Logger
	client botClient
}

// NewTelegram builds a Telegram adapter. The underlying bot.Bot is created
// lazily in Run so construction never fails on a bad token alone.
func NewTelegram(config TelegramConfig, queue Queue, logger *observability.Logger) *Telegram {
	return &Telegram{config: config, queue: queue, logger: logger}
}

// Run starts long polling and blocks until ctx is cancelled.
func (t *Telegram) Run(ctx context.Context) error {
	opts := []tgbot.Option{
		tgbot.WithDefaultHandler(t.handleUpdate),
	}
	b, err := tgbot.New(t.config.BotToken, opts...)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}
	t.client = &realTelegramClient{bot: b}

	t.logger.Info(ctx, "telegram adapter starting")
	b.Start(ctx)
	return nil
}

func (t *Telegram) handleUpdate(ctx context.Context, b *tgbot.Bot, update *tgmodels.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	chatID := strconv.FormatInt(update.Message.Chat.ID, 10)
	messageID := fmt.Sprintf("%s:%d", chatID, update.Message.ID)

	event := models.NewHumanInput(chatID, messageID, update.Message.Text, models.ChannelTelegram)
	if err := t.queue.Enqueue(ctx, event); err != nil {
		t.logger.Warn(ctx, "failed to enqueue telegram message", "error", err.Error())
	}
}

// Notify sends text to the configured notify chat, used for heartbeat
// broadcasts with no originating session.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	if t.config.NotifyChatID == "" {
		return nil
	}
	return t.SendMessage(ctx, t.config.NotifyChatID, text)
}

// SendMessage replies within a specific chat.
func (t *Telegram) SendMessage(ctx context.Context, chatID, text string) error {
	if t.client == nil {
		return fmt.Errorf("telegram adapter not started")
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat_id %q: %w", chatID, err)
	}
	_, err = t.client.SendMessage(ctx, &tgbot.SendMessageParams{ChatID: id, Text: text})
	return err
}

// AddReaction attaches an emoji reaction to messageID. Telegram identifies
// the target message by (chat_id, message_id); since messageID alone does
// not carry the chat, callers must encode it as "<chat_id>:<message_id>".
func (t *Telegram) AddReaction(ctx context.Context, messageID, emoji string) error {
	if t.client == nil {
		return fmt.Errorf("telegram adapter not started")
	}
	chatID, msgID, err := splitMessageRef(messageID)
	if err != nil {
		return err
	}
	_, err = t.client.SetMessageReaction(ctx, &tgbot.SetMessageReactionParams{
		ChatID:    chatID,
		MessageID: msgID,
		Reaction:  []tgmodels.ReactionType{{Type: tgmodels.ReactionTypeTypeEmoji, ReactionTypeEmoji: &tgmodels.ReactionTypeEmoji{Emoji: emoji}}},
	})
	return err
}

// SendImage uploads a local image file to chatID.
func (t *Telegram) SendImage(ctx context.Context, chatID, imagePath string) error {
	if t.client == nil {
		return fmt.Errorf("telegram adapter not started")
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat_id %q: %w", chatID, err)
	}
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	_, err = t.client.SendPhoto(ctx, &tgbot.SendPhotoParams{
		ChatID: id,
		Photo:  &tgmodels.InputFileUpload{Filename: imagePath, Data: bytes.NewReader(data)},
	})
	return err
}

func splitMessageRef(ref string) (int64, int, error) {
	var chatPart, msgPart string
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == ':' {
			chatPart, msgPart = ref[:i], ref[i+1:]
			break
		}
	}
	if chatPart == "" || msgPart == "" {
		return 0, 0, fmt.Errorf("message_id %q is not a chat_id:message_id pair", ref)
	}
	chatID, err := strconv.ParseInt(chatPart, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid chat_id in %q: %w", ref, err)
	}
	msgID, err := strconv.Atoi(msgPart)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid message_id in %q: %w", ref, err)
	}
	return chatID, msgID, nil
}
