package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sentineld/agent/internal/agent"
	"github.com/sentineld/agent/pkg/models"
)

// maxImageBytes caps send_image uploads to 10 MiB.
const maxImageBytes = 10 * 1024 * 1024

var reactionEmojis = []string{"👍", "👎", "❤️", "🎉", "😄", "😕", "🚀", "👀"}

var addReactionSchema = json.RawMessage(fmt.Sprintf(`{
	"type": "object",
	"properties": {
		"emoji": {"type": "string", "enum": %s, "description": "Reaction to attach to the triggering message"}
	},
	"required": ["emoji"]
}`, mustMarshal(reactionEmojis)))

var sendImageSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"image_path": {"type": "string", "description": "Path to an image file on disk to send to the chat"}
	},
	"required": ["image_path"]
}`)

func mustMarshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// RegisterHumanInputTools returns an agent.RegisterInstanceTools bound to
// messaging, suitable for passing to agent.NewHumanInputOrchestrator. It
// registers add_reaction and send_image scoped to one chat_id/message_id
// so they never leak across events once the clone that carries them is
// discarded.
func RegisterHumanInputTools(messaging agent.Messaging) agent.RegisterInstanceTools {
	return func(registry *agent.ToolRegistry, chatID, messageID string) {
		registry.Register(addReactionTool(messaging, messageID))
		registry.Register(sendImageTool(messaging, chatID))
	}
}

func addReactionTool(messaging agent.Messaging, messageID string) agent.Tool {
	return agent.Tool{
		Name:        "add_reaction",
		Description: "Attach an emoji reaction to the message that triggered this run.",
		Parameters:  addReactionSchema,
		Handler: func(ctx context.Context, args map[string]any) (models.ToolResult, error) {
			emoji, _ := args["emoji"].(string)
			if !isAllowedEmoji(emoji) {
				return models.Error(fmt.Sprintf("emoji must be one of %v", reactionEmojis)), nil
			}
			if err := messaging.AddReaction(ctx, messageID, emoji); err != nil {
				return models.Error(err.Error()), nil
			}
			return models.Success(nil), nil
		},
	}
}

func isAllowedEmoji(emoji string) bool {
	for _, e := range reactionEmojis {
		if e == emoji {
			return true
		}
	}
	return false
}

func sendImageTool(messaging agent.Messaging, chatID string) agent.Tool {
	return agent.Tool{
		Name:        "send_image",
		Description: "Send an image file (at most 10 MiB) to the chat that triggered this run.",
		Parameters:  sendImageSchema,
		Handler: func(ctx context.Context, args map[string]any) (models.ToolResult, error) {
			imagePath, _ := args["image_path"].(string)
			if imagePath == "" {
				return models.Error("image_path is required"), nil
			}

			info, err := os.Stat(imagePath)
			if err != nil {
				return models.Error(err.Error()), nil
			}
			if info.Size() > maxImageBytes {
				return models.Error(fmt.Sprintf("image exceeds %d byte limit", maxImageBytes)), nil
			}

			if err := messaging.SendImage(ctx, chatID, imagePath); err != nil {
				return models.Error(err.Error()), nil
			}
			return models.Success(nil), nil
		},
	}
}
