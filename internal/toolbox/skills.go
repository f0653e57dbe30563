package toolbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sentineld/agent/internal/agent"
	"github.com/sentineld/agent/internal/skills"
	"github.com/sentineld/agent/pkg/models"
)

var useSkillSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"name": {"type": "string", "description": "Name of the skill to load instructions for"}
	},
	"required": ["name"]
}`)

func useSkillTool(loader *skills.Loader) agent.Tool {
	return agent.Tool{
		Name:        "use_skill",
		Description: "Load the full instructions for a named skill discovered in the skills directory.",
		Parameters:  useSkillSchema,
		Handler: func(ctx context.Context, args map[string]any) (models.ToolResult, error) {
			name, _ := args["name"].(string)
			if name == "" {
				return models.Error("name is required"), nil
			}

			skill, err := loader.Get(name)
			if err != nil {
				return models.Error(err.Error()), nil
			}
			if skill == nil {
				return models.Error(fmt.Sprintf("unknown skill: %s", name)), nil
			}

			return models.Success(map[string]any{
				"name":         skill.Name,
				"description":  skill.Description,
				"instructions": skill.Instructions,
			}), nil
		},
	}
}
