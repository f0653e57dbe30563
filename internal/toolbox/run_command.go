package toolbox

import (
	"context"
	"encoding/json"

	"github.com/sentineld/agent/internal/agent"
	"github.com/sentineld/agent/internal/runtime"
	"github.com/sentineld/agent/pkg/models"
)

var runCommandSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"command": {"type": "string", "description": "Shell command to execute"}
	},
	"required": ["command"]
}`)

func runCommandTool(rt runtime.Runtime) agent.Tool {
	return agent.Tool{
		Name:        "run_command",
		Description: "Execute a shell command in the workspace and return its stdout, stderr, and exit status.",
		Parameters:  runCommandSchema,
		Handler: func(ctx context.Context, args map[string]any) (models.ToolResult, error) {
			command, _ := args["command"].(string)
			if command == "" {
				return models.Error("command is required"), nil
			}

			res := rt.Execute(ctx, command)
			if res.Message != "" {
				return models.Error(res.Message), nil
			}
			data := map[string]any{"stdout": res.Stdout, "stderr": res.Stderr}
			if res.Status != runtime.StatusSuccess {
				data["returncode"] = res.ReturnCode
				return models.ToolResult{Status: runtime.StatusError, Data: data}, nil
			}
			return models.Success(data), nil
		},
	}
}
