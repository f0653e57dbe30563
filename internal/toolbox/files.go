// Package toolbox registers the default tool set every Orchestrator
// starts from: command execution, file read/write/edit backed by a
// runtime.Runtime, web search and fetch, and skill loading. Instance-
// scoped tools bound to one chat_id/message_id are added separately via
// RegisterHumanInputTools.
package toolbox

import (
	"context"
	"encoding/json"

	"github.com/sentineld/agent/internal/agent"
	"github.com/sentineld/agent/internal/runtime"
	"github.com/sentineld/agent/pkg/models"
)

var readFileSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"path": {"type": "string", "description": "File path to read"},
		"start_line": {"type": "integer", "description": "1-indexed line to start reading from", "default": 1},
		"limit": {"type": "integer", "description": "Maximum number of lines to return", "default": 200}
	},
	"required": ["path"]
}`)

var writeFileSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"path": {"type": "string", "description": "File path to write"},
		"content": {"type": "string", "description": "Full content to write"}
	},
	"required": ["path", "content"]
}`)

var editFileSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"path": {"type": "string", "description": "File path to edit"},
		"edits": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"search": {"type": "string", "description": "Exact text to find, must match exactly once"},
					"replace": {"type": "string", "description": "Text to replace it with"}
				},
				"required": ["search", "replace"]
			}
		}
	},
	"required": ["path", "edits"]
}`)

func readFileTool(rt runtime.Runtime) agent.Tool {
	return agent.Tool{
		Name:        "read_file",
		Description: "Read a text file, optionally starting at a given line and limited to a number of lines.",
		Parameters:  readFileSchema,
		Handler: func(ctx context.Context, args map[string]any) (models.ToolResult, error) {
			path, _ := args["path"].(string)
			if path == "" {
				return models.Error("path is required"), nil
			}
			startLine := intArg(args, "start_line", 1)
			limit := intArg(args, "limit", runtime.DefaultReadLimit)

			res := rt.ReadFile(ctx, path, startLine, limit)
			if res.Status != runtime.StatusSuccess {
				return models.Error(res.Message), nil
			}
			return models.Success(map[string]any{
				"content":        res.Content,
				"total_lines":    res.TotalLines,
				"start_line":     res.StartLine,
				"returned_lines": res.ReturnedLines,
			}), nil
		},
	}
}

func writeFileTool(rt runtime.Runtime) agent.Tool {
	return agent.Tool{
		Name:        "write_file",
		Description: "Write content to a file, creating parent directories and overwriting any existing content.",
		Parameters:  writeFileSchema,
		Handler: func(ctx context.Context, args map[string]any) (models.ToolResult, error) {
			path, _ := args["path"].(string)
			content, _ := args["content"].(string)
			if path == "" {
				return models.Error("path is required"), nil
			}

			res := rt.WriteFile(ctx, path, content)
			if res.Status != runtime.StatusSuccess {
				return models.Error(res.Message), nil
			}
			return models.Success(nil), nil
		},
	}
}

func editFileTool(rt runtime.Runtime) agent.Tool {
	return agent.Tool{
		Name:        "edit_file",
		Description: "Apply one or more search/replace edits to a file. Every search block must match exactly once; if any edit fails, the file is left unmodified.",
		Parameters:  editFileSchema,
		Handler: func(ctx context.Context, args map[string]any) (models.ToolResult, error) {
			path, _ := args["path"].(string)
			if path == "" {
				return models.Error("path is required"), nil
			}

			rawEdits, _ := args["edits"].([]any)
			edits := make([]runtime.Edit, 0, len(rawEdits))
			for _, re := range rawEdits {
				m, ok := re.(map[string]any)
				if !ok {
					return models.Error("each edit must be an object with search and replace"), nil
				}
				search, _ := m["search"].(string)
				replace, _ := m["replace"].(string)
				edits = append(edits, runtime.Edit{Search: search, Replace: replace})
			}

			res := rt.EditFile(ctx, path, edits)
			if res.Status != runtime.StatusSuccess {
				return models.Error(res.Message), nil
			}
			return models.Success(nil), nil
		},
	}
}

func intArg(args map[string]any, key string, def int) int {
	v, ok := args[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return def
	}
}
