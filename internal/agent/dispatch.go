package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/sync/errgroup"

	"github.com/sentineld/agent/pkg/models"
)

// deepseekPrefix flags tool calls from providers (deepseek-ai/*) that
// double-encode their arguments: the outer JSON object's string values
// are themselves JSON, and must be decoded a second time.
const deepseekPrefix = "deepseek-ai/"

// dispatchToolCalls runs every tool call in calls concurrently against
// registry and returns one {role: tool, ...} message per call, in the
// same order as calls. A malformed call, unknown tool name, or handler
// failure becomes an error ToolResult; it never aborts the other calls in
// the batch.
func dispatchToolCalls(ctx context.Context, registry *ToolRegistry, calls []models.ToolCall) []models.ChatMessage {
	results := make([]models.ChatMessage, len(calls))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, call := range calls {
		i, call := i, call
		group.Go(func() error {
			results[i] = dispatchOne(groupCtx, registry, call)
			return nil
		})
	}
	_ = group.Wait()

	return results
}

func dispatchOne(ctx context.Context, registry *ToolRegistry, call models.ToolCall) models.ChatMessage {
	result := runToolCall(ctx, registry, call)
	content, err := json.Marshal(result)
	if err != nil {
		content = []byte(fmt.Sprintf(`{"status":"error","message":%q}`, err.Error()))
	}
	contentStr := string(content)
	return models.ChatMessage{Role: models.RoleTool, Content: &contentStr, ToolCallID: call.ID}
}

func runToolCall(ctx context.Context, registry *ToolRegistry, call models.ToolCall) models.ToolResult {
	tool, ok := registry.Get(call.Name)
	if !ok {
		return models.Error(fmt.Sprintf("unknown tool: %s", call.Name))
	}

	args, err := parseArguments(call.Name, call.Arguments)
	if err != nil {
		return models.Error(fmt.Sprintf("invalid arguments for %s: %s", call.Name, err.Error()))
	}

	if err := validateArgs(call.Name, tool.Parameters, args); err != nil {
		return models.Error(fmt.Sprintf("argument validation failed for %s: %s", call.Name, err.Error()))
	}

	result, err := tool.Handler(ctx, args)
	if err != nil {
		return models.Error(err.Error())
	}
	return result
}

// parseArguments decodes a tool call's raw argument string into a map. If
// the tool name carries the deepseek-ai/ prefix, every string-typed value
// in the resulting map that itself parses as JSON is decoded a second
// time, accommodating that provider's double-encoding quirk.
func parseArguments(toolName, raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}

	if strings.HasPrefix(toolName, deepseekPrefix) {
		for k, v := range args {
			s, ok := v.(string)
			if !ok {
				continue
			}
			var decoded any
			if err := json.Unmarshal([]byte(s), &decoded); err == nil {
				args[k] = decoded
			}
		}
	}

	return args, nil
}

var schemaCache sync.Map // tool name -> *jsonschema.Schema

func validateArgs(toolName string, schema json.RawMessage, args map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	compiled, err := compiledSchema(toolName, schema)
	if err != nil {
		// A malformed schema on our side should not block tool
		// execution; only the LLM's arguments are being validated here.
		return nil
	}

	return compiled.ValidateInterface(toMapAny(args))
}

func compiledSchema(toolName string, schema json.RawMessage) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(toolName); ok {
		return cached.(*jsonschema.Schema), nil
	}
	compiled, err := jsonschema.CompileString(toolName, string(schema))
	if err != nil {
		return nil, err
	}
	schemaCache.Store(toolName, compiled)
	return compiled, nil
}

func toMapAny(args map[string]any) any {
	data, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return args
	}
	return out
}
