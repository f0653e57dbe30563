// Package agent implements the LLM tool-use loop: the ToolRegistry that
// wraps every handler with a timeout, the Agent that drives one run of
// LLM-and-tool iteration, and the Orchestrator variants that decide how a
// run's intermediate and terminal messages are surfaced.
package agent

import (
	"context"
	"encoding/json"

	"github.com/sentineld/agent/pkg/models"
)

// Handler is a tool's implementation: given already-validated arguments,
// it returns a result. Handlers may return a Go error for truly
// unexpected failures; the registry wrapper converts that into an error
// ToolResult rather than propagating it.
type Handler func(ctx context.Context, args map[string]any) (models.ToolResult, error)

// Tool pairs a handler with the schema the LLM sees.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
	Handler     Handler
}

// Spec reduces a Tool to the ToolSpec shape sent to the LLM.
func (t Tool) Spec() models.ToolSpec {
	return models.ToolSpec{Name: t.Name, Description: t.Description, Parameters: t.Parameters}
}
