package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sentineld/agent/pkg/models"
)

// EventSink optionally observes tool invocations for side-channel logging.
// A nil EventSink on a registry disables this entirely.
type EventSink interface {
	LogToolUse(ctx context.Context, toolName string, args map[string]any, result any)
}

// ToolMetrics optionally observes tool invocation outcomes for metrics
// collection. A nil ToolMetrics on a registry disables this entirely.
type ToolMetrics interface {
	RecordToolExecution(toolName, status string, durationSeconds float64)
}

// ToolRegistry holds every tool available to an Orchestrator. It is built
// once at startup with the always-on tools, then Cloned per Orchestrator
// so instance-scoped tools (add_reaction, send_image, bound to a specific
// chat_id/message_id) never leak into other events.
type ToolRegistry struct {
	mu        sync.RWMutex
	tools     map[string]Tool
	timeout   time.Duration
	eventSink EventSink
	metrics   ToolMetrics
}

// NewToolRegistry builds an empty registry. Every handler registered
// through it is wrapped to enforce timeout and never panic or return a Go
// error to the caller.
func NewToolRegistry(timeout time.Duration) *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool), timeout: timeout}
}

// SetEventSink attaches an optional sink notified after every tool call
// completes, successfully or not.
func (r *ToolRegistry) SetEventSink(sink EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eventSink = sink
}

// SetMetrics attaches an optional metrics collector notified with the
// status and duration of every tool call.
func (r *ToolRegistry) SetMetrics(metrics ToolMetrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = metrics
}

// Register adds a tool, wrapping its handler with the registry's timeout
// and error containment.
func (r *ToolRegistry) Register(tool Tool) {
	wrapped := tool
	wrapped.Handler = r.wrap(tool.Name, tool.Handler)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = wrapped
}

// Unregister removes a tool by name, if present.
func (r *ToolRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns the named tool and whether it was found.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// ToolSpecs returns the schema for every registered tool, in the shape
// sent to the LLM's function-calling API.
func (r *ToolRegistry) ToolSpecs() []models.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]models.ToolSpec, 0, len(r.tools))
	for _, tool := range r.tools {
		specs = append(specs, tool.Spec())
	}
	return specs
}

// Clone returns an independent registry seeded with a copy of this
// registry's tools. Registering a tool on the clone, or on the original,
// never affects the other.
func (r *ToolRegistry) Clone() *ToolRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &ToolRegistry{tools: make(map[string]Tool, len(r.tools)), timeout: r.timeout, eventSink: r.eventSink, metrics: r.metrics}
	for name, tool := range r.tools {
		clone.tools[name] = tool
	}
	return clone
}

// wrap enforces the per-tool timeout and converts panics/errors/timeouts
// into error ToolResults. The registry's handlers never raise: every
// failure mode becomes {status: "error", message: ...}.
func (r *ToolRegistry) wrap(name string, handler Handler) Handler {
	timeout := r.timeout
	return func(ctx context.Context, args map[string]any) (result models.ToolResult, err error) {
		start := time.Now()
		defer func() {
			if sink := r.eventSink; sink != nil {
				sink.LogToolUse(ctx, name, args, result)
			}
			if metrics := r.metrics; metrics != nil {
				status := "success"
				if result.IsError() {
					status = "error"
				}
				metrics.RecordToolExecution(name, status, time.Since(start).Seconds())
			}
		}()

		if timeout <= 0 {
			return r.runGuarded(ctx, name, handler, args)
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		type outcome struct {
			result models.ToolResult
			err    error
		}
		done := make(chan outcome, 1)
		go func() {
			res, e := r.runGuarded(callCtx, name, handler, args)
			done <- outcome{res, e}
		}()

		select {
		case out := <-done:
			return out.result, out.err
		case <-callCtx.Done():
			return models.Error(fmt.Sprintf("Tool %s timed out after %ds", name, int(timeout.Seconds()))), nil
		}
	}
}

// runGuarded recovers from a handler panic and converts both panics and
// returned errors into an error ToolResult.
func (r *ToolRegistry) runGuarded(ctx context.Context, name string, handler Handler, args map[string]any) (result models.ToolResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = models.Error(fmt.Sprintf("%v", rec))
			err = nil
		}
	}()

	res, handlerErr := handler(ctx, args)
	if handlerErr != nil {
		return models.Error(handlerErr.Error()), nil
	}
	return res, nil
}
