// Package llm wraps an OpenAI-compatible chat-completions endpoint behind
// the agent.LLMProvider contract, translating tool schemas into
// function-calling definitions and retrying transient transport failures.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sentineld/agent/internal/agent"
	"github.com/sentineld/agent/internal/backoff"
	"github.com/sentineld/agent/pkg/models"
)

// completionTimeout bounds a single chat completion request, long enough
// to accommodate a slow reasoning model plus tool-call generation.
const completionTimeout = 600 * time.Second

const maxRetryAttempts = 5

// Metrics optionally observes every chat completion's latency, outcome,
// and token usage. A nil Metrics on a Client disables this entirely.
type Metrics interface {
	RecordLLMRequest(model, status string, durationSeconds float64, promptTokens, completionTokens int)
}

// Client implements agent.LLMProvider against any OpenAI-compatible chat
// completions API.
type Client struct {
	client  *openai.Client
	model   string
	policy  backoff.Policy
	metrics Metrics
}

// New builds a Client. baseURL may be empty to use OpenAI's default
// endpoint, or point at a compatible gateway (OpenRouter, a local vLLM
// instance, etc).
func New(baseURL, model, apiKey string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		policy: backoff.Default(),
	}
}

// SetMetrics attaches an optional metrics collector. Call before the
// first request; Client does not synchronize access to this field.
func (c *Client) SetMetrics(metrics Metrics) {
	c.metrics = metrics
}

// retryableError wraps a transport failure with a Retryable verdict, so
// internal/backoff.Retry can distinguish 5xx/429 from a bad request.
type retryableError struct {
	err       error
	retryable bool
}

func (e *retryableError) Error() string   { return e.err.Error() }
func (e *retryableError) Unwrap() error   { return e.err }
func (e *retryableError) Retryable() bool { return e.retryable }

func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		retryable := apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
		return &retryableError{err: err, retryable: retryable}
	}
	return &retryableError{err: err, retryable: true}
}

// ChatCompletion sends messages and the current tool schemas to the
// model, retrying retryable transport errors with exponential backoff.
func (c *Client) ChatCompletion(ctx context.Context, messages []models.ChatMessage, tools []models.ToolSpec) (agent.CompletionResult, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toOpenAIMessages(messages),
	}
	if len(tools) > 0 {
		req.Tools = toOpenAITools(tools)
	}

	var resp openai.ChatCompletionResponse
	err := backoff.Retry(ctx, c.policy, maxRetryAttempts, func(attempt int) error {
		r, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return classify(err)
		}
		resp = r
		return nil
	})
	if err != nil {
		c.recordMetrics(start, "error", 0, 0)
		return agent.CompletionResult{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		c.recordMetrics(start, "error", 0, 0)
		return agent.CompletionResult{}, fmt.Errorf("openai chat completion: no choices returned")
	}

	c.recordMetrics(start, "success", resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	choice := resp.Choices[0]
	return agent.CompletionResult{
		Message:      fromOpenAIMessage(choice.Message),
		FinishReason: string(choice.FinishReason),
		Usage: models.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (c *Client) recordMetrics(start time.Time, status string, promptTokens, completionTokens int) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordLLMRequest(c.model, status, time.Since(start).Seconds(), promptTokens, completionTokens)
}

// Complete runs a single no-tools completion at the given temperature and
// returns its text content, used by Agent.Compress.
func (c *Client) Complete(ctx context.Context, messages []models.ChatMessage, temperature float64) (string, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: float32(temperature),
	}

	var resp openai.ChatCompletionResponse
	err := backoff.Retry(ctx, c.policy, maxRetryAttempts, func(attempt int) error {
		r, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return classify(err)
		}
		resp = r
		return nil
	})
	if err != nil {
		c.recordMetrics(start, "error", 0, 0)
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		c.recordMetrics(start, "error", 0, 0)
		return "", fmt.Errorf("openai completion: no choices returned")
	}
	c.recordMetrics(start, "success", resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []models.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		content := ""
		if m.Content != nil {
			content = *m.Content
		}
		msg := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

func fromOpenAIMessage(m openai.ChatCompletionMessage) models.ChatMessage {
	content := m.Content
	result := models.ChatMessage{
		Role:    models.Role(m.Role),
		Content: &content,
	}
	for _, tc := range m.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return result
}

func toOpenAITools(tools []models.ToolSpec) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		var schema map[string]any
		if len(t.Parameters) > 0 {
			if err := json.Unmarshal(t.Parameters, &schema); err != nil {
				schema = map[string]any{"type": "object", "properties": map[string]any{}}
			}
		} else {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schema,
			},
		})
	}
	return out
}
