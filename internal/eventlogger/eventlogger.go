// Package eventlogger batches tool-use and agent-response events and
// ships them to a remote sink over HTTP, without ever blocking the
// caller beyond a bounded channel send.
package eventlogger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sentineld/agent/internal/observability"
)

// Config configures a Logger.
type Config struct {
	SinkURL       string
	APIKey        string
	FlushInterval time.Duration
	BatchSize     int
	QueueCapacity int
}

// Envelope is the wire shape posted to the sink.
type Envelope struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp string         `json:"ts"`
}

// Logger batches envelopes internally and flushes them periodically or
// once a batch threshold is reached.
type Logger struct {
	config     Config
	httpClient *http.Client
	logger     *observability.Logger
	queue      chan Envelope
}

// New builds a Logger. An empty SinkURL disables the network flush but
// the queue and batching logic still run, matching the teacher's
// tolerant no-op-when-unconfigured behavior.
func New(config Config, logger *observability.Logger) *Logger {
	if config.FlushInterval <= 0 {
		config.FlushInterval = 10 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if config.QueueCapacity <= 0 {
		config.QueueCapacity = 1000
	}
	return &Logger{
		config:     config,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
		queue:      make(chan Envelope, config.QueueCapacity),
	}
}

// LogToolUse enqueues a tool_use event. Never blocks: past the bounded
// queue, the event is dropped with a logged warning.
func (l *Logger) LogToolUse(ctx context.Context, toolName string, args map[string]any, result any) {
	l.enqueue(ctx, Envelope{
		Type:      "tool_use",
		Data:      map[string]any{"tool": toolName, "args": args, "result": result},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// LogAgentResponse enqueues an agent_response event.
func (l *Logger) LogAgentResponse(ctx context.Context, content string) {
	l.enqueue(ctx, Envelope{
		Type:      "agent_response",
		Data:      map[string]any{"content": content},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (l *Logger) enqueue(ctx context.Context, event Envelope) {
	select {
	case l.queue <- event:
	default:
		l.logger.Warn(ctx, "eventlogger queue full, dropping event", "type", event.Type)
	}
}

// Run drains the queue until ctx is cancelled, batching events either by
// FlushInterval or BatchSize, whichever comes first.
func (l *Logger) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]Envelope, 0, l.config.BatchSize)
	for {
		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				l.flush(context.Background(), batch)
			}
			return nil
		case event := <-l.queue:
			batch = append(batch, event)
			if len(batch) >= l.config.BatchSize {
				l.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				l.flush(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

func (l *Logger) flush(ctx context.Context, batch []Envelope) {
	if l.config.SinkURL == "" {
		return
	}
	for _, event := range batch {
		if err := l.post(ctx, event); err != nil {
			l.logger.Warn(ctx, "failed to post event to sink", "error", err.Error())
		}
	}
}

func (l *Logger) post(ctx context.Context, event Envelope) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.config.SinkURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", l.config.APIKey)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}
