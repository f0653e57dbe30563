package eventlogger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sentineld/agent/internal/observability"
)

func newTestLogger(sinkURL string, cfg Config) *Logger {
	cfg.SinkURL = sinkURL
	return New(cfg, observability.NewLogger(observability.LogConfig{}))
}

func TestEnqueueDropsBeyondCapacity(t *testing.T) {
	logger := newTestLogger("", Config{QueueCapacity: 1})

	logger.LogAgentResponse(context.Background(), "first")
	logger.LogAgentResponse(context.Background(), "second")

	if got := len(logger.queue); got != 1 {
		t.Fatalf("expected queue to hold exactly 1 event after drop, got %d", got)
	}
}

func TestRunFlushesByBatchSize(t *testing.T) {
	var mu sync.Mutex
	var received []Envelope
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var e Envelope
		json.NewDecoder(r.Body).Decode(&e)
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}))
	defer server.Close()

	logger := newTestLogger(server.URL, Config{BatchSize: 2, FlushInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go logger.Run(ctx)

	logger.LogToolUse(ctx, "read_file", map[string]any{"path": "a"}, "ok")
	logger.LogToolUse(ctx, "write_file", map[string]any{"path": "b"}, "ok")

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 posted events, got %d", n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRunFlushesByInterval(t *testing.T) {
	hit := make(chan Envelope, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var e Envelope
		json.NewDecoder(r.Body).Decode(&e)
		hit <- e
	}))
	defer server.Close()

	logger := newTestLogger(server.URL, Config{BatchSize: 100, FlushInterval: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go logger.Run(ctx)

	logger.LogAgentResponse(ctx, "hello")

	select {
	case e := <-hit:
		if e.Type != "agent_response" {
			t.Errorf("expected agent_response event, got %s", e.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected interval flush to post the pending event")
	}
}

func TestRunFlushesPendingBatchOnShutdown(t *testing.T) {
	hit := make(chan Envelope, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var e Envelope
		json.NewDecoder(r.Body).Decode(&e)
		hit <- e
	}))
	defer server.Close()

	logger := newTestLogger(server.URL, Config{BatchSize: 100, FlushInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- logger.Run(ctx) }()

	logger.LogAgentResponse(ctx, "final")
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	select {
	case e := <-hit:
		if e.Type != "agent_response" {
			t.Errorf("expected agent_response event, got %s", e.Type)
		}
	default:
		t.Fatal("expected pending event to be flushed on shutdown")
	}
}

func TestFlushNoopWithoutSinkURL(t *testing.T) {
	logger := newTestLogger("", Config{})
	logger.flush(context.Background(), []Envelope{{Type: "tool_use"}})
}
