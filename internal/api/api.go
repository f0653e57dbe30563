// Package api implements the HTTP ingress: POST /api/bot enqueues a
// HumanInputEvent, GET /api/health reports liveness.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentineld/agent/internal/observability"
	"github.com/sentineld/agent/pkg/models"
)

var maxBotRequestBodyBytes int64 = 1 << 20

// Queue is the subset of the event queue this ingress needs.
type Queue interface {
	Enqueue(ctx context.Context, event models.Event) error
}

// Metrics optionally observes every HTTP request this ingress serves.
type Metrics interface {
	RecordHTTPRequest(method, path, statusCode string, durationSeconds float64)
}

// Server is the composed net/http ingress.
type Server struct {
	queue   Queue
	logger  *observability.Logger
	metrics Metrics
	mux     *http.ServeMux
}

// New builds a Server wired to queue. metrics may be nil to disable HTTP
// request instrumentation and the /api/metrics scrape endpoint stays
// mounted regardless, serving whatever collectors are registered
// process-wide.
func New(queue Queue, logger *observability.Logger, metrics Metrics) *Server {
	s := &Server{queue: queue, logger: logger, metrics: metrics, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /api/bot", s.handleBot)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.Handle("GET /api/metrics", promhttp.Handler())
	return s
}

// ServeHTTP implements http.Handler, timing and labeling every request by
// its registered route pattern before handing off to the mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		s.mux.ServeHTTP(w, r)
		return
	}

	start := time.Now()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(recorder, r)

	s.metrics.RecordHTTPRequest(r.Method, routeLabel(r), statusLabel(recorder.status), time.Since(start).Seconds())
}

// routeLabel collapses a request path to the registered route pattern so
// the status_code/method/path label cardinality stays bounded.
func routeLabel(r *http.Request) string {
	switch {
	case r.URL.Path == "/api/bot":
		return "/api/bot"
	case r.URL.Path == "/api/health":
		return "/api/health"
	case r.URL.Path == "/api/metrics":
		return "/api/metrics"
	default:
		return "unknown"
	}
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

type botRequest struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
	Message   string `json:"message"`
}

func (s *Server) handleBot(w http.ResponseWriter, r *http.Request) {
	var req botRequest
	if status, err := decodeJSONRequest(w, r, &req); err != nil {
		writeJSONError(w, status, err.Error())
		return
	}
	if req.SessionID == "" || req.MessageID == "" {
		writeJSONError(w, http.StatusUnprocessableEntity, "session_id and message_id are required")
		return
	}

	event := models.NewHumanInput(req.SessionID, req.MessageID, req.Message, models.ChannelHTTP)
	if err := s.queue.Enqueue(r.Context(), event); err != nil {
		s.logger.Warn(r.Context(), "failed to enqueue http event", "error", err.Error())
		writeJSONError(w, http.StatusServiceUnavailable, "event queue unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "queued"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSONRequest(w http.ResponseWriter, r *http.Request, dst any) (int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBotRequestBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return http.StatusRequestEntityTooLarge, err
		}
		return http.StatusUnprocessableEntity, err
	}
	return 0, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
