// Package audit emits one structured audit event per governance
// pipeline run. Recording is fire-and-forget: events are queued on a
// buffered channel and drained by a worker goroutine, so the pipeline
// never blocks on the sink.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"aegis-hq/aegis/pkg/governance"
)

// excerptLimit bounds the prompt/response excerpts carried in events.
const excerptLimit = 256

// Event is one pipeline run's audit payload.
type Event struct {
	// ID is the event's unique identifier.
	ID string `json:"id"`

	// OrganizationID scopes the event.
	OrganizationID string `json:"organization_id"`

	// EvaluationID links to the persisted evaluation, when one exists.
	EvaluationID string `json:"evaluation_id,omitempty"`

	// Prompt is a truncated prompt excerpt.
	Prompt string `json:"prompt"`

	// Response is a truncated response excerpt.
	Response string `json:"response"`

	// Action is the pipeline's final action.
	Action governance.Action `json:"action"`

	// Severity is the pipeline's merged severity.
	Severity governance.Severity `json:"severity"`

	// ViolationCount is how many violations contributed.
	ViolationCount int `json:"violation_count"`

	// EvaluatorScore is the pool's consensus score.
	EvaluatorScore float64 `json:"evaluator_score"`

	// Cached reports whether the run was served from cache.
	Cached bool `json:"cached"`

	// Duration is the pipeline's processing time.
	Duration time.Duration `json:"duration"`

	// CreatedAt is when the event was recorded.
	CreatedAt time.Time `json:"created_at"`
}

// Sink receives audit events. Delivery guarantees are the sink's
// responsibility.
type Sink interface {
	Write(ctx context.Context, event *Event) error
}

// SlogSink writes events as structured log lines.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink over the default logger.
func NewSlogSink() *SlogSink {
	return &SlogSink{logger: slog.Default().With("component", "audit")}
}

// Write logs the event.
func (s *SlogSink) Write(ctx context.Context, event *Event) error {
	s.logger.Info("governance audit",
		"event_id", event.ID,
		"organization_id", event.OrganizationID,
		"evaluation_id", event.EvaluationID,
		"action", event.Action,
		"severity", event.Severity,
		"violation_count", event.ViolationCount,
		"evaluator_score", event.EvaluatorScore,
		"cached", event.Cached,
		"duration_ms", event.Duration.Milliseconds(),
	)
	return nil
}

// Recorder queues events and drains them to the sinks on a worker
// goroutine. When the queue is full, events are dropped and counted
// rather than blocking the caller.
type Recorder struct {
	queue   chan *Event
	sinks   []Sink
	wg      sync.WaitGroup
	dropped int64
	mu      sync.Mutex
	closed  bool
	logger  *slog.Logger
}

// NewRecorder creates and starts a recorder. bufferSize <= 0 defaults
// to 256.
func NewRecorder(bufferSize int, sinks ...Sink) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	r := &Recorder{
		queue:  make(chan *Event, bufferSize),
		sinks:  sinks,
		logger: slog.Default().With("component", "audit.recorder"),
	}
	r.wg.Add(1)
	go r.drain()
	return r
}

// Record enqueues an event, filling in ID, truncation, and timestamp.
// It never blocks; a full queue drops the event.
func (r *Recorder) Record(event *Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	event.Prompt = truncate(event.Prompt)
	event.Response = truncate(event.Response)

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return
	}

	select {
	case r.queue <- event:
	default:
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
		r.logger.Warn("audit queue full, dropping event", "event_id", event.ID)
	}
}

// Dropped returns how many events were dropped.
func (r *Recorder) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close flushes the queue and stops the worker.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	close(r.queue)
	r.wg.Wait()
}

func (r *Recorder) drain() {
	defer r.wg.Done()
	ctx := context.Background()
	for event := range r.queue {
		for _, sink := range r.sinks {
			if err := sink.Write(ctx, event); err != nil {
				r.logger.Error("audit sink write failed", "event_id", event.ID, "error", err)
			}
		}
	}
}

func truncate(s string) string {
	if len(s) > excerptLimit {
		return s[:excerptLimit]
	}
	return s
}
