package audit

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"aegis-hq/aegis/pkg/governance"
)

// collectSink stores written events for assertions.
type collectSink struct {
	mu     sync.Mutex
	events []*Event
}

func (s *collectSink) Write(ctx context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *collectSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestRecorder_DeliversEvents(t *testing.T) {
	sink := &collectSink{}
	r := NewRecorder(16, sink)

	r.Record(&Event{
		OrganizationID: "org-1",
		Prompt:         "a prompt",
		Response:       "a response",
		Action:         governance.ActionAllow,
		Severity:       governance.SeverityLow,
	})
	r.Close()

	if sink.len() != 1 {
		t.Fatalf("expected 1 delivered event, got %d", sink.len())
	}
	event := sink.events[0]
	if event.ID == "" {
		t.Error("expected an assigned event ID")
	}
	if event.CreatedAt.IsZero() {
		t.Error("expected an assigned timestamp")
	}
}

func TestRecorder_TruncatesExcerpts(t *testing.T) {
	sink := &collectSink{}
	r := NewRecorder(16, sink)

	long := strings.Repeat("x", 2000)
	r.Record(&Event{Prompt: long, Response: long})
	r.Close()

	event := sink.events[0]
	if len(event.Prompt) != excerptLimit || len(event.Response) != excerptLimit {
		t.Errorf("expected truncation to %d, got %d/%d", excerptLimit, len(event.Prompt), len(event.Response))
	}
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	// A sink that blocks until released, so the queue can fill.
	release := make(chan struct{})
	blocking := sinkFunc(func(ctx context.Context, event *Event) error {
		<-release
		return nil
	})

	r := NewRecorder(1, blocking)
	for i := 0; i < 10; i++ {
		r.Record(&Event{Prompt: "p"})
	}
	close(release)
	r.Close()

	if r.Dropped() == 0 {
		t.Error("expected drops when the queue is full")
	}
}

func TestRecorder_RecordAfterClose(t *testing.T) {
	r := NewRecorder(4, &collectSink{})
	r.Close()

	// Must not panic.
	r.Record(&Event{Prompt: "late"})

	done := make(chan struct{})
	go func() {
		r.Close() // idempotent
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second Close did not return")
	}
}

type sinkFunc func(ctx context.Context, event *Event) error

func (f sinkFunc) Write(ctx context.Context, event *Event) error { return f(ctx, event) }
