package stage

import (
	"context"
	"errors"
	"testing"
	"time"

	"docpipe/internal/queue"
	"docpipe/internal/services"
)

type fakeHandler struct {
	name    string
	process func(ctx context.Context, env queue.Envelope) (Outcome, error)
}

func (h *fakeHandler) Name() string { return h.name }

func (h *fakeHandler) Process(ctx context.Context, env queue.Envelope) (Outcome, error) {
	return h.process(ctx, env)
}

func (h *fakeHandler) HealthCheck(context.Context) Health { return Healthy(h.name) }

func newTestQueue(t *testing.T) *queue.Queue {
	t.Helper()
	q, err := queue.Open(t.TempDir(), 2)
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	return q
}

func enqueueTest(t *testing.T, q *queue.Queue, prefix, id string) {
	t.Helper()
	env := queue.Envelope{
		ProcessingID: id,
		Timestamp:    time.Now().UTC(),
		Source:       "test",
		Status:       queue.StatusPending,
	}
	if err := q.Enqueue(prefix, id, env); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
}

func TestWorkerPersistsForwardsAndAcks(t *testing.T) {
	input := newTestQueue(t)
	output := newTestQueue(t)
	enqueueTest(t, input, queue.PrefixIngested, "proc-1")

	var events []string
	handler := &fakeHandler{
		name: "recognition",
		process: func(_ context.Context, env queue.Envelope) (Outcome, error) {
			forward := env
			forward.ExtractedText = "hello"
			return Outcome{
				Persist: func(context.Context) error {
					events = append(events, "persist")
					return nil
				},
				Forward: &forward,
				Summary: "recognized proc-1",
			}, nil
		},
	}
	worker := NewWorker(handler, input, output, WorkerConfig{
		InputPrefix:  queue.PrefixIngested,
		OutputPrefix: queue.PrefixRecognized,
	}, nil)

	completed, err := worker.ProcessAvailable(context.Background())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if completed != 1 {
		t.Fatalf("expected 1 completion, got %d", completed)
	}
	if len(events) != 1 || events[0] != "persist" {
		t.Fatalf("persist did not run exactly once: %v", events)
	}

	if n, _ := input.Len(queue.PrefixIngested); n != 0 {
		t.Fatalf("input not acknowledged, %d pending", n)
	}
	msg, err := output.Claim(queue.PrefixRecognized)
	if err != nil {
		t.Fatalf("claim forward: %v", err)
	}
	if msg == nil {
		t.Fatal("forward envelope missing")
	}
	if msg.Envelope.ExtractedText != "hello" {
		t.Fatalf("forward payload wrong: %q", msg.Envelope.ExtractedText)
	}
	if msg.Envelope.Attempts != 0 {
		t.Fatalf("forward attempts not reset: %d", msg.Envelope.Attempts)
	}
}

func TestWorkerDiscardsFatalFailures(t *testing.T) {
	input := newTestQueue(t)
	enqueueTest(t, input, queue.PrefixIngested, "proc-2")

	handler := &fakeHandler{
		name: "recognition",
		process: func(context.Context, queue.Envelope) (Outcome, error) {
			return Outcome{}, services.Wrap(services.ErrValidation,
				"recognition", "decode", "Unsupported payload", nil)
		},
	}
	worker := NewWorker(handler, input, nil, WorkerConfig{InputPrefix: queue.PrefixIngested}, nil)

	if _, err := worker.ProcessAvailable(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if n, _ := input.Len(queue.PrefixIngested); n != 0 {
		t.Fatalf("fatal failure should leave nothing pending, got %d", n)
	}
	if n, _ := input.DeadLetterLen(); n != 1 {
		t.Fatalf("fatal failure should dead-letter immediately, got %d", n)
	}
}

func TestWorkerRetriesThenDeadLetters(t *testing.T) {
	input := newTestQueue(t)
	enqueueTest(t, input, queue.PrefixIngested, "proc-3")

	attempts := 0
	handler := &fakeHandler{
		name: "recognition",
		process: func(context.Context, queue.Envelope) (Outcome, error) {
			attempts++
			return Outcome{}, errors.New("backend unavailable")
		},
	}
	worker := NewWorker(handler, input, nil, WorkerConfig{InputPrefix: queue.PrefixIngested}, nil)

	ctx := context.Background()
	// First failure requeues with an incremented attempt counter.
	if _, err := worker.ProcessAvailable(ctx); err == nil {
		t.Fatal("expected transient error on first pass")
	}
	if n, _ := input.Len(queue.PrefixIngested); n != 1 {
		t.Fatalf("unit should be requeued, %d pending", n)
	}

	// Second failure hits the cap of 2 and dead-letters.
	if _, err := worker.ProcessAvailable(ctx); err != nil {
		t.Fatalf("dead-letter pass should not surface an error: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 handler attempts, got %d", attempts)
	}
	if n, _ := input.Len(queue.PrefixIngested); n != 0 {
		t.Fatalf("dead-lettered unit still pending: %d", n)
	}
	if n, _ := input.DeadLetterLen(); n != 1 {
		t.Fatalf("expected 1 dead-lettered unit, got %d", n)
	}
}

func TestWorkerPersistFailureRequeues(t *testing.T) {
	input := newTestQueue(t)
	output := newTestQueue(t)
	enqueueTest(t, input, queue.PrefixIngested, "proc-4")

	handler := &fakeHandler{
		name: "recognition",
		process: func(_ context.Context, env queue.Envelope) (Outcome, error) {
			forward := env
			return Outcome{
				Persist: func(context.Context) error { return errors.New("database locked") },
				Forward: &forward,
			}, nil
		},
	}
	worker := NewWorker(handler, input, output, WorkerConfig{
		InputPrefix:  queue.PrefixIngested,
		OutputPrefix: queue.PrefixRecognized,
	}, nil)

	if _, err := worker.ProcessAvailable(context.Background()); err == nil {
		t.Fatal("expected transient error")
	}
	if n, _ := output.Len(queue.PrefixRecognized); n != 0 {
		t.Fatalf("nothing should be forwarded when persist fails, got %d", n)
	}
	if n, _ := input.Len(queue.PrefixIngested); n != 1 {
		t.Fatalf("unit should be requeued after persist failure, %d pending", n)
	}
}

func TestWorkerWithoutOutputQueueForwardsNothing(t *testing.T) {
	input := newTestQueue(t)
	enqueueTest(t, input, queue.PrefixExtracted, "proc-5")

	handler := &fakeHandler{
		name: "matching",
		process: func(_ context.Context, env queue.Envelope) (Outcome, error) {
			forward := env
			return Outcome{Forward: &forward, Summary: "decided"}, nil
		},
	}
	worker := NewWorker(handler, input, nil, WorkerConfig{InputPrefix: queue.PrefixExtracted}, nil)

	if _, err := worker.ProcessAvailable(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if n, _ := input.Len(queue.PrefixExtracted); n != 0 {
		t.Fatalf("input not acknowledged, %d pending", n)
	}
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	input := newTestQueue(t)
	handler := &fakeHandler{
		name: "recognition",
		process: func(context.Context, queue.Envelope) (Outcome, error) {
			return Outcome{}, nil
		},
	}
	worker := NewWorker(handler, input, nil, WorkerConfig{
		InputPrefix:  queue.PrefixIngested,
		PollInterval: 10 * time.Millisecond,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("unexpected run error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
