package stage

import (
	"context"

	"docpipe/internal/queue"
)

// Outcome is what a handler produced for one envelope. The worker runs
// Persist before enqueuing Forward, and enqueues Forward before
// acknowledging the input, so a crash at any point replays work instead of
// losing it.
type Outcome struct {
	// Persist writes the stage's durable record. Nil when the stage has
	// nothing to store.
	Persist func(ctx context.Context) error

	// Forward is the envelope for the next stage, or nil for terminal
	// stages.
	Forward *queue.Envelope

	// Summary is a short human line for the completion log.
	Summary string
}

// Handler describes the contract the worker needs from each stage. The
// worker owns claiming, retry, and dead-letter policy; handlers only
// transform envelopes and persist results.
type Handler interface {
	Name() string
	Process(ctx context.Context, env queue.Envelope) (Outcome, error)
	HealthCheck(ctx context.Context) Health
}
