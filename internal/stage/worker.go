package stage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"docpipe/internal/logging"
	"docpipe/internal/queue"
	"docpipe/internal/services"
)

// WorkerConfig binds a handler to its queue prefixes and pacing.
type WorkerConfig struct {
	// InputPrefix selects which queue files this worker consumes.
	InputPrefix string

	// OutputPrefix names the files enqueued for the next stage. Empty for
	// terminal stages.
	OutputPrefix string

	// PollInterval is the idle sleep between empty queue scans.
	PollInterval time.Duration

	// ErrorRetryInterval is the backoff after a transient failure.
	ErrorRetryInterval time.Duration
}

// Worker drives one stage: it claims envelopes from its input queue, runs
// the handler, persists and forwards the result to the next stage's queue,
// then acknowledges the input. Fatal handler errors discard the unit to the
// dead-letter directory; everything else requeues it until the queue's
// attempt cap dead-letters the file.
type Worker struct {
	handler  Handler
	input    *queue.Queue
	output   *queue.Queue
	cfg      WorkerConfig
	logger   *slog.Logger
	notifier Notifier
}

// Notifier receives terminal failure events. Implemented by the
// notifications service; nil disables delivery.
type Notifier interface {
	NotifyDeadLetter(ctx context.Context, stageName, unit string, cause error) error
}

// NewWorker wires a handler between two queues. output may be nil for a
// stage that forwards nothing.
func NewWorker(handler Handler, input, output *queue.Queue, cfg WorkerConfig, logger *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.ErrorRetryInterval <= 0 {
		cfg.ErrorRetryInterval = 5 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Worker{
		handler: handler,
		input:   input,
		output:  output,
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, handler.Name()),
	}
}

// SetNotifier attaches a dead-letter notifier. Delivery is best effort and
// never affects queue settlement.
func (w *Worker) SetNotifier(n Notifier) { w.notifier = n }

// Run consumes the queue until ctx is canceled. It drains all eligible
// files before sleeping so bursts clear at full speed.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		worked, err := w.processOne(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if !sleepContext(ctx, w.cfg.ErrorRetryInterval) {
				return ctx.Err()
			}
			continue
		}
		if worked {
			continue
		}
		if !sleepContext(ctx, w.cfg.PollInterval) {
			return ctx.Err()
		}
	}
}

// ProcessAvailable drains every eligible queue file once and returns how
// many envelopes completed. Used by tests and the one-shot CLI path.
func (w *Worker) ProcessAvailable(ctx context.Context) (int, error) {
	completed := 0
	for {
		worked, err := w.processOne(ctx)
		if err != nil {
			return completed, err
		}
		if !worked {
			return completed, nil
		}
		completed++
	}
}

func (w *Worker) processOne(ctx context.Context) (bool, error) {
	msg, err := w.input.Claim(w.cfg.InputPrefix)
	if err != nil {
		if errors.Is(err, queue.ErrMalformed) {
			w.logger.Warn("dropped malformed queue file", logging.Args(
				logging.String(logging.FieldEventType, "queue_file_malformed"),
				logging.Error(err))...)
			return true, nil
		}
		return false, err
	}
	if msg == nil {
		return false, nil
	}

	env := msg.Envelope
	log := w.logger.With(logging.Args(
		logging.String(logging.FieldStage, w.handler.Name()),
		logging.String(logging.FieldProcessingID, env.ProcessingID))...)
	if env.SubmissionID != "" {
		log = log.With(logging.String(logging.FieldSubmissionID, env.SubmissionID))
	}

	outcome, err := w.handler.Process(ctx, env)
	if err != nil {
		return w.settleFailure(ctx, log, msg, err)
	}

	if outcome.Persist != nil {
		if err := outcome.Persist(ctx); err != nil {
			return w.settleFailure(ctx, log, msg, err)
		}
	}
	if outcome.Forward != nil && w.output != nil {
		forward := *outcome.Forward
		forward.Attempts = 0
		forward.Status = queue.StatusPending
		if err := w.output.Enqueue(w.cfg.OutputPrefix, forward.Key(), forward); err != nil {
			return w.settleFailure(ctx, log, msg, err)
		}
	}
	if err := msg.Ack(); err != nil {
		return true, err
	}

	log.Info("stage completed", logging.Args(
		logging.String(logging.FieldEventType, "stage_completed"),
		logging.String("summary", outcome.Summary))...)
	return true, nil
}

// settleFailure routes a failed unit: fatal errors are discarded because no
// retry can fix bad input, everything else goes back to the queue.
func (w *Worker) settleFailure(ctx context.Context, log *slog.Logger, msg *queue.Message, cause error) (bool, error) {
	if ctx.Err() != nil && errors.Is(cause, ctx.Err()) {
		// Shutdown mid-flight: leave the claim for the orphan sweep.
		return false, cause
	}
	if services.IsFatal(cause) {
		if err := msg.Discard(); err != nil {
			return true, err
		}
		log.Error("stage failed permanently", logging.Args(
			logging.String(logging.FieldEventType, "stage_discarded"),
			logging.String(logging.FieldErrorHint, "inspect the dead-letter directory"),
			logging.Error(cause))...)
		w.notifyDeadLetter(ctx, msg.Envelope.Key(), cause)
		return true, nil
	}

	deadLettered, err := msg.Nack()
	if err != nil {
		return true, err
	}
	if deadLettered {
		log.Error("stage exhausted retries", logging.Args(
			logging.String(logging.FieldEventType, "stage_dead_lettered"),
			logging.String(logging.FieldErrorHint, "inspect the dead-letter directory"),
			logging.Error(cause))...)
		w.notifyDeadLetter(ctx, msg.Envelope.Key(), cause)
		return true, nil
	}
	log.Warn("stage failed, will retry", logging.Args(
		logging.String(logging.FieldEventType, "stage_retrying"),
		logging.Error(cause))...)
	return true, cause
}

func (w *Worker) notifyDeadLetter(ctx context.Context, unit string, cause error) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.NotifyDeadLetter(ctx, w.handler.Name(), unit, cause); err != nil {
		w.logger.Warn("dead-letter notification failed", logging.Args(logging.Error(err))...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
