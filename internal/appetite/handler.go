package appetite

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"docpipe/internal/logging"
	"docpipe/internal/queue"
	"docpipe/internal/services"
	"docpipe/internal/stage"
	"docpipe/internal/store"
)

// Handler is the matching stage: it scores each extracted submission
// against the business rules, records the decision, and emits the final
// processed envelope for reporting.
type Handler struct {
	evaluator *Evaluator
	store     *store.SubmissionStore
	notifier  Notifier
	logger    *slog.Logger
}

// Notifier receives appetite decisions. Implemented by the notifications
// service; nil disables delivery.
type Notifier interface {
	NotifyDecision(ctx context.Context, submissionID, documentType, decision string, riskScore float64) error
}

func NewHandler(evaluator *Evaluator, st *store.SubmissionStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{evaluator: evaluator, store: st,
		logger: logging.NewComponentLogger(logger, "matching")}
}

// SetNotifier attaches a decision notifier. Delivery is best effort and
// never affects stage settlement.
func (h *Handler) SetNotifier(n Notifier) { h.notifier = n }

func (h *Handler) Name() string { return "matching" }

func (h *Handler) Process(ctx context.Context, env queue.Envelope) (stage.Outcome, error) {
	if env.SubmissionID == "" {
		return stage.Outcome{}, services.Wrap(services.ErrValidation, h.Name(), "validate",
			"Matching input carries no submission id", nil)
	}

	scorecard, decision := h.evaluator.Evaluate(env.Fields)

	scorecardJSON, err := json.Marshal(scorecard)
	if err != nil {
		return stage.Outcome{}, services.Wrap(services.ErrValidation, h.Name(), "encode",
			"Scorecard could not be encoded", err)
	}
	decisionJSON, err := json.Marshal(decision)
	if err != nil {
		return stage.Outcome{}, services.Wrap(services.ErrValidation, h.Name(), "encode",
			"Appetite decision could not be encoded", err)
	}

	forward := env
	forward.Status = queue.StatusPending
	return stage.Outcome{
		Persist: func(ctx context.Context) error {
			if err := h.store.RecordDecision(ctx, env.SubmissionID,
				scorecardJSON, decisionJSON, decision.RiskScore, "processed"); err != nil {
				return err
			}
			if h.notifier != nil {
				if err := h.notifier.NotifyDecision(ctx, env.SubmissionID,
					env.DocumentType, decision.Decision, decision.RiskScore); err != nil {
					h.logger.Warn("decision notification failed", logging.Args(
						logging.String(logging.FieldSubmissionID, env.SubmissionID),
						logging.Error(err))...)
				}
			}
			return nil
		},
		Forward: &forward,
		Summary: fmt.Sprintf("%s %s (risk %.2f)", decision.Decision, env.SubmissionID, decision.RiskScore),
	}, nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if h.evaluator == nil || h.evaluator.rules == nil {
		return stage.Unhealthy(h.Name(), "no business rules configured")
	}
	return stage.Healthy(h.Name())
}
