package recognize

import (
	"context"
	"fmt"
	"time"

	"docpipe/internal/queue"
	"docpipe/internal/services"
	"docpipe/internal/stage"
	"docpipe/internal/store"
)

// Handler is the recognition stage: it runs the configured engine over the
// lake copy, records the text, and forwards it to classification.
type Handler struct {
	engine Engine
	store  *store.RecognitionStore
}

func NewHandler(engine Engine, st *store.RecognitionStore) *Handler {
	return &Handler{engine: engine, store: st}
}

func (h *Handler) Name() string { return "recognition" }

func (h *Handler) Process(ctx context.Context, env queue.Envelope) (stage.Outcome, error) {
	if env.FileURI == "" {
		return stage.Outcome{}, services.Wrap(services.ErrValidation, h.Name(), "validate",
			"Recognition input carries no document path", nil)
	}

	result, err := h.engine.Recognize(ctx, env.FileURI)
	if err != nil {
		return stage.Outcome{}, services.Wrap(services.ErrTransient, h.Name(), "recognize",
			"Recognition backend unavailable", err)
	}

	forward := env
	forward.ExtractedText = result.Text
	rec := store.RecognitionRecord{
		ProcessingID:  env.ProcessingID,
		FileURI:       env.FileURI,
		ExtractedText: result.Text,
		Confidence:    result.Confidence,
		Timestamp:     time.Now().UTC(),
		Status:        "ocr_complete",
	}
	return stage.Outcome{
		Persist: func(ctx context.Context) error { return h.store.Upsert(ctx, rec) },
		Forward: &forward,
		Summary: fmt.Sprintf("recognized %d chars at %.0f%% confidence", len(result.Text), result.Confidence),
	}, nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	type readiness interface {
		Ready(ctx context.Context) error
	}
	if probe, ok := h.engine.(readiness); ok {
		if err := probe.Ready(ctx); err != nil {
			return stage.Unhealthy(h.Name(), err.Error())
		}
	}
	return stage.Healthy(h.Name())
}
