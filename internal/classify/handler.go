package classify

import (
	"context"
	"fmt"
	"time"

	"docpipe/internal/queue"
	"docpipe/internal/stage"
	"docpipe/internal/store"
)

// Handler is the classification stage: it types the recognized text,
// records the decision, and forwards the document to extraction.
type Handler struct {
	classifier *Classifier
	store      *store.ClassificationStore
}

func NewHandler(classifier *Classifier, st *store.ClassificationStore) *Handler {
	return &Handler{classifier: classifier, store: st}
}

func (h *Handler) Name() string { return "classification" }

func (h *Handler) Process(ctx context.Context, env queue.Envelope) (stage.Outcome, error) {
	decision := h.classifier.Classify(env.ExtractedText)

	forward := env
	forward.DocumentType = decision.DocumentType
	forward.Tags = decision.Tags
	rec := store.ClassificationRecord{
		ProcessingID: env.ProcessingID,
		FileURI:      env.FileURI,
		DocumentType: decision.DocumentType,
		Tags:         decision.Tags,
		Confidence:   decision.Confidence,
		Timestamp:    time.Now().UTC(),
		Status:       "classification_complete",
	}
	return stage.Outcome{
		Persist: func(ctx context.Context) error { return h.store.Upsert(ctx, rec) },
		Forward: &forward,
		Summary: fmt.Sprintf("classified as %s at %.0f%% confidence", decision.DocumentType, decision.Confidence),
	}, nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if len(h.classifier.rules) == 0 {
		return stage.Unhealthy(h.Name(), "no classification rules configured")
	}
	return stage.Healthy(h.Name())
}
