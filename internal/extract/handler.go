package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docpipe/internal/queue"
	"docpipe/internal/services"
	"docpipe/internal/stage"
	"docpipe/internal/store"
)

// submissionNamespace seeds the v5 submission id derived from the
// processing id, so a replayed unit always mints the same submission id.
var submissionNamespace = uuid.MustParse("6f1c24b8-5c1d-4fd2-9d39-0b6a2a97a2c4")

// SubmissionID returns the deterministic submission id for a processing id.
func SubmissionID(processingID string) string {
	return uuid.NewSHA1(submissionNamespace, []byte(processingID)).String()
}

// Handler is the extraction stage: it fills the per-type field template,
// mints the submission id, and hands the submission to matching.
type Handler struct {
	extractor *Extractor
	store     *store.SubmissionStore
}

func NewHandler(extractor *Extractor, st *store.SubmissionStore) *Handler {
	return &Handler{extractor: extractor, store: st}
}

func (h *Handler) Name() string { return "extraction" }

func (h *Handler) Process(ctx context.Context, env queue.Envelope) (stage.Outcome, error) {
	if env.ProcessingID == "" {
		return stage.Outcome{}, services.Wrap(services.ErrValidation, h.Name(), "validate",
			"Extraction input carries no processing id", nil)
	}

	fields, confidence := h.extractor.Extract(env.ExtractedText, env.DocumentType)
	submissionID := SubmissionID(env.ProcessingID)

	forward := env
	forward.SubmissionID = submissionID
	forward.Fields = fields
	rec := store.SubmissionRecord{
		SubmissionID: submissionID,
		ProcessingID: env.ProcessingID,
		DocumentType: env.DocumentType,
		Fields:       fields,
		Confidence:   confidence,
		Timestamp:    time.Now().UTC(),
		Status:       "extraction_complete",
	}
	filled := 0
	for _, value := range fields {
		if value != nil {
			filled++
		}
	}
	return stage.Outcome{
		Persist: func(ctx context.Context) error { return h.store.Upsert(ctx, rec) },
		Forward: &forward,
		Summary: fmt.Sprintf("extracted %d/%d fields for %s", filled, len(fields), env.DocumentType),
	}, nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if len(h.extractor.templates) == 0 {
		return stage.Unhealthy(h.Name(), "no extraction templates configured")
	}
	return stage.Healthy(h.Name())
}
