package ingest

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docpipe/internal/queue"
	"docpipe/internal/services"
)

// Submitter mints processing ids and enqueues intake requests. Both the
// inbox watcher and the submit command go through it so every document
// enters the pipeline the same way.
type Submitter struct {
	queue  *queue.Queue
	source string
}

func NewSubmitter(q *queue.Queue, source string) *Submitter {
	if source == "" {
		source = "api"
	}
	return &Submitter{queue: q, source: source}
}

// Submit enqueues one document path as an intake request and returns the
// processing id assigned to it.
func (s *Submitter) Submit(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", services.Wrap(services.ErrValidation, "ingestion", "submit",
			"Document path is required", nil)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "ingestion", "submit",
			"Document path could not be resolved", err)
	}

	processingID := uuid.NewString()
	env := queue.Envelope{
		ProcessingID: processingID,
		FileURI:      abs,
		OriginalName: filepath.Base(abs),
		Timestamp:    time.Now().UTC(),
		Source:       s.source,
		Status:       queue.StatusPending,
	}
	if err := s.queue.Enqueue(queue.PrefixRequest, processingID, env); err != nil {
		return "", err
	}
	return processingID, nil
}
