package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"docpipe/internal/queue"
	"docpipe/internal/services"
	"docpipe/internal/stage"
	"docpipe/internal/store"
)

const lakeTimestampLayout = "20060102T150405"

// Handler is the ingestion stage: it copies an accepted document into the
// data lake, records it in the ingestion store, and forwards the lake copy
// to recognition.
type Handler struct {
	store    *store.IngestionStore
	lakeDir  string
	inboxDir string
}

func NewHandler(st *store.IngestionStore, lakeDir, inboxDir string) *Handler {
	return &Handler{store: st, lakeDir: lakeDir, inboxDir: inboxDir}
}

func (h *Handler) Name() string { return "ingestion" }

func (h *Handler) Process(ctx context.Context, env queue.Envelope) (stage.Outcome, error) {
	if env.FileURI == "" {
		return stage.Outcome{}, services.Wrap(services.ErrValidation, h.Name(), "validate",
			"Intake request carries no document path", nil)
	}
	// Hand-written request files may omit the id; replays of the same file
	// re-mint, so the submitter path is the one that guarantees stability.
	if env.ProcessingID == "" {
		env.ProcessingID = uuid.NewString()
	}

	// The lake filename is derived from the request so a replayed unit
	// lands on the same target instead of copying twice.
	lakePath := filepath.Join(h.lakeDir,
		fmt.Sprintf("%s_%s", env.Timestamp.UTC().Format(lakeTimestampLayout), filepath.Base(env.FileURI)))

	if _, err := os.Stat(lakePath); errors.Is(err, os.ErrNotExist) {
		if _, err := os.Stat(env.FileURI); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return stage.Outcome{}, services.Wrap(services.ErrNotFound, h.Name(), "stat",
					"Document disappeared before ingestion", err)
			}
			return stage.Outcome{}, services.Wrap(nil, h.Name(), "stat",
				"Document is not readable", err)
		}
		if err := copyFile(env.FileURI, lakePath); err != nil {
			return stage.Outcome{}, services.Wrap(nil, h.Name(), "copy",
				"Copy into the data lake failed", err)
		}
	} else if err != nil {
		return stage.Outcome{}, services.Wrap(nil, h.Name(), "stat", "Data lake is not readable", err)
	}

	forward := env
	forward.FileURI = lakePath
	rec := store.IngestionRecord{
		ProcessingID: env.ProcessingID,
		FileURI:      lakePath,
		OriginalName: env.OriginalName,
		Timestamp:    time.Now().UTC(),
		Status:       "ingestion_complete",
	}
	source := env.FileURI
	return stage.Outcome{
		Persist: func(ctx context.Context) error {
			if err := h.store.Upsert(ctx, rec); err != nil {
				return err
			}
			// Inbox files are pipeline-owned; clearing them keeps a
			// restart from resubmitting finished work.
			if h.inboxDir != "" && filepath.Dir(source) == filepath.Clean(h.inboxDir) {
				_ = os.Remove(source)
			}
			return nil
		},
		Forward: &forward,
		Summary: fmt.Sprintf("ingested %s", env.OriginalName),
	}, nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if err := os.MkdirAll(h.lakeDir, 0o755); err != nil {
		return stage.Unhealthy(h.Name(), fmt.Sprintf("data lake unavailable: %v", err))
	}
	return stage.Healthy(h.Name())
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".lake-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}
