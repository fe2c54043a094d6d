package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"docpipe/internal/logging"
)

// Watcher polls the inbox directory and submits every file it has not seen
// yet. The ingestion handler removes inbox files once they are safely in
// the lake, so after a restart only unprocessed documents are picked up
// again.
type Watcher struct {
	dir       string
	interval  time.Duration
	submitter *Submitter
	logger    *slog.Logger
	seen      map[string]struct{}
}

func NewWatcher(dir string, interval time.Duration, submitter *Submitter, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		dir:       dir,
		interval:  interval,
		submitter: submitter,
		logger:    logging.NewComponentLogger(logger, "inbox-watcher"),
		seen:      make(map[string]struct{}),
	}
}

// Run polls until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if err := w.Scan(ctx); err != nil {
			w.logger.Warn("inbox scan failed", logging.Args(
				logging.String(logging.FieldEventType, "inbox_scan_failed"),
				logging.Error(err))...)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Scan diffs the inbox against the previous pass and submits every newly
// appeared regular file once per appearance, so a fresh document reusing a
// processed name is picked up again. Files modified within the last poll
// interval are left for the next pass so a document still being copied in
// is not picked up half-written.
func (w *Watcher) Scan(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-w.interval)
	current := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		current[name] = struct{}{}
		if _, ok := w.seen[name]; ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		processingID, err := w.submitter.Submit(filepath.Join(w.dir, name))
		if err != nil {
			w.logger.Warn("inbox submit failed", logging.Args(
				logging.String(logging.FieldEventType, "inbox_submit_failed"),
				logging.String("file", name),
				logging.Error(err))...)
			continue
		}
		w.seen[name] = struct{}{}
		w.logger.Info("document detected", logging.Args(
			logging.String(logging.FieldEventType, "document_detected"),
			logging.String(logging.FieldProcessingID, processingID),
			logging.String("file", name))...)
	}
	// Forget names that left the inbox so a new document reusing a
	// processed filename is detected as new.
	for name := range w.seen {
		if _, ok := current[name]; !ok {
			delete(w.seen, name)
		}
	}
	return nil
}
