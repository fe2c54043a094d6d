package recognize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"docpipe/internal/queue"
	"docpipe/internal/services"
	"docpipe/internal/store"
)

func TestPlainTextEngineReadsDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.txt")
	if err := os.WriteFile(path, []byte("  Policy Number: POL-123  \n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	result, err := NewPlainTextEngine().Recognize(context.Background(), path)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if result.Text != "Policy Number: POL-123" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
	if result.Confidence != 100 {
		t.Fatalf("unexpected confidence: %v", result.Confidence)
	}
}

func TestPlainTextEngineDegradesOnUnreadableInput(t *testing.T) {
	engine := NewPlainTextEngine()
	ctx := context.Background()

	// Missing file.
	result, err := engine.Recognize(ctx, filepath.Join(t.TempDir(), "missing.txt"))
	if err != nil {
		t.Fatalf("missing file should degrade, not error: %v", err)
	}
	if result.Text != "" || result.Confidence != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}

	// Binary garbage.
	path := filepath.Join(t.TempDir(), "scan.bin")
	if err := os.WriteFile(path, []byte{0xff, 0xfe, 0x00, 0x80}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	result, err = engine.Recognize(ctx, path)
	if err != nil {
		t.Fatalf("binary input should degrade, not error: %v", err)
	}
	if result.Text != "" || result.Confidence != 0 {
		t.Fatalf("expected empty result for binary input, got %+v", result)
	}
}

type failingEngine struct{}

func (failingEngine) Recognize(context.Context, string) (Result, error) {
	return Result{}, errors.New("ocr service timed out")
}

func newRecognitionStore(t *testing.T) *store.RecognitionStore {
	t.Helper()
	st, err := store.OpenRecognitionStore(filepath.Join(t.TempDir(), "recognition.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestHandlerStoresAndForwardsText(t *testing.T) {
	st := newRecognitionStore(t)
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	handler := NewHandler(NewPlainTextEngine(), st)
	ctx := context.Background()
	outcome, err := handler.Process(ctx, queue.Envelope{ProcessingID: "proc-1", FileURI: path})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := outcome.Persist(ctx); err != nil {
		t.Fatalf("persist: %v", err)
	}

	if outcome.Forward == nil || outcome.Forward.ExtractedText != "hello world" {
		t.Fatalf("forward should carry the text, got %+v", outcome.Forward)
	}
	rec, err := st.Get(ctx, "proc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec == nil || rec.ExtractedText != "hello world" || rec.Confidence != 100 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestHandlerBackendFailureIsTransient(t *testing.T) {
	handler := NewHandler(failingEngine{}, newRecognitionStore(t))
	_, err := handler.Process(context.Background(), queue.Envelope{ProcessingID: "proc-2", FileURI: "/lake/doc.txt"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if services.IsFatal(err) {
		t.Fatalf("backend failure must be retryable, got %v", err)
	}
}

func TestHandlerMissingPathIsFatal(t *testing.T) {
	handler := NewHandler(NewPlainTextEngine(), newRecognitionStore(t))
	_, err := handler.Process(context.Background(), queue.Envelope{ProcessingID: "proc-3"})
	if !services.IsFatal(err) {
		t.Fatalf("empty path should be fatal, got %v", err)
	}
}
