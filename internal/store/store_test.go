package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func TestIngestionStoreUpsertReplaysToOneRow(t *testing.T) {
	s, err := OpenIngestionStore(filepath.Join(t.TempDir(), "ingestion.db"))
	if err != nil {
		t.Fatalf("open ingestion store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	rec := IngestionRecord{
		ProcessingID: "proc-1",
		FileURI:      "/lake/20260101_policy.txt",
		OriginalName: "policy.txt",
		Timestamp:    time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		Status:       "ingestion_complete",
	}
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	rec.FileURI = "/lake/20260101_policy_v2.txt"
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("replay upsert: %v", err)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row after replay, got %d", count)
	}

	got, err := s.Get(ctx, "proc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected a record")
	}
	if got.FileURI != "/lake/20260101_policy_v2.txt" {
		t.Fatalf("replay did not update file uri: %q", got.FileURI)
	}
	if got.OriginalName != "policy.txt" {
		t.Fatalf("unexpected original name: %q", got.OriginalName)
	}
	if !got.Timestamp.Equal(rec.Timestamp) {
		t.Fatalf("timestamp mismatch: %v", got.Timestamp)
	}
}

func TestIngestionStoreGetMissing(t *testing.T) {
	s, err := OpenIngestionStore(filepath.Join(t.TempDir(), "ingestion.db"))
	if err != nil {
		t.Fatalf("open ingestion store: %v", err)
	}
	defer s.Close()

	got, err := s.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing record, got %+v", got)
	}
}

func TestRecognitionStoreKeepsUnreadableResult(t *testing.T) {
	s, err := OpenRecognitionStore(filepath.Join(t.TempDir(), "recognition.db"))
	if err != nil {
		t.Fatalf("open recognition store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	rec := RecognitionRecord{
		ProcessingID: "proc-2",
		FileURI:      "/lake/scan.bin",
		Confidence:   0,
		Timestamp:    time.Now().UTC(),
		Status:       "ocr_complete",
	}
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Get(ctx, "proc-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ExtractedText != "" || got.Confidence != 0 {
		t.Fatalf("unreadable result should persist empty text and zero score, got %q %v",
			got.ExtractedText, got.Confidence)
	}
}

func TestClassificationStoreTagsRoundTrip(t *testing.T) {
	s, err := OpenClassificationStore(filepath.Join(t.TempDir(), "classification.db"))
	if err != nil {
		t.Fatalf("open classification store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	rec := ClassificationRecord{
		ProcessingID: "proc-3",
		DocumentType: "insurance_policy",
		Tags:         []string{"auto_insurance", "premium_info"},
		Confidence:   80,
		Timestamp:    time.Now().UTC(),
		Status:       "classification_complete",
	}
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Get(ctx, "proc-3")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "auto_insurance" || got.Tags[1] != "premium_info" {
		t.Fatalf("tags did not round-trip: %v", got.Tags)
	}
}

func TestClassificationStoreEmptyTags(t *testing.T) {
	s, err := OpenClassificationStore(filepath.Join(t.TempDir(), "classification.db"))
	if err != nil {
		t.Fatalf("open classification store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	rec := ClassificationRecord{
		ProcessingID: "proc-4",
		DocumentType: "unknown",
		Confidence:   30,
		Timestamp:    time.Now().UTC(),
		Status:       "classification_complete",
	}
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Get(ctx, "proc-4")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Tags) != 0 {
		t.Fatalf("expected no tags, got %v", got.Tags)
	}
}

func TestSubmissionStoreDecisionLifecycle(t *testing.T) {
	s, err := OpenSubmissionStore(filepath.Join(t.TempDir(), "submission.db"))
	if err != nil {
		t.Fatalf("open submission store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	premium := "1,200"
	rec := SubmissionRecord{
		SubmissionID: "sub-1",
		ProcessingID: "proc-5",
		DocumentType: "insurance_policy",
		Fields:       map[string]*string{"premium_amount": &premium, "policy_number": nil},
		Confidence:   50,
		Timestamp:    time.Now().UTC(),
		Status:       "extraction_complete",
	}
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Get(ctx, "sub-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RiskScore != nil || got.ScorecardData != nil {
		t.Fatal("matching columns should start empty")
	}
	if got.Fields["premium_amount"] == nil || *got.Fields["premium_amount"] != "1,200" {
		t.Fatalf("fields did not round-trip: %v", got.Fields)
	}
	if value, ok := got.Fields["policy_number"]; !ok || value != nil {
		t.Fatalf("null field did not round-trip: %v", got.Fields)
	}

	scorecard := json.RawMessage(`{"line_of_business":"auto_insurance"}`)
	appetite := json.RawMessage(`{"decision":"review"}`)
	if err := s.RecordDecision(ctx, "sub-1", scorecard, appetite, 0.5, "review"); err != nil {
		t.Fatalf("record decision: %v", err)
	}

	got, err = s.Get(ctx, "sub-1")
	if err != nil {
		t.Fatalf("get after decision: %v", err)
	}
	if got.Status != "review" {
		t.Fatalf("decision did not update status: %q", got.Status)
	}
	if got.RiskScore == nil || *got.RiskScore != 0.5 {
		t.Fatalf("risk score not recorded: %v", got.RiskScore)
	}
	if string(got.AppetiteData) != `{"decision":"review"}` {
		t.Fatalf("appetite data mismatch: %s", got.AppetiteData)
	}

	// A replayed extraction must not clear the recorded decision.
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("replay upsert: %v", err)
	}
	got, err = s.Get(ctx, "sub-1")
	if err != nil {
		t.Fatalf("get after replay: %v", err)
	}
	if got.RiskScore == nil || got.ScorecardData == nil {
		t.Fatal("replayed extraction cleared matching columns")
	}
}

func TestSubmissionStoreRecentAndStatusCounts(t *testing.T) {
	s, err := OpenSubmissionStore(filepath.Join(t.TempDir(), "submission.db"))
	if err != nil {
		t.Fatalf("open submission store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	for i, status := range []string{"accept", "review", "accept"} {
		rec := SubmissionRecord{
			SubmissionID: "sub-" + string(rune('a'+i)),
			ProcessingID: "proc-" + string(rune('a'+i)),
			DocumentType: "insurance_policy",
			Confidence:   25,
			Timestamp:    time.Now().UTC(),
			Status:       status,
		}
		if err := s.Upsert(ctx, rec); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	recent, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent rows, got %d", len(recent))
	}
	if recent[0].SubmissionID != "sub-c" {
		t.Fatalf("expected newest first, got %q", recent[0].SubmissionID)
	}

	counts, err := s.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("count by status: %v", err)
	}
	if counts["accept"] != 2 || counts["review"] != 1 {
		t.Fatalf("unexpected status counts: %v", counts)
	}
}

func TestMigrationsApplyOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "submission.db")
	s, err := OpenSubmissionStore(path)
	if err != nil {
		t.Fatalf("open submission store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening must tolerate already-applied migrations.
	s, err = OpenSubmissionStore(path)
	if err != nil {
		t.Fatalf("reopen submission store: %v", err)
	}
	defer s.Close()

	var versions int
	err = s.db.conn.QueryRow("SELECT COUNT(1) FROM schema_migrations").Scan(&versions)
	if err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if versions != 2 {
		t.Fatalf("expected 2 recorded submission migrations, got %d", versions)
	}
}
