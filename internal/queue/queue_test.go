package queue_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"docpipe/internal/queue"
)

func openQueue(t *testing.T, maxAttempts int) *queue.Queue {
	t.Helper()
	q, err := queue.Open(filepath.Join(t.TempDir(), "hop"), maxAttempts)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	return q
}

func sampleEnvelope(id string) queue.Envelope {
	return queue.Envelope{
		ProcessingID: id,
		FileURI:      "/lake/" + id + ".txt",
		Timestamp:    time.Now().UTC(),
		Source:       "test",
		Status:       queue.StatusPending,
	}
}

func TestEnqueueClaimAckRoundTrip(t *testing.T) {
	q := openQueue(t, 3)
	if err := q.Enqueue(queue.PrefixRequest, "doc-1", sampleEnvelope("doc-1")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	n, err := q.Len(queue.PrefixRequest)
	if err != nil || n != 1 {
		t.Fatalf("Len = %d (%v), want 1", n, err)
	}

	msg, err := q.Claim(queue.PrefixRequest)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if msg == nil || msg.Envelope.ProcessingID != "doc-1" {
		t.Fatalf("unexpected message: %#v", msg)
	}

	// Claimed unit is invisible to further claims.
	second, err := q.Claim(queue.PrefixRequest)
	if err != nil {
		t.Fatalf("second Claim: %v", err)
	}
	if second != nil {
		t.Fatal("expected claimed unit to be excluded from listing")
	}

	if err := msg.Ack(); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	n, err = q.Len(queue.PrefixRequest)
	if err != nil || n != 0 {
		t.Fatalf("Len after ack = %d (%v), want 0", n, err)
	}
}

func TestClaimFiltersByPrefix(t *testing.T) {
	q := openQueue(t, 3)
	if err := q.Enqueue(queue.PrefixRecognized, "doc-1", sampleEnvelope("doc-1")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	msg, err := q.Claim(queue.PrefixRequest)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if msg != nil {
		t.Fatalf("expected no request-prefixed unit, claimed %q", msg.Envelope.ProcessingID)
	}
}

func TestReEnqueueReplacesPendingUnit(t *testing.T) {
	q := openQueue(t, 3)
	env := sampleEnvelope("doc-1")
	if err := q.Enqueue(queue.PrefixRequest, "doc-1", env); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	env.FileURI = "/lake/updated.txt"
	if err := q.Enqueue(queue.PrefixRequest, "doc-1", env); err != nil {
		t.Fatalf("re-Enqueue: %v", err)
	}

	n, err := q.Len(queue.PrefixRequest)
	if err != nil || n != 1 {
		t.Fatalf("Len = %d (%v), want 1 after duplicate enqueue", n, err)
	}
	msg, err := q.Claim(queue.PrefixRequest)
	if err != nil || msg == nil {
		t.Fatalf("Claim: %v", err)
	}
	if msg.Envelope.FileURI != "/lake/updated.txt" {
		t.Fatalf("expected replaced payload, got %q", msg.Envelope.FileURI)
	}
}

func TestMalformedPayloadIsDeleted(t *testing.T) {
	q := openQueue(t, 3)
	path := filepath.Join(q.Dir(), "request_bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write malformed file: %v", err)
	}

	_, err := q.Claim(queue.PrefixRequest)
	if !errors.Is(err, queue.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("expected malformed file to be removed")
	}
	// The queue keeps working after discarding the malformed unit.
	if msg, err := q.Claim(queue.PrefixRequest); err != nil || msg != nil {
		t.Fatalf("Claim after malformed = (%v, %v), want empty", msg, err)
	}
}

func TestNackIncrementsAttemptsAndDeadLettersAtCap(t *testing.T) {
	q := openQueue(t, 2)
	if err := q.Enqueue(queue.PrefixRequest, "doc-1", sampleEnvelope("doc-1")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	msg, err := q.Claim(queue.PrefixRequest)
	if err != nil || msg == nil {
		t.Fatalf("Claim: %v", err)
	}
	dead, err := msg.Nack()
	if err != nil {
		t.Fatalf("Nack: %v", err)
	}
	if dead {
		t.Fatal("first nack should not dead-letter with cap 2")
	}

	msg, err = q.Claim(queue.PrefixRequest)
	if err != nil || msg == nil {
		t.Fatalf("Claim after nack: %v", err)
	}
	if msg.Envelope.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", msg.Envelope.Attempts)
	}
	dead, err = msg.Nack()
	if err != nil {
		t.Fatalf("second Nack: %v", err)
	}
	if !dead {
		t.Fatal("second nack should dead-letter at cap 2")
	}

	n, err := q.DeadLetterLen()
	if err != nil || n != 1 {
		t.Fatalf("DeadLetterLen = %d (%v), want 1", n, err)
	}
	if pending, _ := q.Len(queue.PrefixRequest); pending != 0 {
		t.Fatalf("expected empty queue, got %d pending", pending)
	}
}

func TestDiscardSkipsRetries(t *testing.T) {
	q := openQueue(t, 5)
	if err := q.Enqueue(queue.PrefixRequest, "doc-1", sampleEnvelope("doc-1")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	msg, err := q.Claim(queue.PrefixRequest)
	if err != nil || msg == nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := msg.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if n, _ := q.DeadLetterLen(); n != 1 {
		t.Fatalf("DeadLetterLen = %d, want 1", n)
	}
}

func TestRecoverOrphansReturnsCrashedClaims(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "hop")
	q, err := queue.Open(dir, 3)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	if err := q.Enqueue(queue.PrefixRequest, "doc-1", sampleEnvelope("doc-1")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := q.Claim(queue.PrefixRequest); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	// Simulate a crash: the claim is never settled, a new process opens the
	// same directory and reclaims it under its instance lock.
	reopened, err := queue.Open(dir, 3)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := reopened.RecoverOrphans(); err != nil {
		t.Fatalf("RecoverOrphans: %v", err)
	}
	msg, err := reopened.Claim(queue.PrefixRequest)
	if err != nil || msg == nil {
		t.Fatalf("expected orphaned claim to be recovered, got (%v, %v)", msg, err)
	}
	if msg.Envelope.ProcessingID != "doc-1" {
		t.Fatalf("recovered wrong unit: %q", msg.Envelope.ProcessingID)
	}
}

func TestOpenLeavesLiveClaimsAlone(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "hop")
	q, err := queue.Open(dir, 3)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	if err := q.Enqueue(queue.PrefixRequest, "doc-1", sampleEnvelope("doc-1")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	msg, err := q.Claim(queue.PrefixRequest)
	if err != nil || msg == nil {
		t.Fatalf("Claim: (%v, %v)", msg, err)
	}

	// A status or submit command opening the same directory must not pull
	// the in-flight unit back into the pending set.
	observer, err := queue.Open(dir, 3)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if n, err := observer.Len(queue.PrefixRequest); err != nil || n != 0 {
		t.Fatalf("in-flight unit resurfaced as pending: (%d, %v)", n, err)
	}

	// The owning process can still settle the claim normally.
	if err := msg.Ack(); err != nil {
		t.Fatalf("Ack after concurrent open: %v", err)
	}
}

func TestEnvelopeKeyPrefersSubmissionID(t *testing.T) {
	env := queue.Envelope{ProcessingID: "pid"}
	if env.Key() != "pid" {
		t.Fatalf("Key = %q, want pid", env.Key())
	}
	env.SubmissionID = "sid"
	if env.Key() != "sid" {
		t.Fatalf("Key = %q, want sid", env.Key())
	}
}
