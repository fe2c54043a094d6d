package testsupport

import (
	"testing"

	"docpipe/internal/config"
	"docpipe/internal/queue"
)

// MustOpenQueue opens the named stage queue for tests.
func MustOpenQueue(t testing.TB, cfg *config.Config, name string) *queue.Queue {
	t.Helper()

	q, err := queue.Open(cfg.QueuePath(name), cfg.Workflow.MaxAttempts)
	if err != nil {
		t.Fatalf("queue.Open %s: %v", name, err)
	}
	return q
}
