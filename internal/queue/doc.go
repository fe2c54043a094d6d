// Package queue implements the filesystem work queue coupling adjacent
// pipeline stages: one JSON envelope per file in a shared directory, with
// filename prefixes identifying the producing stage.
//
// Consumption follows claim/ack semantics. Claim atomically renames a file
// into a claims subdirectory so two workers can never process the same unit;
// Ack deletes it once the stage result is recorded and forwarded; Nack
// returns it for retry with a bounded attempt counter; the dead-letter
// subdirectory holds units that exhausted their retries or failed fatally.
// Claims orphaned by a crash are swept back into the queue by
// RecoverOrphans, which only the queue's owning process runs under its
// instance lock, giving at-least-once delivery without letting a second
// opener disturb in-flight units.
//
// Treat this package as the single source of truth for queue-file semantics;
// when envelope fields or prefixes change, every stage sees the change here.
package queue
