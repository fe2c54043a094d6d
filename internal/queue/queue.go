package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	claimsDirName     = "claims"
	deadLetterDirName = "deadletter"
	fileSuffix        = ".json"
)

// ErrMalformed marks a queue file whose payload could not be parsed. The file
// has already been removed when this error is returned; malformed input is
// not retryable.
var ErrMalformed = errors.New("malformed queue payload")

// Queue is a filesystem work queue: one JSON file per pending unit in a
// shared directory. Claiming renames the file into a claims subdirectory so
// exactly one claimant can own a given unit; acknowledged units are deleted,
// rejected units return to the queue with an incremented attempt counter and
// move to the dead-letter subdirectory once attempts reach the cap.
type Queue struct {
	dir         string
	maxAttempts int
}

// Message is a claimed queue unit awaiting Ack, Nack, or Discard.
type Message struct {
	Envelope Envelope

	queue     *Queue
	name      string
	claimPath string
	settled   bool
}

// Open prepares the queue rooted at dir, creating the directory and its
// claims/dead-letter subdirectories. maxAttempts bounds retries; values
// below 1 are treated as 1. Open never touches existing claim files: a
// second opener of a live queue (a status or submit command) must not
// disturb units the owning process has in flight. The owning process calls
// RecoverOrphans once it holds the instance lock.
func Open(dir string, maxAttempts int) (*Queue, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for _, sub := range []string{dir, filepath.Join(dir, claimsDirName), filepath.Join(dir, deadLetterDirName)} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return nil, fmt.Errorf("create queue directory %q: %w", sub, err)
		}
	}
	return &Queue{dir: dir, maxAttempts: maxAttempts}, nil
}

// Dir returns the queue's root directory.
func (q *Queue) Dir() string { return q.dir }

// RecoverOrphans returns claim files from a previous process back into the
// queue so a crash mid-handling never loses a unit. Only the process that
// owns the queue (under its single-instance lock) may call this; a crashed
// predecessor's claims are orphans, a live sibling's are not.
func (q *Queue) RecoverOrphans() error {
	claimsDir := filepath.Join(q.dir, claimsDirName)
	entries, err := os.ReadDir(claimsDir)
	if err != nil {
		return fmt.Errorf("list claims %q: %w", claimsDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}
		src := filepath.Join(claimsDir, entry.Name())
		dst := filepath.Join(q.dir, entry.Name())
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("recover claim %q: %w", entry.Name(), err)
		}
	}
	return nil
}

// Enqueue writes an envelope as <prefix>_<id>.json via a temp file and
// rename, so a consumer never observes a partially written unit. Re-enqueuing
// the same prefix and id replaces the pending file, keeping at most one
// in-flight representation of a logical unit.
func (q *Queue) Enqueue(prefix, id string, env Envelope) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("enqueue: id must not be empty")
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encode envelope %s: %w", id, err)
	}

	name := prefix + "_" + id + fileSuffix
	tmp, err := os.CreateTemp(q.dir, "."+name+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp queue file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write queue file %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close queue file %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(q.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("publish queue file %s: %w", name, err)
	}
	return nil
}

// Claim takes ownership of the first eligible file matching prefix, in sorted
// name order. The rename into the claims subdirectory is the atomic claim: a
// concurrent claimant loses the rename race and moves on. Returns (nil, nil)
// when no eligible unit is pending. A file whose payload cannot be parsed is
// deleted and reported via an error wrapping ErrMalformed.
func (q *Queue) Claim(prefix string) (*Message, error) {
	names, err := q.eligible(prefix)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		src := filepath.Join(q.dir, name)
		claimPath := filepath.Join(q.dir, claimsDirName, name)
		if err := os.Rename(src, claimPath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				// Another claimant won the race; try the next file.
				continue
			}
			return nil, fmt.Errorf("claim %q: %w", name, err)
		}

		data, err := os.ReadFile(claimPath)
		if err != nil {
			return nil, fmt.Errorf("read claim %q: %w", name, err)
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			_ = os.Remove(claimPath)
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, name, err)
		}
		return &Message{queue: q, name: name, claimPath: claimPath, Envelope: env}, nil
	}
	return nil, nil
}

// Len reports the number of pending units matching prefix.
func (q *Queue) Len(prefix string) (int, error) {
	names, err := q.eligible(prefix)
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

// DeadLetterLen reports the number of dead-lettered units.
func (q *Queue) DeadLetterLen() (int, error) {
	entries, err := os.ReadDir(filepath.Join(q.dir, deadLetterDirName))
	if err != nil {
		return 0, fmt.Errorf("list dead letter: %w", err)
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), fileSuffix) {
			count++
		}
	}
	return count, nil
}

func (q *Queue) eligible(prefix string) ([]string, error) {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return nil, fmt.Errorf("list queue %q: %w", q.dir, err)
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		if prefix != "" && !strings.HasPrefix(name, prefix+"_") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Ack retires the claimed unit: its result has been durably recorded and
// forwarded, so the queue file is deleted.
func (m *Message) Ack() error {
	if m.settled {
		return nil
	}
	m.settled = true
	if err := os.Remove(m.claimPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("ack %q: %w", m.name, err)
	}
	return nil
}

// Nack returns the unit to the queue with an incremented attempt counter for
// a later poll cycle. Once attempts reach the queue's cap the unit moves to
// the dead-letter directory instead; the returned bool reports that case.
func (m *Message) Nack() (deadLettered bool, err error) {
	if m.settled {
		return false, nil
	}
	m.settled = true

	m.Envelope.Attempts++
	if m.Envelope.Attempts >= m.queue.maxAttempts {
		return true, m.moveToDeadLetter()
	}

	data, err := json.MarshalIndent(m.Envelope, "", "  ")
	if err != nil {
		return false, fmt.Errorf("encode nack %q: %w", m.name, err)
	}
	if err := os.WriteFile(m.claimPath, data, 0o644); err != nil {
		return false, fmt.Errorf("rewrite nack %q: %w", m.name, err)
	}
	if err := os.Rename(m.claimPath, filepath.Join(m.queue.dir, m.name)); err != nil {
		return false, fmt.Errorf("requeue %q: %w", m.name, err)
	}
	return false, nil
}

// Discard moves the unit straight to the dead-letter directory. Used for
// failures that can never succeed on replay.
func (m *Message) Discard() error {
	if m.settled {
		return nil
	}
	m.settled = true
	return m.moveToDeadLetter()
}

func (m *Message) moveToDeadLetter() error {
	dst := filepath.Join(m.queue.dir, deadLetterDirName, m.name)
	if err := os.Rename(m.claimPath, dst); err != nil {
		return fmt.Errorf("dead-letter %q: %w", m.name, err)
	}
	return nil
}
