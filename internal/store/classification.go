package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ClassificationRecord is the document-type decision for one document.
type ClassificationRecord struct {
	ProcessingID string
	FileURI      string
	DocumentType string
	Tags         []string
	Confidence   float64
	Timestamp    time.Time
	Status       string
}

// ClassificationStore persists classification decisions keyed by
// processing id. Tags round-trip as a comma-joined column.
type ClassificationStore struct {
	db *db
}

func OpenClassificationStore(path string) (*ClassificationStore, error) {
	handle, err := openDatabase(path, "classification")
	if err != nil {
		return nil, err
	}
	return &ClassificationStore{db: handle}, nil
}

func (s *ClassificationStore) Close() error {
	return s.db.close()
}

func (s *ClassificationStore) Path() string {
	return s.db.path
}

func (s *ClassificationStore) Upsert(ctx context.Context, rec ClassificationRecord) error {
	if rec.ProcessingID == "" {
		return errors.New("classification record requires a processing id")
	}
	return s.db.execWithRetry(ctx, `
		INSERT INTO classification_results (processing_id, file_uri, document_type, tags, confidence_score, timestamp, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(processing_id) DO UPDATE SET
			file_uri = excluded.file_uri,
			document_type = excluded.document_type,
			tags = excluded.tags,
			confidence_score = excluded.confidence_score,
			timestamp = excluded.timestamp,
			status = excluded.status`,
		rec.ProcessingID, nullableString(rec.FileURI), rec.DocumentType,
		nullableString(strings.Join(rec.Tags, ",")), rec.Confidence,
		rec.Timestamp.UTC().Format(time.RFC3339), rec.Status)
}

func (s *ClassificationStore) Get(ctx context.Context, processingID string) (*ClassificationRecord, error) {
	row := s.db.conn.QueryRowContext(ensureContext(ctx), `
		SELECT processing_id, COALESCE(file_uri, ''), document_type, COALESCE(tags, ''), confidence_score, timestamp, status
		FROM classification_results WHERE processing_id = ?`, processingID)

	var rec ClassificationRecord
	var tags, ts string
	if err := row.Scan(&rec.ProcessingID, &rec.FileURI, &rec.DocumentType, &tags, &rec.Confidence, &ts, &rec.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get classification record: %w", err)
	}
	if tags != "" {
		rec.Tags = strings.Split(tags, ",")
	}
	rec.Timestamp = parseTimestamp(ts)
	return &rec, nil
}

func (s *ClassificationStore) Count(ctx context.Context) (int, error) {
	return s.db.countRows(ctx, "classification_results")
}
