package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RecognitionRecord is the text-recognition result for one document.
// Confidence is a 0-100 score; unreadable inputs persist with an empty
// text body and a zero score rather than failing the pipeline.
type RecognitionRecord struct {
	ProcessingID  string
	FileURI       string
	ExtractedText string
	Confidence    float64
	Timestamp     time.Time
	Status        string
}

// RecognitionStore persists text-recognition results keyed by processing id.
type RecognitionStore struct {
	db *db
}

func OpenRecognitionStore(path string) (*RecognitionStore, error) {
	handle, err := openDatabase(path, "recognition")
	if err != nil {
		return nil, err
	}
	return &RecognitionStore{db: handle}, nil
}

func (s *RecognitionStore) Close() error {
	return s.db.close()
}

func (s *RecognitionStore) Path() string {
	return s.db.path
}

func (s *RecognitionStore) Upsert(ctx context.Context, rec RecognitionRecord) error {
	if rec.ProcessingID == "" {
		return errors.New("recognition record requires a processing id")
	}
	return s.db.execWithRetry(ctx, `
		INSERT INTO recognition_results (processing_id, file_uri, extracted_text, confidence_score, timestamp, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(processing_id) DO UPDATE SET
			file_uri = excluded.file_uri,
			extracted_text = excluded.extracted_text,
			confidence_score = excluded.confidence_score,
			timestamp = excluded.timestamp,
			status = excluded.status`,
		rec.ProcessingID, nullableString(rec.FileURI), nullableString(rec.ExtractedText),
		rec.Confidence, rec.Timestamp.UTC().Format(time.RFC3339), rec.Status)
}

func (s *RecognitionStore) Get(ctx context.Context, processingID string) (*RecognitionRecord, error) {
	row := s.db.conn.QueryRowContext(ensureContext(ctx), `
		SELECT processing_id, COALESCE(file_uri, ''), COALESCE(extracted_text, ''), confidence_score, timestamp, status
		FROM recognition_results WHERE processing_id = ?`, processingID)

	var rec RecognitionRecord
	var ts string
	if err := row.Scan(&rec.ProcessingID, &rec.FileURI, &rec.ExtractedText, &rec.Confidence, &ts, &rec.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get recognition record: %w", err)
	}
	rec.Timestamp = parseTimestamp(ts)
	return &rec, nil
}

func (s *RecognitionStore) Count(ctx context.Context) (int, error) {
	return s.db.countRows(ctx, "recognition_results")
}
