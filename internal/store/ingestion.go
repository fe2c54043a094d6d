package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// IngestionRecord is one accepted document in the intake ledger.
type IngestionRecord struct {
	ProcessingID string
	FileURI      string
	OriginalName string
	Timestamp    time.Time
	Status       string
}

// IngestionStore persists intake results keyed by processing id.
type IngestionStore struct {
	db *db
}

func OpenIngestionStore(path string) (*IngestionStore, error) {
	handle, err := openDatabase(path, "ingestion")
	if err != nil {
		return nil, err
	}
	return &IngestionStore{db: handle}, nil
}

func (s *IngestionStore) Close() error {
	return s.db.close()
}

func (s *IngestionStore) Path() string {
	return s.db.path
}

// Upsert records the intake result, replacing any earlier row for the same
// processing id so replayed work converges on one record.
func (s *IngestionStore) Upsert(ctx context.Context, rec IngestionRecord) error {
	if rec.ProcessingID == "" {
		return errors.New("ingestion record requires a processing id")
	}
	return s.db.execWithRetry(ctx, `
		INSERT INTO ingestion_results (processing_id, file_uri, original_name, timestamp, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(processing_id) DO UPDATE SET
			file_uri = excluded.file_uri,
			original_name = excluded.original_name,
			timestamp = excluded.timestamp,
			status = excluded.status`,
		rec.ProcessingID, rec.FileURI, nullableString(rec.OriginalName),
		rec.Timestamp.UTC().Format(time.RFC3339), rec.Status)
}

func (s *IngestionStore) Get(ctx context.Context, processingID string) (*IngestionRecord, error) {
	row := s.db.conn.QueryRowContext(ensureContext(ctx), `
		SELECT processing_id, file_uri, COALESCE(original_name, ''), timestamp, status
		FROM ingestion_results WHERE processing_id = ?`, processingID)

	var rec IngestionRecord
	var ts string
	if err := row.Scan(&rec.ProcessingID, &rec.FileURI, &rec.OriginalName, &ts, &rec.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ingestion record: %w", err)
	}
	rec.Timestamp = parseTimestamp(ts)
	return &rec, nil
}

func (s *IngestionStore) Count(ctx context.Context) (int, error) {
	return s.db.countRows(ctx, "ingestion_results")
}

func parseTimestamp(value string) time.Time {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}
