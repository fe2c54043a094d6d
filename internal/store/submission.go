package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SubmissionRecord is the extracted submission shared by the extraction
// and matching stages. ScorecardData, AppetiteData, and RiskScore stay
// nil until the matching stage scores the submission.
type SubmissionRecord struct {
	SubmissionID  string
	ProcessingID  string
	DocumentType  string
	Fields        map[string]*string
	Confidence    float64
	Timestamp     time.Time
	Status        string
	ScorecardData json.RawMessage
	AppetiteData  json.RawMessage
	RiskScore     *float64
}

// SubmissionStore persists extracted submissions keyed by submission id.
// Both the extraction and matching stages open the same database file.
type SubmissionStore struct {
	db *db
}

func OpenSubmissionStore(path string) (*SubmissionStore, error) {
	handle, err := openDatabase(path, "submission")
	if err != nil {
		return nil, err
	}
	return &SubmissionStore{db: handle}, nil
}

func (s *SubmissionStore) Close() error {
	return s.db.close()
}

func (s *SubmissionStore) Path() string {
	return s.db.path
}

// Upsert writes the extraction result. Matching columns are untouched so a
// replayed extraction cannot clear an earlier appetite decision.
func (s *SubmissionStore) Upsert(ctx context.Context, rec SubmissionRecord) error {
	if rec.SubmissionID == "" {
		return errors.New("submission record requires a submission id")
	}
	fields, err := encodeFields(rec.Fields)
	if err != nil {
		return err
	}
	return s.db.execWithRetry(ctx, `
		INSERT INTO submission_data (submission_id, processing_id, document_type, extracted_data, confidence_score, timestamp, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(submission_id) DO UPDATE SET
			processing_id = excluded.processing_id,
			document_type = excluded.document_type,
			extracted_data = excluded.extracted_data,
			confidence_score = excluded.confidence_score,
			timestamp = excluded.timestamp,
			status = excluded.status`,
		rec.SubmissionID, rec.ProcessingID, rec.DocumentType, fields,
		rec.Confidence, rec.Timestamp.UTC().Format(time.RFC3339), rec.Status)
}

// RecordDecision attaches the matching stage's scorecard and appetite
// decision to an existing submission row.
func (s *SubmissionStore) RecordDecision(ctx context.Context, submissionID string, scorecard, appetite json.RawMessage, riskScore float64, status string) error {
	if submissionID == "" {
		return errors.New("submission decision requires a submission id")
	}
	return s.db.execWithRetry(ctx, `
		UPDATE submission_data
		SET scorecard_data = ?, appetite_data = ?, risk_score = ?, status = ?
		WHERE submission_id = ?`,
		nullableString(string(scorecard)), nullableString(string(appetite)),
		riskScore, status, submissionID)
}

func (s *SubmissionStore) Get(ctx context.Context, submissionID string) (*SubmissionRecord, error) {
	rows, err := s.db.conn.QueryContext(ensureContext(ctx),
		selectSubmission+" WHERE submission_id = ?", submissionID)
	if err != nil {
		return nil, fmt.Errorf("get submission record: %w", err)
	}
	defer rows.Close()
	records, err := scanSubmissions(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// Recent returns up to limit submissions, newest first.
func (s *SubmissionStore) Recent(ctx context.Context, limit int) ([]SubmissionRecord, error) {
	rows, err := s.db.conn.QueryContext(ensureContext(ctx),
		selectSubmission+" ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func (s *SubmissionStore) Count(ctx context.Context) (int, error) {
	return s.db.countRows(ctx, "submission_data")
}

// CountByStatus reports how many submissions landed in each status.
func (s *SubmissionStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.conn.QueryContext(ensureContext(ctx),
		"SELECT status, COUNT(1) FROM submission_data GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count submissions by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

const selectSubmission = `
	SELECT submission_id, processing_id, document_type, extracted_data,
		confidence_score, timestamp, status, scorecard_data, appetite_data, risk_score
	FROM submission_data`

func scanSubmissions(rows *sql.Rows) ([]SubmissionRecord, error) {
	var records []SubmissionRecord
	for rows.Next() {
		var rec SubmissionRecord
		var fields, scorecard, appetite sql.NullString
		var risk sql.NullFloat64
		var ts string
		if err := rows.Scan(&rec.SubmissionID, &rec.ProcessingID, &rec.DocumentType,
			&fields, &rec.Confidence, &ts, &rec.Status, &scorecard, &appetite, &risk); err != nil {
			return nil, fmt.Errorf("scan submission record: %w", err)
		}
		if fields.Valid && fields.String != "" {
			if err := json.Unmarshal([]byte(fields.String), &rec.Fields); err != nil {
				return nil, fmt.Errorf("decode extracted data: %w", err)
			}
		}
		if scorecard.Valid {
			rec.ScorecardData = json.RawMessage(scorecard.String)
		}
		if appetite.Valid {
			rec.AppetiteData = json.RawMessage(appetite.String)
		}
		if risk.Valid {
			value := risk.Float64
			rec.RiskScore = &value
		}
		rec.Timestamp = parseTimestamp(ts)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func encodeFields(fields map[string]*string) (any, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode extracted data: %w", err)
	}
	return string(data), nil
}
