package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle marker carried inside a queue file.
type Status string

const (
	StatusPending Status = "pending"
)

// Filename prefixes identify the producing stage so consumers can filter by
// prefix. The set mirrors the pipeline hops in order.
const (
	PrefixRequest    = "request"
	PrefixIngested   = "ingest"
	PrefixRecognized = "ocr"
	PrefixClassified = "classified"
	PrefixExtracted  = "extracted"
	PrefixProcessed  = "processed"
)

// Envelope is the unit of work exchanged between adjacent stages, one JSON
// object per queue file. ProcessingID is assigned once at ingestion and
// propagated unchanged; SubmissionID is minted at extraction and keys all
// downstream records. Field values in Fields may be null when a template
// pattern did not match.
type Envelope struct {
	ProcessingID  string             `json:"processing_id"`
	SubmissionID  string             `json:"submission_id,omitempty"`
	FileURI       string             `json:"file_uri,omitempty"`
	OriginalName  string             `json:"original_name,omitempty"`
	ExtractedText string             `json:"extracted_text,omitempty"`
	DocumentType  string             `json:"document_type,omitempty"`
	Tags          []string           `json:"tags,omitempty"`
	Fields        map[string]*string `json:"extracted_data,omitempty"`
	Timestamp     time.Time          `json:"timestamp"`
	Source        string             `json:"source"`
	Status        Status             `json:"status"`
	Attempts      int                `json:"attempts,omitempty"`
}

// Key returns the identifier used to name this envelope's queue file: the
// submission id once one has been minted, the processing id before that.
func (e Envelope) Key() string {
	if id := strings.TrimSpace(e.SubmissionID); id != "" {
		return id
	}
	return strings.TrimSpace(e.ProcessingID)
}
