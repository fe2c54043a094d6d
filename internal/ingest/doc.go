// Package ingest is the front door of the pipeline: the inbox watcher and
// submit path mint processing ids and enqueue intake requests, and the
// ingestion handler copies accepted documents into the data lake.
package ingest
