// Package store provides the per-stage SQLite databases behind the
// pipeline. Each stage owns its own database file except extraction and
// matching, which share the submission store. Schemas are managed by
// embedded, versioned migrations and every write is an idempotent upsert
// so replayed work converges instead of duplicating.
package store
