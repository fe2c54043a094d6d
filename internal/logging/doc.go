// Package logging centralizes slog construction for docpipe.
//
// It provides console and JSON handlers, typed attribute helpers, and the
// standardized field keys shared by every stage worker so per-unit progress
// lines stay greppable across stages.
package logging
