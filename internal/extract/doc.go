// Package extract pulls structured submission fields out of classified
// document text using ordered per-type regex templates.
package extract
