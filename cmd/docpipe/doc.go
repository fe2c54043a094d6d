// Package main hosts the docpipe CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the daemon (run), direct document
// submission, pipeline status reporting, submission reports, notification
// checks, and configuration scaffolding. It centralizes configuration
// resolution so subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
