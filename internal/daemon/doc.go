// Package daemon coordinates the long-running docpipe process.
//
// It wires configuration, the pipeline manager, and structured logging into a
// single lifecycle with flock-based locking to prevent multiple instances.
//
// Keep orchestration logic here: individual pipeline stages live in their
// respective packages while the daemon focuses on startup, shutdown, and high
// level coordination.
package daemon
