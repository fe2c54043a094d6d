// Package pipeline assembles the document intake pipeline: five stage
// workers coupled by filesystem queues, an inbox watcher in front, and the
// per-stage stores behind them.
package pipeline
