// Package notifications delivers pipeline events via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set.
// Decision and failure events carry their own enable flags so operators can
// subscribe to only what they care about. All pipeline code depends only on
// the small Service interface.
package notifications
