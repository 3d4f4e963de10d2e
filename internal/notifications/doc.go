// Package notifications pushes operator alerts to ntfy.
//
// The ntfy topic comes from config.toml (or NTFY_TOPIC); without one the
// package returns a no-op Service. Alerts cover daemon start, unwritable
// catalog storage, and failed backups.
package notifications
