// Package logging assembles structured slog loggers used across kinobot.
//
// It owns the console and JSON handlers, level and output plumbing, and
// context-aware helpers that tag log lines with the Telegram user, catalog
// code, and correlation ID of the update being handled. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
