// Package telegram adapts the Telegram Bot API to the messenger and access
// interfaces.
//
// Client implements messenger.Messenger and access.Oracle on top of
// go-telegram-bot-api. Outbound calls share one rate limiter and honour the
// caller's context even though the underlying library has no context support.
// Run long-polls for updates and feeds them to a worker pool keyed by user, so
// one user's updates are handled in order while different users proceed in
// parallel.
package telegram
