// Package messenger defines the transport-neutral message and update types
// the bot exchanges with its chat platform, and the Messenger interface the
// Telegram adapter implements.
package messenger
