// Package preflight provides readiness checks for the external services and
// filesystem paths kinobot depends on.
//
// These checks run in two contexts:
//   - The daemon runs the directory checks at startup and logs any failure
//     before it starts taking updates.
//   - The CLI "kinobot status --check" command runs RunAll, including the
//     network probes against the Telegram Bot API and the ntfy server.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
