// Package services defines shared utilities consumed by the bot components.
//
// Key responsibilities:
//   - Context helpers that stamp user IDs, catalog codes, update IDs, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so the router and admin
//     workflow can turn failures into the right user message or re-prompt.
package services
