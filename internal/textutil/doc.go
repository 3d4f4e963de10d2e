// Package textutil holds the caption conventions shared by the admin workflow,
// delivery, and the announcement mirror.
//
// Published captions end with exactly one "Code: <code>" trailer. Stored
// captions keep only the body and Render adds the trailer. Legacy
// trailers of the form "🆔 Kod: 1234" are recognized and rewritten in the
// canonical form. ParseEpisode extracts an episode number and title from a
// free-text caption.
package textutil
