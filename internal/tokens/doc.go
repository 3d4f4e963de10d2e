// Package tokens holds the per-user one-time tokens that guard single-item
// delivery.
//
// Each user is either idle or armed with one {code, token} pair. A lookup
// arms the user and silently invalidates any earlier token; a redemption
// must present the exact pair and consumes it. State lives in a bounded LRU
// keyed by user id, so evicting an idle user is the same as superseding.
package tokens
