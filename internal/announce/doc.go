// Package announce mirrors published catalog entries into the public
// announcement channel.
//
// A published post shows the poster, the caption body followed by exactly one
// "Code: <code>" trailer, and a URL button deep-linking into the bot. The
// channel message id is stored on the entry. Refresh and Retract are best
// effort: the catalog stays authoritative and failures are logged and counted.
package announce
