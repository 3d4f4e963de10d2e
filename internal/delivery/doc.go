// Package delivery serves catalog entries to end users.
//
// Lookup answers a code with the entry's poster and its controls: a Watch
// button carrying a one-time token for single items, or one button per
// episode for series. Redeem and Episode deliver the video after the access
// gate passes. Every path checks the gate, so a failed or unknown membership
// check always withholds content.
package delivery
