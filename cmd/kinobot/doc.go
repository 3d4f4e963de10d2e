// Package main hosts the kinobot CLI entrypoint and command graph.
//
// `kinobot run` starts the bot daemon. The remaining commands operate on the
// catalog document directly: listing and inspecting entries, exporting and
// importing the document, deleting entries, writing backups, and scaffolding
// configuration. Commands that change the catalog take the same flock lock as
// the daemon, so they refuse to run while the bot is up.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
