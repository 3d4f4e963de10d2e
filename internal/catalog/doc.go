// Package catalog owns the code → entry mapping served by the bot.
//
// An Entry is either a single video or a series of numbered episodes. The
// Store keeps the whole catalog as one JSON document in a storage.Backend and
// runs every mutation as a read → decode → modify → encode → write cycle under
// a writer lock, so concurrent admin edits never interleave. Documents written
// by older builds (no "type" discriminator, post_file_id style field names)
// are migrated on read and always written back in the current shape.
//
// The Index answers fingerprint-uniqueness questions over every single video
// and every episode, and the Allocator hands out unused zero-padded codes.
package catalog
