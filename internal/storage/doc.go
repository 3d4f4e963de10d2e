// Package storage persists whole catalog documents.
//
// A Backend reads and atomically replaces named documents. FileBackend keeps
// each document as a file and replaces it through temp-file-and-rename;
// SQLiteBackend keeps documents as rows and replaces them in a single upsert.
// Neither backend ever exposes a partially written document to readers.
package storage
