// Package admin implements the administrator workflow: ingesting movies and
// series, publishing them to the announcement channel, editing entries and
// deleting them.
//
// Each administrator has one Session driven by an explicit State enum with a
// handler per state. Malformed input re-prompts without changing state; the
// cancel button or /cancel returns any session to StateIdle. Sessions are
// serialized per administrator, and every catalog change goes through a
// single catalog.Store mutation.
package admin
