// Package bot routes inbound chat updates to the delivery service and the
// admin workflow.
//
// Router is the edge of the system: it stamps every update with a correlation
// id, recovers panics per update, answers every callback exactly once and
// turns the typed errors of the lower layers into user-facing messages.
package bot
