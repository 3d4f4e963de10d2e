// Package logs reads the daemon log for `kinobot logs`.
//
// It tails the current log file with bounded memory, follows it as the
// daemon appends, and narrows records by user, catalog code, event type or
// level. JSON and console records are both understood.
package logs
