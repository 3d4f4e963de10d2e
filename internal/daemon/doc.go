// Package daemon coordinates the long-running kinobot process.
//
// It wires the catalog store, the Telegram update poller, the backup
// scheduler, and the HTTP API into a single lifecycle with flock-based locking
// to prevent two instances from writing the same catalog document. The HTTP
// side serves /healthz, Prometheus metrics, and a read-only catalog view under
// /api for operators.
//
// Keep orchestration logic here: update handling lives in the bot package and
// the daemon focuses on startup, shutdown, and high level coordination.
package daemon
