// Package backup writes timestamped snapshots of the catalog document and
// schedules them with cron.
//
// Snapshots are plain catalog exports, so `kinobot catalog import` restores
// them. Only the newest backup.keep snapshots are retained.
package backup
