// Package repositories implements SQLite persistence for sync run history.
//
// [RunRepository] implements models.Repository[*models.SyncRun]. A run is stored as one row in
// sync_runs plus one row per playlist in sync_run_playlists, written in a single transaction.
// Only counts are stored; the library itself is never cached locally.
package repositories
