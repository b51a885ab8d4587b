// Package tasks sorts a user's saved tracks into genre playlists with real-time progress reporting.
//
// # Core Operations
//
// [PlaylistRegistry] reconciles the required playlists against the account:
//   - Existing playlists are matched by case-folded name, first listed wins
//   - Missing playlists are created in required order
//   - A dry run plans the missing playlists with [PlaylistRegistry.Plan] instead of creating them
//   - [PlaylistRegistry.Resolve] maps a playlist name to its id
//
// [SyncEngine] orchestrates a run:
//
//  1. [SyncEngine.Run] : drain saved tracks and playlists, reconcile, then sync
//  2. [SyncEngine.Sync] : for each track, in saved order
//     - Fetch the primary artist's genres, once per artist per run
//     - Classify the genres into a playlist with [genres.Classifier]
//     - Fetch the playlist's full membership, once per playlist per run
//     - Add the track unless it is already a member
//
// Artist genres and memberships are prefetched with bounded concurrency before the sequential pass.
// Every listing is drained with [Drain], so membership checks never see a partial page.
//
// # Failures
//
// A failed fetch or add fails only the current track, which is reported as a [StatusFailed] outcome.
// Authentication, configuration and unknown-playlist errors abort the run; the partial [SyncResult] is
// still returned.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// [SyncTracks] updates carry the [TrackOutcome] and the [Complete] update carries the [SyncResult].
package tasks
