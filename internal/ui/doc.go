// Package ui implements the `likesort tui` terminal interface with bubbletea's Elm architecture.
//
// The TUI has three views:
//  1. [ConfirmView] : choose between a real sync and a dry run
//  2. [SyncView] : spinner, progress bar and the most recent track outcomes
//  3. [ResultView] : summary plus a per-playlist list of counts
//
// The [Model] runs any [SyncRunner] in a goroutine and reads its progress channel one update per command,
// so the engine never blocks on rendering. Cancelling the sync view cancels the run's context.
package ui
