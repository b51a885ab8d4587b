package models

import (
	"errors"
	"time"
)

// PlaylistTally counts outcomes for a single playlist in a run.
type PlaylistTally struct {
	Playlist       string `json:"playlist"`
	Added          int    `json:"added"`
	AlreadyPresent int    `json:"already_present"`
	Planned        int    `json:"planned"`
	Failed         int    `json:"failed"`
}

// Sum returns the number of tracks routed to the playlist.
func (p PlaylistTally) Sum() int {
	return p.Added + p.AlreadyPresent + p.Planned + p.Failed
}

// SyncRun is the persisted summary of one sync run.
// No track or artist data is stored, only counts.
type SyncRun struct {
	RunID            string          `json:"id"`
	StartedAt        time.Time       `json:"started_at"`
	FinishedAt       time.Time       `json:"finished_at"`
	DryRun           bool            `json:"dry_run"`
	Total            int             `json:"total"`
	Added            int             `json:"added"`
	AlreadyPresent   int             `json:"already_present"`
	Planned          int             `json:"planned"`
	Failed           int             `json:"failed"`
	CreatedPlaylists int             `json:"created_playlists"`
	Error            string          `json:"error,omitempty"`
	Playlists        []PlaylistTally `json:"playlists,omitempty"`
}

func (r *SyncRun) ID() string           { return r.RunID }
func (r *SyncRun) CreatedAt() time.Time { return r.StartedAt }

// Duration is the wall time of the run.
func (r *SyncRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Validate checks that the counts are consistent with the total.
func (r *SyncRun) Validate() error {
	if r.RunID == "" {
		return errors.New("run id is required")
	}
	if r.StartedAt.IsZero() {
		return errors.New("start time is required")
	}
	if !r.FinishedAt.IsZero() && r.FinishedAt.Before(r.StartedAt) {
		return errors.New("run finished before it started")
	}
	if r.Added+r.AlreadyPresent+r.Planned+r.Failed != r.Total {
		return errors.New("outcome counts do not add up to total")
	}
	return nil
}
