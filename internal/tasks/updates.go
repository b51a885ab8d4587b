package tasks

import (
	"fmt"

	"github.com/desertthunder/likesort/internal/models"
)

// ProgressUpdate represents a progress event during a sync run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchSaved Phase = iota
	FetchPlaylists
	Reconcile
	FetchArtists
	FetchMembership
	SyncTracks
	Complete
)

func (p Phase) String() string {
	switch p {
	case FetchSaved:
		return "fetch_saved"
	case FetchPlaylists:
		return "fetch_playlists"
	case Reconcile:
		return "reconcile"
	case FetchArtists:
		return "fetch_artists"
	case FetchMembership:
		return "fetch_membership"
	case SyncTracks:
		return "sync_tracks"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func fetchSavedUpdate(count int) ProgressUpdate {
	if count == 0 {
		return ProgressUpdate{Phase: FetchSaved, Message: "Fetching saved tracks..."}
	}
	return ProgressUpdate{
		Phase:   FetchSaved,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d saved tracks", count),
	}
}

func fetchPlaylistsUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: FetchPlaylists, Message: "Fetching playlists..."}
}

func reconcileUpdate(rec *Reconciliation) ProgressUpdate {
	msg := "All required playlists exist"
	switch n := len(rec.Created); {
	case n > 0 && rec.Planned:
		msg = fmt.Sprintf("Would create %d missing playlists", n)
	case n > 0:
		msg = fmt.Sprintf("Created %d missing playlists", n)
	}
	return ProgressUpdate{
		Phase:   Reconcile,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    rec,
	}
}

func fetchArtistsUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchArtists,
		Total:   total,
		Message: fmt.Sprintf("Fetching genres for %d artists...", total),
	}
}

func fetchMembershipUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchMembership,
		Total:   total,
		Message: fmt.Sprintf("Fetching tracks of %d playlists...", total),
	}
}

func outcomeUpdate(step, total int, o TrackOutcome) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, o.String()),
		Data:    o,
	}
}

func completeUpdate(r *SyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    r.Total(),
		Total:   r.Total(),
		Message: fmt.Sprintf("%d added, %d already present, %d planned, %d failed", r.Added, r.AlreadyPresent, r.Planned, r.Failed),
		Data:    r,
	}
}

func trackLabel(t models.Track) string {
	if label := t.Label(); label != "" {
		return label
	}
	return t.ID
}
