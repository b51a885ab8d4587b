package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/likesort/internal/genres"
	"github.com/desertthunder/likesort/internal/models"
	"github.com/desertthunder/likesort/internal/services"
	"github.com/desertthunder/likesort/internal/shared"
)

// plannedPrefix marks the placeholder id of a playlist a dry run would create.
const plannedPrefix = "planned:"

// IsPlanned reports whether id is a placeholder from [PlaylistRegistry.Plan].
func IsPlanned(id string) bool {
	return strings.HasPrefix(id, plannedPrefix)
}

// Reconciliation reports what a [PlaylistRegistry.Reconcile] call changed.
// After [PlaylistRegistry.Plan], Created lists the playlists that would be created.
type Reconciliation struct {
	Created []models.PlaylistRef
	Planned bool
}

// PlaylistRegistry owns the playlist name to id catalog for one run.
//
// The catalog only grows: a name, once known, keeps its id for the rest of the run.
// When the account has several playlists with the same name, the first one listed wins.
type PlaylistRegistry struct {
	catalog  services.Catalog
	public   bool
	required []string

	mu  sync.RWMutex
	ids map[string]string
}

// NewPlaylistRegistry creates a registry that creates missing playlists through catalog.
func NewPlaylistRegistry(catalog services.Catalog, public bool) *PlaylistRegistry {
	return &PlaylistRegistry{
		catalog:  catalog,
		public:   public,
		required: genres.RequiredPlaylists(),
		ids:      make(map[string]string),
	}
}

// Reconcile records existing playlists and creates each required playlist still missing, in
// required order. It stops at the first failed creation.
func (r *PlaylistRegistry) Reconcile(ctx context.Context, existing []models.PlaylistRef) (*Reconciliation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.record(existing)
	rec := &Reconciliation{}
	for _, name := range r.missing() {
		id, err := r.catalog.CreatePlaylist(ctx, name, r.public, genres.Description(name))
		if err != nil {
			return rec, fmt.Errorf("failed to create playlist %q: %w", name, err)
		}
		r.ids[name] = id
		rec.Created = append(rec.Created, models.PlaylistRef{ID: id, Name: name})
	}
	return rec, nil
}

// Plan is Reconcile without remote writes. Missing playlists get a placeholder id that
// resolves like a real one but has no members.
func (r *PlaylistRegistry) Plan(existing []models.PlaylistRef) *Reconciliation {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.record(existing)
	rec := &Reconciliation{Planned: true}
	for _, name := range r.missing() {
		id := plannedPrefix + name
		r.ids[name] = id
		rec.Created = append(rec.Created, models.PlaylistRef{ID: id, Name: name})
	}
	return rec
}

// record adds existing playlists the registry does not know yet. Callers hold mu.
func (r *PlaylistRegistry) record(existing []models.PlaylistRef) {
	for _, p := range existing {
		key := genres.Normalize(p.Name)
		if _, ok := r.ids[key]; !ok {
			r.ids[key] = p.ID
		}
	}
}

// missing returns the required names without an id, in required order. Callers hold mu.
func (r *PlaylistRegistry) missing() []string {
	var names []string
	for _, name := range r.required {
		if _, ok := r.ids[name]; !ok {
			names = append(names, name)
		}
	}
	return names
}

// Resolve returns the id of a required playlist.
func (r *PlaylistRegistry) Resolve(name string) (string, error) {
	key := genres.Normalize(name)
	if !genres.IsRequired(key) {
		return "", fmt.Errorf("%w: %q is not a required playlist", shared.ErrUnknownPlaylist, name)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.ids[key]
	if !ok {
		return "", fmt.Errorf("%w: %q has not been reconciled", shared.ErrUnknownPlaylist, name)
	}
	return id, nil
}

// Playlists returns the required playlists and their ids, in required order.
// Playlists not reconciled yet have an empty id.
func (r *PlaylistRegistry) Playlists() []models.PlaylistRef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.PlaylistRef, 0, len(r.required))
	for _, name := range r.required {
		out = append(out, models.PlaylistRef{ID: r.ids[name], Name: name})
	}
	return out
}
