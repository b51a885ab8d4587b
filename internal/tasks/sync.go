package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/likesort/internal/genres"
	"github.com/desertthunder/likesort/internal/models"
	"github.com/desertthunder/likesort/internal/services"
	"github.com/desertthunder/likesort/internal/shared"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Status is the result of syncing one track.
type Status string

const (
	StatusAdded          Status = "added"
	StatusAlreadyPresent Status = "already-present"
	StatusPlanned        Status = "planned"
	StatusFailed         Status = "failed"
)

// TrackOutcome is the user-visible result for one saved track.
type TrackOutcome struct {
	Track      models.Track
	Playlist   string // Target playlist, empty when classification failed
	PlaylistID string
	Status     Status
	Err        error
}

// Kind names the failure class of a failed outcome.
func (o TrackOutcome) Kind() string {
	return shared.Kind(o.Err)
}

func (o TrackOutcome) String() string {
	switch o.Status {
	case StatusFailed:
		return fmt.Sprintf("failed %s: %s: %v", o.Kind(), trackLabel(o.Track), o.Err)
	default:
		return fmt.Sprintf("%s: %s -> %s", o.Status, trackLabel(o.Track), o.Playlist)
	}
}

// SyncOptions configures a sync run.
type SyncOptions struct {
	DryRun      bool // Classify and compare without adding tracks
	Concurrency int  // Parallel artist and playlist fetches (default: 4)
}

// SyncResult contains every outcome of a run, in saved-tracks order.
type SyncResult struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	DryRun         bool
	Created        []models.PlaylistRef
	Outcomes       []TrackOutcome
	Added          int
	AlreadyPresent int
	Planned        int
	Failed         int
}

// Total is the number of tracks that produced an outcome.
func (r *SyncResult) Total() int { return len(r.Outcomes) }

func (r *SyncResult) record(o TrackOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case StatusAdded:
		r.Added++
	case StatusAlreadyPresent:
		r.AlreadyPresent++
	case StatusPlanned:
		r.Planned++
	case StatusFailed:
		r.Failed++
	}
}

// Tallies counts outcomes per required playlist, in required order.
// Tracks that failed before classification are not attributed to any playlist.
func (r *SyncResult) Tallies() []models.PlaylistTally {
	names := genres.RequiredPlaylists()
	index := make(map[string]int, len(names))
	tallies := make([]models.PlaylistTally, len(names))
	for i, name := range names {
		index[name] = i
		tallies[i].Playlist = name
	}

	for _, o := range r.Outcomes {
		i, ok := index[o.Playlist]
		if !ok {
			continue
		}
		switch o.Status {
		case StatusAdded:
			tallies[i].Added++
		case StatusAlreadyPresent:
			tallies[i].AlreadyPresent++
		case StatusPlanned:
			tallies[i].Planned++
		case StatusFailed:
			tallies[i].Failed++
		}
	}
	return tallies
}

// Summary converts the result into its persisted form. runErr is the error that ended the run, if any.
func (r *SyncResult) Summary(runErr error) *models.SyncRun {
	run := &models.SyncRun{
		RunID:            r.RunID,
		StartedAt:        r.StartedAt,
		FinishedAt:       r.FinishedAt,
		DryRun:           r.DryRun,
		Total:            r.Total(),
		Added:            r.Added,
		AlreadyPresent:   r.AlreadyPresent,
		Planned:          r.Planned,
		Failed:           r.Failed,
		CreatedPlaylists: len(r.Created),
		Playlists:        r.Tallies(),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	return run
}

// SyncEngine sorts saved tracks into their genre playlists.
type SyncEngine struct {
	catalog    services.Catalog
	classifier *genres.Classifier
	registry   *PlaylistRegistry
	logger     *log.Logger
}

// NewSyncEngine creates a SyncEngine. The registry must create playlists through the same catalog.
func NewSyncEngine(catalog services.Catalog, classifier *genres.Classifier, registry *PlaylistRegistry, logger *log.Logger) *SyncEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &SyncEngine{
		catalog:    catalog,
		classifier: classifier,
		registry:   registry,
		logger:     logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *SyncEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func newResult(opts SyncOptions) *SyncResult {
	return &SyncResult{
		RunID:     shared.GenerateID(),
		StartedAt: time.Now().UTC(),
		DryRun:    opts.DryRun,
	}
}

func (e *SyncEngine) finish(progress chan<- ProgressUpdate, result *SyncResult) {
	result.FinishedAt = time.Now().UTC()
	e.sendProgress(progress, completeUpdate(result))
}

// Run drains the saved tracks and the account's playlists, reconciles the required playlists, then syncs.
//
// A fatal error returns the partial result together with the error.
func (e *SyncEngine) Run(ctx context.Context, opts SyncOptions, progress chan<- ProgressUpdate) (*SyncResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	result := newResult(opts)
	defer e.finish(progress, result)

	e.sendProgress(progress, fetchSavedUpdate(0))
	tracks, err := Drain(ctx, e.catalog.SavedTracks)
	if err != nil {
		return result, fmt.Errorf("failed to fetch saved tracks: %w", err)
	}
	e.sendProgress(progress, fetchSavedUpdate(len(tracks)))

	e.sendProgress(progress, fetchPlaylistsUpdate())
	playlists, err := Drain(ctx, e.catalog.Playlists)
	if err != nil {
		return result, fmt.Errorf("failed to fetch playlists: %w", err)
	}

	logger := shared.WithLogger(e.logger, "run", result.RunID)
	var rec *Reconciliation
	if opts.DryRun {
		rec = e.registry.Plan(playlists)
	} else {
		rec, err = e.registry.Reconcile(ctx, playlists)
	}
	if rec != nil {
		result.Created = rec.Created
		for _, p := range rec.Created {
			if rec.Planned {
				logger.Info("would create playlist", "name", p.Name)
				continue
			}
			logger.Info("created playlist", "name", p.Name, "id", p.ID)
		}
	}
	if err != nil {
		return result, err
	}
	e.sendProgress(progress, reconcileUpdate(rec))

	return result, e.sync(ctx, result, tracks, opts, progress)
}

// Sync processes tracks in order against playlists the registry already reconciled.
func (e *SyncEngine) Sync(ctx context.Context, tracks []models.Track, opts SyncOptions, progress chan<- ProgressUpdate) (*SyncResult, error) {
	result := newResult(opts)
	defer e.finish(progress, result)
	return result, e.sync(ctx, result, tracks, opts, progress)
}

func (e *SyncEngine) sync(ctx context.Context, result *SyncResult, tracks []models.Track, opts SyncOptions, progress chan<- ProgressUpdate) error {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	logger := shared.WithLogger(e.logger, "run", result.RunID)
	cache := newRunMemo(e.catalog)

	artistIDs := uniqueArtists(tracks)
	e.sendProgress(progress, fetchArtistsUpdate(len(artistIDs)))
	if err := prefetch(ctx, concurrency, artistIDs, cache.genres); err != nil {
		return err
	}

	// Only the playlists some track is routed to are listed.
	var playlistIDs []string
	seen := make(map[string]bool)
	for _, tr := range tracks {
		tags, err := cache.primaryGenres(ctx, tr)
		if err != nil {
			continue
		}
		id, err := e.registry.Resolve(e.classifier.Classify(tags))
		if err != nil {
			return err
		}
		if !seen[id] {
			seen[id] = true
			playlistIDs = append(playlistIDs, id)
		}
	}
	e.sendProgress(progress, fetchMembershipUpdate(len(playlistIDs)))
	if err := prefetch(ctx, concurrency, playlistIDs, cache.members); err != nil {
		return err
	}

	total := len(tracks)
	for i, tr := range tracks {
		if err := ctx.Err(); err != nil {
			return err
		}

		outcome := e.process(ctx, cache, tr, opts.DryRun)
		result.record(outcome)
		e.sendProgress(progress, outcomeUpdate(i+1, total, outcome))

		if outcome.Status == StatusFailed {
			logger.Warn("track failed", "track", trackLabel(tr), "kind", outcome.Kind(), "err", outcome.Err)
			if shared.IsFatal(outcome.Err) {
				return outcome.Err
			}
			continue
		}
		logger.Debug("track synced", "track", trackLabel(tr), "playlist", outcome.Playlist, "status", outcome.Status)
	}
	return nil
}

// process classifies one track and adds it to its playlist unless it is already there.
// No add is issued after a failed fetch.
func (e *SyncEngine) process(ctx context.Context, cache *runMemo, tr models.Track, dryRun bool) TrackOutcome {
	outcome := TrackOutcome{Track: tr}
	fail := func(err error) TrackOutcome {
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome
	}

	tags, err := cache.primaryGenres(ctx, tr)
	if err != nil {
		return fail(err)
	}

	outcome.Playlist = e.classifier.Classify(tags)
	id, err := e.registry.Resolve(outcome.Playlist)
	if err != nil {
		return fail(err)
	}
	outcome.PlaylistID = id

	members, err := cache.members(ctx, id)
	if err != nil {
		return fail(err)
	}

	if members.has(tr.ID) {
		outcome.Status = StatusAlreadyPresent
		return outcome
	}

	if dryRun {
		members.add(tr.ID)
		outcome.Status = StatusPlanned
		return outcome
	}

	if err := e.catalog.AddTrackToPlaylist(ctx, id, tr); err != nil {
		return fail(err)
	}
	members.add(tr.ID)
	outcome.Status = StatusAdded
	return outcome
}

func uniqueArtists(tracks []models.Track) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, tr := range tracks {
		a, ok := tr.PrimaryArtist()
		if !ok || a.ID == "" || seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		ids = append(ids, a.ID)
	}
	return ids
}

// prefetch warms the memo with bounded concurrency. Per-key errors stay in the memo for the
// track that needs them; only fatal ones stop the run.
func prefetch[T any](ctx context.Context, limit int, keys []string, get func(context.Context, string) (T, error)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, key := range keys {
		g.Go(func() error {
			if _, err := get(gctx, key); shared.IsFatal(err) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// Drain follows a paginated listing to the end.
func Drain[T any](ctx context.Context, fetch func(context.Context, int) (*models.Page[T], error)) ([]T, error) {
	var all []T
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := fetch(ctx, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)

		if !page.HasNext {
			return all, nil
		}
		if page.Next <= offset {
			return nil, fmt.Errorf("%w: listing at offset %d reports more pages without advancing", shared.ErrAPIRequest, offset)
		}
		offset = page.Next
	}
}
