package tasks

import (
	"context"
	"sync"

	"github.com/desertthunder/likesort/internal/models"
	"github.com/desertthunder/likesort/internal/services"
)

type memoEntry[T any] struct {
	once sync.Once
	val  T
	err  error
}

// memo calls fetch at most once per key, successful or not.
type memo[T any] struct {
	mu      sync.Mutex
	entries map[string]*memoEntry[T]
	fetch   func(context.Context, string) (T, error)
}

func newMemo[T any](fetch func(context.Context, string) (T, error)) *memo[T] {
	return &memo[T]{entries: make(map[string]*memoEntry[T]), fetch: fetch}
}

func (m *memo[T]) get(ctx context.Context, key string) (T, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &memoEntry[T]{}
		m.entries[key] = e
	}
	m.mu.Unlock()

	e.once.Do(func() {
		e.val, e.err = m.fetch(ctx, key)
	})
	return e.val, e.err
}

// trackSet is a playlist's membership. It is only mutated by the sequential sync loop.
type trackSet map[string]struct{}

func (s trackSet) has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s trackSet) add(id string) {
	s[id] = struct{}{}
}

// runMemo caches artist genres and playlist memberships for one run.
type runMemo struct {
	artists     *memo[[]string]
	memberships *memo[trackSet]
}

func newRunMemo(catalog services.Catalog) *runMemo {
	return &runMemo{
		artists: newMemo(func(ctx context.Context, id string) ([]string, error) {
			a, err := catalog.Artist(ctx, id)
			if err != nil {
				return nil, err
			}
			return a.Genres, nil
		}),
		memberships: newMemo(func(ctx context.Context, id string) (trackSet, error) {
			if IsPlanned(id) {
				return trackSet{}, nil
			}
			ids, err := Drain(ctx, func(ctx context.Context, offset int) (*models.Page[string], error) {
				return catalog.PlaylistTracks(ctx, id, offset)
			})
			if err != nil {
				return nil, err
			}
			set := make(trackSet, len(ids))
			for _, tid := range ids {
				set.add(tid)
			}
			return set, nil
		}),
	}
}

func (m *runMemo) genres(ctx context.Context, artistID string) ([]string, error) {
	return m.artists.get(ctx, artistID)
}

// primaryGenres returns the genres of the track's first artist. A track without artists has none.
func (m *runMemo) primaryGenres(ctx context.Context, tr models.Track) ([]string, error) {
	a, ok := tr.PrimaryArtist()
	if !ok || a.ID == "" {
		return nil, nil
	}
	return m.genres(ctx, a.ID)
}

func (m *runMemo) members(ctx context.Context, playlistID string) (trackSet, error) {
	return m.memberships.get(ctx, playlistID)
}
