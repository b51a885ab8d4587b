// package genres maps genre tags to the playlists they are sorted into
package genres

import (
	"fmt"
	"strings"

	"github.com/desertthunder/likesort/internal/shared"
)

// Fallback receives every track whose genres match no configured playlist.
const Fallback = "blackhole"

var requiredPlaylists = []string{
	"dale weon",
	"toy o no toy",
	"canto do dusha",
	"rapapolvo",
	"k lo k",
	Fallback,
}

// RequiredPlaylists returns the playlists every account must have, in creation order.
func RequiredPlaylists() []string {
	out := make([]string, len(requiredPlaylists))
	copy(out, requiredPlaylists)
	return out
}

// IsRequired reports whether name, case-folded, is a required playlist.
func IsRequired(name string) bool {
	name = Normalize(name)
	for _, p := range requiredPlaylists {
		if p == name {
			return true
		}
	}
	return false
}

// Normalize case-folds a playlist name or genre tag. No other normalization is applied.
func Normalize(s string) string {
	return strings.ToLower(s)
}

// Description is the text used when creating a missing playlist.
func Description(name string) string {
	if Normalize(name) == Fallback {
		return "Canciones sin género o con géneros no clasificados"
	}
	return fmt.Sprintf("Playlist de género %s", name)
}

// Entry is one playlist and the genres routed to it.
type Entry struct {
	Playlist string
	Genres   []string
}

// Map is an ordered, immutable playlist to genre-set mapping.
// Declaration order is the classifier's tie-break order.
type Map struct {
	entries []Entry
	sets    []map[string]struct{}
}

// NewMap normalizes and validates entries. Every playlist must be required, the fallback
// is reserved, and names must be unique after case-folding.
func NewMap(entries []Entry) (*Map, error) {
	m := &Map{
		entries: make([]Entry, 0, len(entries)),
		sets:    make([]map[string]struct{}, 0, len(entries)),
	}
	seen := make(map[string]bool, len(entries))

	for _, e := range entries {
		name := Normalize(e.Playlist)
		switch {
		case name == Fallback:
			return nil, fmt.Errorf("%w: %q is reserved for unmatched tracks", shared.ErrInvalidConfig, e.Playlist)
		case !IsRequired(name):
			return nil, fmt.Errorf("%w: unknown playlist %q", shared.ErrInvalidConfig, e.Playlist)
		case seen[name]:
			return nil, fmt.Errorf("%w: duplicate playlist %q", shared.ErrInvalidConfig, e.Playlist)
		}
		seen[name] = true

		genres := make([]string, 0, len(e.Genres))
		set := make(map[string]struct{}, len(e.Genres))
		for _, g := range e.Genres {
			g = Normalize(g)
			if _, ok := set[g]; ok {
				continue
			}
			set[g] = struct{}{}
			genres = append(genres, g)
		}

		m.entries = append(m.entries, Entry{Playlist: name, Genres: genres})
		m.sets = append(m.sets, set)
	}
	return m, nil
}

// Len returns the number of configured playlists.
func (m *Map) Len() int { return len(m.entries) }

// Entries returns a copy of the entries in declaration order.
func (m *Map) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	for i, e := range m.entries {
		out[i] = Entry{Playlist: e.Playlist, Genres: append([]string(nil), e.Genres...)}
	}
	return out
}

// Playlists returns the configured playlist names in declaration order.
func (m *Map) Playlists() []string {
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Playlist
	}
	return out
}

// Contains reports whether genre is routed to playlist.
func (m *Map) Contains(playlist, genre string) bool {
	playlist = Normalize(playlist)
	for i, e := range m.entries {
		if e.Playlist == playlist {
			_, ok := m.sets[i][Normalize(genre)]
			return ok
		}
	}
	return false
}
