// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/likesort/internal/models"
)

// AddCall records one AddTrackToPlaylist call.
type AddCall struct {
	PlaylistID string
	TrackID    string
}

// MockCatalog is an in-memory [services.Catalog] with call counters and error injection.
//
// Listings are paginated with PageSize so callers must drain them.
type MockCatalog struct {
	mu sync.Mutex

	PageSize int

	Saved     []models.Track
	Artists   map[string]models.Artist
	Remote    []models.PlaylistRef
	Members   map[string][]string
	ArtistErr map[string]error // by artist id
	MemberErr map[string]error // by playlist id
	AddErr    map[string]error // by track id

	SavedErr     error
	PlaylistsErr error
	CreateErr    error

	ArtistCalls map[string]int
	MemberCalls map[string]int // page fetches per playlist
	Adds        []AddCall
	Created     []models.PlaylistRef
	CreatedDesc map[string]string
	Public      map[string]bool

	nextID int
}

// NewMockCatalog creates an empty catalog with two items per page.
func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		PageSize:    2,
		Artists:     map[string]models.Artist{},
		Members:     map[string][]string{},
		ArtistErr:   map[string]error{},
		MemberErr:   map[string]error{},
		AddErr:      map[string]error{},
		ArtistCalls: map[string]int{},
		MemberCalls: map[string]int{},
		CreatedDesc: map[string]string{},
		Public:      map[string]bool{},
	}
}

// AddArtist registers an artist and returns a track by it.
func (m *MockCatalog) AddArtist(id string, genres ...string) models.ArtistRef {
	m.Artists[id] = models.Artist{ID: id, Name: "Artist " + id, Genres: genres}
	return models.ArtistRef{ID: id, Name: "Artist " + id}
}

// SaveTrack appends a saved track by the given artists.
func (m *MockCatalog) SaveTrack(id string, artists ...models.ArtistRef) models.Track {
	tr := models.Track{ID: id, Name: "Track " + id, URI: "spotify:track:" + id, Artists: artists}
	m.Saved = append(m.Saved, tr)
	return tr
}

// AddPlaylist registers an existing remote playlist with the given members.
func (m *MockCatalog) AddPlaylist(id, name string, trackIDs ...string) {
	m.Remote = append(m.Remote, models.PlaylistRef{ID: id, Name: name})
	m.Members[id] = append([]string(nil), trackIDs...)
}

func paginate[T any](items []T, offset, size int) *models.Page[T] {
	if size <= 0 {
		size = len(items)
	}
	if offset > len(items) {
		offset = len(items)
	}
	end := min(offset+size, len(items))
	return &models.Page[T]{
		Items:   append([]T(nil), items[offset:end]...),
		Offset:  offset,
		Next:    end,
		Total:   len(items),
		HasNext: end < len(items),
	}
}

func (m *MockCatalog) SavedTracks(ctx context.Context, offset int) (*models.Page[models.Track], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.SavedErr != nil {
		return nil, m.SavedErr
	}
	return paginate(m.Saved, offset, m.PageSize), nil
}

func (m *MockCatalog) Artist(ctx context.Context, id string) (*models.Artist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArtistCalls[id]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.ArtistErr[id]; err != nil {
		return nil, err
	}
	a, ok := m.Artists[id]
	if !ok {
		return nil, fmt.Errorf("artist %s not found", id)
	}
	return &a, nil
}

func (m *MockCatalog) Playlists(ctx context.Context, offset int) (*models.Page[models.PlaylistRef], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PlaylistsErr != nil {
		return nil, m.PlaylistsErr
	}
	return paginate(m.Remote, offset, m.PageSize), nil
}

func (m *MockCatalog) CreatePlaylist(ctx context.Context, name string, public bool, description string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	m.nextID++
	ref := models.PlaylistRef{ID: fmt.Sprintf("created-%d", m.nextID), Name: name}
	m.Remote = append(m.Remote, ref)
	m.Members[ref.ID] = nil
	m.Created = append(m.Created, ref)
	m.CreatedDesc[name] = description
	m.Public[name] = public
	return ref.ID, nil
}

func (m *MockCatalog) PlaylistTracks(ctx context.Context, playlistID string, offset int) (*models.Page[string], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MemberCalls[playlistID]++
	if err := m.MemberErr[playlistID]; err != nil {
		return nil, err
	}
	members, ok := m.Members[playlistID]
	if !ok {
		return nil, fmt.Errorf("playlist %s not found", playlistID)
	}
	return paginate(members, offset, m.PageSize), nil
}

func (m *MockCatalog) AddTrackToPlaylist(ctx context.Context, playlistID string, track models.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.AddErr[track.ID]; err != nil {
		return err
	}
	m.Adds = append(m.Adds, AddCall{PlaylistID: playlistID, TrackID: track.ID})
	m.Members[playlistID] = append(m.Members[playlistID], track.ID)
	return nil
}

func (m *MockCatalog) Name() string { return "mock" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
