// package models defines the data model for likesort
package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error        // Create inserts a new model into the database
	Get(id string) (T, error)    // Get retrieves a model by its ID
	Delete(id string) error      // Delete removes a model from the database by its ID
	List(limit int) ([]T, error) // List retrieves the most recent models, newest first
}

// ArtistRef is the artist reference carried by a saved track.
type ArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Track is a saved track. Only the first artist is used for classification.
type Track struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	URI     string      `json:"uri"`
	Artists []ArtistRef `json:"artists"`
}

// PrimaryArtist returns the first artist, or false when the track has none.
func (t Track) PrimaryArtist() (ArtistRef, bool) {
	if len(t.Artists) == 0 {
		return ArtistRef{}, false
	}
	return t.Artists[0], true
}

// Label formats the track as "Artist - Name" for display.
func (t Track) Label() string {
	if a, ok := t.PrimaryArtist(); ok && a.Name != "" {
		return fmt.Sprintf("%s - %s", a.Name, t.Name)
	}
	return t.Name
}

// Artist carries the genre tags of an artist, in catalog order.
type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

// PlaylistRef is an existing remote playlist.
type PlaylistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Page is one page of a paginated catalog listing.
//
// Next is the offset of the following page. It can exceed Offset+len(Items) when the client
// dropped entries it cannot represent, such as podcast episodes in a playlist.
type Page[T any] struct {
	Items   []T
	Offset  int
	Next    int
	Total   int
	HasNext bool
}
