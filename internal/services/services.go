// package services defines the [Catalog] the sync engine reads from and writes to
//
// Spotify via github.com/zmb3/spotify/v2
package services

import (
	"context"

	"github.com/desertthunder/likesort/internal/models"
	"golang.org/x/oauth2"
)

// Catalog is a remote music library. Every listing is paginated: callers pass the offset of the
// page they want and follow [models.Page.Next] until HasNext is false.
type Catalog interface {
	// SavedTracks returns one page of the user's saved tracks.
	SavedTracks(ctx context.Context, offset int) (*models.Page[models.Track], error)

	// Artist returns an artist with its genre tags.
	Artist(ctx context.Context, id string) (*models.Artist, error)

	// Playlists returns one page of the user's playlists.
	Playlists(ctx context.Context, offset int) (*models.Page[models.PlaylistRef], error)

	// CreatePlaylist creates a playlist owned by the user and returns its id.
	CreatePlaylist(ctx context.Context, name string, public bool, description string) (string, error)

	// PlaylistTracks returns one page of the track ids in a playlist.
	PlaylistTracks(ctx context.Context, playlistID string, offset int) (*models.Page[string], error)

	// AddTrackToPlaylist appends track to the playlist.
	AddTrackToPlaylist(ctx context.Context, playlistID string, track models.Track) error

	// Name returns the name of the service
	Name() string
}

// OAuthService is a [Catalog] authorized through the OAuth2 authorization code flow.
type OAuthService interface {
	Catalog

	// GetAuthURL returns the URL the user visits to grant access.
	GetAuthURL(state string) string

	// GetOAuthConfig returns the OAuth2 configuration used for code exchange.
	GetOAuthConfig() *oauth2.Config

	// OAuthenticate authorizes the service with token, refreshing it when it expires.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error

	// Token returns the current, possibly refreshed, token.
	Token() (*oauth2.Token, error)
}
