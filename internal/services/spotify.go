// Spotify implementation of [Catalog] on top of github.com/zmb3/spotify/v2
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/likesort/internal/models"
	"github.com/desertthunder/likesort/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL     = "https://accounts.spotify.com/authorize"
	spotifyTokenURL    = "https://accounts.spotify.com/api/token"
	defaultRedirectURI = "http://127.0.0.1:3000/callback"

	savedTracksLimit   = 50
	playlistsLimit     = 50
	playlistItemsLimit = 100
)

// SpotifyScopes are the permissions a sync run needs.
var SpotifyScopes = []string{
	"user-library-read",
	"playlist-read-private",
	"playlist-modify-public",
	"playlist-modify-private",
}

// SpotifyOptions tunes the HTTP stack below the Spotify client.
type SpotifyOptions struct {
	BaseURL      string            // API base URL. Defaults to the public Web API.
	Endpoint     oauth2.Endpoint   // OAuth endpoints. Defaults to accounts.spotify.com.
	Transport    http.RoundTripper // Base transport under the retry layer.
	RateLimit    float64           // Requests per second. Zero disables limiting.
	MaxRetries   int               // Attempts per request, including the first.
	RetryBackoff time.Duration     // Base delay, doubled after each attempt.
	Logger       *log.Logger
}

// SpotifyService implements [OAuthService] for the Spotify Web API.
type SpotifyService struct {
	config *oauth2.Config
	opts   SpotifyOptions
	logger *log.Logger

	source oauth2.TokenSource
	client *spotify.Client

	userMu sync.Mutex
	userID string
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts SpotifyOptions) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	endpoint := opts.Endpoint
	if endpoint.AuthURL == "" {
		endpoint.AuthURL = spotifyAuthURL
	}
	if endpoint.TokenURL == "" {
		endpoint.TokenURL = spotifyTokenURL
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       SpotifyScopes,
			Endpoint:     endpoint,
		},
		opts:   opts,
		logger: logger,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig returns the OAuth2 configuration.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// OAuthenticate builds the API client around token. Expired tokens are refreshed on demand.
func (s *SpotifyService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return fmt.Errorf("%w: no token, run 'likesort spotify auth'", shared.ErrNotAuthenticated)
	}

	// Refreshes outlive the call that authenticated.
	src := s.config.TokenSource(context.WithoutCancel(ctx), token)
	s.source = oauth2.ReuseTokenSource(token, src)

	transport := &oauth2.Transport{
		Source: s.source,
		Base:   newRetryTransport(s.opts.Transport, s.opts.RateLimit, s.opts.MaxRetries, s.opts.RetryBackoff, s.logger),
	}

	var clientOpts []spotify.ClientOption
	if s.opts.BaseURL != "" {
		clientOpts = append(clientOpts, spotify.WithBaseURL(s.opts.BaseURL))
	}
	s.client = spotify.New(&http.Client{Transport: transport}, clientOpts...)
	return nil
}

// Token returns the token currently in use, refreshing it first if it expired.
func (s *SpotifyService) Token() (*oauth2.Token, error) {
	if s.source == nil {
		return nil, shared.ErrNotAuthenticated
	}
	tok, err := s.source.Token()
	if err != nil {
		return nil, mapError(err, "token")
	}
	return tok, nil
}

func (s *SpotifyService) api() (*spotify.Client, error) {
	if s.client == nil {
		return nil, fmt.Errorf("%w: call OAuthenticate first", shared.ErrNotAuthenticated)
	}
	return s.client, nil
}

// SavedTracks retrieves one page of the user's saved tracks.
func (s *SpotifyService) SavedTracks(ctx context.Context, offset int) (*models.Page[models.Track], error) {
	c, err := s.api()
	if err != nil {
		return nil, err
	}

	page, err := c.CurrentUsersTracks(ctx, spotify.Limit(savedTracksLimit), spotify.Offset(offset))
	if err != nil {
		return nil, mapError(err, "saved tracks")
	}

	items := make([]models.Track, 0, len(page.Tracks))
	for _, st := range page.Tracks {
		items = append(items, toTrack(st.FullTrack))
	}

	return &models.Page[models.Track]{
		Items:   items,
		Offset:  offset,
		Next:    offset + len(page.Tracks),
		Total:   int(page.Total),
		HasNext: page.Next != "",
	}, nil
}

// Artist retrieves an artist by ID.
func (s *SpotifyService) Artist(ctx context.Context, id string) (*models.Artist, error) {
	c, err := s.api()
	if err != nil {
		return nil, err
	}

	a, err := c.GetArtist(ctx, spotify.ID(id))
	if err != nil {
		return nil, mapError(err, "artist "+id)
	}

	genres := a.Genres
	if genres == nil {
		genres = []string{}
	}
	return &models.Artist{ID: string(a.ID), Name: a.Name, Genres: genres}, nil
}

// Playlists retrieves one page of the current user's playlists.
func (s *SpotifyService) Playlists(ctx context.Context, offset int) (*models.Page[models.PlaylistRef], error) {
	c, err := s.api()
	if err != nil {
		return nil, err
	}

	page, err := c.CurrentUsersPlaylists(ctx, spotify.Limit(playlistsLimit), spotify.Offset(offset))
	if err != nil {
		return nil, mapError(err, "playlists")
	}

	items := make([]models.PlaylistRef, 0, len(page.Playlists))
	for _, p := range page.Playlists {
		items = append(items, models.PlaylistRef{ID: string(p.ID), Name: p.Name})
	}

	return &models.Page[models.PlaylistRef]{
		Items:   items,
		Offset:  offset,
		Next:    offset + len(page.Playlists),
		Total:   int(page.Total),
		HasNext: page.Next != "",
	}, nil
}

// CreatePlaylist creates a playlist for the current user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name string, public bool, description string) (string, error) {
	c, err := s.api()
	if err != nil {
		return "", err
	}

	userID, err := s.currentUserID(ctx, c)
	if err != nil {
		return "", err
	}

	pl, err := c.CreatePlaylistForUser(ctx, userID, name, description, public, false)
	if err != nil {
		return "", mapError(err, "create playlist "+name)
	}

	s.logger.Debug("created playlist", "name", name, "id", pl.ID)
	return string(pl.ID), nil
}

// PlaylistTracks retrieves one page of track ids in a playlist.
// Episodes and local files have no catalog track id and are left out.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string, offset int) (*models.Page[string], error) {
	c, err := s.api()
	if err != nil {
		return nil, err
	}

	page, err := c.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(playlistItemsLimit), spotify.Offset(offset))
	if err != nil {
		return nil, mapError(err, "playlist items "+playlistID)
	}

	ids := make([]string, 0, len(page.Items))
	for _, item := range page.Items {
		if item.Track.Track == nil || item.Track.Track.ID == "" {
			continue
		}
		ids = append(ids, string(item.Track.Track.ID))
	}

	return &models.Page[string]{
		Items:   ids,
		Offset:  offset,
		Next:    offset + len(page.Items),
		Total:   int(page.Total),
		HasNext: page.Next != "",
	}, nil
}

// AddTrackToPlaylist appends track to the playlist. The client sends it as a spotify:track URI.
func (s *SpotifyService) AddTrackToPlaylist(ctx context.Context, playlistID string, track models.Track) error {
	c, err := s.api()
	if err != nil {
		return err
	}
	if track.ID == "" {
		return fmt.Errorf("%w: track %q has no id", shared.ErrInvalidInput, track.Name)
	}

	if _, err := c.AddTracksToPlaylist(ctx, spotify.ID(playlistID), spotify.ID(track.ID)); err != nil {
		return mapError(err, "add track "+track.ID)
	}
	return nil
}

func (s *SpotifyService) currentUserID(ctx context.Context, c *spotify.Client) (string, error) {
	s.userMu.Lock()
	defer s.userMu.Unlock()

	if s.userID != "" {
		return s.userID, nil
	}

	user, err := c.CurrentUser(ctx)
	if err != nil {
		return "", mapError(err, "current user")
	}
	s.userID = user.ID
	return s.userID, nil
}

func toTrack(t spotify.FullTrack) models.Track {
	artists := make([]models.ArtistRef, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, models.ArtistRef{ID: string(a.ID), Name: a.Name})
	}
	return models.Track{
		ID:      string(t.ID),
		Name:    t.Name,
		URI:     string(t.URI),
		Artists: artists,
	}
}

// mapError translates client and transport errors into the shared sentinels.
func mapError(err error, op string) error {
	var (
		apiErr     spotify.Error
		refreshErr *oauth2.RetrieveError
	)

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	case errors.As(err, &refreshErr):
		return fmt.Errorf("%w: %s: %v", shared.ErrRefreshFailed, op, refreshErr)
	case errors.Is(err, shared.ErrTransient):
		return fmt.Errorf("%s: %w", op, err)
	case errors.As(err, &apiErr):
		return fmt.Errorf("%w: %s: status %d: %s", statusError(apiErr.Status), op, apiErr.Status, apiErr.Message)
	default:
		return fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, op, err)
	}
}

func statusError(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return shared.ErrTokenExpired
	case status == http.StatusForbidden:
		return shared.ErrAuthFailed
	case status == http.StatusNotFound:
		return shared.ErrNotFound
	case status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
		return shared.ErrTransient
	default:
		return shared.ErrAPIRequest
	}
}
