package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/likesort/internal/models"
	"github.com/desertthunder/likesort/internal/shared"
	"golang.org/x/oauth2"
)

var testCredentials = map[string]string{
	"client_id":     "test_client_id",
	"client_secret": "test_client_secret",
}

func validToken() *oauth2.Token {
	return &oauth2.Token{AccessToken: "access", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
}

// newTestService points a service at handler with fast retries.
func newTestService(t *testing.T, handler http.Handler) *SpotifyService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := NewSpotifyService(testCredentials, SpotifyOptions{
		BaseURL:      srv.URL + "/",
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewSpotifyService() error = %v", err)
	}
	if err := svc.OAuthenticate(context.Background(), validToken()); err != nil {
		t.Fatalf("OAuthenticate() error = %v", err)
	}
	return svc
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func apiError(status int, msg string) string {
	return fmt.Sprintf(`{"error":{"status":%d,"message":%q}}`, status, msg)
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials, SpotifyOptions{})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
			if srv.config.RedirectURL != defaultRedirectURI {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
			if strings.Join(srv.config.Scopes, " ") != "user-library-read playlist-read-private playlist-modify-public playlist-modify-private" {
				t.Errorf("unexpected scopes %v", srv.config.Scopes)
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_secret": "s"}, SpotifyOptions{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_id": "i"}, SpotifyOptions{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		srv, _ := NewSpotifyService(testCredentials, SpotifyOptions{})
		authURL := srv.GetAuthURL("state123")
		for _, want := range []string{"accounts.spotify.com/authorize", "state=state123", "client_id=test_client_id", "user-library-read"} {
			if !strings.Contains(authURL, want) {
				t.Errorf("auth URL %q should contain %q", authURL, want)
			}
		}
	})

	t.Run("Not Authenticated", func(t *testing.T) {
		srv, _ := NewSpotifyService(testCredentials, SpotifyOptions{})
		if _, err := srv.SavedTracks(context.Background(), 0); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if _, err := srv.Token(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if err := srv.OAuthenticate(context.Background(), nil); !errors.Is(err, shared.ErrAuthentication) {
			t.Errorf("expected an authentication error, got %v", err)
		}
	})
}

func TestSpotifyCatalog(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/me/tracks", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access" {
			writeJSON(w, http.StatusUnauthorized, apiError(401, "missing token"))
			return
		}
		if r.URL.Query().Get("offset") == "1" {
			writeJSON(w, http.StatusOK, `{"items":[{"added_at":"2024-01-01T00:00:00Z","track":{"id":"t2","name":"Two","uri":"spotify:track:t2","artists":[]}}],"limit":50,"offset":1,"total":2,"next":null}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"items":[{"added_at":"2024-01-01T00:00:00Z","track":{"id":"t1","name":"One","uri":"spotify:track:t1","artists":[{"id":"a1","name":"Artist"},{"id":"a2","name":"Guest"}]}}],"limit":1,"offset":0,"total":2,"next":"http://next"}`)
	})
	mux.HandleFunc("/artists/a1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"id":"a1","name":"Artist","genres":["Reggaeton","latin pop"]}`)
	})
	mux.HandleFunc("/artists/a0", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"id":"a0","name":"Unknown"}`)
	})
	mux.HandleFunc("/artists/missing", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, apiError(404, "non existing id"))
	})
	mux.HandleFunc("/artists/forbidden", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, apiError(403, "insufficient scope"))
	})
	mux.HandleFunc("/artists/expired", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, apiError(401, "The access token expired"))
	})
	mux.HandleFunc("/artists/bad", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, apiError(400, "invalid id"))
	})
	mux.HandleFunc("/me/playlists", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"items":[{"id":"p1","name":"K lo K"},{"id":"p2","name":"Road Trip"}],"limit":50,"offset":0,"total":2,"next":null}`)
	})
	var meCalls atomic.Int32
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		meCalls.Add(1)
		writeJSON(w, http.StatusOK, `{"id":"user1","display_name":"User"}`)
	})
	mux.HandleFunc("/users/user1/playlists", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name        string `json:"name"`
			Public      bool   `json:"public"`
			Description string `json:"description"`
		}
		if r.Method != http.MethodPost || json.NewDecoder(r.Body).Decode(&body) != nil {
			writeJSON(w, http.StatusBadRequest, apiError(400, "bad request"))
			return
		}
		writeJSON(w, http.StatusCreated, fmt.Sprintf(`{"id":"new-%s","name":%q,"public":%t,"description":%q}`, strings.ReplaceAll(body.Name, " ", "-"), body.Name, body.Public, body.Description))
	})
	var added []string
	mux.HandleFunc("/playlists/p1/tracks", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var body struct {
				URIs []string `json:"uris"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			added = append(added, body.URIs...)
			writeJSON(w, http.StatusCreated, `{"snapshot_id":"snap"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"items":[
			{"track":{"type":"track","id":"t1","name":"One","uri":"spotify:track:t1"}},
			{"track":{"type":"episode","id":"e1","name":"Pod","uri":"spotify:episode:e1"}},
			{"is_local":true,"track":{"type":"track","id":null,"name":"Local","uri":"spotify:local:x"}}
		],"limit":100,"offset":0,"total":3,"next":null}`)
	})

	svc := newTestService(t, mux)
	ctx := context.Background()

	t.Run("SavedTracks", func(t *testing.T) {
		page, err := svc.SavedTracks(ctx, 0)
		if err != nil {
			t.Fatalf("SavedTracks() error = %v", err)
		}
		if !page.HasNext || page.Next != 1 || page.Total != 2 {
			t.Errorf("unexpected page metadata: %+v", page)
		}
		if len(page.Items) != 1 || page.Items[0].URI != "spotify:track:t1" || len(page.Items[0].Artists) != 2 {
			t.Fatalf("unexpected items: %+v", page.Items)
		}

		last, err := svc.SavedTracks(ctx, page.Next)
		if err != nil {
			t.Fatalf("SavedTracks() error = %v", err)
		}
		if last.HasNext {
			t.Error("last page should not have a next page")
		}
		if _, ok := last.Items[0].PrimaryArtist(); ok {
			t.Error("track without artists should have no primary artist")
		}
	})

	t.Run("Artist", func(t *testing.T) {
		a, err := svc.Artist(ctx, "a1")
		if err != nil {
			t.Fatalf("Artist() error = %v", err)
		}
		if a.Name != "Artist" || len(a.Genres) != 2 || a.Genres[0] != "Reggaeton" {
			t.Errorf("unexpected artist: %+v", a)
		}

		none, err := svc.Artist(ctx, "a0")
		if err != nil {
			t.Fatalf("Artist() error = %v", err)
		}
		if none.Genres == nil || len(none.Genres) != 0 {
			t.Errorf("expected empty genre list, got %#v", none.Genres)
		}
	})

	t.Run("error mapping", func(t *testing.T) {
		tests := []struct {
			id   string
			want error
		}{
			{"missing", shared.ErrNotFound},
			{"forbidden", shared.ErrAuthFailed},
			{"expired", shared.ErrTokenExpired},
			{"bad", shared.ErrAPIRequest},
		}
		for _, tt := range tests {
			t.Run(tt.id, func(t *testing.T) {
				_, err := svc.Artist(ctx, tt.id)
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}

		_, err := svc.Artist(ctx, "expired")
		if !shared.IsFatal(err) {
			t.Error("an expired token must abort the run")
		}
		_, err = svc.Artist(ctx, "missing")
		if shared.IsFatal(err) {
			t.Error("a missing artist must not abort the run")
		}
	})

	t.Run("Playlists", func(t *testing.T) {
		page, err := svc.Playlists(ctx, 0)
		if err != nil {
			t.Fatalf("Playlists() error = %v", err)
		}
		want := []models.PlaylistRef{{ID: "p1", Name: "K lo K"}, {ID: "p2", Name: "Road Trip"}}
		if len(page.Items) != 2 || page.Items[0] != want[0] || page.Items[1] != want[1] {
			t.Errorf("unexpected playlists: %+v", page.Items)
		}
	})

	t.Run("CreatePlaylist", func(t *testing.T) {
		id, err := svc.CreatePlaylist(ctx, "k lo k", true, "Playlist de género k lo k")
		if err != nil {
			t.Fatalf("CreatePlaylist() error = %v", err)
		}
		if id != "new-k-lo-k" {
			t.Errorf("unexpected id %q", id)
		}
		if _, err := svc.CreatePlaylist(ctx, "blackhole", true, "x"); err != nil {
			t.Fatalf("CreatePlaylist() error = %v", err)
		}
		if meCalls.Load() != 1 {
			t.Errorf("current user should be looked up once, got %d", meCalls.Load())
		}
	})

	t.Run("PlaylistTracks skips episodes and local files", func(t *testing.T) {
		page, err := svc.PlaylistTracks(ctx, "p1", 0)
		if err != nil {
			t.Fatalf("PlaylistTracks() error = %v", err)
		}
		if len(page.Items) != 1 || page.Items[0] != "t1" {
			t.Errorf("unexpected ids: %v", page.Items)
		}
		if page.Next != 3 {
			t.Errorf("next offset should count skipped items, got %d", page.Next)
		}
	})

	t.Run("AddTrackToPlaylist", func(t *testing.T) {
		if err := svc.AddTrackToPlaylist(ctx, "p1", models.Track{ID: "t9", URI: "spotify:track:t9"}); err != nil {
			t.Fatalf("AddTrackToPlaylist() error = %v", err)
		}
		if len(added) != 1 || added[0] != "spotify:track:t9" {
			t.Errorf("unexpected added uris: %v", added)
		}
		if err := svc.AddTrackToPlaylist(ctx, "p1", models.Track{Name: "no id"}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Token", func(t *testing.T) {
		tok, err := svc.Token()
		if err != nil {
			t.Fatalf("Token() error = %v", err)
		}
		if tok.AccessToken != "access" {
			t.Errorf("unexpected token %+v", tok)
		}
	})
}

func TestSpotifyRefreshFailure(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Refresh token revoked"}`)
	}))
	defer tokenSrv.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no API request should be made without a valid token")
	}))
	defer api.Close()

	svc, err := NewSpotifyService(testCredentials, SpotifyOptions{
		BaseURL:  api.URL + "/",
		Endpoint: oauth2.Endpoint{AuthURL: tokenSrv.URL + "/authorize", TokenURL: tokenSrv.URL + "/token"},
	})
	if err != nil {
		t.Fatalf("NewSpotifyService() error = %v", err)
	}

	expired := &oauth2.Token{AccessToken: "old", RefreshToken: "refresh", Expiry: time.Now().Add(-time.Hour)}
	if err := svc.OAuthenticate(context.Background(), expired); err != nil {
		t.Fatalf("OAuthenticate() error = %v", err)
	}

	_, err = svc.SavedTracks(context.Background(), 0)
	if !errors.Is(err, shared.ErrRefreshFailed) {
		t.Fatalf("expected ErrRefreshFailed, got %v", err)
	}
	if !errors.Is(err, shared.ErrAuthentication) {
		t.Error("refresh failures are authentication errors")
	}
}

func TestRetryTransport(t *testing.T) {
	t.Run("retries 429 then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				writeJSON(w, http.StatusTooManyRequests, apiError(429, "rate limited"))
				return
			}
			writeJSON(w, http.StatusOK, `{"id":"a1","name":"Artist","genres":["punk"]}`)
		}))

		if _, err := svc.Artist(context.Background(), "a1"); err != nil {
			t.Fatalf("Artist() error = %v", err)
		}
		if calls.Load() != 2 {
			t.Errorf("expected 2 attempts, got %d", calls.Load())
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls atomic.Int32
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			writeJSON(w, http.StatusServiceUnavailable, apiError(503, "unavailable"))
		}))

		_, err := svc.Artist(context.Background(), "a1")
		if !errors.Is(err, shared.ErrTransient) {
			t.Fatalf("expected ErrTransient, got %v", err)
		}
		if shared.IsFatal(err) {
			t.Error("transient errors must not abort the run")
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 attempts, got %d", calls.Load())
		}
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			writeJSON(w, http.StatusNotFound, apiError(404, "missing"))
		}))

		if _, err := svc.Artist(context.Background(), "a1"); !errors.Is(err, shared.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 attempt, got %d", calls.Load())
		}
	})

	t.Run("replays request bodies", func(t *testing.T) {
		var bodies []string
		mux := http.NewServeMux()
		mux.HandleFunc("/playlists/p1/tracks", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				URIs []string `json:"uris"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			bodies = append(bodies, strings.Join(body.URIs, ","))
			if len(bodies) == 1 {
				writeJSON(w, http.StatusBadGateway, apiError(502, "bad gateway"))
				return
			}
			writeJSON(w, http.StatusCreated, `{"snapshot_id":"s"}`)
		})
		svc := newTestService(t, mux)

		if err := svc.AddTrackToPlaylist(context.Background(), "p1", models.Track{ID: "t1"}); err != nil {
			t.Fatalf("AddTrackToPlaylist() error = %v", err)
		}
		if len(bodies) != 2 || bodies[0] != bodies[1] || bodies[1] != "spotify:track:t1" {
			t.Errorf("expected identical bodies on retry, got %q", bodies)
		}
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusServiceUnavailable, apiError(503, "unavailable"))
		}))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := svc.Artist(ctx, "a1")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", 0},
		{"2", 2 * time.Second},
		{"-1", 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		resp := &http.Response{Header: http.Header{}}
		if tt.header != "" {
			resp.Header.Set("Retry-After", tt.header)
		}
		if got := parseRetryAfter(resp); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}

	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	resp := &http.Response{Header: http.Header{"Retry-After": []string{future}}}
	if got := parseRetryAfter(resp); got <= 0 || got > time.Minute {
		t.Errorf("unexpected delay for HTTP-date %v", got)
	}
}
