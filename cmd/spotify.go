package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/likesort/internal/genres"
	"github.com/desertthunder/likesort/internal/models"
	"github.com/desertthunder/likesort/internal/server"
	"github.com/desertthunder/likesort/internal/services"
	"github.com/desertthunder/likesort/internal/shared"
	"github.com/desertthunder/likesort/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// SpotifyAuth performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server, opens browser for user authorization, and exchanges auth code for tokens.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	if !r.config.Credentials.Spotify.HasClient() {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPathOrDefault())
	}

	svc := r.spotify
	if svc == nil {
		s, err := r.newSpotifyService()
		if err != nil {
			return fmt.Errorf("failed to create Spotify service: %w", err)
		}
		svc = s
	}

	token, err := r.doOAuth(ctx, svc)
	if err != nil {
		return err
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if err := shared.SaveConfig(r.configPathOrDefault(), r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPathOrDefault())
	r.writePlain("You can now use: likesort sync run --dry-run\n")
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, svc services.OAuthService) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	handler := server.NewOAuthHandler(svc.GetOAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(handler)

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	srv := server.NewCallbackServer(addr, router, r.logger)
	if err := srv.Start(); err != nil {
		return nil, err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()
	r.logger.Infof("waiting for OAuth callback at %v", srv.Addr())

	authURL := svc.GetAuthURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", authTimeout)
	token, err := server.WaitForToken(ctx, handler, srv, authTimeout)
	if err != nil {
		return nil, fmt.Errorf("authorization failed: %w", err)
	}

	if err := svc.OAuthenticate(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// playlistRow is the JSON shape of `spotify playlists`.
type playlistRow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

// SpotifyPlaylists lists every account playlist and marks the genre playlists.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.requireCatalog()
	if err != nil {
		return err
	}
	defer r.persistToken()

	r.logger.Info("listing playlists", "service", catalog.Name())
	playlists, err := tasks.Drain(ctx, catalog.Playlists)
	if err != nil {
		return err
	}

	rows := make([]playlistRow, 0, len(playlists))
	for _, p := range playlists {
		rows = append(rows, playlistRow{ID: p.ID, Name: p.Name, Required: genres.IsRequired(p.Name)})
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(rows))
	for _, p := range rows {
		mark := " "
		if p.Required {
			mark = "*"
		}
		r.writePlain("%s %s (%s)\n", mark, p.Name, p.ID)
	}

	if missing := missingRequired(playlists); len(missing) > 0 {
		r.writePlain("\nMissing genre playlists (created on the next sync): %v\n", missing)
	}
	return nil
}

func missingRequired(playlists []models.PlaylistRef) []string {
	seen := make(map[string]bool, len(playlists))
	for _, p := range playlists {
		seen[genres.Normalize(p.Name)] = true
	}

	var missing []string
	for _, name := range genres.RequiredPlaylists() {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
