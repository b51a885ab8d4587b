package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/likesort/internal/genres"
	"github.com/desertthunder/likesort/internal/repositories"
	"github.com/desertthunder/likesort/internal/services"
	"github.com/desertthunder/likesort/internal/shared"
	"github.com/desertthunder/likesort/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    services.OAuthService
	catalog    services.Catalog
	logger     *log.Logger
	output     io.Writer
	openDB     func(shared.DatabaseConfig) (*sql.DB, error)
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    services.OAuthService
	Catalog    services.Catalog // Overrides Spotify for sync operations
	Logger     *log.Logger
	Output     io.Writer
	OpenDB     func(shared.DatabaseConfig) (*sql.DB, error)
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.OpenDB == nil {
		opts.OpenDB = shared.OpenDatabase
	}
	if opts.Catalog == nil && opts.Spotify != nil {
		opts.Catalog = opts.Spotify
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		spotify:    opts.Spotify,
		catalog:    opts.Catalog,
		logger:     opts.Logger,
		output:     opts.Output,
		openDB:     opts.OpenDB,
	}
}

// Init loads configuration and wires the Spotify service before any command runs.
//
// A missing config file is not an error so that `setup config` can create it; credentials may
// still come from the environment.
func (r *Runner) Init(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	r.configPath = cmd.String("config")

	config, err := shared.LoadConfig(r.configPath)
	switch {
	case err == nil:
		r.config = config
	case errors.Is(err, shared.ErrMissingConfig):
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		r.config = shared.DefaultConfig()
	default:
		return ctx, err
	}
	shared.ApplyEnv(r.config)

	logger, err := shared.LoggerFromConfig(r.config.Log)
	if err != nil {
		return ctx, err
	}
	r.SetLogger(logger)

	if r.config.Credentials.Spotify.HasClient() {
		svc, err := r.newSpotifyService()
		if err != nil {
			return ctx, err
		}
		if token := r.config.Credentials.Spotify.Token(); token != nil {
			if err := svc.OAuthenticate(ctx, token); err != nil {
				r.logger.Warn("stored token rejected", "error", err)
			}
		}
		r.spotify = svc
		r.catalog = svc
	}
	return ctx, nil
}

func (r *Runner) newSpotifyService() (*services.SpotifyService, error) {
	sc := r.config.Sync
	return services.NewSpotifyService(r.config.Credentials.Spotify.Map(), services.SpotifyOptions{
		RateLimit:    sc.RateLimit,
		MaxRetries:   sc.MaxRetries,
		RetryBackoff: sc.RetryBackoff(),
		Logger:       r.logger,
	})
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, spotifyCommand, genresCommand, syncCommand, historyCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// requireCatalog returns the catalog or explains how to configure one.
func (r *Runner) requireCatalog() (services.Catalog, error) {
	if r.catalog == nil {
		return nil, fmt.Errorf("%w: set client_id and client_secret in %s or %s/%s", shared.ErrMissingCredentials, r.configPathOrDefault(), shared.EnvClientID, shared.EnvClientSecret)
	}
	return r.catalog, nil
}

func (r *Runner) configPathOrDefault() string {
	if r.configPath == "" {
		return "config.toml"
	}
	return r.configPath
}

// genreMapPath picks --genres over sync.genre_map.
func (r *Runner) genreMapPath(cmd *cli.Command) string {
	if p := cmd.String("genres"); p != "" {
		return p
	}
	return r.config.Sync.GenreMap
}

// newEngine loads the genre map and builds a sync engine over the catalog.
func (r *Runner) newEngine(cmd *cli.Command) (*tasks.SyncEngine, error) {
	catalog, err := r.requireCatalog()
	if err != nil {
		return nil, err
	}

	path := r.genreMapPath(cmd)
	m, err := genres.Load(path)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("genre map loaded", "path", path, "entries", m.Len())

	registry := tasks.NewPlaylistRegistry(catalog, r.config.Sync.Public)
	return tasks.NewSyncEngine(catalog, genres.NewClassifier(m), registry, r.logger), nil
}

// persistToken writes a refreshed token back to the config file, if there is one.
func (r *Runner) persistToken() {
	if r.spotify == nil || r.configPath == "" {
		return
	}
	if _, err := os.Stat(r.configPath); err != nil {
		return
	}

	token, err := r.spotify.Token()
	if err != nil {
		r.logger.Debug("no token to persist", "error", err)
		return
	}
	stored := r.config.Credentials.Spotify
	if token.AccessToken == stored.AccessToken && (token.RefreshToken == "" || token.RefreshToken == stored.RefreshToken) {
		return
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		r.logger.Warn("failed to update token", "error", err)
		return
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		r.logger.Warn("failed to save refreshed token", "error", err)
		return
	}
	r.logger.Debug("refreshed token saved", "path", r.configPath)
}

// withRuns opens the run history database for fn.
func (r *Runner) withRuns(fn func(*repositories.RunRepository) error) error {
	db, err := r.openDB(r.config.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(repositories.NewRunRepository(db))
}

// recordRun stores the run summary. History is best effort; failures are only logged.
func (r *Runner) recordRun(result *tasks.SyncResult, runErr error) {
	if result == nil {
		return
	}
	err := r.withRuns(func(runs *repositories.RunRepository) error {
		return runs.Create(result.Summary(runErr))
	})
	if err != nil {
		r.logger.Warn("run summary not recorded", "error", err)
		return
	}
	r.logger.Debug("run summary recorded", "run", result.RunID)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
