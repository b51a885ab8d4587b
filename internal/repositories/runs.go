package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/likesort/internal/models"
	"github.com/desertthunder/likesort/internal/shared"
)

const runColumns = `id, started_at, finished_at, dry_run, total, added, already_present, planned, failed, created_playlists, error`

// RunRepository implements [models.Repository] for [models.SyncRun].
type RunRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.SyncRun] = (*RunRepository)(nil)

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run summary and its per-playlist tallies.
func (r *RunRepository) Create(run *models.SyncRun) error {
	if run == nil {
		return fmt.Errorf("%w: nil run", shared.ErrInvalidArgument)
	}
	if err := run.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO sync_runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.DryRun, run.Total,
		run.Added, run.AlreadyPresent, run.Planned, run.Failed, run.CreatedPlaylists, run.Error)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, p := range run.Playlists {
		_, err := tx.Exec(`INSERT INTO sync_run_playlists (run_id, playlist, added, already_present, planned, failed)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.RunID, p.Playlist, p.Added, p.AlreadyPresent, p.Planned, p.Failed)
		if err != nil {
			return fmt.Errorf("failed to insert tally for %s: %w", p.Playlist, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// Get retrieves a run by id along with its tallies.
func (r *RunRepository) Get(id string) (*models.SyncRun, error) {
	row := r.db.QueryRow(`SELECT `+runColumns+` FROM sync_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		return nil, notFound(err, "run", id)
	}

	if run.Playlists, err = r.tallies(id); err != nil {
		return nil, err
	}
	return run, nil
}

// List returns up to limit runs, newest first. A non-positive limit returns every run.
func (r *RunRepository) List(limit int) ([]*models.SyncRun, error) {
	query := `SELECT ` + runColumns + ` FROM sync_runs ORDER BY started_at DESC, id ASC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	// Tallies are loaded after the cursor is closed; an in-memory database has a single connection.
	for _, run := range runs {
		if run.Playlists, err = r.tallies(run.RunID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Delete removes a run and its tallies.
func (r *RunRepository) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM sync_run_playlists WHERE run_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete tallies: %w", err)
	}

	result, err := tx.Exec("DELETE FROM sync_runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: run %s", shared.ErrNotFound, id)
	}

	return tx.Commit()
}

// Count returns the number of stored runs.
func (r *RunRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM sync_runs").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return n, nil
}

func (r *RunRepository) tallies(runID string) ([]models.PlaylistTally, error) {
	rows, err := r.db.Query(`SELECT playlist, added, already_present, planned, failed
		FROM sync_run_playlists WHERE run_id = ? ORDER BY rowid ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tallies: %w", err)
	}
	defer rows.Close()

	var tallies []models.PlaylistTally
	for rows.Next() {
		var p models.PlaylistTally
		if err := rows.Scan(&p.Playlist, &p.Added, &p.AlreadyPresent, &p.Planned, &p.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan tally: %w", err)
		}
		tallies = append(tallies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tallies, nil
}

func scanRun(s scanner) (*models.SyncRun, error) {
	var run models.SyncRun
	err := s.Scan(&run.RunID, &run.StartedAt, &run.FinishedAt, &run.DryRun, &run.Total,
		&run.Added, &run.AlreadyPresent, &run.Planned, &run.Failed, &run.CreatedPlaylists, &run.Error)
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	return &run, nil
}
