package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/desertthunder/likesort/internal/models"
	"github.com/desertthunder/likesort/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func newRun(id string, started time.Time) *models.SyncRun {
	return &models.SyncRun{
		RunID:            id,
		StartedAt:        started,
		FinishedAt:       started.Add(3 * time.Second),
		Total:            4,
		Added:            2,
		AlreadyPresent:   1,
		Failed:           1,
		CreatedPlaylists: 2,
		Playlists: []models.PlaylistTally{
			{Playlist: "dale weon", Added: 2},
			{Playlist: "k lo k", AlreadyPresent: 1},
			{Playlist: "blackhole", Failed: 1},
		},
	}
}

func TestRunRepository(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Create and Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := newRun("run-1", base)
		run.Error = "authentication error: token refresh failed"

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		got, err := repo.Get("run-1")
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}

		if !got.StartedAt.Equal(run.StartedAt) {
			t.Errorf("expected started_at %v, got %v", run.StartedAt, got.StartedAt)
		}
		if got.Duration() != 3*time.Second {
			t.Errorf("expected duration 3s, got %v", got.Duration())
		}
		if got.Total != 4 || got.Added != 2 || got.AlreadyPresent != 1 || got.Failed != 1 {
			t.Errorf("unexpected counts: %+v", got)
		}
		if got.CreatedPlaylists != 2 {
			t.Errorf("expected 2 created playlists, got %d", got.CreatedPlaylists)
		}
		if got.Error != run.Error {
			t.Errorf("expected error %q, got %q", run.Error, got.Error)
		}
		if len(got.Playlists) != 3 {
			t.Fatalf("expected 3 tallies, got %d", len(got.Playlists))
		}
		for i, p := range run.Playlists {
			if got.Playlists[i] != p {
				t.Errorf("tally %d: expected %+v, got %+v", i, p, got.Playlists[i])
			}
		}
	})

	t.Run("Dry run flag round trips", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := &models.SyncRun{RunID: "dry", StartedAt: base, FinishedAt: base, DryRun: true, Total: 1, Planned: 1}
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		got, err := repo.Get("dry")
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if !got.DryRun || got.Planned != 1 {
			t.Errorf("expected dry run with 1 planned, got %+v", got)
		}
		if len(got.Playlists) != 0 {
			t.Errorf("expected no tallies, got %d", len(got.Playlists))
		}
	})

	t.Run("List newest first", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		for i := range 3 {
			if err := repo.Create(newRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Hour))); err != nil {
				t.Fatalf("failed to create run %d: %v", i, err)
			}
		}

		runs, err := repo.List(0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		for i, want := range []string{"run-2", "run-1", "run-0"} {
			if runs[i].RunID != want {
				t.Errorf("position %d: expected %s, got %s", i, want, runs[i].RunID)
			}
			if len(runs[i].Playlists) != 3 {
				t.Errorf("%s: expected tallies to be loaded", runs[i].RunID)
			}
		}

		limited, err := repo.List(2)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(limited) != 2 || limited[0].RunID != "run-2" {
			t.Errorf("expected the two newest runs, got %d", len(limited))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		if err := repo.Create(newRun("run-1", base)); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if err := repo.Delete("run-1"); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}

		if _, err := repo.Get("run-1"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}

		var tallies int
		if err := db.QueryRow("SELECT COUNT(*) FROM sync_run_playlists").Scan(&tallies); err != nil {
			t.Fatalf("failed to count tallies: %v", err)
		}
		if tallies != 0 {
			t.Errorf("expected tallies to be removed, found %d", tallies)
		}

		if n, err := repo.Count(); err != nil || n != 0 {
			t.Errorf("expected 0 runs, got %d (%v)", n, err)
		}
	})
}

func TestRunRepositoryErrors(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		run  *models.SyncRun
	}{
		{name: "nil run", run: nil},
		{name: "missing id", run: &models.SyncRun{StartedAt: base}},
		{name: "counts do not add up", run: &models.SyncRun{RunID: "x", StartedAt: base, Total: 2, Added: 1}},
		{name: "finished before start", run: &models.SyncRun{RunID: "x", StartedAt: base, FinishedAt: base.Add(-time.Second)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			if err := NewRunRepository(db).Create(tt.run); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	t.Run("Duplicate id", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		if err := repo.Create(newRun("dup", base)); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if err := repo.Create(newRun("dup", base)); err == nil {
			t.Error("expected error for duplicate run id")
		}
		if n, _ := repo.Count(); n != 1 {
			t.Errorf("expected 1 run after failed insert, got %d", n)
		}
	})

	t.Run("Duplicate tally rolls back the run", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := newRun("bad", base)
		run.Playlists = append(run.Playlists, models.PlaylistTally{Playlist: "dale weon"})
		if err := repo.Create(run); err == nil {
			t.Fatal("expected error for duplicate tally")
		}
		if _, err := repo.Get("bad"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected run insert to be rolled back, got %v", err)
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if _, err := NewRunRepository(db).Get("nope"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete missing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if err := NewRunRepository(db).Delete("nope"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
