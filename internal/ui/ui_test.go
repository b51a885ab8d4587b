package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/likesort/internal/models"
	"github.com/desertthunder/likesort/internal/shared"
	"github.com/desertthunder/likesort/internal/tasks"
)

// fakeRunner emits one outcome per name and returns a matching result.
type fakeRunner struct {
	names []string
	err   error
	opts  tasks.SyncOptions
}

func (f *fakeRunner) Run(ctx context.Context, opts tasks.SyncOptions, progress chan<- tasks.ProgressUpdate) (*tasks.SyncResult, error) {
	f.opts = opts
	result := &tasks.SyncResult{RunID: "run", DryRun: opts.DryRun}
	status := tasks.StatusAdded
	if opts.DryRun {
		status = tasks.StatusPlanned
	}

	for i, name := range f.names {
		o := tasks.TrackOutcome{
			Track:    models.Track{ID: fmt.Sprintf("t%d", i), Name: name},
			Playlist: "dale weon",
			Status:   status,
		}
		result.Outcomes = append(result.Outcomes, o)
		if opts.DryRun {
			result.Planned++
		} else {
			result.Added++
		}
		progress <- tasks.ProgressUpdate{Phase: tasks.SyncTracks, Step: i + 1, Total: len(f.names), Data: o}
	}
	return result, f.err
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// drive feeds cmd results back into the model until the run finishes.
func drive(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for i := 0; i < 100 && m.view == SyncView; i++ {
		msg := cmd()
		if msg == nil {
			t.Fatal("unexpected nil message while syncing")
		}
		_, cmd = m.Update(msg)
	}
	if m.view != ResultView {
		t.Fatalf("expected result view, got %d", m.view)
	}
}

func TestModel(t *testing.T) {
	t.Run("starts in confirm view", func(t *testing.T) {
		m := NewModel(context.Background(), &fakeRunner{}, tasks.SyncOptions{})
		if m.Init() != nil {
			t.Error("Init should not start a run")
		}
		if !strings.Contains(m.View(), "Mode:") {
			t.Errorf("unexpected confirm view: %s", m.View())
		}
	})

	t.Run("toggle dry run", func(t *testing.T) {
		m := NewModel(context.Background(), &fakeRunner{}, tasks.SyncOptions{})
		m.Update(keyRune('d'))
		if !m.opts.DryRun {
			t.Fatal("expected dry run to be enabled")
		}
		if !strings.Contains(m.View(), "dry run") {
			t.Error("confirm view should show dry run mode")
		}
		m.Update(keyRune('d'))
		if m.opts.DryRun {
			t.Error("expected dry run to be disabled again")
		}
	})

	t.Run("full run", func(t *testing.T) {
		runner := &fakeRunner{names: []string{"a", "b", "c"}}
		m := NewModel(context.Background(), runner, tasks.SyncOptions{Concurrency: 2})
		m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

		cmd := m.startSync()
		if m.view != SyncView {
			t.Fatalf("expected sync view, got %d", m.view)
		}
		drive(t, m, cmd)

		result, err := m.Result()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Added != 3 {
			t.Errorf("expected 3 added, got %d", result.Added)
		}
		if len(m.recent) != 3 {
			t.Errorf("expected 3 recent outcomes, got %d", len(m.recent))
		}
		if runner.opts.Concurrency != 2 {
			t.Errorf("options should reach the runner, got %+v", runner.opts)
		}
		if !strings.Contains(m.View(), "Sync complete") {
			t.Errorf("unexpected result view: %s", m.View())
		}
	})

	t.Run("recent outcomes are bounded", func(t *testing.T) {
		names := make([]string, maxRecent+5)
		for i := range names {
			names[i] = fmt.Sprintf("song %d", i)
		}
		m := NewModel(context.Background(), &fakeRunner{names: names}, tasks.SyncOptions{})
		drive(t, m, m.startSync())

		if len(m.recent) != maxRecent {
			t.Fatalf("expected %d recent outcomes, got %d", maxRecent, len(m.recent))
		}
		if m.recent[len(m.recent)-1].Track.Name != names[len(names)-1] {
			t.Error("the newest outcome should be last")
		}
	})

	t.Run("dry run result", func(t *testing.T) {
		m := NewModel(context.Background(), &fakeRunner{names: []string{"a"}}, tasks.SyncOptions{DryRun: true})
		drive(t, m, m.startSync())

		if !strings.Contains(m.View(), "Dry run complete") {
			t.Errorf("unexpected result view: %s", m.View())
		}
	})

	t.Run("aborted run", func(t *testing.T) {
		runErr := fmt.Errorf("%w: refresh", shared.ErrRefreshFailed)
		m := NewModel(context.Background(), &fakeRunner{err: runErr}, tasks.SyncOptions{})
		drive(t, m, m.startSync())

		if _, err := m.Result(); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected refresh failure, got %v", err)
		}
		if !strings.Contains(m.View(), "Run aborted (authentication)") {
			t.Errorf("unexpected result view: %s", m.View())
		}
	})

	t.Run("completion callback and restart", func(t *testing.T) {
		m := NewModel(context.Background(), &fakeRunner{names: []string{"a"}}, tasks.SyncOptions{})
		calls := 0
		m.OnComplete(func(r *tasks.SyncResult, err error) {
			calls++
			if r == nil || err != nil {
				t.Errorf("unexpected callback args: %v %v", r, err)
			}
		})

		drive(t, m, m.startSync())
		if calls != 1 {
			t.Fatalf("expected 1 callback, got %d", calls)
		}

		m.Update(keyRune('r'))
		if m.view != ConfirmView {
			t.Fatalf("expected confirm view after restart, got %d", m.view)
		}
		if r, _ := m.Result(); r != nil {
			t.Error("restart should clear the previous result")
		}

		drive(t, m, m.startSync())
		if calls != 2 {
			t.Errorf("expected 2 callbacks, got %d", calls)
		}
	})

	t.Run("quit", func(t *testing.T) {
		m := NewModel(context.Background(), &fakeRunner{}, tasks.SyncOptions{})
		_, cmd := m.Update(keyRune('q'))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}

func TestTallyItem(t *testing.T) {
	item := tallyItem{tally: models.PlaylistTally{Playlist: "k lo k", Added: 2, AlreadyPresent: 1, Failed: 1}}
	if item.Title() != "k lo k (4)" {
		t.Errorf("unexpected title: %q", item.Title())
	}
	if item.Description() != "2 added • 1 present • 1 failed" {
		t.Errorf("unexpected description: %q", item.Description())
	}

	dry := tallyItem{tally: models.PlaylistTally{Playlist: "k lo k", Planned: 3}, dryRun: true}
	if dry.Description() != "0 added • 0 present • 3 planned" {
		t.Errorf("unexpected dry run description: %q", dry.Description())
	}
}
