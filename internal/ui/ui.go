package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/likesort/internal/formatter"
	"github.com/desertthunder/likesort/internal/shared"
	"github.com/desertthunder/likesort/internal/tasks"
)

// maxRecent is the number of outcome lines kept on screen during a run.
const maxRecent = 8

// SyncRunner runs one sync and reports progress on the channel.
type SyncRunner interface {
	Run(ctx context.Context, opts tasks.SyncOptions, progress chan<- tasks.ProgressUpdate) (*tasks.SyncResult, error)
}

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ConfirmView ViewState = iota
	SyncView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	view    ViewState
	engine  SyncRunner
	opts    tasks.SyncOptions
	width   int
	height  int
	spinner spinner.Model
	bar     progress.Model
	tallies list.Model
	phase   tasks.ProgressUpdate
	recent  []tasks.TrackOutcome
	result  *tasks.SyncResult
	err     error
	next    tea.Cmd
	onDone  func(*tasks.SyncResult, error)
	help    help.Model
	keys    keyMap
}

// NewModel creates a new TUI model. opts seeds the dry-run toggle.
func NewModel(ctx context.Context, engine SyncRunner, opts tasks.SyncOptions) *Model {
	return &Model{
		ctx:     ctx,
		view:    ConfirmView,
		engine:  engine,
		opts:    opts,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.ok)),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		next:    noop,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// OnComplete registers fn to be called from the update loop after every finished run.
func (m *Model) OnComplete(fn func(*tasks.SyncResult, error)) {
	m.onDone = fn
}

// Result returns the last run's result and error.
func (m *Model) Result() (*tasks.SyncResult, error) {
	return m.result, m.err
}

// Init does nothing until the user starts a run.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = min(max(msg.Width-4, 10), 60)
		if m.view == ResultView {
			m.tallies.SetSize(max(msg.Width-4, 20), max(msg.Height-10, 8))
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case SyncView:
			return m.handleSyncKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != SyncView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressMsg:
		update := tasks.ProgressUpdate(msg)
		m.phase = update
		if o, ok := update.Data.(tasks.TrackOutcome); ok {
			m.recent = append(m.recent, o)
			if len(m.recent) > maxRecent {
				m.recent = m.recent[len(m.recent)-maxRecent:]
			}
		}
		return m, m.next

	case syncDoneMsg:
		m.finish(msg)
		return m, nil
	}

	return m, nil
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.dryRun):
		m.opts.DryRun = !m.opts.DryRun
	case key.Matches(msg, m.keys.start):
		return m, tea.Batch(m.spinner.Tick, m.startSync())
	}
	return m, nil
}

func (m *Model) handleSyncKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.cancel):
		m.stop()
	case key.Matches(msg, m.keys.quit):
		m.stop()
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = ConfirmView
		m.result = nil
		m.err = nil
		m.recent = nil
		m.phase = tasks.ProgressUpdate{}
		return m, nil
	}

	var cmd tea.Cmd
	m.tallies, cmd = m.tallies.Update(msg)
	return m, cmd
}

// noop stands in for the read command while no run is active.
var noop tea.Cmd = func() tea.Msg { return nil }

// startSync launches the engine and returns the command that reads its first update.
func (m *Model) startSync() tea.Cmd {
	runCtx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.view = SyncView
	m.recent = nil
	m.phase = tasks.ProgressUpdate{Message: "Starting..."}

	updates := make(chan tasks.ProgressUpdate, 50)
	done := make(chan syncDoneMsg, 1)
	opts := m.opts

	go func() {
		result, err := m.engine.Run(runCtx, opts, updates)
		done <- syncDoneMsg{result: result, err: err}
		close(updates)
	}()

	m.next = waitForProgress(updates, done)
	return m.next
}

func (m *Model) stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Model) finish(msg syncDoneMsg) {
	m.stop()
	m.cancel = nil
	m.next = noop
	m.result = msg.result
	m.err = msg.err
	m.view = ResultView

	if m.result != nil {
		m.tallies = list.New(tallyItems(m.result.Tallies(), m.result.DryRun), list.NewDefaultDelegate(), max(m.width-4, 20), max(m.height-10, 8))
		m.tallies.Title = "Playlists"
		m.tallies.SetShowStatusBar(false)
		m.tallies.SetFilteringEnabled(false)
	}
	if m.onDone != nil {
		m.onDone(m.result, m.err)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render("likesort")
	mode := styles.ok.Render("sync")
	if m.opts.DryRun {
		mode = styles.warn.Render("dry run (no tracks will be added)")
	}
	info := fmt.Sprintf("Sort your liked songs into genre playlists.\n\nMode: %s\n", mode)
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.start, m.keys.dryRun, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderSync() string {
	var b strings.Builder

	title := "Syncing liked songs"
	if m.opts.DryRun {
		title = "Syncing liked songs (dry run)"
	}
	b.WriteString(styles.title.Render(title))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %s\n\n", m.spinner.View(), phaseLabel(m.phase)))

	if m.phase.Phase == tasks.SyncTracks && m.phase.Total > 0 {
		b.WriteString(m.bar.ViewAs(float64(m.phase.Step) / float64(m.phase.Total)))
		b.WriteString(fmt.Sprintf("  %d/%d\n\n", m.phase.Step, m.phase.Total))
	}

	for _, o := range m.recent {
		b.WriteString(styles.status(o.Status).Render(o.String()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.cancel, m.keys.quit}))
	return b.String()
}

func (m *Model) renderResult() string {
	var b strings.Builder

	switch {
	case m.err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("✗ Run aborted (%s): %v", shared.Kind(m.err), m.err)))
	case m.result != nil && m.result.DryRun:
		b.WriteString(styles.warn.Render("✓ Dry run complete"))
	default:
		b.WriteString(styles.ok.Render("✓ Sync complete"))
	}
	b.WriteString("\n\n")

	if m.result == nil {
		b.WriteString(styles.help.Render("No result available"))
	} else {
		b.WriteString(formatter.Summary(m.result))
		b.WriteString("\n\n")
		b.WriteString(m.tallies.View())
		if m.result.Failed > 0 {
			b.WriteString("\n")
			b.WriteString(styles.warn.Render(fmt.Sprintf("%d tracks failed; run `likesort sync run` for details", m.result.Failed)))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.restart, m.keys.quit}))
	return b.String()
}

func phaseLabel(u tasks.ProgressUpdate) string {
	if u.Message != "" {
		return u.Message
	}
	return u.Phase.String()
}
