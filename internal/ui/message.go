package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/likesort/internal/tasks"
)

// progressMsg carries one engine update into the update loop.
type progressMsg tasks.ProgressUpdate

// syncDoneMsg is sent once the engine returns.
type syncDoneMsg struct {
	result *tasks.SyncResult
	err    error
}

// waitForProgress reads the next update; once progress is closed it yields the final result from done.
func waitForProgress(progress <-chan tasks.ProgressUpdate, done <-chan syncDoneMsg) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressMsg(update)
	}
}
