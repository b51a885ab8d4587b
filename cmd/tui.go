package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/likesort/internal/shared"
	"github.com/desertthunder/likesort/internal/tasks"
	"github.com/desertthunder/likesort/internal/ui"
	"github.com/urfave/cli/v3"
)

const tuiLogFile = "./tmp/likesort-tui.log"

// TUI runs a sync in the interactive terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	logCfg := r.config.Log
	if logCfg.File == "" {
		logCfg.File = tuiLogFile
	}
	fileLogger, err := shared.LoggerFromConfig(logCfg)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	engine, err := r.newEngine(cmd)
	if err != nil {
		return err
	}

	opts := tasks.SyncOptions{DryRun: cmd.Bool("dry-run"), Concurrency: r.config.Sync.Concurrency}
	model := ui.NewModel(ctx, engine, opts)
	model.OnComplete(func(result *tasks.SyncResult, runErr error) {
		r.persistToken()
		r.recordRun(result, runErr)
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
