package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/likesort/internal/formatter"
	"github.com/desertthunder/likesort/internal/repositories"
	"github.com/desertthunder/likesort/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SyncRun runs a full sync, reports every outcome and records the run.
//
// A fatal error still reports the partial result before it is returned.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	engine, err := r.newEngine(cmd)
	if err != nil {
		return err
	}

	opts := tasks.SyncOptions{
		DryRun:      cmd.Bool("dry-run"),
		Concurrency: r.config.Sync.Concurrency,
	}
	if c := cmd.Int("concurrency"); c > 0 {
		opts.Concurrency = c
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Debug(update.Message, "phase", update.Phase)
		}
	}()

	r.logger.Info("starting sync", "dry_run", opts.DryRun, "concurrency", opts.Concurrency)
	result, runErr := engine.Run(ctx, opts, progress)
	close(progress)
	<-done

	r.persistToken()
	r.recordRun(result, runErr)

	if err := r.report(result, runErr, format, cmd.String("output")); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("sync aborted: %w", runErr)
	}
	return nil
}

func (r *Runner) report(result *tasks.SyncResult, runErr error, format formatter.Format, path string) error {
	if result == nil {
		return nil
	}
	if path != "" {
		if err := formatter.WriteReport(result, runErr, format, path); err != nil {
			return err
		}
		r.logger.Info("report written", "path", path, "format", format)
		return r.writePlain("%s\n", formatter.Summary(result))
	}

	data, err := formatter.Render(result, runErr, format)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

// History prints recent runs from the run history database.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	return r.withRuns(func(repo *repositories.RunRepository) error {
		runs, err := repo.List(cmd.Int("limit"))
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			data, err := formatter.HistoryJSON(runs)
			if err != nil {
				return err
			}
			return r.writeBytes(append(data, '\n'))
		}
		return r.writePlain("%s\n", formatter.HistoryTable(runs))
	})
}
