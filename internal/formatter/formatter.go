// package formatter renders sync results and run history as plain text, JSON, CSV or Markdown
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/likesort/internal/models"
	"github.com/desertthunder/likesort/internal/shared"
	"github.com/desertthunder/likesort/internal/tasks"
)

// Format selects a report encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// Formats lists the supported report formats.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatCSV, FormatMarkdown}
}

// ParseFormat maps a flag value to a [Format]. "md" is accepted for Markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
}

// OutcomeRecord is the flattened, serializable form of a [tasks.TrackOutcome].
type OutcomeRecord struct {
	TrackID    string `json:"track_id"`
	Track      string `json:"track"`
	Playlist   string `json:"playlist,omitempty"`
	PlaylistID string `json:"playlist_id,omitempty"`
	Status     string `json:"status"`
	Kind       string `json:"kind,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Report is the JSON document produced for a run.
type Report struct {
	*models.SyncRun
	Created  []models.PlaylistRef `json:"created"`
	Outcomes []OutcomeRecord      `json:"outcomes"`
}

// NewReport builds the serializable report for result. runErr is the error that ended the run, if any.
func NewReport(result *tasks.SyncResult, runErr error) *Report {
	report := &Report{
		SyncRun:  result.Summary(runErr),
		Created:  result.Created,
		Outcomes: make([]OutcomeRecord, 0, len(result.Outcomes)),
	}
	if report.Created == nil {
		report.Created = []models.PlaylistRef{}
	}
	for _, o := range result.Outcomes {
		report.Outcomes = append(report.Outcomes, toRecord(o))
	}
	return report
}

func toRecord(o tasks.TrackOutcome) OutcomeRecord {
	rec := OutcomeRecord{
		TrackID:    o.Track.ID,
		Track:      o.Track.Label(),
		Playlist:   o.Playlist,
		PlaylistID: o.PlaylistID,
		Status:     string(o.Status),
	}
	if o.Err != nil {
		rec.Kind = o.Kind()
		rec.Error = o.Err.Error()
	}
	return rec
}

// Render encodes result in the given format.
func Render(result *tasks.SyncResult, runErr error, format Format) ([]byte, error) {
	switch format {
	case FormatText, "":
		return ReportText(result, runErr), nil
	case FormatJSON:
		return ReportJSON(result, runErr)
	case FormatCSV:
		return ReportCSV(result)
	case FormatMarkdown:
		return ReportMarkdown(result, runErr), nil
	}
	return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
}

// ReportText renders one line per track followed by a summary.
func ReportText(result *tasks.SyncResult, runErr error) []byte {
	var buf bytes.Buffer

	for _, p := range result.Created {
		if result.DryRun {
			buf.WriteString(fmt.Sprintf("would create playlist: %s\n", p.Name))
			continue
		}
		buf.WriteString(fmt.Sprintf("created playlist: %s (%s)\n", p.Name, p.ID))
	}
	for _, o := range result.Outcomes {
		buf.WriteString(o.String())
		buf.WriteByte('\n')
	}

	buf.WriteByte('\n')
	buf.WriteString(Summary(result))
	buf.WriteByte('\n')
	if runErr != nil {
		buf.WriteString(fmt.Sprintf("run aborted (%s): %v\n", shared.Kind(runErr), runErr))
	}
	return buf.Bytes()
}

// Summary is the one-line count summary of a run.
func Summary(result *tasks.SyncResult) string {
	var b strings.Builder
	if result.DryRun {
		b.WriteString("dry run: ")
	}
	b.WriteString(fmt.Sprintf("%d tracks, %d added, %d already present", result.Total(), result.Added, result.AlreadyPresent))
	if result.DryRun {
		b.WriteString(fmt.Sprintf(", %d planned", result.Planned))
	}
	b.WriteString(fmt.Sprintf(", %d failed", result.Failed))
	if n := len(result.Created); n > 0 && result.DryRun {
		b.WriteString(fmt.Sprintf(", %d playlists to create", n))
	} else if n > 0 {
		b.WriteString(fmt.Sprintf(", %d playlists created", n))
	}
	if d := duration(result.StartedAt, result.FinishedAt); d > 0 {
		b.WriteString(fmt.Sprintf(" in %s", d))
	}
	return b.String()
}

// ReportJSON encodes the [Report] for result with two-space indentation.
func ReportJSON(result *tasks.SyncResult, runErr error) ([]byte, error) {
	data, err := shared.MarshalJSON(NewReport(result, runErr), true)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// ReportCSV writes one row per outcome with columns: Track ID, Track, Playlist, Playlist ID, Status, Kind, Error
func ReportCSV(result *tasks.SyncResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Track ID", "Track", "Playlist", "Playlist ID", "Status", "Kind", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, o := range result.Outcomes {
		rec := toRecord(o)
		record := []string{rec.TrackID, rec.Track, rec.Playlist, rec.PlaylistID, rec.Status, rec.Kind, rec.Error}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ReportMarkdown renders a per-playlist table and the list of failures.
func ReportMarkdown(result *tasks.SyncResult, runErr error) []byte {
	var buf bytes.Buffer

	title := "Sync run"
	if result.DryRun {
		title = "Sync run (dry run)"
	}
	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	if result.RunID != "" {
		buf.WriteString(fmt.Sprintf("**Run**: %s\n", result.RunID))
	}
	if !result.StartedAt.IsZero() {
		buf.WriteString(fmt.Sprintf("**Started**: %s\n", result.StartedAt.Format(time.RFC3339)))
	}
	buf.WriteString(fmt.Sprintf("**Summary**: %s\n\n", Summary(result)))

	if runErr != nil {
		buf.WriteString(fmt.Sprintf("> Run aborted (%s): %v\n\n", shared.Kind(runErr), runErr))
	}

	if len(result.Created) > 0 {
		if result.DryRun {
			buf.WriteString("## Playlists to create\n\n")
		} else {
			buf.WriteString("## Created playlists\n\n")
		}
		for _, p := range result.Created {
			buf.WriteString(fmt.Sprintf("- %s\n", p.Name))
		}
		buf.WriteByte('\n')
	}

	buf.WriteString("## Playlists\n\n")
	buf.WriteString("| Playlist | Added | Already present | Planned | Failed |\n")
	buf.WriteString("|---|---:|---:|---:|---:|\n")
	for _, t := range result.Tallies() {
		buf.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d |\n", t.Playlist, t.Added, t.AlreadyPresent, t.Planned, t.Failed))
	}

	var failures []tasks.TrackOutcome
	for _, o := range result.Outcomes {
		if o.Status == tasks.StatusFailed {
			failures = append(failures, o)
		}
	}
	if len(failures) > 0 {
		buf.WriteString("\n## Failures\n\n")
		for i, o := range failures {
			buf.WriteString(fmt.Sprintf("%d. %s [%s]: %v\n", i+1, o.Track.Label(), o.Kind(), o.Err))
		}
	}

	return buf.Bytes()
}

// WriteReport renders result and writes it to path.
func WriteReport(result *tasks.SyncResult, runErr error, format Format, path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty output path", shared.ErrMissingArgument)
	}
	data, err := Render(result, runErr, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// HistoryTable renders stored runs as a bordered table, newest first as given.
func HistoryTable(runs []*models.SyncRun) string {
	if len(runs) == 0 {
		return "no runs recorded"
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		mode := "sync"
		if run.DryRun {
			mode = "dry run"
		}
		status := "ok"
		if run.Error != "" {
			status = "aborted"
		}
		rows = append(rows, []string{
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			mode,
			strconv.Itoa(run.Total),
			strconv.Itoa(run.Added),
			strconv.Itoa(run.AlreadyPresent),
			strconv.Itoa(run.Planned),
			strconv.Itoa(run.Failed),
			status,
			shortID(run.RunID),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("STARTED", "MODE", "TOTAL", "ADDED", "PRESENT", "PLANNED", "FAILED", "STATUS", "RUN").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

// HistoryJSON encodes stored runs as an indented JSON array.
func HistoryJSON(runs []*models.SyncRun) ([]byte, error) {
	if runs == nil {
		runs = []*models.SyncRun{}
	}
	return shared.MarshalJSON(runs, true)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func duration(start, end time.Time) time.Duration {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return 0
	}
	return end.Sub(start).Round(time.Millisecond)
}
