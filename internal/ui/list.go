package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/likesort/internal/models"
)

var _ list.Item = tallyItem{}

// tallyItem wraps [models.PlaylistTally] to implement [list.Item].
type tallyItem struct {
	tally  models.PlaylistTally
	dryRun bool
}

func (i tallyItem) FilterValue() string { return i.tally.Playlist }
func (i tallyItem) Title() string       { return fmt.Sprintf("%s (%d)", i.tally.Playlist, i.tally.Sum()) }
func (i tallyItem) Description() string {
	parts := []string{fmt.Sprintf("%d added", i.tally.Added), fmt.Sprintf("%d present", i.tally.AlreadyPresent)}
	if i.dryRun {
		parts = append(parts, fmt.Sprintf("%d planned", i.tally.Planned))
	}
	if i.tally.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", i.tally.Failed))
	}
	return strings.Join(parts, " • ")
}

func tallyItems(tallies []models.PlaylistTally, dryRun bool) []list.Item {
	items := make([]list.Item, len(tallies))
	for i, t := range tallies {
		items[i] = tallyItem{tally: t, dryRun: dryRun}
	}
	return items
}
