package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/likesort/internal/genres"
	"github.com/desertthunder/likesort/internal/shared"
	"github.com/urfave/cli/v3"
)

// GenresInit writes the example genre map.
func (r *Runner) GenresInit(ctx context.Context, cmd *cli.Command) error {
	path := r.genreMapPath(cmd)
	if err := genres.WriteExample(path); err != nil {
		return err
	}
	return r.writePlain("✓ Example genre map written to %s\n", path)
}

// GenresCheck validates the genre map and prints its entries in declaration order.
func (r *Runner) GenresCheck(ctx context.Context, cmd *cli.Command) error {
	path := r.genreMapPath(cmd)
	m, err := genres.Load(path)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✓ %s: %d playlists\n\n", path, m.Len())
	for i, e := range m.Entries() {
		fmt.Fprintf(&b, "%d. %s (%d genres)\n", i+1, e.Playlist, len(e.Genres))
		if len(e.Genres) > 0 {
			fmt.Fprintf(&b, "   %s\n", strings.Join(e.Genres, ", "))
		}
	}
	fmt.Fprintf(&b, "\nUnmatched tracks go to %q\n", genres.Fallback)
	return r.writePlain("%s", b.String())
}

// GenresClassify prints the playlists each tag matches, the score of each playlist and the winner.
func (r *Runner) GenresClassify(ctx context.Context, cmd *cli.Command) error {
	tags := cmd.Args().Slice()
	if len(tags) == 0 {
		return fmt.Errorf("%w: at least one genre tag", shared.ErrMissingArgument)
	}

	m, err := genres.Load(r.genreMapPath(cmd))
	if err != nil {
		return err
	}
	classifier := genres.NewClassifier(m)

	var b strings.Builder
	for _, tag := range tags {
		var matches []string
		for _, p := range m.Playlists() {
			if m.Contains(p, tag) {
				matches = append(matches, p)
			}
		}
		if len(matches) == 0 {
			matches = []string{"-"}
		}
		fmt.Fprintf(&b, "%-16s %s\n", genres.Normalize(tag), strings.Join(matches, ", "))
	}
	b.WriteString("\n")
	for _, s := range classifier.Scores(tags) {
		fmt.Fprintf(&b, "%-16s %d\n", s.Playlist, s.Count)
	}
	fmt.Fprintf(&b, "\n→ %s\n", classifier.Classify(tags))
	return r.writePlain("%s", b.String())
}
