package genres

// Score is the number of tags that matched one playlist.
type Score struct {
	Playlist string
	Count    int
}

// Classifier resolves genre tags to a single playlist.
type Classifier struct {
	m *Map
}

// NewClassifier creates a [Classifier] over m.
func NewClassifier(m *Map) *Classifier {
	return &Classifier{m: m}
}

// Map returns the genre map the classifier reads.
func (c *Classifier) Map() *Map { return c.m }

// Scores counts tag matches per playlist in declaration order.
// A tag listed under several playlists counts for each of them.
func (c *Classifier) Scores(tags []string) []Score {
	scores := make([]Score, len(c.m.entries))
	for i, e := range c.m.entries {
		scores[i].Playlist = e.Playlist
	}

	for _, tag := range tags {
		tag = Normalize(tag)
		for i := range c.m.entries {
			if _, ok := c.m.sets[i][tag]; ok {
				scores[i].Count++
			}
		}
	}
	return scores
}

// Classify returns the playlist with the most matching tags. Ties go to the playlist declared
// first, and tracks matching nothing, including those without tags, go to [Fallback].
func (c *Classifier) Classify(tags []string) string {
	best, bestCount := Fallback, 0
	for _, s := range c.Scores(tags) {
		if s.Count > bestCount {
			best, bestCount = s.Playlist, s.Count
		}
	}
	return best
}
