package genres

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/likesort/internal/shared"
	"gopkg.in/yaml.v3"
)

//go:embed example_map.json
var exampleMap []byte

// Format is the encoding of a genre map file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from the file extension. Unknown extensions are read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// Load reads the genre map at path.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: genre map %s", shared.ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("%w: failed to read genre map: %v", shared.ErrInvalidConfig, err)
	}

	m, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a genre map, keeping the declaration order of its playlists.
func Parse(data []byte, format Format) (*Map, error) {
	var (
		entries []Entry
		err     error
	)

	switch format {
	case FormatJSON:
		entries, err = parseJSON(data)
	case FormatYAML:
		entries, err = parseYAML(data)
	case FormatTOML:
		entries, err = parseTOML(data)
	default:
		return nil, fmt.Errorf("%w: unsupported genre map format %q", shared.ErrInvalidConfig, format)
	}
	if err != nil {
		return nil, err
	}
	return NewMap(entries)
}

// WriteExample writes the bundled example map to path. An existing file is never overwritten.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("genre map already exists at %s", path)
	}
	if err := os.WriteFile(path, exampleMap, 0644); err != nil {
		return fmt.Errorf("failed to write genre map: %w", err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", shared.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// parseJSON walks the token stream since decoding into a Go map loses key order.
func parseJSON(data []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, invalid("malformed JSON: %v", err)
	}
	if tok != json.Delim('{') {
		return nil, invalid("genre map must be an object")
	}

	var entries []Entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, invalid("malformed JSON: %v", err)
		}
		name := tok.(string)

		tok, err = dec.Token()
		if err != nil {
			return nil, invalid("malformed JSON: %v", err)
		}
		if tok != json.Delim('[') {
			return nil, invalid("genres of %q must be a list of strings", name)
		}

		genres := []string{}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, invalid("malformed JSON: %v", err)
			}
			g, ok := tok.(string)
			if !ok {
				return nil, invalid("genres of %q must be a list of strings", name)
			}
			genres = append(genres, g)
		}
		if _, err := dec.Token(); err != nil {
			return nil, invalid("malformed JSON: %v", err)
		}

		entries = append(entries, Entry{Playlist: name, Genres: genres})
	}

	if _, err := dec.Token(); err != nil {
		return nil, invalid("malformed JSON: %v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, invalid("unexpected data after genre map")
	}
	return entries, nil
}

func parseYAML(data []byte) ([]Entry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, invalid("malformed YAML: %v", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, invalid("genre map is empty")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, invalid("genre map must be a mapping")
	}

	entries := make([]Entry, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return nil, invalid("playlist names must be strings")
		}
		if value.Kind != yaml.SequenceNode {
			return nil, invalid("genres of %q must be a list of strings", key.Value)
		}

		genres := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return nil, invalid("genres of %q must be a list of strings", key.Value)
			}
			genres = append(genres, item.Value)
		}
		entries = append(entries, Entry{Playlist: key.Value, Genres: genres})
	}
	return entries, nil
}

// parseTOML takes the order from the decoder metadata since the decoded map has none.
func parseTOML(data []byte) ([]Entry, error) {
	var raw map[string][]string
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, invalid("malformed TOML: %v", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, key := range md.Keys() {
		if len(key) != 1 {
			continue
		}
		genres, ok := raw[key[0]]
		if !ok {
			continue
		}
		if genres == nil {
			genres = []string{}
		}
		entries = append(entries, Entry{Playlist: key[0], Genres: genres})
	}
	return entries, nil
}
