// Package content loads the game's world, puzzles, achievements and stories
// from YAML. The default pack is embedded; a directory can override it.
package content

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tatianab/ravi-adventure/internal/achievement"
	gerrors "github.com/tatianab/ravi-adventure/internal/errors"
	"github.com/tatianab/ravi-adventure/internal/models"
	"github.com/tatianab/ravi-adventure/internal/puzzle"
	"github.com/tatianab/ravi-adventure/internal/story"
)

//go:embed data/*.yaml
var embedded embed.FS

// Pack file names.
const (
	WorldFile        = "world.yaml"
	PuzzlesFile      = "puzzles.yaml"
	AchievementsFile = "achievements.yaml"
	StoriesFile      = "stories.yaml"
)

// Pack is a fully parsed content set. Story and chapter values carry
// progress, so every game needs a freshly loaded Pack.
type Pack struct {
	World        models.World
	Puzzles      []*puzzle.Definition
	Achievements []*achievement.Definition
	Stories      []*story.Story
}

// Loader reads and validates content packs.
type Loader struct {
	fsys   fs.FS
	source string
	logger *slog.Logger
}

// NewLoader returns a loader for dir, or for the embedded pack when dir is
// empty.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if dir == "" {
		sub, _ := fs.Sub(embedded, "data")
		return &Loader{fsys: sub, source: "embedded", logger: logger}
	}
	return &Loader{fsys: os.DirFS(dir), source: dir, logger: logger}
}

// NewFSLoader returns a loader reading from fsys.
func NewFSLoader(fsys fs.FS, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{fsys: fsys, source: "fs", logger: logger}
}

// Load parses and validates every file of the pack.
func (l *Loader) Load() (*Pack, error) {
	var p Pack
	files := []struct {
		name string
		into any
	}{
		{WorldFile, &p.World},
		{PuzzlesFile, &p.Puzzles},
		{AchievementsFile, &p.Achievements},
		{StoriesFile, &p.Stories},
	}
	for _, f := range files {
		data, err := fs.ReadFile(l.fsys, f.name)
		if err != nil {
			return nil, gerrors.NewGameError(gerrors.ErrCodeContentInvalid, "failed to read "+f.name, err)
		}
		if err := yaml.Unmarshal(data, f.into); err != nil {
			return nil, gerrors.NewGameError(gerrors.ErrCodeContentInvalid, "failed to parse "+f.name, err)
		}
	}

	if err := Validate(&p); err != nil {
		return nil, err
	}

	l.logger.Info("content loaded",
		"source", l.source,
		"locations", len(p.World.Locations),
		"items", len(p.World.Items),
		"puzzles", len(p.Puzzles),
		"achievements", len(p.Achievements),
		"stories", len(p.Stories),
	)
	return &p, nil
}

// LoadDefault loads the embedded pack.
func LoadDefault() (*Pack, error) {
	return NewLoader("", nil).Load()
}

// Location returns the location with key, or UnknownLocation.
func (p *Pack) Location(key string) models.Location {
	for _, loc := range p.World.Locations {
		if loc.Key == key {
			return loc
		}
	}
	return models.UnknownLocation
}

// Item returns the item with name.
func (p *Pack) Item(name string) (models.Item, bool) {
	for _, it := range p.World.Items {
		if it.Name == name {
			return it, true
		}
	}
	return models.Item{}, false
}

func invalid(format string, args ...any) error {
	return gerrors.ErrContentInvalid(fmt.Sprintf(format, args...))
}
