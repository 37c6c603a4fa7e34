// Package catalog loads the embedded curriculum into the domain catalog.
// Content ships inside the binary; a deploy is the only way it changes.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/mentor-hub/code-mentor-bot/internal/domain/tutor"
)

//go:embed curriculum/*.yaml
var curriculumFS embed.FS

// trackFile is the on-disk shape of one language's curriculum.
type trackFile struct {
	Language string               `yaml:"language"`
	Levels   map[int]*tutor.Track `yaml:"levels"`
}

// Load parses every embedded curriculum file and builds the catalog.
// It fails on malformed YAML, duplicate languages and out-of-range quiz
// answers: bad content should stop a deploy, not surface mid-conversation.
func Load() (*tutor.Catalog, error) {
	return loadFrom(curriculumFS)
}

func loadFrom(fsys fs.FS) (*tutor.Catalog, error) {
	entries, err := fs.Glob(fsys, "curriculum/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob curriculum: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no curriculum files embedded")
	}

	tracks := make(map[tutor.Language]map[tutor.Level]*tutor.Track)

	for _, name := range entries {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		var file trackFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}

		if file.Language == "" {
			return nil, fmt.Errorf("%s: missing language", name)
		}
		lang := tutor.Language(file.Language)
		if _, dup := tracks[lang]; dup {
			return nil, fmt.Errorf("%s: duplicate language %q", name, lang)
		}
		if len(file.Levels) == 0 {
			return nil, fmt.Errorf("%s: no levels defined", name)
		}

		levels := make(map[tutor.Level]*tutor.Track, len(file.Levels))
		for lvl, track := range file.Levels {
			if err := validateTrack(track); err != nil {
				return nil, fmt.Errorf("%s level %d: %w", name, lvl, err)
			}
			levels[tutor.Level(lvl)] = track
		}
		tracks[lang] = levels
	}

	return tutor.NewCatalog(tracks), nil
}

func validateTrack(track *tutor.Track) error {
	if track == nil {
		return fmt.Errorf("empty track")
	}
	if len(track.Modules) == 0 {
		return fmt.Errorf("no modules")
	}
	for i, m := range track.Modules {
		if m.Title == "" {
			return fmt.Errorf("module %d: missing title", i)
		}
	}
	for i, q := range track.Quiz {
		if len(q.Options) == 0 {
			return fmt.Errorf("quiz %d: no options", i)
		}
		if q.Answer < 0 || q.Answer >= len(q.Options) {
			return fmt.Errorf("quiz %d: answer index %d out of range", i, q.Answer)
		}
	}
	return nil
}
