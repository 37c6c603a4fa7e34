// Package tutor contains the tutoring domain: the read-only curriculum
// catalog, the per-user session entity and the persistence port.
//
// The catalog is static content keyed by (language, level). The core never
// mutates it; every lookup is bounds-checked and returns an explicit "not
// found" instead of panicking on a bad index.
package tutor

import (
	"sort"
	"strings"
)

// Language identifies a learning track, e.g. "python", "go", "sec_pentesting".
type Language string

// Level is a zero-based difficulty level within a language track.
type Level int

// Module is one lesson unit: a short lesson, an example snippet, and
// suggested exercises and tasks.
type Module struct {
	Title     string   `yaml:"title"`
	Lesson    string   `yaml:"lesson"`
	Example   string   `yaml:"example"`
	Exercises []string `yaml:"exercises"`
	Tasks     []string `yaml:"tasks"`
}

// QuizQuestion is a multiple-choice question. Answer is the zero-based index
// into Options.
type QuizQuestion struct {
	Question string   `yaml:"question"`
	Options  []string `yaml:"options"`
	Answer   int      `yaml:"answer"`
}

// CommonError describes one entry of a level's common-error catalog.
type CommonError struct {
	Name    string `yaml:"name"`
	Cause   string `yaml:"cause"`
	Remedy  string `yaml:"remedy"`
	Example string `yaml:"example"`
}

// Track is the curriculum for one (language, level) pair.
type Track struct {
	Modules []Module       `yaml:"modules"`
	Quiz    []QuizQuestion `yaml:"quiz"`
	Errors  []CommonError  `yaml:"errors"`
}

// ModuleCount returns the number of modules in the track.
func (t *Track) ModuleCount() int { return len(t.Modules) }

// QuizCount returns the number of quiz questions in the track.
func (t *Track) QuizCount() int { return len(t.Quiz) }

// ModuleAt returns the module at idx, or false when idx is out of range.
func (t *Track) ModuleAt(idx int) (Module, bool) {
	if idx < 0 || idx >= len(t.Modules) {
		return Module{}, false
	}
	return t.Modules[idx], true
}

// QuestionAt returns the quiz question at idx, or false when idx is out of range.
func (t *Track) QuestionAt(idx int) (QuizQuestion, bool) {
	if idx < 0 || idx >= len(t.Quiz) {
		return QuizQuestion{}, false
	}
	return t.Quiz[idx], true
}

// Catalog is the full read-only curriculum, keyed by language and level.
type Catalog struct {
	tracks map[Language]map[Level]*Track
}

// NewCatalog builds a catalog from the given track table.
func NewCatalog(tracks map[Language]map[Level]*Track) *Catalog {
	if tracks == nil {
		tracks = make(map[Language]map[Level]*Track)
	}
	return &Catalog{tracks: tracks}
}

// Lookup returns the track for (lang, level), or false when either the
// language or the level does not exist.
func (c *Catalog) Lookup(lang Language, level Level) (*Track, bool) {
	levels, ok := c.tracks[lang]
	if !ok {
		return nil, false
	}
	track, ok := levels[level]
	return track, ok
}

// Has reports whether (lang, level) exists in the catalog.
func (c *Catalog) Has(lang Language, level Level) bool {
	_, ok := c.Lookup(lang, level)
	return ok
}

// Languages returns the supported languages in sorted order.
func (c *Catalog) Languages() []Language {
	langs := make([]Language, 0, len(c.tracks))
	for lang := range c.tracks {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}

// Levels returns the available levels for a language in ascending order.
func (c *Catalog) Levels(lang Language) []Level {
	tracks, ok := c.tracks[lang]
	if !ok {
		return nil
	}
	levels := make([]Level, 0, len(tracks))
	for lvl := range tracks {
		levels = append(levels, lvl)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })
	return levels
}

// LanguageList renders the supported languages as a comma-separated string
// for user-facing usage hints.
func (c *Catalog) LanguageList() string {
	langs := c.Languages()
	parts := make([]string, len(langs))
	for i, l := range langs {
		parts[i] = string(l)
	}
	return strings.Join(parts, ", ")
}
