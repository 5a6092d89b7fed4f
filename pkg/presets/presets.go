// Package presets stores per-scene audio mixes: a named snapshot of each
// audio source's volume and mute flag, keyed by scene name. At most one
// preset exists per scene; saving replaces any prior preset for that scene.
package presets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/obsdeck/obsdeck/pkg/deckdir"
	"github.com/obsdeck/obsdeck/pkg/session"
	"gopkg.in/yaml.v3"
)

// Level is one source's saved audio state.
type Level struct {
	Volume float64 `yaml:"volume"`
	Muted  bool    `yaml:"muted"`
}

// Preset is a saved audio mix for one scene.
type Preset struct {
	Scene  string           `yaml:"scene"`
	Levels map[string]Level `yaml:"levels"`
}

// Store reads and writes presets inside a deck directory.
type Store struct {
	dir deckdir.Dir
}

// NewStore creates a Store over the given directory.
func NewStore(dir deckdir.Dir) *Store {
	return &Store{dir: dir}
}

// Save writes the preset, replacing any existing preset for the same scene.
func (s *Store) Save(p Preset) error {
	if p.Scene == "" {
		return errors.New("presets: scene name is required")
	}

	all, err := s.load()
	if err != nil {
		return err
	}
	all[p.Scene] = p

	return s.write(all)
}

// Load returns the preset for a scene and whether one exists.
func (s *Store) Load(scene string) (Preset, bool, error) {
	all, err := s.load()
	if err != nil {
		return Preset{}, false, err
	}
	p, ok := all[scene]
	return p, ok, nil
}

// All returns every stored preset sorted by scene name.
func (s *Store) All() ([]Preset, error) {
	all, err := s.load()
	if err != nil {
		return nil, err
	}

	out := make([]Preset, 0, len(all))
	for _, p := range all {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Scene < out[j].Scene })

	return out, nil
}

// Delete removes the preset for a scene. Missing preset is not an error.
func (s *Store) Delete(scene string) error {
	all, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := all[scene]; !ok {
		return nil
	}
	delete(all, scene)

	return s.write(all)
}

func (s *Store) load() (map[string]Preset, error) {
	data, err := os.ReadFile(s.dir.PresetsPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]Preset), nil
		}
		return nil, fmt.Errorf("presets: read: %w", err)
	}

	var all map[string]Preset
	if err := yaml.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("presets: parse: %w", err)
	}
	if all == nil {
		all = make(map[string]Preset)
	}

	return all, nil
}

func (s *Store) write(all map[string]Preset) error {
	if err := s.dir.Ensure(); err != nil {
		return fmt.Errorf("presets: %w", err)
	}

	data, err := yaml.Marshal(all)
	if err != nil {
		return fmt.Errorf("presets: marshal: %w", err)
	}

	if err := os.WriteFile(s.dir.PresetsPath(), data, 0o644); err != nil { //nolint:gosec // mix levels, not secrets
		return fmt.Errorf("presets: write: %w", err)
	}

	return nil
}

// Capture snapshots the session's current audio sources as a preset for
// the current scene. Returns an error when no scene is synchronized.
func Capture(sess *session.Session) (Preset, error) {
	scene := sess.Store().CurrentScene()
	if scene == "" {
		return Preset{}, errors.New("presets: no current scene to capture")
	}

	levels := make(map[string]Level)
	for _, src := range sess.Store().AudioSources() {
		levels[src.Name] = Level{Volume: src.Volume, Muted: src.Muted}
	}

	return Preset{Scene: scene, Levels: levels}, nil
}

// Apply replays a preset through the session's command surface. Sources
// named in the preset that no longer exist remotely surface as command
// errors; the remaining levels are still applied.
func Apply(ctx context.Context, sess *session.Session, p Preset) error {
	names := make([]string, 0, len(p.Levels))
	for name := range p.Levels {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		level := p.Levels[name]
		if err := sess.SetAudioVolume(ctx, name, level.Volume); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := sess.ToggleAudioMute(ctx, name, level.Muted); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
