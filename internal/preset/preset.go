// Package preset reads and writes the declarative generation rule sets
// named Preset in spec.md §3, stored one JSON file per preset under
// <data_root>/presets/<name>.json (spec.md §6). Persistence follows
// internal/store's atomic-write idiom rather than introducing a database,
// for the same reason the cache itself is file-based (see DESIGN.md).
package preset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cesargomez89/navidrums/internal/apierr"
	"github.com/cesargomez89/navidrums/internal/domain"
	"github.com/cesargomez89/navidrums/internal/storage"
)

// DefaultName is the preset used when a request names none.
const DefaultName = "default"

// Store is the on-disk preset repository rooted at a presets directory.
type Store struct {
	dir string
}

// New opens (creating if absent) the presets directory at dir.
func New(dir string) (*Store, error) {
	if err := storage.EnsureDir(dir); err != nil {
		return nil, apierr.IOError("failed to create presets directory", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, storage.Sanitize(name)+".json")
}

// Get loads a named preset, falling back to domain.DefaultPreset() for the
// reserved name "default" when no file has been saved for it yet.
func (s *Store) Get(name string) (domain.Preset, error) {
	if name == "" {
		name = DefaultName
	}
	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		if name == DefaultName {
			return domain.DefaultPreset(), nil
		}
		return domain.Preset{}, apierr.NotFound("preset %q not found", name)
	}
	if err != nil {
		return domain.Preset{}, apierr.IOError("failed to read preset "+name, err)
	}
	var p domain.Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Preset{}, apierr.Internal("preset "+name+" is corrupt", err)
	}
	return p, nil
}

// Save persists a preset under its own Name.
func (s *Store) Save(p domain.Preset) error {
	if p.Name == "" {
		return apierr.InvalidArgument("preset name is required")
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return apierr.Internal("failed to marshal preset", err)
	}
	if err := storage.WriteFileAtomic(s.path(p.Name), data); err != nil {
		return apierr.IOError("failed to write preset "+p.Name, err)
	}
	return nil
}

// List returns every saved preset plus the built-in default, sorted by name,
// deduplicated so an on-disk "default.json" overrides the built-in.
func (s *Store) List() ([]domain.Preset, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, apierr.IOError("failed to list presets directory", err)
	}

	byName := map[string]domain.Preset{DefaultName: domain.DefaultPreset()}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		p, err := s.Get(name)
		if err != nil {
			continue
		}
		byName[name] = p
	}

	out := make([]domain.Preset, 0, len(byName))
	for _, p := range byName {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Resolve returns base with any custom_rules overrides from a generation
// request applied on top, and with its curve replaced by the named curve
// when curve is non-empty. Keys absent from overrides leave the base
// unchanged; a key that is present is applied even when its value is zero.
// Name/Description are never overridden by custom_rules.
func Resolve(base domain.Preset, overrides map[string]float64, curve string) domain.Preset {
	p := base
	if curve != "" {
		p.NamedCurve = domain.CurveName(curve)
		p.TargetEnergyCurve = nil
	}
	for key, v := range overrides {
		switch key {
		case "min_bpm":
			p.BPMRange[0] = v
		case "max_bpm":
			p.BPMRange[1] = v
		case "min_energy":
			p.EnergyRange[0] = v
		case "max_energy":
			p.EnergyRange[1] = v
		case "harmony_strictness":
			p.HarmonyStrictness = v
		case "mood_consistency":
			p.MoodConsistency = v
		case "max_bpm_jump":
			p.MaxBPMJump = v
		case "avoid_same_artist_window":
			p.AvoidSameArtistWindow = int(v)
		case "min_track_duration":
			p.MinTrackDuration = v
		case "max_track_duration":
			p.MaxTrackDuration = v
		case "weight_harmony":
			p.Weights[0] = v
		case "weight_bpm":
			p.Weights[1] = v
		case "weight_energy":
			p.Weights[2] = v
		case "weight_mood":
			p.Weights[3] = v
		case "weight_surprise":
			p.Weights[4] = v
		}
	}
	return p
}
