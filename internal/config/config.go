package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danmuck/essentiactl/internal/protocol"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidLayout     = errors.New("config: invalid layout")
	ErrUnsupportedFormat = errors.New("config: unsupported layout format")
)

const DefaultVolume = 40

// Layout describes the zones and sources wired to the amplifier.
type Layout struct {
	// DefaultVolume applies to zones without their own volume.
	DefaultVolume int `toml:"default_volume" yaml:"default_volume"`
	// MuteInsteadOfRelay switches zones with MTON/MTOFF instead of ON/OFF.
	MuteInsteadOfRelay bool           `toml:"mute_instead_of_relay" yaml:"mute_instead_of_relay"`
	Zones              []ZoneConfig   `toml:"zones" yaml:"zones"`
	Sources            []SourceConfig `toml:"sources" yaml:"sources"`
}

type ZoneConfig struct {
	ID     int    `toml:"id" yaml:"id"`
	Name   string `toml:"name" yaml:"name"`
	Volume *int   `toml:"volume,omitempty" yaml:"volume,omitempty"`
	Treble int    `toml:"treble" yaml:"treble"`
	Bass   int    `toml:"bass" yaml:"bass"`
	// DefaultSourceID is the amplifier input restored when a source is deselected.
	DefaultSourceID int `toml:"default_source_id" yaml:"default_source_id"`
}

type SourceConfig struct {
	ID   int    `toml:"id" yaml:"id"`
	Name string `toml:"name" yaml:"name"`
	// InputID is the amplifier input (1-9). Defaults to ID.
	InputID             int   `toml:"input_id" yaml:"input_id"`
	EnabledZones        []int `toml:"enabled_zones" yaml:"enabled_zones"`
	TurnOffOtherSources bool  `toml:"turn_off_other_sources" yaml:"turn_off_other_sources"`
}

func DefaultLayout() Layout {
	return Layout{DefaultVolume: DefaultVolume}
}

// ZoneVolume is the zone's configured volume or the layout default.
func (l Layout) ZoneVolume(z ZoneConfig) int {
	if z.Volume != nil {
		return *z.Volume
	}
	return l.DefaultVolume
}

func (l Layout) Zone(id int) (ZoneConfig, bool) {
	for _, z := range l.Zones {
		if z.ID == id {
			return z, true
		}
	}
	return ZoneConfig{}, false
}

func (l Layout) Source(id int) (SourceConfig, bool) {
	for _, s := range l.Sources {
		if s.ID == id {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// LoadLayout reads a .toml, .yaml or .yml layout file, fills defaults and
// validates the result.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	layout := DefaultLayout()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&layout)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&layout)
	default:
		return Layout{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return Layout{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	layout = applyLayoutDefaults(layout)
	if err := ValidateLayout(layout); err != nil {
		return Layout{}, fmt.Errorf("%s: %w", path, err)
	}
	return layout, nil
}

func applyLayoutDefaults(l Layout) Layout {
	for i := range l.Zones {
		if strings.TrimSpace(l.Zones[i].Name) == "" {
			l.Zones[i].Name = fmt.Sprintf("Zone %d", l.Zones[i].ID)
		}
	}
	for i := range l.Sources {
		if strings.TrimSpace(l.Sources[i].Name) == "" {
			l.Sources[i].Name = fmt.Sprintf("Source %d", l.Sources[i].ID)
		}
		if l.Sources[i].InputID == 0 {
			l.Sources[i].InputID = l.Sources[i].ID
		}
	}
	return l
}

func ValidateLayout(l Layout) error {
	if !inRange(l.DefaultVolume, protocol.MinVolume, protocol.MaxVolume) {
		return fmt.Errorf("%w: default_volume %d out of range", ErrInvalidLayout, l.DefaultVolume)
	}
	zones := make(map[int]bool, len(l.Zones))
	for i, z := range l.Zones {
		if err := ValidateZone(z); err != nil {
			return fmt.Errorf("%w: zone[%d]: %w", ErrInvalidLayout, i, err)
		}
		if zones[z.ID] {
			return fmt.Errorf("%w: zone[%d]: duplicate id %d", ErrInvalidLayout, i, z.ID)
		}
		zones[z.ID] = true
	}
	sources := make(map[int]bool, len(l.Sources))
	for i, s := range l.Sources {
		if err := ValidateSource(s); err != nil {
			return fmt.Errorf("%w: source[%d]: %w", ErrInvalidLayout, i, err)
		}
		if sources[s.ID] {
			return fmt.Errorf("%w: source[%d]: duplicate id %d", ErrInvalidLayout, i, s.ID)
		}
		sources[s.ID] = true
		for _, zid := range s.EnabledZones {
			if !zones[zid] {
				return fmt.Errorf("%w: source[%d]: enabled zone %d is not configured", ErrInvalidLayout, i, zid)
			}
		}
	}
	return nil
}

func ValidateZone(z ZoneConfig) error {
	if !inRange(z.ID, protocol.MinZone, protocol.MaxZone) {
		return fmt.Errorf("id %d out of range %d..%d", z.ID, protocol.MinZone, protocol.MaxZone)
	}
	if z.Volume != nil && !inRange(*z.Volume, protocol.MinVolume, protocol.MaxVolume) {
		return fmt.Errorf("volume %d out of range", *z.Volume)
	}
	if !inRange(z.Treble, protocol.MinTone, protocol.MaxTone) {
		return fmt.Errorf("treble %d out of range", z.Treble)
	}
	if !inRange(z.Bass, protocol.MinTone, protocol.MaxTone) {
		return fmt.Errorf("bass %d out of range", z.Bass)
	}
	if z.DefaultSourceID != 0 && !inRange(z.DefaultSourceID, protocol.MinSource, protocol.MaxSource) {
		return fmt.Errorf("default_source_id %d out of range", z.DefaultSourceID)
	}
	return nil
}

func ValidateSource(s SourceConfig) error {
	if s.ID <= 0 {
		return fmt.Errorf("id is required")
	}
	if !inRange(s.InputID, protocol.MinSource, protocol.MaxSource) {
		return fmt.Errorf("input_id %d out of range %d..%d", s.InputID, protocol.MinSource, protocol.MaxSource)
	}
	return nil
}

func inRange(v, lo, hi int) bool {
	return v >= lo && v <= hi
}
