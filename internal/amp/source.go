package amp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/danmuck/essentiactl/internal/config"
	"github.com/rs/zerolog/log"
)

// SourceSwitch routes a configured source to its enabled zones.
//
// Selecting a source sets its input on every enabled zone. Deselecting it
// restores each zone's default source, or the lowest-numbered source still
// selected on that zone. Selection state is process-local.
type SourceSwitch struct {
	client *Client
	layout config.Layout

	mu     sync.Mutex
	active map[int]bool
}

func NewSourceSwitch(client *Client, layout config.Layout) *SourceSwitch {
	return &SourceSwitch{client: client, layout: layout, active: make(map[int]bool)}
}

func (s *SourceSwitch) IsOn(source int) (bool, error) {
	if _, ok := s.layout.Source(source); !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownSource, source)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[source], nil
}

// Active lists selected source ids in ascending order.
func (s *SourceSwitch) Active() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.active))
	for id, on := range s.active {
		if on {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// SetOn selects or deselects source. With turn_off_other_sources, selecting
// it also deselects every selected source sharing a zone, and the zones those
// sources reach outside this one fall back as if each had been deselected.
func (s *SourceSwitch) SetOn(ctx context.Context, source int, on bool) error {
	sc, ok := s.layout.Source(source)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSource, source)
	}

	s.mu.Lock()
	s.active[source] = on
	var deselected []config.SourceConfig
	if on && sc.TurnOffOtherSources {
		for _, other := range s.layout.Sources {
			if other.ID != source && sharesZone(sc, other) && s.active[other.ID] {
				log.Debug().Int("source", source).Int("deselected", other.ID).Msg("amp.SourceSwitch.SetOn turn off other")
				s.active[other.ID] = false
				deselected = append(deselected, other)
			}
		}
	}
	var routes []route
	for _, zone := range sc.EnabledZones {
		if on {
			routes = append(routes, route{source: source, zone: zone, input: sc.InputID})
			continue
		}
		routes = append(routes, route{source: source, zone: zone, input: s.fallbackLocked(zone)})
	}
	for _, other := range deselected {
		for _, zone := range other.EnabledZones {
			if slices.Contains(sc.EnabledZones, zone) || slices.ContainsFunc(routes, func(r route) bool { return r.zone == zone }) {
				continue
			}
			routes = append(routes, route{source: other.ID, zone: zone, input: s.fallbackLocked(zone)})
		}
	}
	s.mu.Unlock()

	var errs []error
	for _, r := range routes {
		if r.input <= 0 {
			log.Debug().Int("source", r.source).Int("zone", r.zone).Msg("amp.SourceSwitch.SetOn no fallback source")
			continue
		}
		confirmed, err := s.client.SetSource(ctx, r.zone, r.input)
		if err != nil {
			errs = append(errs, fmt.Errorf("amp: source %d zone %d: %w", r.source, r.zone, err))
			continue
		}
		if !confirmed {
			log.Warn().Int("zone", r.zone).Int("input", r.input).Msg("amp.SourceSwitch.SetOn not confirmed")
		}
	}
	return errors.Join(errs...)
}

// route is one SRC command: zone switched to input on behalf of source.
type route struct {
	source int
	zone   int
	input  int
}

func (s *SourceSwitch) fallbackLocked(zone int) int {
	if zc, ok := s.layout.Zone(zone); ok && zc.DefaultSourceID > 0 {
		return zc.DefaultSourceID
	}
	best := 0
	for _, other := range s.layout.Sources {
		if !s.active[other.ID] || !slices.Contains(other.EnabledZones, zone) {
			continue
		}
		if best == 0 || other.ID < best {
			best = other.ID
		}
	}
	if best == 0 {
		return 0
	}
	src, _ := s.layout.Source(best)
	return src.InputID
}

func sharesZone(a, b config.SourceConfig) bool {
	for _, z := range a.EnabledZones {
		if slices.Contains(b.EnabledZones, z) {
			return true
		}
	}
	return false
}
