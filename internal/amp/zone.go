package amp

import (
	"context"
	"errors"
	"fmt"

	"github.com/danmuck/essentiactl/internal/config"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownZone   = errors.New("amp: zone not configured")
	ErrUnknownSource = errors.New("amp: source not configured")
)

// ZoneSwitch treats a configured zone as one on/off switch.
//
// With MuteInsteadOfRelay the zone relay stays powered and on/off maps to
// MTOFF/MTON; otherwise it maps to ON/OFF. Switching on re-applies the zone's
// volume, treble and bass.
type ZoneSwitch struct {
	client *Client
	layout config.Layout
}

func NewZoneSwitch(client *Client, layout config.Layout) *ZoneSwitch {
	return &ZoneSwitch{client: client, layout: layout}
}

func (s *ZoneSwitch) SetOn(ctx context.Context, zone int, on bool) error {
	zc, ok := s.layout.Zone(zone)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownZone, zone)
	}
	useMute := s.layout.MuteInsteadOfRelay

	var (
		confirmed bool
		err       error
	)
	switch {
	case on && useMute:
		confirmed, err = s.client.UnmuteZone(ctx, zone)
	case on:
		confirmed, err = s.client.TurnOnZone(ctx, zone)
	case useMute:
		confirmed, err = s.client.MuteZone(ctx, zone)
	default:
		confirmed, err = s.client.TurnOffZone(ctx, zone)
	}
	if err != nil {
		return err
	}
	if !confirmed {
		log.Warn().Int("zone", zone).Bool("on", on).Bool("mute", useMute).Msg("amp.ZoneSwitch.SetOn not confirmed")
	}
	if !on {
		return nil
	}
	return s.applyDefaults(ctx, zc)
}

// IsOn reports not-muted under the mute policy, powered otherwise.
func (s *ZoneSwitch) IsOn(ctx context.Context, zone int) (bool, error) {
	if _, ok := s.layout.Zone(zone); !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownZone, zone)
	}
	if s.layout.MuteInsteadOfRelay {
		muted, err := s.client.IsZoneMuted(ctx, zone)
		return !muted, err
	}
	return s.client.IsZoneOn(ctx, zone)
}

// ApplyDefaults sets the zone's configured volume, treble and bass.
func (s *ZoneSwitch) ApplyDefaults(ctx context.Context, zone int) error {
	zc, ok := s.layout.Zone(zone)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownZone, zone)
	}
	return s.applyDefaults(ctx, zc)
}

// ApplyAllDefaults applies defaults to every configured zone and joins the
// failures.
func (s *ZoneSwitch) ApplyAllDefaults(ctx context.Context) error {
	var errs []error
	for _, zc := range s.layout.Zones {
		if err := s.applyDefaults(ctx, zc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *ZoneSwitch) applyDefaults(ctx context.Context, zc config.ZoneConfig) error {
	volume := s.layout.ZoneVolume(zc)
	steps := []struct {
		name string
		want int
		set  func(context.Context, int, int) (bool, error)
	}{
		{"volume", volume, s.client.SetVolume},
		{"treble", zc.Treble, s.client.SetTreble},
		{"bass", zc.Bass, s.client.SetBass},
	}
	for _, step := range steps {
		ok, err := step.set(ctx, zc.ID, step.want)
		if err != nil {
			return fmt.Errorf("amp: zone %d %s: %w", zc.ID, step.name, err)
		}
		if !ok {
			log.Warn().Int("zone", zc.ID).Str("setting", step.name).Int("want", step.want).Msg("amp.ZoneSwitch.applyDefaults not confirmed")
		}
	}
	log.Debug().Int("zone", zc.ID).Int("volume", volume).Int("treble", zc.Treble).Int("bass", zc.Bass).Msg("amp.ZoneSwitch.applyDefaults")
	return nil
}
